package directory

import (
	"context"
	"sync"

	"github.com/verdantis/fulfillment/internal/domain"
)

// StaticDirectory — in-memory справочник имён организаций. Продовый
// контур платформы подменяет его клиентом сервиса организаций; контуру
// исполнения заказов важен только интерфейс.
type StaticDirectory struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewStaticDirectory создаёт справочник с заданными именами.
func NewStaticDirectory(names map[string]string) *StaticDirectory {
	copied := make(map[string]string, len(names))
	for id, name := range names {
		copied[id] = name
	}
	return &StaticDirectory{names: copied}
}

// Set добавляет либо обновляет имя организации.
func (d *StaticDirectory) Set(organizationID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[organizationID] = name
}

// DisplayName возвращает имя организации; для неизвестного ID — сам ID,
// чтобы списки оставались читаемыми.
func (d *StaticDirectory) DisplayName(_ context.Context, organizationID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.names[organizationID]; ok {
		return name
	}
	return organizationID
}

var _ domain.OrganizationDirectory = (*StaticDirectory)(nil)
