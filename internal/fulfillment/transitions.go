package fulfillment

import "github.com/verdantis/fulfillment/internal/domain"

// Коды причин отказа таблицы переходов. Отдаются клиенту как есть.
const (
	ReasonUnknownStatus        = "unknown_status"
	ReasonSameStatus           = "same_status"
	ReasonTerminalStatus       = "terminal_status"
	ReasonTransitionNotAllowed = "transition_not_allowed"
)

// Decision — результат сверки пары статусов с таблицей переходов.
type Decision struct {
	Allowed bool
	// RequiredRoles перечисляет роли, которым разрешён переход.
	RequiredRoles []domain.Role
	// Reason заполняется только для запрещённых переходов.
	Reason string
}

// AllowsRole проверяет, входит ли роль в список разрешённых.
func (d Decision) AllowsRole(role domain.Role) bool {
	for _, r := range d.RequiredRoles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	rolesOperators   = []domain.Role{domain.RoleOperator, domain.RolePlatformAdmin}
	rolesCancelEarly = []domain.Role{domain.RolePatient, domain.RoleOperator, domain.RolePlatformAdmin}
	rolesAdminOnly   = []domain.Role{domain.RolePlatformAdmin}
)

// adminCancellable перечисляет статусы, из которых отмена доступна только
// через административный override.
var adminCancellable = map[domain.OrderStatus]bool{
	domain.OrderStatusDraft:   true,
	domain.OrderStatusShipped: true,
}

// transitionTable — единственный источник правды о направленном графе
// статусов. Отмена из pending/approved доступна и инициатору-пациенту;
// начиная с payment_confirmed средства могут быть уже зарезервированы,
// поэтому вперёд заказ двигают только операторы и администраторы.
var transitionTable = map[domain.OrderStatus]map[domain.OrderStatus][]domain.Role{
	domain.OrderStatusDraft: {
		domain.OrderStatusPending: rolesOperators,
	},
	domain.OrderStatusPending: {
		domain.OrderStatusApproved:  rolesOperators,
		domain.OrderStatusCancelled: rolesCancelEarly,
	},
	domain.OrderStatusApproved: {
		domain.OrderStatusPaymentConfirmed: rolesOperators,
		domain.OrderStatusCancelled:        rolesCancelEarly,
	},
	domain.OrderStatusPaymentConfirmed: {
		domain.OrderStatusInPreparation: rolesOperators,
		domain.OrderStatusCancelled:     rolesOperators,
		domain.OrderStatusRefunded:      rolesOperators,
	},
	domain.OrderStatusInPreparation: {
		domain.OrderStatusShipped:   rolesOperators,
		domain.OrderStatusCancelled: rolesOperators,
	},
	domain.OrderStatusShipped: {
		domain.OrderStatusDelivered: rolesOperators,
	},
	domain.OrderStatusDelivered: {
		// Пост-доставочный возврат.
		domain.OrderStatusRefunded: rolesOperators,
	},
}

// Decide — чистая проверка пары (текущий статус, запрошенный статус).
// Никаких побочных эффектов: только вердикт и требуемые роли.
func Decide(from, to domain.OrderStatus) Decision {
	if !to.Valid() {
		return Decision{Reason: ReasonUnknownStatus}
	}
	if from == to {
		// Сам по себе переход запрещён; движок трактует его как
		// идемпотентный no-op, а не как ошибку.
		return Decision{Reason: ReasonSameStatus}
	}

	if roles, ok := transitionTable[from][to]; ok {
		return Decision{Allowed: true, RequiredRoles: roles}
	}

	// Явный override: статусы без собственного ребра отмены может снять
	// администратор. delivered сюда не входит: после доставки возможен
	// только возврат.
	if to == domain.OrderStatusCancelled && adminCancellable[from] {
		return Decision{Allowed: true, RequiredRoles: rolesAdminOnly}
	}

	if from.Terminal() {
		return Decision{Reason: ReasonTerminalStatus}
	}
	return Decision{Reason: ReasonTransitionNotAllowed}
}
