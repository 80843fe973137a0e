package domain

// Role определяет набор прав актёра в контуре исполнения заказов.
type Role string

const (
	// RolePatient — конечный покупатель; может создавать прямые заказы
	// и отменять их до подтверждения оплаты.
	RolePatient Role = "patient"
	// RoleOperator — оператор организации, включая сотрудников экспедиции.
	RoleOperator Role = "operator"
	// RolePlatformAdmin — платформенный администратор, не ограничен
	// организационным скоупом.
	RolePlatformAdmin Role = "platform_admin"
)

// Valid проверяет, что роль относится к известным значениям.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleOperator, RolePlatformAdmin:
		return true
	default:
		return false
	}
}

// Actor — уже разрешённая личность запроса. Аутентификация остаётся за
// внешним контуром: сюда личность приходит готовой.
type Actor struct {
	ID             string
	Role           Role
	OrganizationID string
}

// CanAccess сообщает, попадает ли заказ организации orgID в скоуп актёра.
func (a Actor) CanAccess(orgID string) bool {
	if a.Role == RolePlatformAdmin {
		return true
	}
	return a.OrganizationID != "" && a.OrganizationID == orgID
}
