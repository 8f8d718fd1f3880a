package domain

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleReceptionist Role = "receptionist"
	RoleCustomer     Role = "customer"
)

var roleRank = map[Role]int{
	RoleCustomer:     1,
	RoleReceptionist: 2,
	RoleManager:      3,
	RoleAdmin:        4,
}

func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min. Unknown roles rank below everything.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] > 0 && roleRank[r] >= roleRank[min]
}

// IsStaff reports whether r may act on bookings it did not create.
func (r Role) IsStaff() bool {
	return r.AtLeast(RoleReceptionist)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	Subject string
	Role    Role
}

// CanAccess reports whether the actor may act on a record created by createdBy.
func (a Actor) CanAccess(createdBy string) bool {
	return a.Role.IsStaff() || (a.Subject != "" && a.Subject == createdBy)
}
