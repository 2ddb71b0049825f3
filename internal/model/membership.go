package model

// Membership roles.  Only admins may mutate admission or check-in state
// for events owned by their fraternity.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Membership links a user to a fraternity with a role.  The memberships
// table is owned by the external identity service; this service reads it
// exclusively for authorization.
type Membership struct {
	UserID       string // memberships.user_id
	FraternityID string // memberships.fraternity_id
	Role         string // memberships.role
}
