package domain

// Role names a caller's privilege level as carried in the token.
type Role string

// RoleAdmin is the default role required by every admin route.
const RoleAdmin Role = "admin"

// Principal is the authenticated caller of an admin request.
type Principal struct {
	Subject string
	Role    Role
}

// HasRole reports whether the principal carries role.
func (p Principal) HasRole(role Role) bool {
	return role != "" && p.Role == role
}
