package auth

// Role is the application role assigned to a User. Roles are strictly
// ordered; a higher role implies every capability of the roles below it.
type Role string

const (
	// RoleReadOnly can view ledger data but not change it.
	RoleReadOnly Role = "readonly"
	// RoleUser can view and record entries.
	RoleUser Role = "user"
	// RoleAdmin can manage users and ledger configuration.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin is the bootstrap role granted to the first user ever.
	RoleSuperAdmin Role = "superadmin"
)

var roleRank = map[Role]int{
	RoleReadOnly:   0,
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	currentLevel, exists := roleRank[r]
	if !exists {
		return false
	}

	minLevel, exists := roleRank[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// AllRoles returns all predefined roles in hierarchical order
func AllRoles() []Role {
	return []Role{
		RoleReadOnly,
		RoleUser,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// RoleAssignment is either a concrete Role or unassigned. A principal whose
// identity never got reconciled into a User stays authenticated but carries
// an unassigned role, so every role gated policy fails for it.
type RoleAssignment struct {
	role     Role
	assigned bool
}

// AssignedRole wraps a concrete role.
func AssignedRole(r Role) RoleAssignment {
	return RoleAssignment{role: r, assigned: true}
}

// UnassignedRole returns the empty assignment.
func UnassignedRole() RoleAssignment {
	return RoleAssignment{}
}

// Assigned reports whether a concrete role is present.
func (ra RoleAssignment) Assigned() bool {
	return ra.assigned
}

// Role returns the concrete role and whether one is assigned.
func (ra RoleAssignment) Role() (Role, bool) {
	return ra.role, ra.assigned
}

// IsAtLeast checks the assigned role against a minimum. Unassigned never
// satisfies any minimum.
func (ra RoleAssignment) IsAtLeast(minRole Role) bool {
	if !ra.assigned {
		return false
	}
	return ra.role.IsAtLeast(minRole)
}

func (ra RoleAssignment) String() string {
	if !ra.assigned {
		return "unassigned"
	}
	return string(ra.role)
}
