package enums

import "fmt"

// UserRole represents the caller's permission level inside a tenant.
type UserRole string

const (
	UserRoleUser            UserRole = "user"
	UserRoleInspector       UserRole = "inspector"
	UserRoleMaterialManager UserRole = "material_manager"
	UserRoleAdmin           UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleUser,
	UserRoleInspector,
	UserRoleMaterialManager,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Level orders roles; unknown roles rank below every known role.
func (r UserRole) Level() int {
	for idx, candidate := range validUserRoles {
		if candidate == r {
			return idx + 1
		}
	}
	return 0
}

// AtLeast reports whether r grants everything min grants.
func (r UserRole) AtLeast(min UserRole) bool {
	return r.Level() > 0 && r.Level() >= min.Level()
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
