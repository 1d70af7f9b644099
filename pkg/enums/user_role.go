package enums

import "fmt"

// UserRole is the portal role carried in the access token issued by the identity service.
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleStaff    UserRole = "staff"
	UserRoleResident UserRole = "resident"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleStaff,
	UserRoleResident,
}

// ElevatedRoles lists the roles allowed on ledger administration routes.
var ElevatedRoles = []UserRole{UserRoleAdmin, UserRoleStaff}

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

// IsElevated reports whether the role may administer inventory, batches and claims.
func (r UserRole) IsElevated() bool {
	for _, candidate := range ElevatedRoles {
		if candidate == r {
			return true
		}
	}
	return false
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
