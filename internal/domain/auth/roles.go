package auth

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"

	UserStatusActive = "active"
)

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleEmployee
}
