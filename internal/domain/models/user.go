package models

const (
	RoleCustomer = "customer"
	RoleManager  = "manager"
)

// User представляет пользователя
type User struct {
	ID       int64
	Email    string
	PassHash []byte
	Role     string
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}
