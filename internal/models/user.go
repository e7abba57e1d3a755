package models

// RoleAdmin is the role given to the bootstrap account.
const RoleAdmin = "admin"

// User is an account allowed to log in. The users document is keyed by
// username, so Username is not part of the stored record.
type User struct {
	Username     string `json:"-"`
	PasswordHash string `json:"password"`
	Role         string `json:"role"`
}
