package models

// Role is a user's primary role in this domain.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleHR        Role = "hr"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleApplicant || r == RoleHR || r == RoleAdmin
}

// User is an acting identity resolved by the auth layer.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
