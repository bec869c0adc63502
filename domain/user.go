package domain

import "time"

// User represents a registered account in the platform.
type User struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	FullName     string        `json:"full_name"`
	Phone        string        `json:"phone,omitempty"`
	Role         Role          `json:"role"`
	Status       AccountStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == StatusActive
}

// Principal projects the account onto the identity used for authorization.
func (u *User) Principal() *Principal {
	if u == nil {
		return nil
	}
	return &Principal{ID: u.ID, Role: u.Role, Status: u.Status}
}

// Principal is the authenticated caller of a single request.
type Principal struct {
	ID     string        `json:"id"`
	Role   Role          `json:"role"`
	Status AccountStatus `json:"status"`
}
