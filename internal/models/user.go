package models

import "time"

const (
	RoleCustomer = "customer"
	RoleClerk    = "clerk"
	RoleAdmin    = "admin"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSummary is the slice of a user embedded in admin order views.
type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleClerk, RoleAdmin:
		return true
	}
	return false
}
