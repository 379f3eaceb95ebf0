package model

import "time"

// User represents an account. Accounts are created either through local
// registration (email + password) or auto-provisioned on first external
// login, in which case FirebaseUID carries the provider's subject id.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	FirebaseUID  string    `json:"-"`
	PasswordHash string    `json:"-"`
	PhotoURL     string    `json:"photoURL,omitempty"`
	Admin        bool      `json:"admin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
