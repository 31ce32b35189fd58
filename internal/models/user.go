// Package models contains data structures for the forum's domain models.
package models

import "time"

// Role names granted to users.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Role is a named authority that can be granted to many users.
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"size:32;not null;uniqueIndex" json:"name"`
}

// User is a registered forum account.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:32;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:100;not null;uniqueIndex" json:"-"`
	DisplayName  string    `gorm:"size:50" json:"display_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Enabled      bool      `gorm:"not null;default:true" json:"-"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Roles        []Role    `gorm:"many2many:user_roles" json:"roles,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the loaded Roles include name.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
