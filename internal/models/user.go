package models

import (
	"time"
)

const (
	RoleAdmin   = 1
	RoleCitizen = 2
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(100);not null"`
	Email        string    `json:"email" gorm:"type:varchar(120);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	Phone        *string   `json:"phone" gorm:"type:varchar(20)"`
	Address      *string   `json:"address" gorm:"type:varchar(200)"`
	NationalID   *string   `json:"national_id" gorm:"type:varchar(20)"`
	Role         int       `json:"role" gorm:"not null;default:2"` // 1 admin, 2 citizen
	CreatedAt    time.Time `json:"created_at"`
	Active       bool      `json:"active" gorm:"not null;default:true"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Session backs a signed session token so logout and deactivation take
// effect before the token expires.
type Session struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Token     string    `json:"-" gorm:"type:varchar(500);uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

type AuditLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"index"`
	Action     string    `json:"action" gorm:"type:varchar(50);not null"` // login, logout, update, export, reset_password
	Resource   string    `json:"resource" gorm:"type:varchar(50)"`        // reportes, denuncias, usuarios, contactos
	ResourceID string    `json:"resource_id" gorm:"type:varchar(50)"`
	Details    string    `json:"details" gorm:"type:text"`
	IPAddress  string    `json:"ip_address" gorm:"type:varchar(45)"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// ResetToken is a single-use password reset credential. Rows are kept after
// use; validity is used=false and now < expires_at.
type ResetToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Token     string    `json:"-" gorm:"type:varchar(100);uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	Used      bool      `json:"used" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *ResetToken) Valid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
