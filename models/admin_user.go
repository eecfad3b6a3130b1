package models

import (
	"time"

	"gorm.io/gorm"
)

// AdminUser can sign in to the admin panel. Passwords are stored as bcrypt hashes only.
type AdminUser struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *AdminUser) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// ContactMessage is a submission from the public contact form.
type ContactMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Subject   string    `gorm:"size:255" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	IP        string    `gorm:"size:45" json:"ip"`
	Handled   bool      `gorm:"index;default:false" json:"handled"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// All lists every model managed by migrations.
func All() []interface{} {
	return []interface{}{
		&AdminUser{},
		&TeamMember{},
		&Mentor{},
		&Program{},
		&Startup{},
		&Event{},
		&BlogPost{},
		&Asset{},
		&ContactMessage{},
		&PageView{},
	}
}
