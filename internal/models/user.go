package models

import (
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
)

type User struct {
	ID                 string         `gorm:"type:varchar(36);primarykey" json:"id"`
	Email              string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash       string         `gorm:"type:varchar(255);not null" json:"-"`
	Validated          bool           `gorm:"not null;default:false" json:"validated"`
	ValidationCode     string         `gorm:"type:varchar(6);not null" json:"-"`
	ValidationAttempts int            `gorm:"not null;default:3" json:"-"`
	ValidatedAt        *time.Time     `json:"-"`
	Role               Role           `gorm:"type:varchar(10);not null;default:'user'" json:"role"`
	Name               string         `gorm:"type:varchar(255)" json:"name"`
	Lastname           string         `gorm:"type:varchar(255)" json:"lastname"`
	NIF                string         `gorm:"column:nif;type:varchar(32)" json:"nif"`
	Logo               string         `gorm:"type:varchar(512)" json:"logo"`
	Company            datatypes.JSON `json:"company"`
	Deleted            bool           `gorm:"not null;default:false;index" json:"-"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`

	// Relations
	Clients []Client `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
