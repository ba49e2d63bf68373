package models

import "time"

type Client struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_clients_user_email" json:"user_id"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_clients_user_email" json:"email"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Lastname  string    `gorm:"type:varchar(255)" json:"lastname"`
	Address   string    `gorm:"type:varchar(512)" json:"address"`
	Deleted   bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Projects []Project `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`
}
