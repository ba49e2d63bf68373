package models

import "time"

type Project struct {
	ID          string    `gorm:"type:varchar(36);primarykey" json:"id"`
	ClientID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_projects_client_name" json:"client_id"`
	Name        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_projects_client_name" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Deleted     bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Relations
	DeliveryNotes []DeliveryNote `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}
