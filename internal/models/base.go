package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// IsValidID reports whether s is a well-formed entity id.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (d *DeliveryNote) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
