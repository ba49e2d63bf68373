package models

import (
	"time"

	"gorm.io/datatypes"
)

type LineItemType string

const (
	LineItemPerson   LineItemType = "person"
	LineItemMaterial LineItemType = "material"
)

// LineItem is one row of a delivery note: hours for a person or units of a material.
type LineItem struct {
	Type     LineItemType `json:"type"`
	Name     string       `json:"name"`
	Quantity float64      `json:"quantity"`
}

type DeliveryNote struct {
	ID        string                        `gorm:"type:varchar(36);primarykey" json:"id"`
	ProjectID string                        `gorm:"type:varchar(36);not null;index" json:"project_id"`
	Data      datatypes.JSONSlice[LineItem] `json:"data"`
	Signature *string                       `gorm:"type:varchar(512)" json:"signature"`
	Deleted   bool                          `gorm:"not null;default:false" json:"-"`
	CreatedAt time.Time                     `json:"createdAt"`
	UpdatedAt time.Time                     `json:"updatedAt"`
}

// Signed reports whether a signature image has been attached.
func (d *DeliveryNote) Signed() bool {
	return d.Signature != nil && *d.Signature != ""
}
