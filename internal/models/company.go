package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

type Address struct {
	Street     string `json:"street,omitempty"`
	Number     int    `json:"number,omitempty"`
	PostalCode int    `json:"postalCode,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
}

// Company is the business a user invoices as.
type Company struct {
	Name    string  `json:"name"`
	CIF     string  `json:"cif"`
	Address Address `json:"address"`
}

// SelfEmployedCompany describes a user who works under their own name and tax id.
func SelfEmployedCompany(u *User) Company {
	return Company{Name: u.Name, CIF: u.NIF}
}

// SetCompany stores c as the user's company document.
func (u *User) SetCompany(c Company) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	u.Company = datatypes.JSON(raw)
	return nil
}
