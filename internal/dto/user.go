package dto

import (
	"gorm.io/datatypes"

	"github.com/yukikurage/deliverynote-api/internal/models"
)

// UserDTO is the public profile of an account
type UserDTO struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Validated bool           `json:"validated"`
	Role      models.Role    `json:"role"`
	Name      string         `json:"name"`
	Lastname  string         `json:"lastname"`
	NIF       string         `json:"nif"`
	Company   datatypes.JSON `json:"company"`
	Logo      string         `json:"logo"`
}

// UserResponse wraps the profile returned by GET /user
type UserResponse struct {
	User UserDTO `json:"user"`
}

// TokenResponse carries a freshly signed access token
type TokenResponse struct {
	Token string `json:"token"`
}

// MessageResponse is the body of operations that return no entity
type MessageResponse struct {
	Message string `json:"message"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		Validated: user.Validated,
		Role:      user.Role,
		Name:      user.Name,
		Lastname:  user.Lastname,
		NIF:       user.NIF,
		Company:   user.Company,
		Logo:      user.Logo,
	}
}
