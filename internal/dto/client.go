package dto

import (
	"time"

	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/utils"
)

// ClientDTO represents a client in API responses
type ClientDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Lastname  string    `json:"lastname"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClientListResponse represents a paginated list of clients
type ClientListResponse struct {
	Clients    []ClientDTO `json:"clients"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
}

// ToClientDTO converts a Client model to ClientDTO
func ToClientDTO(client models.Client) ClientDTO {
	return ClientDTO{
		ID:        client.ID,
		UserID:    client.UserID,
		Email:     client.Email,
		Name:      client.Name,
		Lastname:  client.Lastname,
		Address:   client.Address,
		CreatedAt: client.CreatedAt,
	}
}

// ToClientDTOs converts a slice of clients
func ToClientDTOs(clients []models.Client) []ClientDTO {
	items := make([]ClientDTO, len(clients))
	for i, client := range clients {
		items[i] = ToClientDTO(client)
	}
	return items
}

// ToClientListResponse converts one page of clients to ClientListResponse
func ToClientListResponse(clients []models.Client, page *utils.PaginationParams, total int64) ClientListResponse {
	totalPages := int(total) / page.Limit
	if int(total)%page.Limit > 0 {
		totalPages++
	}

	return ClientListResponse{
		Clients:    ToClientDTOs(clients),
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
