package dto

import (
	"time"

	"github.com/yukikurage/deliverynote-api/internal/models"
)

// DeliveryNoteDTO represents a delivery note in API responses
type DeliveryNoteDTO struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	Data      []models.LineItem `json:"data"`
	Signature *string           `json:"signature"`
	CreatedAt time.Time         `json:"createdAt"`
}

// DraftResponse holds suggested line items that have not been saved
type DraftResponse struct {
	ProjectID string            `json:"project_id"`
	Data      []models.LineItem `json:"data"`
}

// ToDeliveryNoteDTO converts a DeliveryNote model to DeliveryNoteDTO
func ToDeliveryNoteDTO(note models.DeliveryNote) DeliveryNoteDTO {
	data := []models.LineItem(note.Data)
	if data == nil {
		data = []models.LineItem{}
	}
	return DeliveryNoteDTO{
		ID:        note.ID,
		ProjectID: note.ProjectID,
		Data:      data,
		Signature: note.Signature,
		CreatedAt: note.CreatedAt,
	}
}

// ToDeliveryNoteDTOs converts a slice of delivery notes
func ToDeliveryNoteDTOs(notes []models.DeliveryNote) []DeliveryNoteDTO {
	items := make([]DeliveryNoteDTO, len(notes))
	for i, note := range notes {
		items[i] = ToDeliveryNoteDTO(note)
	}
	return items
}
