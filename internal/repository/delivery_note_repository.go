package repository

import (
	"context"

	"github.com/yukikurage/deliverynote-api/internal/models"
	"gorm.io/gorm"
)

// GormDeliveryNoteRepository is a GORM implementation of DeliveryNoteRepository
type GormDeliveryNoteRepository struct {
	db *gorm.DB
}

// NewDeliveryNoteRepository creates a new DeliveryNoteRepository
func NewDeliveryNoteRepository(db *gorm.DB) DeliveryNoteRepository {
	return &GormDeliveryNoteRepository{db: db}
}

// Create inserts a new delivery note
func (r *GormDeliveryNoteRepository) Create(ctx context.Context, note *models.DeliveryNote) error {
	return translate(r.db.WithContext(ctx).Create(note).Error)
}

// FindByID finds a delivery note by ID
func (r *GormDeliveryNoteRepository) FindByID(ctx context.Context, id string, vis Visibility) (*models.DeliveryNote, error) {
	var note models.DeliveryNote
	err := r.db.WithContext(ctx).
		Scopes(vis.scope).
		Where("id = ?", id).
		First(&note).Error
	if err != nil {
		return nil, translate(err)
	}
	return &note, nil
}

// ListByProject retrieves the delivery notes of a project, newest first
func (r *GormDeliveryNoteRepository) ListByProject(ctx context.Context, projectID string, vis Visibility) ([]models.DeliveryNote, error) {
	notes := []models.DeliveryNote{}
	err := r.db.WithContext(ctx).
		Scopes(vis.scope).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// Save persists every column of an existing delivery note
func (r *GormDeliveryNoteRepository) Save(ctx context.Context, note *models.DeliveryNote) error {
	return translate(r.db.WithContext(ctx).Save(note).Error)
}

// Delete removes a delivery note
func (r *GormDeliveryNoteRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DeliveryNote{}).Error
}
