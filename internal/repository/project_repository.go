package repository

import (
	"context"

	"github.com/yukikurage/deliverynote-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create inserts a new project
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return translate(r.db.WithContext(ctx).Create(project).Error)
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id string, vis Visibility) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Scopes(vis.scope).
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// FindByName finds a project of a client by name
func (r *GormProjectRepository) FindByName(ctx context.Context, clientID, name string, vis Visibility) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Scopes(vis.scope).
		Where("client_id = ? AND name = ?", clientID, name).
		First(&project).Error
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// ListByClient retrieves the projects of a client, newest first
func (r *GormProjectRepository) ListByClient(ctx context.Context, clientID string, vis Visibility) ([]models.Project, error) {
	projects := []models.Project{}
	err := r.db.WithContext(ctx).
		Scopes(vis.scope).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// Save persists every column of an existing project
func (r *GormProjectRepository) Save(ctx context.Context, project *models.Project) error {
	return translate(r.db.WithContext(ctx).Save(project).Error)
}

// Delete removes a project together with its delivery notes
func (r *GormProjectRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.DeliveryNote{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Project{}).Error
	})
}
