package repository

import (
	"context"

	"github.com/yukikurage/deliverynote-api/internal/database"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"gorm.io/gorm"
)

// GormClientRepository is a GORM implementation of ClientRepository
type GormClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &GormClientRepository{db: db}
}

// Create inserts a new client
func (r *GormClientRepository) Create(ctx context.Context, client *models.Client) error {
	return translate(r.db.WithContext(ctx).Create(client).Error)
}

// FindByID finds a client owned by userID
func (r *GormClientRepository) FindByID(ctx context.Context, userID, id string, vis Visibility) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Scopes(vis.scope).
		Where("id = ? AND user_id = ?", id, userID).
		First(&client).Error
	if err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

// FindByEmail finds a client of userID by email
func (r *GormClientRepository) FindByEmail(ctx context.Context, userID, email string, vis Visibility) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Scopes(vis.scope).
		Where("user_id = ? AND email = ?", userID, email).
		First(&client).Error
	if err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

// List retrieves clients matching the filter, newest first
func (r *GormClientRepository) List(ctx context.Context, filter ClientFilter) ([]models.Client, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Scopes(filter.Visibility.scope).
		Where("user_id = ?", filter.UserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	clients := []models.Client{}
	err := query.
		Order("created_at DESC").
		Scopes(database.Paginate(filter.Page)).
		Find(&clients).Error
	if err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

// Update applies the given columns to an active client and reports the rows matched
func (r *GormClientRepository) Update(ctx context.Context, userID, id string, fields map[string]interface{}) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Scopes(Active.scope).
		Where("id = ? AND user_id = ?", id, userID)

	if len(fields) == 0 {
		var count int64
		err := query.Count(&count).Error
		return count, err
	}

	result := query.Updates(fields)
	return result.RowsAffected, translate(result.Error)
}

// SetArchived flips the deleted flag on a client currently in the opposite state
func (r *GormClientRepository) SetArchived(ctx context.Context, userID, id string, archived bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Client{}).
		Scopes(database.Archived(!archived)).
		Where("id = ? AND user_id = ?", id, userID).
		Update("deleted", archived)
	return result.RowsAffected, translate(result.Error)
}

// Delete removes a client together with its projects and delivery notes
func (r *GormClientRepository) Delete(ctx context.Context, userID, id string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clientIDs := tx.Model(&models.Client{}).Select("id").Where("id = ? AND user_id = ?", id, userID)
		if err := deleteProjectsOf(tx, clientIDs); err != nil {
			return err
		}
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Client{})
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}
