package repository

import (
	"context"

	"github.com/yukikurage/deliverynote-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// Save persists every column of an existing user
func (r *GormUserRepository) Save(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error)
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id string, vis Visibility) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Scopes(vis.scope).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string, vis Visibility) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Scopes(vis.scope).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Delete removes a user together with everything it owns
func (r *GormUserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clientIDs := tx.Model(&models.Client{}).Select("id").Where("user_id = ?", id)
		if err := deleteProjectsOf(tx, clientIDs); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Client{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.User{}).Error
	})
}

// deleteProjectsOf removes the projects (and their notes) of the clients selected by clientIDs.
func deleteProjectsOf(tx *gorm.DB, clientIDs *gorm.DB) error {
	projectIDs := tx.Model(&models.Project{}).Select("id").Where("client_id IN (?)", clientIDs)
	if err := tx.Where("project_id IN (?)", projectIDs).Delete(&models.DeliveryNote{}).Error; err != nil {
		return err
	}
	return tx.Where("client_id IN (?)", clientIDs).Delete(&models.Project{}).Error
}
