package repository

import (
	"context"

	"github.com/yukikurage/deliverynote-api/internal/database"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/utils"
	"gorm.io/gorm"
)

// Visibility selects rows by their archive flag. The zero value reads only active rows.
type Visibility int

const (
	Active Visibility = iota
	Archived
	AnyState
)

func (v Visibility) scope(db *gorm.DB) *gorm.DB {
	switch v {
	case Archived:
		return db.Scopes(database.Archived(true))
	case AnyState:
		return db
	default:
		return db.Scopes(database.Archived(false))
	}
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a new user
	Create(ctx context.Context, user *models.User) error

	// Save persists every column of an existing user
	Save(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string, vis Visibility) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string, vis Visibility) (*models.User, error)

	// Delete removes a user together with everything it owns
	Delete(ctx context.Context, id string) error
}

// ClientFilter holds filtering options for listing clients
type ClientFilter struct {
	UserID     string
	Visibility Visibility
	Page       *utils.PaginationParams
}

// ClientRepository defines the interface for client data access.
// Every method is scoped to the owning user.
type ClientRepository interface {
	// Create inserts a new client
	Create(ctx context.Context, client *models.Client) error

	// FindByID finds a client owned by userID
	FindByID(ctx context.Context, userID, id string, vis Visibility) (*models.Client, error)

	// FindByEmail finds a client of userID by email
	FindByEmail(ctx context.Context, userID, email string, vis Visibility) (*models.Client, error)

	// List retrieves clients matching the filter, newest first
	List(ctx context.Context, filter ClientFilter) ([]models.Client, int64, error)

	// Update applies the given columns to an active client and reports the rows matched
	Update(ctx context.Context, userID, id string, fields map[string]interface{}) (int64, error)

	// SetArchived flips the deleted flag on a client currently in the opposite state
	SetArchived(ctx context.Context, userID, id string, archived bool) (int64, error)

	// Delete removes a client together with its projects and delivery notes
	Delete(ctx context.Context, userID, id string) (int64, error)
}

// ProjectRepository defines the interface for project data access.
// Ownership is resolved by the caller.
type ProjectRepository interface {
	// Create inserts a new project
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a project by ID
	FindByID(ctx context.Context, id string, vis Visibility) (*models.Project, error)

	// FindByName finds a project of a client by name
	FindByName(ctx context.Context, clientID, name string, vis Visibility) (*models.Project, error)

	// ListByClient retrieves the projects of a client, newest first
	ListByClient(ctx context.Context, clientID string, vis Visibility) ([]models.Project, error)

	// Save persists every column of an existing project
	Save(ctx context.Context, project *models.Project) error

	// Delete removes a project together with its delivery notes
	Delete(ctx context.Context, id string) error
}

// DeliveryNoteRepository defines the interface for delivery note data access.
// Ownership is resolved by the caller.
type DeliveryNoteRepository interface {
	// Create inserts a new delivery note
	Create(ctx context.Context, note *models.DeliveryNote) error

	// FindByID finds a delivery note by ID
	FindByID(ctx context.Context, id string, vis Visibility) (*models.DeliveryNote, error)

	// ListByProject retrieves the delivery notes of a project, newest first
	ListByProject(ctx context.Context, projectID string, vis Visibility) ([]models.DeliveryNote, error)

	// Save persists every column of an existing delivery note
	Save(ctx context.Context, note *models.DeliveryNote) error

	// Delete removes a delivery note
	Delete(ctx context.Context, id string) error
}
