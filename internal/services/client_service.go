package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/repository"
	"github.com/yukikurage/deliverynote-api/internal/utils"
)

const msgClientEmailTaken = "Conflict. User already has a client with that email"

// ClientService provides business logic for client operations.
type ClientService struct {
	clients repository.ClientRepository
}

// NewClientService creates a new ClientService.
func NewClientService(clients repository.ClientRepository) *ClientService {
	return &ClientService{clients: clients}
}

// CreateClientInput represents parameters to create a new client.
type CreateClientInput struct {
	Email    string
	Name     string
	Lastname string
	Address  string
}

// UpdateClientInput carries the fields a client update may touch. Nil means unchanged.
type UpdateClientInput struct {
	Email    *string
	Name     *string
	Lastname *string
	Address  *string
}

func (in UpdateClientInput) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Lastname != nil {
		fields["lastname"] = *in.Lastname
	}
	if in.Address != nil {
		fields["address"] = *in.Address
	}
	return fields
}

// List returns the active clients of a user. A nil page returns every row.
func (s *ClientService) List(ctx context.Context, userID string, page *utils.PaginationParams) ([]models.Client, int64, error) {
	return s.list(ctx, userID, repository.Active, page)
}

// ListArchived returns the archived clients of a user.
func (s *ClientService) ListArchived(ctx context.Context, userID string, page *utils.PaginationParams) ([]models.Client, int64, error) {
	return s.list(ctx, userID, repository.Archived, page)
}

func (s *ClientService) list(ctx context.Context, userID string, vis repository.Visibility, page *utils.PaginationParams) ([]models.Client, int64, error) {
	clients, total, err := s.clients.List(ctx, repository.ClientFilter{
		UserID:     userID,
		Visibility: vis,
		Page:       page,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, total, nil
}

// Get returns an active client owned by the user.
func (s *ClientService) Get(ctx context.Context, userID, id string) (*models.Client, error) {
	client, err := s.clients.FindByID(ctx, userID, id, repository.Active)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(entityClient, id)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// Create adds a client to the user. Emails are unique per user, archived clients included.
func (s *ClientService) Create(ctx context.Context, userID string, input CreateClientInput) (*models.Client, error) {
	existing, err := s.clients.FindByEmail(ctx, userID, input.Email, repository.AnyState)
	switch {
	case err == nil:
		return nil, &ConflictError{Message: msgClientEmailTaken, ExistingID: existing.ID}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to check client email: %w", err)
	}

	client := &models.Client{
		UserID:   userID,
		Email:    input.Email,
		Name:     input.Name,
		Lastname: input.Lastname,
		Address:  input.Address,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		// Lost the race against a concurrent insert.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: msgClientEmailTaken}
		}
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Update applies the submitted fields to an active client.
func (s *ClientService) Update(ctx context.Context, userID, id string, input UpdateClientInput) error {
	if input.Email != nil {
		existing, err := s.clients.FindByEmail(ctx, userID, *input.Email, repository.AnyState)
		switch {
		case err == nil && existing.ID != id:
			return &ConflictError{Message: msgClientEmailTaken, ExistingID: existing.ID}
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("failed to check client email: %w", err)
		}
	}

	matched, err := s.clients.Update(ctx, userID, id, input.fields())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return &ConflictError{Message: msgClientEmailTaken}
		}
		return fmt.Errorf("failed to update client: %w", err)
	}
	if matched == 0 {
		return notFound(entityClient, id)
	}
	return nil
}

// Delete archives the client when soft is set, otherwise removes it with everything below it.
func (s *ClientService) Delete(ctx context.Context, userID, id string, soft bool) error {
	var (
		affected int64
		err      error
	)
	if soft {
		affected, err = s.clients.SetArchived(ctx, userID, id, true)
	} else {
		affected, err = s.clients.Delete(ctx, userID, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if soft {
		// Archiving an already archived client succeeds.
		_, err := s.clients.FindByID(ctx, userID, id, repository.Archived)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("failed to delete client: %w", err)
		}
	}
	return notFound(entityClient, id)
}

// Restore brings an archived client back.
func (s *ClientService) Restore(ctx context.Context, userID, id string) error {
	affected, err := s.clients.SetArchived(ctx, userID, id, false)
	if err != nil {
		return fmt.Errorf("failed to restore client: %w", err)
	}
	if affected == 0 {
		return notFound(entityClient, id)
	}
	return nil
}
