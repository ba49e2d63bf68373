package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/repository"
)

// ProjectService provides business logic for project operations.
type ProjectService struct {
	clients  repository.ClientRepository
	projects repository.ProjectRepository
	owner    *Ownership
}

// NewProjectService creates a new ProjectService.
func NewProjectService(clients repository.ClientRepository, projects repository.ProjectRepository, owner *Ownership) *ProjectService {
	return &ProjectService{clients: clients, projects: projects, owner: owner}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	ClientID    string
	Name        string
	Description string
}

// UpdateProjectInput carries the fields a project update may touch. Nil means unchanged.
type UpdateProjectInput struct {
	ClientID    *string
	Name        *string
	Description *string
}

// List returns the active projects of every active client of the user.
func (s *ProjectService) List(ctx context.Context, userID string) ([]models.Project, error) {
	return s.listAcrossClients(ctx, userID, repository.Active)
}

// ListArchived returns the archived projects of every active client of the user.
func (s *ProjectService) ListArchived(ctx context.Context, userID string) ([]models.Project, error) {
	return s.listAcrossClients(ctx, userID, repository.Archived)
}

func (s *ProjectService) listAcrossClients(ctx context.Context, userID string, vis repository.Visibility) ([]models.Project, error) {
	clients, _, err := s.clients.List(ctx, repository.ClientFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	projects, err := fanOut(ctx, clients, func(ctx context.Context, c models.Client) ([]models.Project, error) {
		return s.projects.ListByClient(ctx, c.ID, vis)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// ListByClient returns the active projects of one client.
func (s *ProjectService) ListByClient(ctx context.Context, userID, clientID string) ([]models.Project, error) {
	return s.listByClient(ctx, userID, clientID, repository.Active)
}

// ListArchivedByClient returns the archived projects of one client.
func (s *ProjectService) ListArchivedByClient(ctx context.Context, userID, clientID string) ([]models.Project, error) {
	return s.listByClient(ctx, userID, clientID, repository.Archived)
}

func (s *ProjectService) listByClient(ctx context.Context, userID, clientID string, vis repository.Visibility) ([]models.Project, error) {
	if _, err := s.owner.Client(ctx, userID, clientID, repository.Active); err != nil {
		return nil, asNotFound(err, entityClient, clientID)
	}
	projects, err := s.projects.ListByClient(ctx, clientID, vis)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Get returns an active project reachable by the user.
func (s *ProjectService) Get(ctx context.Context, userID, id string) (*models.Project, error) {
	project, _, err := s.owner.Project(ctx, userID, id, repository.Active)
	if err != nil {
		return nil, asNotFound(err, entityProject, id)
	}
	return project, nil
}

// Create adds a project under one of the user's clients.
func (s *ProjectService) Create(ctx context.Context, userID string, input CreateProjectInput) (*models.Project, error) {
	if _, err := s.owner.Client(ctx, userID, input.ClientID, repository.Active); err != nil {
		return nil, asNotFound(err, entityClient, input.ClientID)
	}

	conflict := fmt.Sprintf("Conflict. Project with name '%s' already exists for this client", input.Name)
	if err := s.checkNameFree(ctx, input.ClientID, input.Name, "", conflict); err != nil {
		return nil, err
	}

	project := &models.Project{
		ClientID:    input.ClientID,
		Name:        input.Name,
		Description: input.Description,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: conflict}
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// Update applies the submitted fields, moving the project to another client when
// ClientID names a different one.
func (s *ProjectService) Update(ctx context.Context, userID, id string, input UpdateProjectInput) (*models.Project, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, &ValidationError{Messages: []string{"'name' field must not be empty"}}
	}

	project, _, err := s.owner.Project(ctx, userID, id, repository.Active)
	if err != nil {
		return nil, asNotFound(err, entityProject, id)
	}

	targetClientID := project.ClientID
	moving := input.ClientID != nil && *input.ClientID != project.ClientID
	if moving {
		targetClientID = *input.ClientID
		if _, err := s.owner.Client(ctx, userID, targetClientID, repository.Active); err != nil {
			return nil, asNotFound(err, entityClient, targetClientID)
		}
	}

	name := project.Name
	if input.Name != nil {
		name = *input.Name
	}

	conflict := fmt.Sprintf("Conflict. Project with name '%s' already exists for this client", name)
	if moving {
		conflict = fmt.Sprintf("Conflict. Project with name '%s' already exists for the target client with id '%s'", name, targetClientID)
	}
	if moving || name != project.Name {
		if err := s.checkNameFree(ctx, targetClientID, name, project.ID, conflict); err != nil {
			return nil, err
		}
	}

	project.ClientID = targetClientID
	project.Name = name
	if input.Description != nil {
		project.Description = *input.Description
	}
	if err := s.projects.Save(ctx, project); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Message: conflict}
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// checkNameFree fails with a conflict when another project of clientID, archived
// or not, already uses name.
func (s *ProjectService) checkNameFree(ctx context.Context, clientID, name, selfID, conflict string) error {
	existing, err := s.projects.FindByName(ctx, clientID, name, repository.AnyState)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check project name: %w", err)
	case existing.ID == selfID:
		return nil
	default:
		return &ConflictError{Message: conflict, ExistingID: existing.ID}
	}
}

// Delete archives the project when soft is set, otherwise removes it and its notes.
// Hard deletes also reach archived projects.
func (s *ProjectService) Delete(ctx context.Context, userID, id string, soft bool) error {
	vis := repository.AnyState
	if soft {
		vis = repository.Active
	}
	project, _, err := s.owner.Project(ctx, userID, id, vis)
	if err != nil {
		return asNotFound(err, entityProject, id)
	}

	if soft {
		project.Deleted = true
		err = s.projects.Save(ctx, project)
	} else {
		err = s.projects.Delete(ctx, project.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// Restore brings an archived project back.
func (s *ProjectService) Restore(ctx context.Context, userID, id string) (*models.Project, error) {
	project, _, err := s.owner.Project(ctx, userID, id, repository.Archived)
	if err != nil {
		return nil, asNotFound(err, entityProject, id)
	}
	project.Deleted = false
	if err := s.projects.Save(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to restore project: %w", err)
	}
	return project, nil
}
