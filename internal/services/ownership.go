package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/repository"
)

// errChainBroken means some link between an entity and the caller is missing,
// archived, or owned by someone else.
var errChainBroken = errors.New("ownership chain broken")

// Ownership resolves DeliveryNote -> Project -> Client -> User chains.
// Parents are always required to be active; vis applies to the requested entity only.
type Ownership struct {
	clients  repository.ClientRepository
	projects repository.ProjectRepository
	notes    repository.DeliveryNoteRepository
}

func NewOwnership(clients repository.ClientRepository, projects repository.ProjectRepository, notes repository.DeliveryNoteRepository) *Ownership {
	return &Ownership{clients: clients, projects: projects, notes: notes}
}

// Client returns the client if userID owns it.
func (o *Ownership) Client(ctx context.Context, userID, clientID string, vis repository.Visibility) (*models.Client, error) {
	client, err := o.clients.FindByID(ctx, userID, clientID, vis)
	if err != nil {
		return nil, chainErr(err, "client")
	}
	return client, nil
}

// Project returns the project and its client if the chain reaches userID.
func (o *Ownership) Project(ctx context.Context, userID, projectID string, vis repository.Visibility) (*models.Project, *models.Client, error) {
	project, err := o.projects.FindByID(ctx, projectID, vis)
	if err != nil {
		return nil, nil, chainErr(err, "project")
	}
	client, err := o.Client(ctx, userID, project.ClientID, repository.Active)
	if err != nil {
		return nil, nil, err
	}
	return project, client, nil
}

// DeliveryNote returns the note with its project and client if the chain reaches userID.
func (o *Ownership) DeliveryNote(ctx context.Context, userID, noteID string, vis repository.Visibility) (*models.DeliveryNote, *models.Project, *models.Client, error) {
	note, err := o.notes.FindByID(ctx, noteID, vis)
	if err != nil {
		return nil, nil, nil, chainErr(err, "delivery note")
	}
	project, client, err := o.Project(ctx, userID, note.ProjectID, repository.Active)
	if err != nil {
		return nil, nil, nil, err
	}
	return note, project, client, nil
}

func chainErr(err error, link string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errChainBroken
	}
	return fmt.Errorf("failed to load %s: %w", link, err)
}

// asNotFound folds a broken chain into a not-found error for the requested entity.
func asNotFound(err error, entity, id string) error {
	if errors.Is(err, errChainBroken) {
		return notFound(entity, id)
	}
	return err
}
