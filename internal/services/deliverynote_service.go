package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/deliverynote-api/internal/constants"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/pdf"
	"github.com/yukikurage/deliverynote-api/internal/repository"
	"github.com/yukikurage/deliverynote-api/internal/storage"
)

// DeliveryNoteService provides business logic for delivery note operations.
type DeliveryNoteService struct {
	clients  repository.ClientRepository
	projects repository.ProjectRepository
	notes    repository.DeliveryNoteRepository
	owner    *Ownership
	uploader storage.Uploader
	fetcher  storage.Fetcher
	renderer *pdf.Renderer
	ai       *AIService
}

// DeliveryNoteDeps groups the collaborators of DeliveryNoteService.
type DeliveryNoteDeps struct {
	Clients  repository.ClientRepository
	Projects repository.ProjectRepository
	Notes    repository.DeliveryNoteRepository
	Owner    *Ownership
	Uploader storage.Uploader
	Fetcher  storage.Fetcher
	Renderer *pdf.Renderer
	// AI is optional; drafting fails with ErrAIUnavailable without it.
	AI *AIService
}

// NewDeliveryNoteService creates a new DeliveryNoteService.
func NewDeliveryNoteService(deps DeliveryNoteDeps) *DeliveryNoteService {
	return &DeliveryNoteService{
		clients:  deps.Clients,
		projects: deps.Projects,
		notes:    deps.Notes,
		owner:    deps.Owner,
		uploader: deps.Uploader,
		fetcher:  deps.Fetcher,
		renderer: deps.Renderer,
		ai:       deps.AI,
	}
}

// CreateDeliveryNoteInput represents parameters to create a new delivery note.
type CreateDeliveryNoteInput struct {
	ProjectID string
	Data      []models.LineItem
}

// List returns the active notes under every active project of every active client.
func (s *DeliveryNoteService) List(ctx context.Context, userID string) ([]models.DeliveryNote, error) {
	return s.listAll(ctx, userID, repository.Active)
}

// ListArchived returns the archived notes under the user's active projects.
func (s *DeliveryNoteService) ListArchived(ctx context.Context, userID string) ([]models.DeliveryNote, error) {
	return s.listAll(ctx, userID, repository.Archived)
}

func (s *DeliveryNoteService) listAll(ctx context.Context, userID string, vis repository.Visibility) ([]models.DeliveryNote, error) {
	clients, _, err := s.clients.List(ctx, repository.ClientFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	projects, err := fanOut(ctx, clients, func(ctx context.Context, c models.Client) ([]models.Project, error) {
		return s.projects.ListByClient(ctx, c.ID, repository.Active)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return s.notesOf(ctx, projects, vis)
}

func (s *DeliveryNoteService) notesOf(ctx context.Context, projects []models.Project, vis repository.Visibility) ([]models.DeliveryNote, error) {
	notes, err := fanOut(ctx, projects, func(ctx context.Context, p models.Project) ([]models.DeliveryNote, error) {
		return s.notes.ListByProject(ctx, p.ID, vis)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery notes: %w", err)
	}
	return notes, nil
}

// ListByClient returns the active notes of every active project of one client.
func (s *DeliveryNoteService) ListByClient(ctx context.Context, userID, clientID string) ([]models.DeliveryNote, error) {
	if _, err := s.owner.Client(ctx, userID, clientID, repository.Active); err != nil {
		return nil, asNotFound(err, entityClient, clientID)
	}
	projects, err := s.projects.ListByClient(ctx, clientID, repository.Active)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return s.notesOf(ctx, projects, repository.Active)
}

// ListByProject returns the active notes of one project.
func (s *DeliveryNoteService) ListByProject(ctx context.Context, userID, projectID string) ([]models.DeliveryNote, error) {
	if _, _, err := s.owner.Project(ctx, userID, projectID, repository.Active); err != nil {
		return nil, asNotFound(err, entityProject, projectID)
	}
	notes, err := s.notes.ListByProject(ctx, projectID, repository.Active)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery notes: %w", err)
	}
	return notes, nil
}

// Get returns an active note reachable by the user.
func (s *DeliveryNoteService) Get(ctx context.Context, userID, id string) (*models.DeliveryNote, error) {
	note, _, _, err := s.owner.DeliveryNote(ctx, userID, id, repository.Active)
	if err != nil {
		return nil, asNotFound(err, entityDeliveryNote, id)
	}
	return note, nil
}

// Create adds an unsigned note to one of the user's projects.
func (s *DeliveryNoteService) Create(ctx context.Context, userID string, input CreateDeliveryNoteInput) (*models.DeliveryNote, error) {
	if _, _, err := s.owner.Project(ctx, userID, input.ProjectID, repository.Active); err != nil {
		return nil, asNotFound(err, entityProject, input.ProjectID)
	}

	note := &models.DeliveryNote{
		ProjectID: input.ProjectID,
		Data:      input.Data,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create delivery note: %w", err)
	}
	return note, nil
}

// UploadSignature stores the signature image and records its URL on the note.
// Archived notes can still be signed.
func (s *DeliveryNoteService) UploadSignature(ctx context.Context, userID, id string, image []byte) (*models.DeliveryNote, error) {
	contentType, err := checkImage(image, constants.MaxSignatureBytes)
	if err != nil {
		return nil, err
	}

	note, _, _, err := s.owner.DeliveryNote(ctx, userID, id, repository.AnyState)
	if err != nil {
		return nil, asNotFound(err, entityDeliveryNote, id)
	}

	url, err := s.uploader.Upload(ctx, "signature_"+note.ID, image, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload signature: %w", err)
	}

	note.Signature = &url
	if err := s.notes.Save(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to save signature: %w", err)
	}
	return note, nil
}

// RenderPDF builds the printable document of an active note.
func (s *DeliveryNoteService) RenderPDF(ctx context.Context, userID, id string) ([]byte, error) {
	note, project, client, err := s.owner.DeliveryNote(ctx, userID, id, repository.Active)
	if err != nil {
		return nil, asNotFound(err, entityDeliveryNote, id)
	}

	doc := pdf.Document{
		NoteID:             note.ID,
		ProjectName:        project.Name,
		ProjectDescription: project.Description,
		ProjectCreatedAt:   project.CreatedAt,
		Client: pdf.Party{
			Name:     client.Name,
			Lastname: client.Lastname,
			Email:    client.Email,
			Address:  client.Address,
		},
		CreatedAt: note.CreatedAt,
		Items:     make([]pdf.Item, 0, len(note.Data)),
	}
	for _, item := range note.Data {
		doc.Items = append(doc.Items, pdf.Item{Type: string(item.Type), Name: item.Name, Quantity: item.Quantity})
	}

	if note.Signed() {
		signature, err := s.fetcher.Fetch(ctx, *note.Signature)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch signature: %w", err)
		}
		doc.Signature = signature
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render delivery note: %w", err)
	}
	return buf.Bytes(), nil
}

// Delete archives the note when soft is set, otherwise removes it.
// Signed notes are never deleted, archived or not.
func (s *DeliveryNoteService) Delete(ctx context.Context, userID, id string, soft bool) error {
	note, _, _, err := s.owner.DeliveryNote(ctx, userID, id, repository.AnyState)
	if err != nil {
		return asNotFound(err, entityDeliveryNote, id)
	}
	if note.Signed() {
		return &ConflictError{Message: fmt.Sprintf("Conflict. Delivery note with id '%s' already signed", id)}
	}

	if soft {
		if note.Deleted {
			return notFound(entityDeliveryNote, id)
		}
		note.Deleted = true
		err = s.notes.Save(ctx, note)
	} else {
		err = s.notes.Delete(ctx, note.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete delivery note: %w", err)
	}
	return nil
}

// Restore brings an archived note back.
func (s *DeliveryNoteService) Restore(ctx context.Context, userID, id string) (*models.DeliveryNote, error) {
	note, _, _, err := s.owner.DeliveryNote(ctx, userID, id, repository.Archived)
	if err != nil {
		return nil, asNotFound(err, entityDeliveryNote, id)
	}
	note.Deleted = false
	if err := s.notes.Save(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to restore delivery note: %w", err)
	}
	return note, nil
}

// Draft suggests line items for one of the user's projects from free text.
func (s *DeliveryNoteService) Draft(ctx context.Context, userID, projectID, text string) ([]models.LineItem, error) {
	project, _, err := s.owner.Project(ctx, userID, projectID, repository.Active)
	if err != nil {
		return nil, asNotFound(err, entityProject, projectID)
	}
	if s.ai == nil {
		return nil, ErrAIUnavailable
	}
	items, err := s.ai.DraftLineItems(ctx, project.Name, text)
	if err != nil {
		return nil, fmt.Errorf("failed to draft line items: %w", err)
	}
	return items, nil
}

// checkImage enforces the upload size cap and the PNG, JPEG or GIF content type.
func checkImage(data []byte, maxBytes int) (string, error) {
	if len(data) == 0 {
		return "", ErrFileMissing
	}
	if len(data) > maxBytes {
		return "", ErrFileTooLarge
	}
	contentType, err := storage.SniffImage(data)
	if err != nil {
		if errors.Is(err, storage.ErrNotImage) {
			return "", ErrInvalidImage
		}
		return "", err
	}
	return contentType, nil
}
