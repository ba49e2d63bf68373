package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/deliverynote-api/internal/constants"
	"github.com/yukikurage/deliverynote-api/internal/dto"
	apierrors "github.com/yukikurage/deliverynote-api/internal/errors"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/services"
)

// DeliveryNoteHandler serves the /deliverynote routes.
type DeliveryNoteHandler struct {
	noteService *services.DeliveryNoteService
}

// NewDeliveryNoteHandler creates a new DeliveryNoteHandler.
func NewDeliveryNoteHandler(noteService *services.DeliveryNoteService) *DeliveryNoteHandler {
	return &DeliveryNoteHandler{noteService: noteService}
}

type lineItemRequest struct {
	Type     string  `json:"type" binding:"required,oneof=person material"`
	Name     string  `json:"name" binding:"required,notblank"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

type createDeliveryNoteRequest struct {
	ProjectID string            `json:"project_id" binding:"required,uuid"`
	Data      []lineItemRequest `json:"data" binding:"required,dive"`
}

type draftRequest struct {
	ProjectID string `json:"project_id" binding:"required,uuid"`
	Text      string `json:"text" binding:"required,notblank,max=4000"`
}

// ListDeliveryNotes returns every active note the current user owns.
func (h *DeliveryNoteHandler) ListDeliveryNotes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	h.respondList(c, func(ctx context.Context) ([]models.DeliveryNote, error) {
		return h.noteService.List(ctx, user.ID)
	})
}

// ListArchivedDeliveryNotes returns every archived note under the current user's active projects.
func (h *DeliveryNoteHandler) ListArchivedDeliveryNotes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	h.respondList(c, func(ctx context.Context) ([]models.DeliveryNote, error) {
		return h.noteService.ListArchived(ctx, user.ID)
	})
}

// ListClientDeliveryNotes returns the active notes of one client.
func (h *DeliveryNoteHandler) ListClientDeliveryNotes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "client_id")
	if !ok {
		return
	}
	h.respondList(c, func(ctx context.Context) ([]models.DeliveryNote, error) {
		return h.noteService.ListByClient(ctx, user.ID, clientID)
	})
}

// ListProjectDeliveryNotes returns the active notes of one project.
func (h *DeliveryNoteHandler) ListProjectDeliveryNotes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathID(c, "project_id")
	if !ok {
		return
	}
	h.respondList(c, func(ctx context.Context) ([]models.DeliveryNote, error) {
		return h.noteService.ListByProject(ctx, user.ID, projectID)
	})
}

func (h *DeliveryNoteHandler) respondList(c *gin.Context, fetch func(context.Context) ([]models.DeliveryNote, error)) {
	notes, err := fetch(c.Request.Context())
	if err != nil {
		respondDeliveryNoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDeliveryNoteDTOs(notes))
}

// GetDeliveryNote returns one note of the current user.
func (h *DeliveryNoteHandler) GetDeliveryNote(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	note, err := h.noteService.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		respondDeliveryNoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDeliveryNoteDTO(*note))
}

// CreateDeliveryNote adds an unsigned note to one of the current user's projects.
func (h *DeliveryNoteHandler) CreateDeliveryNote(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req createDeliveryNoteRequest
	if !bindJSON(c, &req) {
		return
	}

	items := make([]models.LineItem, len(req.Data))
	for i, item := range req.Data {
		items[i] = models.LineItem{
			Type:     models.LineItemType(item.Type),
			Name:     item.Name,
			Quantity: item.Quantity,
		}
	}

	note, err := h.noteService.Create(c.Request.Context(), user.ID, services.CreateDeliveryNoteInput{
		ProjectID: req.ProjectID,
		Data:      items,
	})
	if err != nil {
		respondDeliveryNoteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToDeliveryNoteDTO(*note))
}

// UploadSignature attaches a signature image sent as multipart field "file".
func (h *DeliveryNoteHandler) UploadSignature(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	image, ok := readUpload(c, constants.MaxSignatureBytes)
	if !ok {
		return
	}

	note, err := h.noteService.UploadSignature(c.Request.Context(), user.ID, id, image)
	if err != nil {
		respondDeliveryNoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDeliveryNoteDTO(*note))
}

// GetDeliveryNotePDF streams the printable note as an attachment.
func (h *DeliveryNoteHandler) GetDeliveryNotePDF(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.noteService.RenderPDF(c.Request.Context(), user.ID, id)
	if err != nil {
		respondDeliveryNoteError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=delivery_note_%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", doc)
}

// DeleteDeliveryNote archives an unsigned note, or destroys it with ?soft=false.
func (h *DeliveryNoteHandler) DeleteDeliveryNote(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	soft, ok := softParam(c)
	if !ok {
		return
	}

	if err := h.noteService.Delete(c.Request.Context(), user.ID, id, soft); err != nil {
		respondDeliveryNoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

// RestoreDeliveryNote brings an archived note back.
func (h *DeliveryNoteHandler) RestoreDeliveryNote(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	note, err := h.noteService.Restore(c.Request.Context(), user.ID, id)
	if err != nil {
		respondDeliveryNoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDeliveryNoteDTO(*note))
}

// DraftDeliveryNote suggests line items from free text without saving anything.
func (h *DeliveryNoteHandler) DraftDeliveryNote(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req draftRequest
	if !bindJSON(c, &req) {
		return
	}

	items, err := h.noteService.Draft(c.Request.Context(), user.ID, req.ProjectID, req.Text)
	if err != nil {
		respondDeliveryNoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DraftResponse{ProjectID: req.ProjectID, Data: items})
}

func respondDeliveryNoteError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrFileTooLarge) {
		apierrors.BadRequest(c, tooLargeMessage(constants.MaxSignatureBytes))
		return
	}
	if respondCommonError(c, err) {
		return
	}
	respondInternal(c, err)
}
