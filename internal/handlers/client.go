package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/deliverynote-api/internal/dto"
	apierrors "github.com/yukikurage/deliverynote-api/internal/errors"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/services"
	"github.com/yukikurage/deliverynote-api/internal/utils"
)

// ClientHandler serves the /client routes.
type ClientHandler struct {
	clientService *services.ClientService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clientService *services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

type createClientRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,notblank"`
	Lastname string `json:"lastname" binding:"required,notblank"`
	Address  string `json:"address" binding:"required,notblank"`
}

type updateClientRequest struct {
	Email    *string `json:"email" binding:"omitnil,email"`
	Name     *string `json:"name" binding:"omitnil,notblank"`
	Lastname *string `json:"lastname" binding:"omitnil,notblank"`
	Address  *string `json:"address" binding:"omitnil,notblank"`
}

type clientLister func(ctx context.Context, userID string, page *utils.PaginationParams) ([]models.Client, int64, error)

// ListClients returns the active clients of the current user.
// Pagination applies only when page or limit is given.
func (h *ClientHandler) ListClients(c *gin.Context) {
	h.list(c, h.clientService.List)
}

// ListArchivedClients returns the archived clients of the current user.
func (h *ClientHandler) ListArchivedClients(c *gin.Context) {
	h.list(c, h.clientService.ListArchived)
}

func (h *ClientHandler) list(c *gin.Context, fetch clientLister) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	page := utils.GetPaginationParams(c)
	clients, total, err := fetch(c.Request.Context(), user.ID, page)
	if err != nil {
		respondClientError(c, err)
		return
	}

	if page == nil {
		c.JSON(http.StatusOK, dto.ToClientDTOs(clients))
		return
	}
	c.JSON(http.StatusOK, dto.ToClientListResponse(clients, page, total))
}

// GetClient returns one client of the current user.
func (h *ClientHandler) GetClient(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	client, err := h.clientService.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToClientDTO(*client))
}

// CreateClient adds a client to the current user.
func (h *ClientHandler) CreateClient(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req createClientRequest
	if !bindJSON(c, &req) {
		return
	}

	client, err := h.clientService.Create(c.Request.Context(), user.ID, services.CreateClientInput{
		Email:    req.Email,
		Name:     req.Name,
		Lastname: req.Lastname,
		Address:  req.Address,
	})
	if err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToClientDTO(*client))
}

// UpdateClient applies the submitted fields to a client.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateClientRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.clientService.Update(c.Request.Context(), user.ID, id, services.UpdateClientInput{
		Email:    req.Email,
		Name:     req.Name,
		Lastname: req.Lastname,
		Address:  req.Address,
	})
	if err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

// DeleteClient archives a client, or destroys it with ?soft=false.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
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

	if err := h.clientService.Delete(c.Request.Context(), user.ID, id, soft); err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

// RestoreClient brings an archived client back.
func (h *ClientHandler) RestoreClient(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.clientService.Restore(c.Request.Context(), user.ID, id); err != nil {
		respondClientError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

func respondClientError(c *gin.Context, err error) {
	var conflict *services.ConflictError
	if errors.As(err, &conflict) && conflict.ExistingID != "" {
		apierrors.RespondWithDetails(c, http.StatusConflict, conflict.Message, gin.H{"client_id": conflict.ExistingID})
		return
	}
	if respondCommonError(c, err) {
		return
	}
	respondInternal(c, err)
}
