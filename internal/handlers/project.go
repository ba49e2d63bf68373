package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/deliverynote-api/internal/dto"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/services"
)

// ProjectHandler serves the /project routes.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

type createProjectRequest struct {
	ClientID    string `json:"client_id" binding:"required,uuid"`
	Name        string `json:"name" binding:"required,notblank"`
	Description string `json:"description"`
}

type updateProjectRequest struct {
	ClientID    *string `json:"client_id" binding:"omitnil,uuid"`
	Name        *string `json:"name" binding:"omitnil,notblank"`
	Description *string `json:"description"`
}

// ListProjects returns the active projects across all clients of the current user.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	h.respondList(c, func(ctx context.Context) ([]models.Project, error) {
		return h.projectService.List(ctx, user.ID)
	})
}

// ListArchivedProjects returns the archived projects across all clients of the current user.
func (h *ProjectHandler) ListArchivedProjects(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	h.respondList(c, func(ctx context.Context) ([]models.Project, error) {
		return h.projectService.ListArchived(ctx, user.ID)
	})
}

// ListClientProjects returns the active projects of one client.
func (h *ProjectHandler) ListClientProjects(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "client_id")
	if !ok {
		return
	}
	h.respondList(c, func(ctx context.Context) ([]models.Project, error) {
		return h.projectService.ListByClient(ctx, user.ID, clientID)
	})
}

// ListArchivedClientProjects returns the archived projects of one client.
func (h *ProjectHandler) ListArchivedClientProjects(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "client_id")
	if !ok {
		return
	}
	h.respondList(c, func(ctx context.Context) ([]models.Project, error) {
		return h.projectService.ListArchivedByClient(ctx, user.ID, clientID)
	})
}

func (h *ProjectHandler) respondList(c *gin.Context, fetch func(context.Context) ([]models.Project, error)) {
	projects, err := fetch(c.Request.Context())
	if err != nil {
		respondProjectError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTOs(projects))
}

// GetProject returns one project of the current user.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// CreateProject adds a project under one of the current user's clients.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req createProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), user.ID, services.CreateProjectInput{
		ClientID:    req.ClientID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// UpdateProject applies the submitted fields, possibly moving the project to another client.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), user.ID, id, services.UpdateProjectInput{
		ClientID:    req.ClientID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// DeleteProject archives a project, or destroys it with ?soft=false.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
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

	if err := h.projectService.Delete(c.Request.Context(), user.ID, id, soft); err != nil {
		respondProjectError(c, err)
		return
	}

	message := "OK"
	if !soft {
		message = "OK. This action cannot be undone"
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: message})
}

// RestoreProject brings an archived project back.
func (h *ProjectHandler) RestoreProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.Restore(c.Request.Context(), user.ID, id)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

func respondProjectError(c *gin.Context, err error) {
	if respondCommonError(c, err) {
		return
	}
	respondInternal(c, err)
}
