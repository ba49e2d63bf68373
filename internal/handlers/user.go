package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/yukikurage/deliverynote-api/internal/constants"
	"github.com/yukikurage/deliverynote-api/internal/dto"
	apierrors "github.com/yukikurage/deliverynote-api/internal/errors"
	"github.com/yukikurage/deliverynote-api/internal/middleware"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/services"
)

const msgInvalidCompany = "Invalid company data"

// UserHandler serves the /user routes.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8" trim:"-"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required" trim:"-"`
}

type validationRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

type patchUserRequest struct {
	Name     *string `json:"name"`
	Lastname *string `json:"lastname"`
	NIF      *string `json:"nif"`
}

type companyRequest struct {
	Company json.RawMessage `json:"company" binding:"required"`
}

type addressBody struct {
	Street     string `json:"street" binding:"required"`
	Number     *int   `json:"number" binding:"required"`
	PostalCode *int   `json:"postalCode" binding:"required"`
	City       string `json:"city" binding:"required"`
	Province   string `json:"province" binding:"required"`
}

type companyBody struct {
	Name    string       `json:"name" binding:"required"`
	CIF     string       `json:"cif" binding:"required"`
	Address *addressBody `json:"address" binding:"required"`
}

type passwordRequest struct {
	Password string `json:"password" binding:"required,min=8" trim:"-"`
}

type recoveryRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type guestRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8" trim:"-"`
	Name     string `json:"name"`
	Lastname string `json:"lastname"`
	NIF      string `json:"nif"`
}

// Register creates an account and returns a token usable for validation.
func (h *UserHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.userService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.TokenResponse{Token: token})
}

// Validate confirms the email address with the code that was mailed to it.
func (h *UserHandler) Validate(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		apierrors.Unauthorized(c, "Unauthorized. Invalid token")
		return
	}
	var req validationRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.Validate(c.Request.Context(), claims.ID, req.Code); err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

// Login exchanges credentials for a token.
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{Token: token})
}

// GetUser returns the public profile of the current user.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.UserResponse{User: dto.ToUserDTO(*user)})
}

// PatchUser updates name, lastname and nif.
func (h *UserHandler) PatchUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req patchUserRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := h.userService.Patch(c.Request.Context(), user, services.PatchUserInput{
		Name:     req.Name,
		Lastname: req.Lastname,
		NIF:      req.NIF,
	})
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

// PutCompany replaces the company. {"company": false} marks the user as self-employed.
func (h *UserHandler) PutCompany(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req companyRequest
	if !bindJSON(c, &req) {
		return
	}

	company, ok := parseCompany(req.Company)
	if !ok {
		apierrors.BadRequest(c, msgInvalidCompany)
		return
	}

	if err := h.userService.PutCompany(c.Request.Context(), user, company); err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

// parseCompany accepts either the literal false or a complete company object.
// A nil company with ok set means self-employed.
func parseCompany(raw json.RawMessage) (*models.Company, bool) {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("false")) {
		return nil, true
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var body companyBody
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return nil, false
	}
	if err := binding.Validator.ValidateStruct(&body); err != nil {
		return nil, false
	}

	return &models.Company{
		Name: body.Name,
		CIF:  body.CIF,
		Address: models.Address{
			Street:     body.Address.Street,
			Number:     *body.Address.Number,
			PostalCode: *body.Address.PostalCode,
			City:       body.Address.City,
			Province:   body.Address.Province,
		},
	}, true
}

// PutLogo uploads a logo image sent as multipart field "file".
func (h *UserHandler) PutLogo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	image, ok := readUpload(c, constants.MaxLogoBytes)
	if !ok {
		return
	}

	if _, err := h.userService.PutLogo(c.Request.Context(), user, image); err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

// PutPassword replaces the password of the current user.
func (h *UserHandler) PutPassword(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req passwordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.PutPassword(c.Request.Context(), user, req.Password); err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

// DeleteUser archives the current user, or destroys it with ?soft=false.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	soft, ok := softParam(c)
	if !ok {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), user, soft); err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

// Recovery mails a fresh token to the account owner.
func (h *UserHandler) Recovery(c *gin.Context) {
	var req recoveryRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.Recovery(c.Request.Context(), req.Email); err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}

// CreateGuest invites a guest account into the current user's company.
func (h *UserHandler) CreateGuest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req guestRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.userService.CreateGuest(c.Request.Context(), user, services.GuestInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Lastname: req.Lastname,
		NIF:      req.NIF,
	})
	if err != nil {
		respondUserError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.TokenResponse{Token: token})
}

func respondUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserExists):
		apierrors.Conflict(c, "User already exists")
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrUserNotValidated):
		apierrors.Unauthorized(c, "User not validated")
	case errors.Is(err, services.ErrInvalidPassword):
		apierrors.Unauthorized(c, "Invalid password")
	case errors.Is(err, services.ErrMaxAttemptsReached):
		apierrors.Unauthorized(c, "Invalid code. Max validation attempts reached. User deleted")
	case errors.Is(err, services.ErrInvalidCode):
		apierrors.Unauthorized(c, "Invalid code")
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("'password' field must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrFileTooLarge):
		apierrors.BadRequest(c, tooLargeMessage(constants.MaxLogoBytes))
	default:
		if respondCommonError(c, err) {
			return
		}
		respondInternal(c, err)
	}
}
