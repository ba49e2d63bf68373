package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/yukikurage/deliverynote-api/internal/constants"
	apierrors "github.com/yukikurage/deliverynote-api/internal/errors"
	"github.com/yukikurage/deliverynote-api/internal/middleware"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/services"
)

const (
	msgInvalidID   = "Valid id is required"
	msgInvalidSoft = "'soft' query param must be a boolean"
	msgNoFile      = "No file uploaded"
)

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
}

// bindJSON binds the request body and answers 400 with one message per invalid field.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindWith(req, trimmedJSON{}); err != nil {
		apierrors.ValidationFailed(c, err)
		return false
	}
	return true
}

// trimmedJSON decodes like binding.JSON but strips surrounding whitespace from
// string fields before validation. Fields tagged trim:"-" are left as sent.
type trimmedJSON struct{}

func (trimmedJSON) Name() string { return "json" }

func (trimmedJSON) Bind(req *http.Request, obj interface{}) error {
	if req == nil || req.Body == nil {
		return errors.New("invalid request")
	}
	if err := json.NewDecoder(req.Body).Decode(obj); err != nil {
		return err
	}
	trimStrings(reflect.ValueOf(obj))
	return binding.Validator.ValidateStruct(obj)
}

func trimStrings(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			trimStrings(v.Elem())
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(strings.TrimSpace(v.String()))
		}
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return
		}
		for i := 0; i < v.Len(); i++ {
			trimStrings(v.Index(i))
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("trim") == "-" {
				continue
			}
			trimStrings(v.Field(i))
		}
	}
}

// pathID reads a path parameter that must be an entity id.
func pathID(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if !models.IsValidID(id) {
		apierrors.BadRequest(c, msgInvalidID)
		return "", false
	}
	return id, true
}

// softParam reads ?soft=, which defaults to true.
func softParam(c *gin.Context) (bool, bool) {
	raw, ok := c.GetQuery("soft")
	if !ok {
		return true, true
	}
	soft, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		apierrors.BadRequest(c, msgInvalidSoft)
		return false, false
	}
	return soft, true
}

// currentUser returns the user loaded by the auth middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Unauthorized. Token not found")
		return nil, false
	}
	return user, true
}

// readUpload reads the multipart "file" field. At most maxBytes+1 bytes are kept,
// which is enough for the service to tell an oversized file apart.
func readUpload(c *gin.Context, maxBytes int) ([]byte, bool) {
	header, err := c.FormFile(constants.UploadFormField)
	if err != nil {
		apierrors.BadRequest(c, msgNoFile)
		return nil, false
	}
	if header.Size > int64(maxBytes) {
		apierrors.BadRequest(c, tooLargeMessage(maxBytes))
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		_ = c.Error(err)
		apierrors.InternalError(c)
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)+1))
	if err != nil {
		_ = c.Error(err)
		apierrors.InternalError(c)
		return nil, false
	}
	return data, true
}

func tooLargeMessage(maxBytes int) string {
	return fmt.Sprintf("File too large. Maximum size is %d MB", maxBytes>>20)
}

// respondCommonError maps the errors every entity service shares.
// It reports false when err needs a handler specific mapping.
func respondCommonError(c *gin.Context, err error) bool {
	var (
		notFound   *services.NotFoundError
		conflict   *services.ConflictError
		validation *services.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		apierrors.NotFound(c, "Not Found. "+notFound.Error())
	case errors.As(err, &conflict):
		apierrors.Conflict(c, conflict.Message)
	case errors.As(err, &validation):
		apierrors.BadRequest(c, validation.Messages...)
	case errors.Is(err, services.ErrFileMissing):
		apierrors.BadRequest(c, msgNoFile)
	case errors.Is(err, services.ErrInvalidImage):
		apierrors.BadRequest(c, "File must be a PNG, JPEG or GIF image")
	case errors.Is(err, services.ErrAIUnavailable):
		apierrors.ServiceUnavailable(c, "AI drafting is not configured")
	default:
		return false
	}
	return true
}

// respondInternal records err for the request logger and answers with the generic 500.
func respondInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	apierrors.RespondWithError(c, http.StatusInternalServerError, apierrors.NewAPIError(apierrors.MsgInternalError))
}
