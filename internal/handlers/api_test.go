package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/deliverynote-api/internal/constants"
	"github.com/yukikurage/deliverynote-api/internal/database"
	"github.com/yukikurage/deliverynote-api/internal/dto"
	"github.com/yukikurage/deliverynote-api/internal/mail"
	"github.com/yukikurage/deliverynote-api/internal/middleware"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/pdf"
	"github.com/yukikurage/deliverynote-api/internal/repository"
	"github.com/yukikurage/deliverynote-api/internal/security"
	"github.com/yukikurage/deliverynote-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memoryObjects stands in for the pinning service: uploads are kept in memory
// and served back to the PDF renderer by URL.
type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjects) Upload(_ context.Context, name string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "https://gateway.test/ipfs/" + name
	m.objects[url] = data
	return url, nil
}

func (m *memoryObjects) Fetch(_ context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[url]
	if !ok {
		return nil, fmt.Errorf("no object at %s", url)
	}
	return data, nil
}

type capturedMail struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *capturedMail) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

var codePattern = regexp.MustCompile(`<p>([0-9a-f]{6})</p>`)

// lastCode returns the validation code most recently mailed to address.
func (m *capturedMail) lastCode(address string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == address && m.sent[i].Subject == "Email validation" {
			if match := codePattern.FindStringSubmatch(m.sent[i].HTML); match != nil {
				return match[1]
			}
		}
	}
	return ""
}

type errorBody struct {
	Errors []string `json:"errors"`
}

// APITestSuite drives the full router over an in-memory database.
type APITestSuite struct {
	suite.Suite
	db      *gorm.DB
	router  *gin.Engine
	users   *services.UserService
	mailer  *capturedMail
	objects *memoryObjects
}

func (suite *APITestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	suite.Require().NoError(err)

	// Every pooled connection would get its own :memory: database.
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.Require().NoError(database.Migrate(suite.db, log))

	suite.mailer = &capturedMail{}
	suite.objects = &memoryObjects{objects: map[string][]byte{}}

	userRepo := repository.NewUserRepository(suite.db)
	clientRepo := repository.NewClientRepository(suite.db)
	projectRepo := repository.NewProjectRepository(suite.db)
	noteRepo := repository.NewDeliveryNoteRepository(suite.db)
	tokens := security.NewTokenService("test-secret", time.Hour)
	owner := services.NewOwnership(clientRepo, projectRepo, noteRepo)

	suite.users = services.NewUserService(services.UserDeps{
		Users:    userRepo,
		Tokens:   tokens,
		Mailer:   suite.mailer,
		Uploader: suite.objects,
		MailFrom: "no-reply@test",
		Log:      log,
	})

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	Router{
		Users:    NewUserHandler(suite.users),
		Clients:  NewClientHandler(services.NewClientService(clientRepo)),
		Projects: NewProjectHandler(services.NewProjectService(clientRepo, projectRepo, owner)),
		DeliveryNotes: NewDeliveryNoteHandler(services.NewDeliveryNoteService(services.DeliveryNoteDeps{
			Clients:  clientRepo,
			Projects: projectRepo,
			Notes:    noteRepo,
			Owner:    owner,
			Uploader: suite.objects,
			Fetcher:  suite.objects,
			Renderer: pdf.NewRenderer(constants.SignatureBoxPoints),
		})),
		RequireAuth:  middleware.RequireAuth(tokens, userRepo),
		RequireToken: middleware.RequireToken(tokens),
	}.Register(suite.router.Group("/api"))
}

func (suite *APITestSuite) TearDownTest() {
	suite.users.Wait()
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *APITestSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) upload(path, token string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(constants.UploadFormField, "signature.png")
	suite.Require().NoError(err)
	_, err = part.Write(data)
	suite.Require().NoError(err)
	suite.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (suite *APITestSuite) errorsOf(w *httptest.ResponseRecorder) []string {
	var body errorBody
	suite.decode(w, &body)
	return body.Errors
}

// register signs up email and returns the pre-validation token.
func (suite *APITestSuite) register(email string) string {
	w := suite.request(http.MethodPost, "/api/user", "", gin.H{"email": email, "password": "password123"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp dto.TokenResponse
	suite.decode(w, &resp)
	suite.Require().NotEmpty(resp.Token)
	suite.users.Wait()
	return resp.Token
}

// signUp registers and validates email, returning a token that passes the auth gate.
func (suite *APITestSuite) signUp(email string) string {
	token := suite.register(email)
	w := suite.request(http.MethodPut, "/api/user/validation", token, gin.H{"code": suite.mailer.lastCode(email)})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	return token
}

func (suite *APITestSuite) createClient(token, email string) dto.ClientDTO {
	w := suite.request(http.MethodPost, "/api/client", token, gin.H{
		"email":    email,
		"name":     "Ana",
		"lastname": "García",
		"address":  "Calle Mayor 1",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var client dto.ClientDTO
	suite.decode(w, &client)
	return client
}

func (suite *APITestSuite) createProject(token, clientID, name string) dto.ProjectDTO {
	w := suite.request(http.MethodPost, "/api/project", token, gin.H{"client_id": clientID, "name": name})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var project dto.ProjectDTO
	suite.decode(w, &project)
	return project
}

func (suite *APITestSuite) createNote(token, projectID string) dto.DeliveryNoteDTO {
	w := suite.request(http.MethodPost, "/api/deliverynote", token, gin.H{
		"project_id": projectID,
		"data":       []gin.H{{"type": "material", "name": "Cement", "quantity": 10}},
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var note dto.DeliveryNoteDTO
	suite.decode(w, &note)
	return note
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func (suite *APITestSuite) TestUserLifecycle() {
	token := suite.register("owner@example.com")

	w := suite.request(http.MethodPut, "/api/user/validation", token, gin.H{"code": suite.mailer.lastCode("owner@example.com")})
	suite.Equal(http.StatusOK, w.Code)

	// Validating again is a no-op.
	w = suite.request(http.MethodPut, "/api/user/validation", token, gin.H{"code": "000000"})
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodPost, "/api/user/login", "", gin.H{"email": "owner@example.com", "password": "password123"})
	suite.Require().Equal(http.StatusOK, w.Code)
	var login dto.TokenResponse
	suite.decode(w, &login)
	suite.NotEmpty(login.Token)

	w = suite.request(http.MethodGet, "/api/user", login.Token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.NotContains(w.Body.String(), "password")
	suite.NotContains(w.Body.String(), "validation_code")
	var profile dto.UserResponse
	suite.decode(w, &profile)
	suite.Equal("owner@example.com", profile.User.Email)
	suite.True(profile.User.Validated)
	suite.Equal(models.RoleUser, profile.User.Role)
}

func (suite *APITestSuite) TestRegisterValidation() {
	w := suite.request(http.MethodPost, "/api/user", "", gin.H{"email": "not-an-email", "password": "short"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Len(suite.errorsOf(w), 2)

	suite.register("dup@example.com")
	w = suite.request(http.MethodPost, "/api/user", "", gin.H{"email": "dup@example.com", "password": "password123"})
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal([]string{"User already exists"}, suite.errorsOf(w))
}

func (suite *APITestSuite) TestLoginFailures() {
	suite.register("pending@example.com")

	w := suite.request(http.MethodPost, "/api/user/login", "", gin.H{"email": "nobody@example.com", "password": "password123"})
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.request(http.MethodPost, "/api/user/login", "", gin.H{"email": "pending@example.com", "password": "password123"})
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal([]string{"User not validated"}, suite.errorsOf(w))

	suite.signUp("ready@example.com")
	w = suite.request(http.MethodPost, "/api/user/login", "", gin.H{"email": "ready@example.com", "password": "wrong-password"})
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal([]string{"Invalid password"}, suite.errorsOf(w))
}

func (suite *APITestSuite) TestValidationAttemptsExhausted() {
	token := suite.register("typo@example.com")
	code := suite.mailer.lastCode("typo@example.com")

	for i := 0; i < constants.MaxValidationAttempts-1; i++ {
		w := suite.request(http.MethodPut, "/api/user/validation", token, gin.H{"code": "zzzzzz"})
		suite.Equal(http.StatusUnauthorized, w.Code)
		suite.Equal([]string{"Invalid code"}, suite.errorsOf(w))
	}

	w := suite.request(http.MethodPut, "/api/user/validation", token, gin.H{"code": "zzzzzz"})
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal([]string{"Invalid code. Max validation attempts reached. User deleted"}, suite.errorsOf(w))

	w = suite.request(http.MethodPut, "/api/user/validation", token, gin.H{"code": code})
	suite.Equal(http.StatusNotFound, w.Code)

	var count int64
	suite.db.Model(&models.User{}).Where("email = ?", "typo@example.com").Count(&count)
	suite.Zero(count)
}

func (suite *APITestSuite) TestArchivedAccountReopensOnlyThroughValidation() {
	token := suite.signUp("back@example.com")
	suite.createClient(token, "kept@example.com")

	w := suite.request(http.MethodDelete, "/api/user", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/user", token, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal([]string{"Forbidden. User not found"}, suite.errorsOf(w))

	// Someone re-registers the archived address.
	newToken := suite.register("back@example.com")
	w = suite.request(http.MethodGet, "/api/client", newToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal([]string{"Forbidden. User email not validated"}, suite.errorsOf(w))

	w = suite.request(http.MethodPut, "/api/user/validation", newToken, gin.H{"code": suite.mailer.lastCode("back@example.com")})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/client", newToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var clients []dto.ClientDTO
	suite.decode(w, &clients)
	suite.Len(clients, 1)
}

func (suite *APITestSuite) TestAuthGate() {
	w := suite.request(http.MethodGet, "/api/client", "", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal([]string{"Unauthorized. Token not found"}, suite.errorsOf(w))

	w = suite.request(http.MethodGet, "/api/client", "not.a.jwt", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal([]string{"Unauthorized. Invalid token"}, suite.errorsOf(w))

	pending := suite.register("pending@example.com")
	w = suite.request(http.MethodGet, "/api/client", pending, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *APITestSuite) TestClientEmailUniquePerUser() {
	alice := suite.signUp("alice@example.com")
	bob := suite.signUp("bob@example.com")

	first := suite.createClient(alice, "shared@example.com")

	w := suite.request(http.MethodPost, "/api/client", alice, gin.H{
		"email": "shared@example.com", "name": "Other", "lastname": "Person", "address": "Elsewhere",
	})
	suite.Equal(http.StatusConflict, w.Code)
	var conflict map[string]interface{}
	suite.decode(w, &conflict)
	suite.Equal(first.ID, conflict["client_id"])

	suite.createClient(bob, "shared@example.com")
}

func (suite *APITestSuite) TestClientUpdate() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "one@example.com")
	suite.createClient(token, "two@example.com")

	w := suite.request(http.MethodPatch, "/api/client/"+client.ID, token, gin.H{"address": "New Street 2"})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/client/"+client.ID, token, nil)
	var got dto.ClientDTO
	suite.decode(w, &got)
	suite.Equal("New Street 2", got.Address)
	suite.Equal("Ana", got.Name)

	w = suite.request(http.MethodPatch, "/api/client/"+client.ID, token, gin.H{"email": "two@example.com"})
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodPatch, "/api/client/"+client.ID, token, gin.H{"name": "   "})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestClientListPagination() {
	token := suite.signUp("owner@example.com")
	for i := 0; i < 3; i++ {
		suite.createClient(token, fmt.Sprintf("c%d@example.com", i))
	}

	w := suite.request(http.MethodGet, "/api/client?page=2&limit=2", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var page dto.ClientListResponse
	suite.decode(w, &page)
	suite.Len(page.Clients, 1)
	suite.Equal(int64(3), page.Total)
	suite.Equal(2, page.TotalPages)
}

func (suite *APITestSuite) TestArchiveRoundTrip() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "client@example.com")
	project := suite.createProject(token, client.ID, "Roof")

	listClients := func(path string) []dto.ClientDTO {
		w := suite.request(http.MethodGet, path, token, nil)
		suite.Require().Equal(http.StatusOK, w.Code)
		var out []dto.ClientDTO
		suite.decode(w, &out)
		return out
	}

	w := suite.request(http.MethodDelete, "/api/client/"+client.ID, token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Empty(listClients("/api/client"))
	suite.Len(listClients("/api/client/archived"), 1)

	// Archiving again is a no-op, an unknown id is still missing.
	w = suite.request(http.MethodDelete, "/api/client/"+client.ID+"?soft=true", token, nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Len(listClients("/api/client/archived"), 1)
	w = suite.request(http.MethodDelete, "/api/client/3f1c2b9e-8a4d-4e6f-9b2a-7c5d1e0f4a38", token, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.request(http.MethodPut, "/api/client/"+client.ID+"/restore", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	active := listClients("/api/client")
	suite.Require().Len(active, 1)
	suite.Equal(client.ID, active[0].ID)
	suite.Equal(client.Email, active[0].Email)
	suite.Empty(listClients("/api/client/archived"))

	// Restoring an active client finds nothing to restore.
	w = suite.request(http.MethodPut, "/api/client/"+client.ID+"/restore", token, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.request(http.MethodDelete, "/api/project/"+project.ID, token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w = suite.request(http.MethodGet, "/api/project/archive/"+client.ID, token, nil)
	var archived []dto.ProjectDTO
	suite.decode(w, &archived)
	suite.Len(archived, 1)

	w = suite.request(http.MethodPut, "/api/project/"+project.ID+"/restore", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w = suite.request(http.MethodGet, "/api/project", token, nil)
	var projects []dto.ProjectDTO
	suite.decode(w, &projects)
	suite.Require().Len(projects, 1)
	suite.Equal(project.ID, projects[0].ID)
	suite.Equal(project.Name, projects[0].Name)
}

func (suite *APITestSuite) TestHardDeleteClientCascades() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "client@example.com")
	project := suite.createProject(token, client.ID, "Roof")
	suite.createNote(token, project.ID)

	w := suite.request(http.MethodDelete, "/api/client/"+client.ID+"?soft=false", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var projects, notes int64
	suite.db.Model(&models.Project{}).Count(&projects)
	suite.db.Model(&models.DeliveryNote{}).Count(&notes)
	suite.Zero(projects)
	suite.Zero(notes)
}

func (suite *APITestSuite) TestProjectNameConflicts() {
	token := suite.signUp("owner@example.com")
	first := suite.createClient(token, "first@example.com")
	second := suite.createClient(token, "second@example.com")

	roof := suite.createProject(token, first.ID, "Roof")
	suite.createProject(token, first.ID, "Walls")
	suite.createProject(token, second.ID, "Floor")

	w := suite.request(http.MethodPost, "/api/project", token, gin.H{"client_id": first.ID, "name": "Roof"})
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodPatch, "/api/project/"+roof.ID, token, gin.H{"name": "Walls"})
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal([]string{"Conflict. Project with name 'Walls' already exists for this client"}, suite.errorsOf(w))

	// "Walls" is free under the second client.
	w = suite.request(http.MethodPatch, "/api/project/"+roof.ID, token, gin.H{"client_id": second.ID, "name": "Walls"})
	suite.Require().Equal(http.StatusOK, w.Code)
	var moved dto.ProjectDTO
	suite.decode(w, &moved)
	suite.Equal(second.ID, moved.ClientID)
	suite.Equal("Walls", moved.Name)

	w = suite.request(http.MethodPatch, "/api/project/"+moved.ID, token, gin.H{"client_id": first.ID, "name": "Walls"})
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal([]string{fmt.Sprintf("Conflict. Project with name 'Walls' already exists for the target client with id '%s'", first.ID)}, suite.errorsOf(w))

	w = suite.request(http.MethodPatch, "/api/project/"+moved.ID, token, gin.H{"name": ""})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPatch, "/api/project/"+moved.ID, token, gin.H{"description": "Second floor"})
	suite.Require().Equal(http.StatusOK, w.Code)
	var described dto.ProjectDTO
	suite.decode(w, &described)
	suite.Equal("Walls", described.Name)
	suite.Equal("Second floor", described.Description)
}

func (suite *APITestSuite) TestHardDeleteProjectMessage() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "client@example.com")
	project := suite.createProject(token, client.ID, "Roof")

	w := suite.request(http.MethodDelete, "/api/project/"+project.ID+"?soft=false", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp dto.MessageResponse
	suite.decode(w, &resp)
	suite.Equal("OK. This action cannot be undone", resp.Message)
}

func (suite *APITestSuite) TestDeliveryNoteFlow() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "client@example.com")
	project := suite.createProject(token, client.ID, "Roof")
	note := suite.createNote(token, project.ID)
	suite.Nil(note.Signature)
	suite.Equal([]models.LineItem{{Type: models.LineItemMaterial, Name: "Cement", Quantity: 10}}, note.Data)

	w := suite.request(http.MethodDelete, "/api/deliverynote/"+note.ID+"?soft=true", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.upload("/api/deliverynote/signature/"+note.ID, token, pngImage(suite.T()))
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var signed dto.DeliveryNoteDTO
	suite.decode(w, &signed)
	suite.Require().NotNil(signed.Signature)
	suite.True(strings.HasPrefix(*signed.Signature, "https://"))

	w = suite.request(http.MethodDelete, "/api/deliverynote/"+note.ID, token, nil)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal([]string{fmt.Sprintf("Conflict. Delivery note with id '%s' already signed", note.ID)}, suite.errorsOf(w))
}

func (suite *APITestSuite) TestSignedNoteCannotBeHardDeleted() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "client@example.com")
	project := suite.createProject(token, client.ID, "Roof")
	signed := suite.createNote(token, project.ID)
	unsigned := suite.createNote(token, project.ID)

	w := suite.upload("/api/deliverynote/signature/"+signed.ID, token, pngImage(suite.T()))
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodDelete, "/api/deliverynote/"+signed.ID+"?soft=false", token, nil)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodDelete, "/api/deliverynote/"+unsigned.ID+"?soft=false", token, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/deliverynote/"+unsigned.ID, token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestDeliveryNoteListings() {
	token := suite.signUp("owner@example.com")
	first := suite.createClient(token, "first@example.com")
	second := suite.createClient(token, "second@example.com")
	roof := suite.createProject(token, first.ID, "Roof")
	walls := suite.createProject(token, first.ID, "Walls")
	floor := suite.createProject(token, second.ID, "Floor")
	suite.createNote(token, roof.ID)
	suite.createNote(token, walls.ID)
	archived := suite.createNote(token, floor.ID)

	w := suite.request(http.MethodDelete, "/api/deliverynote/"+archived.ID, token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	count := func(path string) int {
		w := suite.request(http.MethodGet, path, token, nil)
		suite.Require().Equal(http.StatusOK, w.Code, path)
		var notes []dto.DeliveryNoteDTO
		suite.decode(w, &notes)
		return len(notes)
	}

	suite.Equal(2, count("/api/deliverynote"))
	suite.Equal(2, count("/api/deliverynote/client/"+first.ID))
	suite.Equal(0, count("/api/deliverynote/client/"+second.ID))
	suite.Equal(1, count("/api/deliverynote/project/"+roof.ID))
	suite.Equal(1, count("/api/deliverynote/archived"))

	w = suite.request(http.MethodPut, "/api/deliverynote/"+archived.ID+"/restore", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(3, count("/api/deliverynote"))
}

func (suite *APITestSuite) TestDeliveryNoteValidation() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "client@example.com")
	project := suite.createProject(token, client.ID, "Roof")

	w := suite.request(http.MethodPost, "/api/deliverynote", token, gin.H{
		"project_id": project.ID,
		"data": []gin.H{
			{"type": "tool", "name": "Drill", "quantity": 1},
			{"type": "person", "name": " ", "quantity": 0},
		},
	})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Len(suite.errorsOf(w), 3)

	w = suite.upload("/api/deliverynote/signature/"+project.ID, token, []byte("plain text, not an image"))
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestDeliveryNotePDF() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "client@example.com")
	project := suite.createProject(token, client.ID, "Roof")
	note := suite.createNote(token, project.ID)

	w := suite.request(http.MethodGet, "/api/deliverynote/pdf/"+note.ID, token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("application/pdf", w.Header().Get("Content-Type"))
	suite.Equal(fmt.Sprintf("attachment; filename=delivery_note_%s.pdf", note.ID), w.Header().Get("Content-Disposition"))
	suite.True(bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = suite.upload("/api/deliverynote/signature/"+note.ID, token, pngImage(suite.T()))
	suite.Require().Equal(http.StatusOK, w.Code)
	w = suite.request(http.MethodGet, "/api/deliverynote/pdf/"+note.ID, token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.True(bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

// webpImage is a 1x1 lossless WebP, a format the PDF renderer cannot embed.
var webpImage = []byte("RIFF\x1a\x00\x00\x00WEBPVP8L\x0d\x00\x00\x00\x2f\x00\x00\x00\x10\x07\x10\x11\x11\x88\x88\xfe\x07\x00")

func (suite *APITestSuite) TestUnsupportedImageFormats() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "client@example.com")
	project := suite.createProject(token, client.ID, "Roof")
	note := suite.createNote(token, project.ID)

	w := suite.upload("/api/deliverynote/signature/"+note.ID, token, webpImage)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal([]string{"File must be a PNG, JPEG or GIF image"}, suite.errorsOf(w))

	w = suite.request(http.MethodGet, "/api/deliverynote/"+note.ID, token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var stored dto.DeliveryNoteDTO
	suite.decode(w, &stored)
	suite.Nil(stored.Signature)

	w = suite.request(http.MethodGet, "/api/deliverynote/pdf/"+note.ID, token, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.upload("/api/user/logo", token, webpImage)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodDelete, "/api/deliverynote/"+note.ID+"?soft=false", token, nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestOtherUsersEntitiesAreNotFound() {
	alice := suite.signUp("alice@example.com")
	bob := suite.signUp("bob@example.com")

	client := suite.createClient(bob, "client@example.com")
	project := suite.createProject(bob, client.ID, "Roof")
	note := suite.createNote(bob, project.ID)

	for _, path := range []string{
		"/api/client/" + client.ID,
		"/api/project/" + project.ID,
		"/api/project/client/" + client.ID,
		"/api/deliverynote/" + note.ID,
		"/api/deliverynote/project/" + project.ID,
		"/api/deliverynote/pdf/" + note.ID,
	} {
		w := suite.request(http.MethodGet, path, alice, nil)
		suite.Equal(http.StatusNotFound, w.Code, path)
	}

	w := suite.request(http.MethodDelete, "/api/deliverynote/"+note.ID, alice, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	w = suite.request(http.MethodPatch, "/api/project/"+project.ID, alice, gin.H{"name": "Mine"})
	suite.Equal(http.StatusNotFound, w.Code)
	w = suite.request(http.MethodPost, "/api/project", alice, gin.H{"client_id": client.ID, "name": "Mine"})
	suite.Equal(http.StatusNotFound, w.Code)

	// A made-up id answers exactly like someone else's.
	w = suite.request(http.MethodGet, "/api/deliverynote/"+"3f1c2b9e-8a4d-4e6f-9b2a-7c5d1e0f4a38", alice, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestArchivedParentHidesChildren() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "client@example.com")
	project := suite.createProject(token, client.ID, "Roof")
	note := suite.createNote(token, project.ID)

	w := suite.request(http.MethodDelete, "/api/project/"+project.ID, token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/deliverynote/"+note.ID, token, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal([]string{fmt.Sprintf("Not Found. Delivery note with id '%s' not found for this user", note.ID)}, suite.errorsOf(w))
}

func (suite *APITestSuite) TestRequestParameters() {
	token := suite.signUp("owner@example.com")

	w := suite.request(http.MethodGet, "/api/client/not-an-id", token, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal([]string{msgInvalidID}, suite.errorsOf(w))

	client := suite.createClient(token, "client@example.com")
	w = suite.request(http.MethodDelete, "/api/client/"+client.ID+"?soft=maybe", token, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal([]string{msgInvalidSoft}, suite.errorsOf(w))
}

func (suite *APITestSuite) TestRequestFieldsAreTrimmed() {
	w := suite.request(http.MethodPost, "/api/user", "", gin.H{"email": "  owner@example.com ", "password": " padded-secret "})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var registered dto.TokenResponse
	suite.decode(w, &registered)
	suite.users.Wait()

	w = suite.request(http.MethodPut, "/api/user/validation", registered.Token, gin.H{"code": " " + suite.mailer.lastCode("owner@example.com") + " "})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// Passwords keep their whitespace.
	w = suite.request(http.MethodPost, "/api/user/login", "", gin.H{"email": "owner@example.com ", "password": "padded-secret"})
	suite.Equal(http.StatusUnauthorized, w.Code)
	w = suite.request(http.MethodPost, "/api/user/login", "", gin.H{"email": " owner@example.com", "password": " padded-secret "})
	suite.Require().Equal(http.StatusOK, w.Code)
	token := registered.Token

	w = suite.request(http.MethodPost, "/api/client", token, gin.H{
		"email":    " client@example.com\t",
		"name":     "  Ana ",
		"lastname": "García ",
		"address":  " Calle Mayor 1",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var client dto.ClientDTO
	suite.decode(w, &client)
	suite.Equal("client@example.com", client.Email)
	suite.Equal("Ana", client.Name)
	suite.Equal("García", client.Lastname)
	suite.Equal("Calle Mayor 1", client.Address)

	w = suite.request(http.MethodPost, "/api/client", token, gin.H{
		"email": "client@example.com ", "name": "Ana", "lastname": "García", "address": "Calle Mayor 1",
	})
	suite.Equal(http.StatusConflict, w.Code)

	project := suite.createProject(token, client.ID, " Roof ")
	suite.Equal("Roof", project.Name)
}

func (suite *APITestSuite) TestCompanyAndGuest() {
	token := suite.signUp("owner@example.com")

	w := suite.request(http.MethodPatch, "/api/user", token, gin.H{"name": "Lucía", "nif": "12345678Z"})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodPut, "/api/user/company", token, gin.H{"company": false})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/user", token, nil)
	var profile dto.UserResponse
	suite.decode(w, &profile)
	var company models.Company
	suite.Require().NoError(json.Unmarshal(profile.User.Company, &company))
	suite.Equal(models.Company{Name: "Lucía", CIF: "12345678Z"}, company)

	w = suite.request(http.MethodPut, "/api/user/company", token, gin.H{"company": gin.H{"name": "Obras SL"}})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal([]string{msgInvalidCompany}, suite.errorsOf(w))

	w = suite.request(http.MethodPut, "/api/user/company", token, gin.H{"company": gin.H{
		"name": "Obras SL",
		"cif":  "B12345678",
		"address": gin.H{
			"street": "Gran Vía", "number": 5, "postalCode": 28013, "city": "Madrid", "province": "Madrid",
		},
	}})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodPost, "/api/user/company/guest", token, gin.H{
		"email": "guest@example.com", "password": "password123", "name": "Pablo",
	})
	suite.Require().Equal(http.StatusCreated, w.Code)

	var guest models.User
	suite.Require().NoError(suite.db.Where("email = ?", "guest@example.com").First(&guest).Error)
	suite.Equal(models.RoleGuest, guest.Role)
	suite.JSONEq(`{"name":"Obras SL","cif":"B12345678","address":{"street":"Gran Vía","number":5,"postalCode":28013,"city":"Madrid","province":"Madrid"}}`, string(guest.Company))

	w = suite.request(http.MethodPost, "/api/user/company/guest", token, gin.H{
		"email": "guest@example.com", "password": "password123",
	})
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *APITestSuite) TestLogoAndPassword() {
	token := suite.signUp("owner@example.com")

	w := suite.upload("/api/user/logo", token, pngImage(suite.T()))
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/user", token, nil)
	var profile dto.UserResponse
	suite.decode(w, &profile)
	suite.Contains(profile.User.Logo, "logo_"+profile.User.ID)

	w = suite.request(http.MethodPut, "/api/user/password", token, gin.H{"password": "another-secret"})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodPost, "/api/user/login", "", gin.H{"email": "owner@example.com", "password": "another-secret"})
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestRecovery() {
	suite.signUp("owner@example.com")

	w := suite.request(http.MethodPost, "/api/user/recovery", "", gin.H{"email": "owner@example.com"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.users.Wait()

	suite.mailer.mu.Lock()
	last := suite.mailer.sent[len(suite.mailer.sent)-1]
	suite.mailer.mu.Unlock()
	suite.Equal("Password recovery", last.Subject)
	suite.Equal("owner@example.com", last.To)

	w = suite.request(http.MethodPost, "/api/user/recovery", "", gin.H{"email": "nobody@example.com"})
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestDraftWithoutAI() {
	token := suite.signUp("owner@example.com")
	client := suite.createClient(token, "client@example.com")
	project := suite.createProject(token, client.ID, "Roof")

	w := suite.request(http.MethodPost, "/api/deliverynote/draft", token, gin.H{"project_id": project.ID, "text": "Two workers for 8 hours"})
	suite.Equal(http.StatusServiceUnavailable, w.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestSoftParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]struct {
		query string
		soft  bool
		ok    bool
	}{
		"absent": {query: "", soft: true, ok: true},
		"true":   {query: "soft=true", soft: true, ok: true},
		"false":  {query: "soft=false", soft: false, ok: true},
		"junk":   {query: "soft=nope", ok: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodDelete, "/?"+tc.query, nil)

			soft, ok := softParam(c)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.soft, soft)
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
