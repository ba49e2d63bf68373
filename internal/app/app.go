// Package app assembles the HTTP application from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yukikurage/deliverynote-api/internal/cache"
	"github.com/yukikurage/deliverynote-api/internal/config"
	"github.com/yukikurage/deliverynote-api/internal/constants"
	"github.com/yukikurage/deliverynote-api/internal/database"
	"github.com/yukikurage/deliverynote-api/internal/handlers"
	"github.com/yukikurage/deliverynote-api/internal/mail"
	"github.com/yukikurage/deliverynote-api/internal/middleware"
	"github.com/yukikurage/deliverynote-api/internal/pdf"
	"github.com/yukikurage/deliverynote-api/internal/repository"
	"github.com/yukikurage/deliverynote-api/internal/security"
	"github.com/yukikurage/deliverynote-api/internal/services"
	"github.com/yukikurage/deliverynote-api/internal/storage"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// App is a fully wired API ready to serve.
type App struct {
	Engine *gin.Engine

	users   *services.UserService
	closers []func() error
	log     *slog.Logger
}

// Adapters are the external collaborators. Nil fields are built from the config.
type Adapters struct {
	Uploader storage.Uploader
	Fetcher  storage.Fetcher
	Mailer   mail.Mailer
	AI       *services.AIService
}

// New connects to the database and external services described by cfg and
// builds the router.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{log: log}
	a.closers = append(a.closers, func() error { return database.Close(db) })

	if err := database.Migrate(db, log); err != nil {
		a.Close()
		return nil, err
	}

	adapters, err := a.buildAdapters(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Engine = Build(cfg, db, log, adapters, a)
	return a, nil
}

func (a *App) buildAdapters(ctx context.Context, cfg *config.Config) (Adapters, error) {
	var out Adapters
	httpClient := &http.Client{Timeout: 30 * time.Second}

	switch cfg.StorageDriver {
	case "s3":
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			return out, err
		}
		out.Uploader = storage.NewS3Store(client, cfg.S3Bucket, cfg.S3PublicURL)
	default:
		out.Uploader = storage.NewPinataStore(httpClient, cfg.PinataAPIURL, cfg.PinataJWT, cfg.PinataGateway)
	}

	out.Fetcher = storage.NewHTTPFetcher(httpClient, constants.MaxSignatureBytes)
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return out, err
		}
		a.closers = append(a.closers, rdb.Close)
		out.Fetcher = cache.NewCachedFetcher(out.Fetcher, rdb, cfg.SignatureCacheTTL, a.log)
	}

	switch cfg.MailDriver {
	case "smtp":
		out.Mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	case "amqp":
		pub, err := mail.NewPublisher(cfg.RabbitURL, cfg.MailExchange)
		if err != nil {
			return out, err
		}
		a.closers = append(a.closers, pub.Close)
		out.Mailer = pub
	default:
		out.Mailer = mail.NewLogMailer(a.log)
	}

	if cfg.OpenAIAPIKey != "" {
		out.AI = services.NewAIService(cfg.OpenAIAPIKey)
	}
	return out, nil
}

// Build wires repositories, services and handlers over db and returns the router.
// When app is non-nil it keeps the user service so Close can drain pending mail.
func Build(cfg *config.Config, db *gorm.DB, log *slog.Logger, adapters Adapters, app *App) *gin.Engine {
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	noteRepo := repository.NewDeliveryNoteRepository(db)

	tokens := security.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	owner := services.NewOwnership(clientRepo, projectRepo, noteRepo)

	userService := services.NewUserService(services.UserDeps{
		Users:    userRepo,
		Tokens:   tokens,
		Mailer:   adapters.Mailer,
		Uploader: adapters.Uploader,
		MailFrom: cfg.MailFrom,
		Log:      log,
	})
	if app != nil {
		app.users = userService
	}
	clientService := services.NewClientService(clientRepo)
	projectService := services.NewProjectService(clientRepo, projectRepo, owner)
	noteService := services.NewDeliveryNoteService(services.DeliveryNoteDeps{
		Clients:  clientRepo,
		Projects: projectRepo,
		Notes:    noteRepo,
		Owner:    owner,
		Uploader: adapters.Uploader,
		Fetcher:  adapters.Fetcher,
		Renderer: pdf.NewRenderer(constants.SignatureBoxPoints),
		AI:       adapters.AI,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Tracing(cfg.ServiceName))
	if cfg.SlackWebhookURL != "" {
		reporter := middleware.NewSlackReporter(cfg.SlackWebhookURL, nil, log)
		r.Use(middleware.SlackRequestLogger(reporter, cfg.SlackMinStatus))
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Delivery Note API is running",
			"version": Version,
		})
	})

	handlers.Router{
		Users:         handlers.NewUserHandler(userService),
		Clients:       handlers.NewClientHandler(clientService),
		Projects:      handlers.NewProjectHandler(projectService),
		DeliveryNotes: handlers.NewDeliveryNoteHandler(noteService),
		RequireAuth:   middleware.RequireAuth(tokens, userRepo),
		RequireToken:  middleware.RequireToken(tokens),
	}.Register(r.Group(cfg.APIPrefix))

	return r
}

// Drain blocks until queued emails have been handed to the mailer.
func (a *App) Drain() {
	if a.users != nil {
		a.users.Wait()
	}
}

// Close waits for queued emails and releases every connection, last opened first.
func (a *App) Close() error {
	a.Drain()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Migrate runs the schema migrations for cfg and returns.
func Migrate(cfg *config.Config, log *slog.Logger) error {
	db, err := database.Connect(cfg, log)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
