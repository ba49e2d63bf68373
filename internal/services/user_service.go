package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yukikurage/deliverynote-api/internal/constants"
	"github.com/yukikurage/deliverynote-api/internal/mail"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/repository"
	"github.com/yukikurage/deliverynote-api/internal/security"
	"github.com/yukikurage/deliverynote-api/internal/storage"
	"github.com/yukikurage/deliverynote-api/internal/utils"
)

const mailTimeout = 30 * time.Second

// Signer issues access tokens.
type Signer interface {
	Sign(user *models.User) (string, error)
}

// UserService provides business logic for accounts.
type UserService struct {
	users    repository.UserRepository
	tokens   Signer
	mailer   mail.Mailer
	uploader storage.Uploader
	mailFrom string
	log      *slog.Logger
	now      func() time.Time

	pending sync.WaitGroup
}

// UserDeps groups the collaborators of UserService.
type UserDeps struct {
	Users    repository.UserRepository
	Tokens   Signer
	Mailer   mail.Mailer
	Uploader storage.Uploader
	MailFrom string
	Log      *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(deps UserDeps) *UserService {
	return &UserService{
		users:    deps.Users,
		tokens:   deps.Tokens,
		mailer:   deps.Mailer,
		uploader: deps.Uploader,
		mailFrom: deps.MailFrom,
		log:      deps.Log,
		now:      time.Now,
	}
}

// PatchUserInput carries the profile fields a user may change. Nil means unchanged.
type PatchUserInput struct {
	Name     *string
	Lastname *string
	NIF      *string
}

// GuestInput represents parameters to invite a guest into the caller's company.
type GuestInput struct {
	Email    string
	Password string
	Name     string
	Lastname string
	NIF      string
}

// Register creates an unvalidated account and mails it a validation code.
//
// An archived account with the same email is reopened in place, but only behind a
// fresh validation code sent to that address, so the token returned here cannot
// pass the auth gate until the mailbox owner validates.
func (s *UserService) Register(ctx context.Context, email, password string) (string, error) {
	if len(password) < constants.MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return "", err
	}
	code, err := utils.GenerateValidationCode(constants.ValidationCodeLength)
	if err != nil {
		return "", err
	}

	user, err := s.users.FindByEmail(ctx, email, repository.AnyState)
	switch {
	case err == nil && !user.Deleted:
		return "", ErrUserExists
	case err == nil:
		user.Deleted = false
		user.Validated = false
		user.ValidationCode = code
		user.ValidationAttempts = constants.MaxValidationAttempts
		user.PasswordHash = hash
		if err := s.users.Save(ctx, user); err != nil {
			return "", fmt.Errorf("failed to reopen user: %w", err)
		}
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{
			Email:              email,
			PasswordHash:       hash,
			ValidationCode:     code,
			ValidationAttempts: constants.MaxValidationAttempts,
			Role:               models.RoleUser,
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return "", ErrUserExists
			}
			return "", fmt.Errorf("failed to create user: %w", err)
		}
	default:
		return "", fmt.Errorf("failed to check user: %w", err)
	}

	token, err := s.tokens.Sign(user)
	if err != nil {
		return "", err
	}
	s.sendAsync(mail.ValidationMessage(s.mailFrom, user.Email, code))
	return token, nil
}

// Validate checks code against the pending validation code of userID.
// Running out of attempts removes the account; one that had been validated
// before is archived instead so its data survives.
func (s *UserService) Validate(ctx context.Context, userID, code string) error {
	user, err := s.users.FindByID(ctx, userID, repository.Active)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.Validated {
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(user.ValidationCode)) == 1 {
		now := s.now()
		user.Validated = true
		user.ValidatedAt = &now
		if err := s.users.Save(ctx, user); err != nil {
			return fmt.Errorf("failed to validate user: %w", err)
		}
		return nil
	}

	user.ValidationAttempts--
	if user.ValidationAttempts > 0 {
		if err := s.users.Save(ctx, user); err != nil {
			return fmt.Errorf("failed to record attempt: %w", err)
		}
		return ErrInvalidCode
	}

	if user.ValidatedAt != nil {
		user.Deleted = true
		err = s.users.Save(ctx, user)
	} else {
		err = s.users.Delete(ctx, user.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	return ErrMaxAttemptsReached
}

// Login exchanges credentials for a token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email, repository.Active)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if !user.Validated {
		return "", ErrUserNotValidated
	}
	if !security.ComparePassword(password, user.PasswordHash) {
		return "", ErrInvalidPassword
	}
	return s.tokens.Sign(user)
}

// Patch updates the submitted profile fields.
func (s *UserService) Patch(ctx context.Context, user *models.User, input PatchUserInput) (*models.User, error) {
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Lastname != nil {
		user.Lastname = *input.Lastname
	}
	if input.NIF != nil {
		user.NIF = *input.NIF
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// PutCompany replaces the user's company. A nil company marks the user as
// self-employed under their own name and tax id.
func (s *UserService) PutCompany(ctx context.Context, user *models.User, company *models.Company) error {
	c := models.SelfEmployedCompany(user)
	if company != nil {
		c = *company
	}
	if err := user.SetCompany(c); err != nil {
		return fmt.Errorf("failed to encode company: %w", err)
	}
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

// PutLogo stores a logo image and records its URL.
func (s *UserService) PutLogo(ctx context.Context, user *models.User, image []byte) (string, error) {
	contentType, err := checkImage(image, constants.MaxLogoBytes)
	if err != nil {
		return "", err
	}
	url, err := s.uploader.Upload(ctx, "logo_"+user.ID, image, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload logo: %w", err)
	}
	user.Logo = url
	if err := s.users.Save(ctx, user); err != nil {
		return "", fmt.Errorf("failed to update logo: %w", err)
	}
	return url, nil
}

// PutPassword replaces the user's password.
func (s *UserService) PutPassword(ctx context.Context, user *models.User, password string) error {
	if len(password) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Delete archives the account when soft is set, otherwise removes it with all its data.
func (s *UserService) Delete(ctx context.Context, user *models.User, soft bool) error {
	var err error
	if soft {
		user.Deleted = true
		err = s.users.Save(ctx, user)
	} else {
		err = s.users.Delete(ctx, user.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// Recovery mails a fresh access token that can be used to set a new password.
func (s *UserService) Recovery(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email, repository.Active)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	token, err := s.tokens.Sign(user)
	if err != nil {
		return err
	}
	s.sendAsync(mail.RecoveryMessage(s.mailFrom, user.Email, token))
	return nil
}

// CreateGuest adds a guest account that shares the owner's company.
// Archived accounts are never reopened here.
func (s *UserService) CreateGuest(ctx context.Context, owner *models.User, input GuestInput) (string, error) {
	if len(input.Password) < constants.MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return "", err
	}
	code, err := utils.GenerateValidationCode(constants.ValidationCodeLength)
	if err != nil {
		return "", err
	}

	guest := &models.User{
		Email:              input.Email,
		PasswordHash:       hash,
		ValidationCode:     code,
		ValidationAttempts: constants.MaxValidationAttempts,
		Role:               models.RoleGuest,
		Name:               input.Name,
		Lastname:           input.Lastname,
		NIF:                input.NIF,
		Company:            owner.Company,
	}
	if err := s.users.Create(ctx, guest); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("failed to create guest: %w", err)
	}

	token, err := s.tokens.Sign(guest)
	if err != nil {
		return "", err
	}
	s.sendAsync(mail.ValidationMessage(s.mailFrom, guest.Email, code))
	return token, nil
}

// Wait blocks until every queued email has been handed to the mailer.
func (s *UserService) Wait() {
	s.pending.Wait()
}

// sendAsync delivers msg in the background. Failures are only logged; the
// request that queued it has already been answered.
func (s *UserService) sendAsync(msg mail.Message) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.log.Error("failed to send email", "to", msg.To, "subject", msg.Subject, "error", err)
		}
	}()
}
