package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/deliverynote-api/internal/constants"
	apierrors "github.com/yukikurage/deliverynote-api/internal/errors"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/repository"
	"github.com/yukikurage/deliverynote-api/internal/security"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*security.Claims, error)
}

// RequireToken checks the bearer token only. Handlers behind it see the claims
// but no user row, so unvalidated accounts get through.
func RequireToken(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := verifyBearer(c, tokens)
		if !ok {
			return
		}
		c.Set(constants.ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireAuth checks the bearer token and loads the active, validated user it names.
func RequireAuth(tokens TokenVerifier, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := verifyBearer(c, tokens)
		if !ok {
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.ID, repository.Active)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				apierrors.Forbidden(c, "Forbidden. User not found")
				return
			}
			_ = c.Error(err)
			apierrors.InternalError(c)
			return
		}

		if !user.Validated {
			apierrors.Forbidden(c, "Forbidden. User email not validated")
			return
		}

		c.Set(constants.ContextKeyClaims, claims)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

func verifyBearer(c *gin.Context, tokens TokenVerifier) (*security.Claims, bool) {
	token, found := bearerToken(c.GetHeader("Authorization"))
	if !found {
		apierrors.Unauthorized(c, "Unauthorized. Token not found")
		return nil, false
	}

	claims, err := tokens.Verify(token)
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		apierrors.Unauthorized(c, "Unauthorized. Token expired")
		return nil, false
	case err != nil:
		apierrors.Unauthorized(c, "Unauthorized. Invalid token")
		return nil, false
	}
	return claims, true
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetUser retrieves the authenticated user from context
func GetUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// GetClaims retrieves the verified token claims from context
func GetClaims(c *gin.Context) (*security.Claims, bool) {
	value, exists := c.Get(constants.ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*security.Claims)
	return claims, ok && claims != nil
}
