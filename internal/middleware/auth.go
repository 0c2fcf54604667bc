package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/pkg/tokenpkg"
	"github.com/go-petr/pet-atm/pkg/web"
)

// Authorization header parts.
const (
	AuthHeaderKey  = "authorization"
	AuthTypeBearer = "bearer"
	SessionKey     = "authorization_session"
)

// Errors reported by AuthMiddleware and GetSession.
var (
	ErrAuthHeaderNotFound  = errors.New("authorization header is not provided")
	ErrBadAuthHeaderFormat = errors.New("invalid authorization header format")
	ErrUnsupportedAuthType = errors.New("unsupported authorization type")
	ErrNoSession           = errors.New("no authenticated session")
)

// AddAuthorization issues a token for session and sets it on the request.
func AddAuthorization(r *http.Request, maker tokenpkg.Maker, authType string, session domain.Session, duration time.Duration) error {
	token, _, err := maker.CreateToken(session.ID, session.AccountID, string(session.Method), duration)
	if err != nil {
		return err
	}

	r.Header.Set(AuthHeaderKey, fmt.Sprintf("%s %s", authType, token))

	return nil
}

// AuthMiddleware verifies the bearer token and stores the session it carries in the gin context.
func AuthMiddleware(maker tokenpkg.Maker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if len(header) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrAuthHeaderNotFound))
			return
		}

		fields := strings.Fields(header)
		if len(fields) < 2 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrBadAuthHeaderFormat))
			return
		}

		if strings.ToLower(fields[0]) != AuthTypeBearer {
			c.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrUnsupportedAuthType))
			return
		}

		payload, err := maker.VerifyToken(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(err))
			return
		}

		c.Set(SessionKey, domain.Session{
			ID:        payload.ID,
			AccountID: payload.AccountID,
			Method:    domain.LoginMethod(payload.Method),
			CreatedAt: payload.IssuedAt,
		})
		c.Next()
	}
}

// GetSession returns the session stored by AuthMiddleware.
func GetSession(c *gin.Context) (domain.Session, error) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return domain.Session{}, ErrNoSession
	}

	session, ok := v.(domain.Session)
	if !ok {
		return domain.Session{}, ErrNoSession
	}

	return session, nil
}
