package middleware

import (
	"strings"

	"tripfluence-api/core/constants"
	"tripfluence-api/core/controller"
	"tripfluence-api/core/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	RoleOrganizer = "organizer"
	RoleStaff     = "staff"
	RoleAdmin     = "admin"
)

// Actor is the authenticated caller: identity, tenant scope and role.
// The core only ever consumes these three fields; session mechanics live
// with the identity provider.
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     string
}

// IsBusinessUser reports whether the actor can act on behalf of the tenant
// (approve, cancel, publish).
func (a *Actor) IsBusinessUser() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

type actorClaims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Middleware struct {
	jwtSecret []byte
	base      controller.BaseController
}

func NewMiddleware(jwtSecret string) *Middleware {
	return &Middleware{
		jwtSecret: []byte(jwtSecret),
		base:      controller.NewBaseController(),
	}
}

// AuthMiddleware validates the bearer token and stores the Actor on the
// request context.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return m.base.Unauthorized(errors.ErrMissingAuthorizationHeader, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return m.base.Unauthorized(errors.ErrInvalidTokenFormat, "authorization header must be a bearer token")
			}

			claims := &actorClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return m.jwtSecret, nil
			})
			if err != nil || !token.Valid {
				return m.base.Unauthorized(errors.ErrTokenExpired, "invalid or expired token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return m.base.Unauthorized(errors.ErrInvalidTokenFormat, "invalid subject claim")
			}
			tenantID, err := uuid.Parse(claims.TenantID)
			if err != nil {
				return m.base.Unauthorized(errors.ErrInvalidTokenFormat, "invalid tenant claim")
			}

			c.Set(constants.ContextActor, &Actor{
				UserID:   userID,
				TenantID: tenantID,
				Role:     claims.Role,
			})
			return next(c)
		}
	}
}

// RequireBusinessUser rejects callers without staff or admin role.
func (m *Middleware) RequireBusinessUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, appErr := ActorFromContext(c)
			if appErr != nil {
				return m.base.Unauthorized(appErr.Code, appErr.Message)
			}
			if !actor.IsBusinessUser() {
				return m.base.Forbidden(errors.ErrForbidden, "business role required")
			}
			return next(c)
		}
	}
}

// ActorFromContext returns the Actor stored by AuthMiddleware.
func ActorFromContext(c echo.Context) (*Actor, *errors.AppError) {
	actor, ok := c.Get(constants.ContextActor).(*Actor)
	if !ok || actor == nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "no authenticated actor on request", nil)
	}
	return actor, nil
}
