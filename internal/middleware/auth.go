package middleware

import (
	"context"
	"strings"

	"loyalty/config"
	"loyalty/internal/auth"
	"loyalty/internal/metrics"
	"loyalty/internal/models"
	"loyalty/pkg/errutil"

	"github.com/gin-gonic/gin"
)

const (
	ctxUser    = "user"
	ctxStation = "station"

	StationTokenHeader = "X-Station-Token"
)

// UserResolver turns verified claims into the current staff user.
type UserResolver interface {
	Authenticate(ctx context.Context, claims *auth.Claims) (*models.BusinessUser, error)
}

// StationResolver turns a station API token into its station.
type StationResolver interface {
	ResolveByToken(ctx context.Context, token string) (*models.Station, error)
}

// SessionToken reads the bearer header first, then the session cookie.
func SessionToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// SessionRequired authenticates staff and stores the user in the context.
func SessionRequired(cfg *config.JWTConfig, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cfg.CookieName)
		if token == "" {
			reject(c, "session", errutil.Unauthorized("Authentication credentials were not provided."))
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			reject(c, "session", errutil.Unauthorized("Invalid or expired session."))
			return
		}
		user, err := users.Authenticate(c.Request.Context(), claims)
		if err != nil {
			reject(c, "session", errutil.Unauthorized("Invalid or expired session.", errutil.WithErr(err)))
			return
		}
		c.Set(ctxUser, user)
		c.Next()
	}
}

// StationRequired authenticates the point-of-sale terminal making the call.
func StationRequired(stations StationResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(StationTokenHeader)
		if token == "" {
			reject(c, "station", errutil.Unauthorized("Missing station token."))
			return
		}
		st, err := stations.ResolveByToken(c.Request.Context(), token)
		if err != nil {
			reject(c, "station", errutil.Unauthorized("Invalid station token.", errutil.WithErr(err)))
			return
		}
		c.Set(ctxStation, st)
		c.Next()
	}
}

func reject(c *gin.Context, gate string, err error) {
	metrics.AuthRejections.WithLabelValues(gate).Inc()
	_ = c.Error(err)
	c.Abort()
}

// CurrentUser is only valid behind SessionRequired.
func CurrentUser(c *gin.Context) *models.BusinessUser {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	return v.(*models.BusinessUser)
}

// CurrentStation is only valid behind StationRequired.
func CurrentStation(c *gin.Context) *models.Station {
	v, ok := c.Get(ctxStation)
	if !ok {
		return nil
	}
	return v.(*models.Station)
}
