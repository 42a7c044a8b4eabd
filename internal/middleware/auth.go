package middleware

import (
	"net/http"
	"strings"

	"github.com/chetgo/sahod-solutions/pkg/jwtutil"
	"github.com/chetgo/sahod-solutions/pkg/logger"
	"github.com/chetgo/sahod-solutions/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT token from the Authorization header.
// Draft and subdomain-availability routes stay public (anonymous
// signup); this guards the company and user surfaces only.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store user info in context for later use
		c.Set("user", claims)
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)

		if claims.CompanyID != "" {
			c.Set("company_id", claims.CompanyID)
			c.Request().Header.Set("X-Company-ID", claims.CompanyID)
			if claims.Subdomain != "" {
				c.Request().Header.Set("X-Company-Subdomain", claims.Subdomain)
			}

			log.Debug("Request authenticated with company context",
				zap.String("company_id", claims.CompanyID),
				zap.String("subdomain", claims.Subdomain),
				zap.String("role", claims.Role))
		}

		return next(c)
	}
}
