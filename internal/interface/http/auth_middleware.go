package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/clinic-assistant/internal/domain/auth"
	apperrors "github.com/yanqian/clinic-assistant/pkg/errors"
)

const adminClaimsKey = "admin_claims"

var (
	errMissingBearer   = errors.New("missing authorization header")
	errMalformedBearer = errors.New("authorization header must be \"Bearer <token>\"")
)

// requireAdmin rejects requests without a valid admin token and stores the
// claims on the context for audit logging.
func requireAdmin(svc auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", err.Error(), nil))
			return
		}
		claims, err := svc.ValidateToken(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(adminClaimsKey, claims)
			c.Next()
		case apperrors.IsCode(err, apperrors.CodeInvalidToken):
			abortWithError(c, NewHTTPError(http.StatusForbidden, apperrors.CodeInvalidToken, errMessage(err), err))
		default:
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "auth_failed", errMessage(err), err))
		}
	}
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errMissingBearer
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errMalformedBearer
	}
	return token, nil
}

// adminSubject names the caller in audit logs; empty on public routes.
func adminSubject(c *gin.Context) string {
	v, ok := c.Get(adminClaimsKey)
	if !ok {
		return ""
	}
	claims, _ := v.(auth.Claims)
	return claims.Subject
}
