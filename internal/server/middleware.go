package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	obscontext "github.com/smallbiznis/frontdesk/internal/observability/context"
)

const (
	HeaderOperatorID    = "X-Operator-Id"
	HeaderOperatorRole  = "X-Operator-Role"
	HeaderFallbackToken = "X-Fallback-Token"

	contextOperatorIDKey   = "operator_id"
	contextOperatorRoleKey = "operator_role"
	contextActorTypeKey    = "actor_type"
)

const (
	actorOperator = "operator"
	actorSystem   = "system"
)

// OperatorContext reads the operator identity set by the upstream session
// gateway. Requests without an operator id are rejected by authorizeAction.
func OperatorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		operatorID := strings.TrimSpace(c.GetHeader(HeaderOperatorID))
		if operatorID != "" {
			c.Set(contextOperatorIDKey, operatorID)
			c.Set(contextOperatorRoleKey, strings.TrimSpace(c.GetHeader(HeaderOperatorRole)))
			c.Set(contextActorTypeKey, actorOperator)
			ctx := obscontext.WithActor(c.Request.Context(), actorOperator, operatorID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// FallbackTokenRequired guards the internal trigger used by an external cron.
func (s *Server) FallbackTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(s.cfg.FallbackToken)
		if expected == "" {
			AbortWithError(c, ErrNotFound)
			return
		}

		provided := strings.TrimSpace(c.GetHeader(HeaderFallbackToken))
		if provided == "" {
			provided = bearerToken(c.GetHeader("Authorization"))
		}
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextOperatorIDKey, domain.SystemOperatorID)
		c.Set(contextActorTypeKey, actorSystem)
		ctx := obscontext.WithActor(c.Request.Context(), actorSystem, domain.SystemOperatorID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
