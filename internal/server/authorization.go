package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

type ActorType string

const (
	ActorOperator ActorType = actorOperator
	ActorSystem   ActorType = actorSystem
)

type Actor struct {
	Type ActorType
	ID   string
	Role string
}

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeActionWithContext(c *gin.Context, object string, action string) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), actor.subject(), actor.Role, strings.TrimSpace(object), strings.TrimSpace(action))
}

func actorFromContext(c *gin.Context) (Actor, bool) {
	if c == nil {
		return Actor{}, false
	}
	id := strings.TrimSpace(c.GetString(contextOperatorIDKey))
	if id == "" {
		return Actor{}, false
	}
	switch c.GetString(contextActorTypeKey) {
	case actorSystem:
		return Actor{Type: ActorSystem, ID: id}, true
	case actorOperator:
		return Actor{Type: ActorOperator, ID: id, Role: c.GetString(contextOperatorRoleKey)}, true
	default:
		return Actor{}, false
	}
}

func (a Actor) subject() string {
	switch a.Type {
	case ActorOperator:
		return fmt.Sprintf("operator:%s", a.ID)
	case ActorSystem:
		return "system"
	default:
		return ""
	}
}
