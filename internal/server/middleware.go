package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/propoza/internal/actorcontext"
)

const contextActorKey = "actor"

// AuthRequired verifies the bearer token and stores the actor on both the
// gin context and the request context, so services downstream can read it.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.tokens.Verify(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(actorcontext.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// StaffRequired gates admin routes. It assumes AuthRequired ran first.
func (s *Server) StaffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !actor.IsStaff() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) (actorcontext.Actor, bool) {
	v, ok := c.Get(contextActorKey)
	if !ok {
		return actorcontext.Actor{}, false
	}
	actor, ok := v.(actorcontext.Actor)
	return actor, ok
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
