package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/propoza/internal/audit/domain"
	"gorm.io/datatypes"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	username := strings.TrimSpace(req.Username)
	user, err := s.accountSvc.Authenticate(c.Request.Context(), username, req.Password)
	if err != nil {
		s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
			Action:     "user.login_failed",
			TargetType: "user",
			Metadata:   datatypes.JSONMap{"username": username},
		})
		AbortWithError(c, err)
		return
	}

	token, err := s.tokens.Issue(user.Actor(), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
		Actor:      user.Actor(),
		Action:     "user.login",
		TargetType: "user",
		TargetID:   user.ID,
	})

	c.JSON(http.StatusOK, LoginResponse{Token: token, User: user})
}

func (s *Server) Me(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.accountSvc.GetByID(c.Request.Context(), actor.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}
