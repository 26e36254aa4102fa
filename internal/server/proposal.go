package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	proposaldomain "github.com/smallbiznis/propoza/internal/proposal/domain"
)

func (s *Server) ResolveDraft(c *gin.Context) {
	p, err := s.proposalSvc.ResolveCustomerDraft(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

type staffDraftRequest struct {
	CustomerID snowflake.ID `json:"customer_id"`
	ForceNew   bool         `json:"force_new"`
}

func (s *Server) ResolveStaffDraft(c *gin.Context) {
	var req staffDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	p, err := s.proposalSvc.ResolveStaffDraft(c.Request.Context(), req.CustomerID, req.ForceNew)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) GetProposal(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	p, err := s.proposalSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) GetPublicProposal(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	p, err := s.proposalSvc.GetByPublicToken(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) ListProposals(c *gin.Context) {
	list, err := s.proposalSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	switch proposaldomain.ListTab(strings.TrimSpace(c.Query("tab"))) {
	case proposaldomain.TabActive:
		c.JSON(http.StatusOK, gin.H{"data": list.Active})
	case proposaldomain.TabRequests:
		c.JSON(http.StatusOK, gin.H{"data": list.Requests})
	case proposaldomain.TabHistory:
		c.JSON(http.StatusOK, gin.H{"data": list.History})
	default:
		c.JSON(http.StatusOK, gin.H{"data": list})
	}
}

func (s *Server) AddItem(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req proposaldomain.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.proposalSvc.AddItem(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

type updateQtyRequest struct {
	Action proposaldomain.QtyAction `json:"action"`
	Qty    int                      `json:"qty"`
}

func (s *Server) UpdateItemQty(c *gin.Context) {
	itemID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req updateQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.proposalSvc.UpdateItemQty(c.Request.Context(), itemID, req.Action, req.Qty)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

type updatePriceRequest struct {
	Price int64 `json:"price"`
}

func (s *Server) UpdateItemPrice(c *gin.Context) {
	itemID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.proposalSvc.UpdateItemPrice(c.Request.Context(), itemID, req.Price)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) RemoveItem(c *gin.Context) {
	itemID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.proposalSvc.RemoveItem(c.Request.Context(), itemID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *Server) ClearProposal(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.proposalSvc.Clear(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) Autosave(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req proposaldomain.AutosaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	p, err := s.proposalSvc.Autosave(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) UploadPhoto(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		AbortWithError(c, proposaldomain.NewValidationError("photo", "missing_photo", "photo file is required"))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		AbortWithError(c, proposaldomain.NewValidationError("photo", "unsupported_format", "unsupported image format"))
		return
	}

	name := fmt.Sprintf("%s_%d%s", id.String(), s.clock.Now().UnixNano(), ext)
	dest := filepath.Join(s.cfg.PhotoDir, name)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		AbortWithError(c, err)
		return
	}

	p, err := s.proposalSvc.UploadPhoto(c.Request.Context(), id, dest)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) SubmitProposal(c *gin.Context) {
	s.lifecycle(c, s.proposalSvc.Submit)
}

func (s *Server) AcceptProposal(c *gin.Context) {
	s.lifecycle(c, s.proposalSvc.Accept)
}

func (s *Server) RejectProposal(c *gin.Context) {
	s.lifecycle(c, s.proposalSvc.Reject)
}

func (s *Server) ReactivateProposal(c *gin.Context) {
	s.lifecycle(c, s.proposalSvc.Reactivate)
}

func (s *Server) lifecycle(c *gin.Context, op func(ctx context.Context, id snowflake.ID) (proposaldomain.Proposal, error)) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	p, err := op(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) ListProposalAudit(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	logs, err := s.auditSvc.List(c.Request.Context(), "proposal", id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) ActiveWorkSession(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	proposalID, found, err := s.sessions.Get(c.Request.Context(), actor.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"data": nil})
		return
	}

	p, err := s.proposalSvc.Get(c.Request.Context(), proposalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}
