package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/propoza/internal/render"
)

// RenderProposalPDF streams the proposal as a PDF document. Access rules
// are the same as GetProposal: the service rejects strangers.
func (s *Server) RenderProposalPDF(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	p, err := s.proposalSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	names := make(map[snowflake.ID]string, len(p.Items))
	for _, item := range p.Items {
		if _, ok := names[item.ServiceID]; ok {
			continue
		}
		svc, err := s.catalogSvc.GetService(ctx, item.ServiceID)
		if err != nil {
			// A removed service still renders as an unnamed line.
			continue
		}
		names[item.ServiceID] = svc.Name
	}

	customerName := ""
	if customer, err := s.accountSvc.GetByID(ctx, p.CustomerID); err == nil {
		customerName = customer.DisplayName()
	}

	doc := render.Assemble(p, names, customerName, s.cfg)
	reader, err := s.renderer.RenderProposal(ctx, doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=proposal_%s.pdf", p.ID.String()))
	c.Data(http.StatusOK, "application/pdf", data)
}
