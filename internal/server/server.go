package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/propoza/internal/account"
	accountdomain "github.com/smallbiznis/propoza/internal/account/domain"
	"github.com/smallbiznis/propoza/internal/audit"
	auditdomain "github.com/smallbiznis/propoza/internal/audit/domain"
	"github.com/smallbiznis/propoza/internal/auth"
	"github.com/smallbiznis/propoza/internal/catalog"
	catalogdomain "github.com/smallbiznis/propoza/internal/catalog/domain"
	"github.com/smallbiznis/propoza/internal/clock"
	"github.com/smallbiznis/propoza/internal/config"
	"github.com/smallbiznis/propoza/internal/observability"
	obslogger "github.com/smallbiznis/propoza/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/propoza/internal/observability/metrics"
	"github.com/smallbiznis/propoza/internal/proposal"
	proposaldomain "github.com/smallbiznis/propoza/internal/proposal/domain"
	"github.com/smallbiznis/propoza/internal/proposaltemplate"
	templatedomain "github.com/smallbiznis/propoza/internal/proposaltemplate/domain"
	"github.com/smallbiznis/propoza/internal/render"
	"github.com/smallbiznis/propoza/internal/worksession"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	auth.Module,
	audit.Module,
	account.Module,
	catalog.Module,
	proposaltemplate.Module,
	proposal.Module,
	worksession.Module,
	render.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	tokens      *auth.Tokens
	clock       clock.Clock
	genID       *snowflake.Node
	accountSvc  accountdomain.Service
	catalogSvc  catalogdomain.CatalogService
	templateSvc templatedomain.TemplateService
	proposalSvc proposaldomain.Service
	auditSvc    auditdomain.Service
	sessions    worksession.Store
	renderer    render.Renderer
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	Tokens      *auth.Tokens
	Clock       clock.Clock
	GenID       *snowflake.Node
	AccountSvc  accountdomain.Service
	CatalogSvc  catalogdomain.CatalogService
	TemplateSvc templatedomain.TemplateService
	ProposalSvc proposaldomain.Service
	AuditSvc    auditdomain.Service
	Sessions    worksession.Store
	Renderer    render.Renderer
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		tokens:      p.Tokens,
		clock:       p.Clock,
		genID:       p.GenID,
		accountSvc:  p.AccountSvc,
		catalogSvc:  p.CatalogSvc,
		templateSvc: p.TemplateSvc,
		proposalSvc: p.ProposalSvc,
		auditSvc:    p.AuditSvc,
		sessions:    p.Sessions,
		renderer:    p.Renderer,
	}
}

func registerRoutes(s *Server) {
	s.registerAuthRoutes()
	s.registerAPIRoutes()
	s.registerAdminRoutes()
	s.registerPublicRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Catalog --------
	api.GET("/catalog/categories", s.ListCategories)
	api.GET("/catalog/categories/:id/services", s.ListCategoryServices)

	// -------- Proposals --------
	api.GET("/proposals", s.ListProposals)
	api.POST("/proposals/draft", s.ResolveDraft)
	api.GET("/proposals/:id", s.GetProposal)
	api.POST("/proposals/:id/items", s.AddItem)
	api.POST("/proposals/:id/clear", s.ClearProposal)
	api.POST("/proposals/:id/autosave", s.Autosave)
	api.POST("/proposals/:id/photo", s.UploadPhoto)
	api.POST("/proposals/:id/submit", s.SubmitProposal)
	api.GET("/proposals/:id/pdf", s.RenderProposalPDF)

	// Item routes key on the line id alone; the parent proposal is
	// resolved and access-checked by the service.
	api.PATCH("/items/:id/qty", s.UpdateItemQty)
	api.PATCH("/items/:id/price", s.UpdateItemPrice)
	api.DELETE("/items/:id", s.RemoveItem)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired(), s.StaffRequired())

	// -------- Accounts --------
	admin.POST("/users", s.CreateUser)
	admin.GET("/customers", s.ListCustomers)
	admin.GET("/staff", s.ListStaff)

	// -------- Proposal lifecycle --------
	admin.POST("/proposals/draft", s.ResolveStaffDraft)
	admin.POST("/proposals/:id/accept", s.AcceptProposal)
	admin.POST("/proposals/:id/reject", s.RejectProposal)
	admin.POST("/proposals/:id/reactivate", s.ReactivateProposal)
	admin.GET("/proposals/:id/audit", s.ListProposalAudit)
	admin.GET("/worksession", s.ActiveWorkSession)

	// -------- Catalog --------
	admin.POST("/catalog/categories", s.CreateCategory)
	admin.PATCH("/catalog/categories/:id", s.UpdateCategory)
	admin.POST("/catalog/services", s.CreateService)
	admin.PATCH("/catalog/services/:id", s.UpdateService)
	admin.DELETE("/catalog/services/:id", s.DeleteService)

	// -------- Templates --------
	admin.GET("/templates", s.ListTemplates)
	admin.POST("/templates", s.CreateTemplate)
	admin.PATCH("/templates/:id", s.UpdateTemplate)
	admin.GET("/event-types", s.ListEventTypes)
}

func (s *Server) registerPublicRoutes() {
	s.engine.GET("/p/:token", s.GetPublicProposal)
}
