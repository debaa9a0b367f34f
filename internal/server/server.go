package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/formationdesk/internal/audit/domain"
	"github.com/smallbiznis/formationdesk/internal/authorization"
	builddomain "github.com/smallbiznis/formationdesk/internal/build/domain"
	"github.com/smallbiznis/formationdesk/internal/config"
	formationdomain "github.com/smallbiznis/formationdesk/internal/formation/domain"
	"github.com/smallbiznis/formationdesk/internal/formation/transfer"
	"github.com/smallbiznis/formationdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/formationdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/formationdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/formationdesk/internal/observability/tracing"
	organizationdomain "github.com/smallbiznis/formationdesk/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine          *gin.Engine
	log             *zap.Logger
	formationSvc    formationdomain.Service
	transcoder      *transfer.Transcoder
	buildSvc        builddomain.Service
	organizationSvc organizationdomain.Service
	auditSvc        auditdomain.Service
	authzSvc        authorization.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Log             *zap.Logger
	FormationSvc    formationdomain.Service
	Transcoder      *transfer.Transcoder
	BuildSvc        builddomain.Service
	OrganizationSvc organizationdomain.Service
	AuditSvc        auditdomain.Service
	AuthzSvc        authorization.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		log:             p.Log.Named("http.server"),
		formationSvc:    p.FormationSvc,
		transcoder:      p.Transcoder,
		buildSvc:        p.BuildSvc,
		organizationSvc: p.OrganizationSvc,
		auditSvc:        p.AuditSvc,
		authzSvc:        p.AuthzSvc,
	}

	svc.registerFormationRoutes()
	svc.registerBuildRoutes()
	svc.registerOrganizationRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerFormationRoutes() {
	formations := s.engine.Group("/api/formations")

	formations.GET("", s.ListFormations)
	formations.POST("", s.CreateFormation)
	formations.POST("/import", s.ImportFormation)
	formations.GET("/:id", s.GetFormation)
	formations.PATCH("/:id", s.UpdateFormation)
	formations.DELETE("/:id", s.DeleteFormation)
	formations.GET("/:id/export", s.ExportFormation)

	formations.GET("/:id/modules", s.ListModules)
	formations.POST("/:id/modules", s.CreateModule)
	formations.GET("/:id/modules/:moduleId", s.GetModule)
	formations.PATCH("/:id/modules/:moduleId", s.UpdateModule)
	formations.DELETE("/:id/modules/:moduleId", s.DeleteModule)
	formations.POST("/:id/modules/:moduleId/reorder", s.ReorderModule)

	formations.GET("/:id/build", s.GetFormationBuild)
	formations.PUT("/:id/build", s.LinkFormationBuild)
	formations.DELETE("/:id/build", s.UnlinkFormationBuild)
}

func (s *Server) registerBuildRoutes() {
	builds := s.engine.Group("/api/builds")

	builds.GET("", s.ListBuilds)
	builds.GET("/containers", s.ListContainers)
	builds.POST("", s.UploadBuild)
	builds.DELETE("/:container/*blobName", s.DeleteBuild)
}

func (s *Server) registerOrganizationRoutes() {
	s.engine.GET("/api/me/organizations", s.RequireUser(), s.ListMyOrganizations)

	orgs := s.engine.Group("/api/organizations")

	orgs.GET("", s.ListOrganizations)
	orgs.POST("", s.RequireUser(), s.CreateOrganization)
	orgs.GET("/:id", s.GetOrganization)
	orgs.PATCH("/:id", s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionManage), s.UpdateOrganization)
	orgs.DELETE("/:id", s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionDelete), s.DeactivateOrganization)

	orgs.GET("/:id/members", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionView), s.ListMembers)
	orgs.POST("/:id/members", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionManage), s.AddMember)
	orgs.PATCH("/:id/members/:userId", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionManage), s.UpdateMemberRole)
	orgs.DELETE("/:id/members/:userId", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionManage), s.RemoveMember)

	orgs.GET("/:id/builds", s.authorizeOrgAction(authorization.ObjectBuild, authorization.ActionView), s.ListOrganizationBuilds)

	orgs.GET("/:id/trainings", s.authorizeOrgAction(authorization.ObjectTraining, authorization.ActionView), s.ListTrainings)
	orgs.POST("/:id/trainings", s.authorizeOrgAction(authorization.ObjectTraining, authorization.ActionManage), s.AddTraining)
	orgs.DELETE("/:id/trainings/:formationId", s.authorizeOrgAction(authorization.ObjectTraining, authorization.ActionManage), s.RemoveTraining)
	orgs.PUT("/:id/trainings/:formationId/build", s.authorizeOrgAction(authorization.ObjectTraining, authorization.ActionManage), s.AssociateTrainingBuild)
	orgs.DELETE("/:id/trainings/:formationId/build", s.authorizeOrgAction(authorization.ObjectTraining, authorization.ActionManage), s.RemoveTrainingBuild)

	orgs.GET("/:id/audit-logs", s.authorizeOrgAction(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}
