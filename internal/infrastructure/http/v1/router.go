// Package v1 provides HTTP API version 1.
package v1

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"crmforge/internal/core/numerator"
	"crmforge/internal/core/tenant"
	"crmforge/internal/domain/auth"
	"crmforge/internal/domain/records"
	"crmforge/internal/forms"
	"crmforge/internal/infrastructure/cache"
	"crmforge/internal/infrastructure/http/v1/handlers"
	"crmforge/internal/infrastructure/http/v1/middleware"
	"crmforge/internal/infrastructure/storage/postgres"
	"crmforge/internal/infrastructure/storage/postgres/metadata_repo"
	"crmforge/internal/infrastructure/storage/postgres/record_repo"
	"crmforge/internal/infrastructure/storage/postgres/views_repo"
	"crmforge/internal/metadata"
	"crmforge/internal/views"
	"crmforge/pkg/logger"
)

// RouterConfig holds router configuration for multi-tenant architecture.
type RouterConfig struct {
	// TenantManager manages database connections for all tenants
	TenantManager *tenant.Manager

	// MetaPool is connection to meta-database (for health checks)
	MetaPool *pgxpool.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// Numerator for auto-number field generation
	Numerator numerator.Generator

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// MetadataRegistry stores module definitions
	MetadataRegistry *metadata.Registry

	// SchemaCache is the read-through metadata source shared by all
	// tenant requests.
	SchemaCache *cache.SchemaCache

	// Validator validates draft values against field descriptors.
	Validator *forms.Validator

	// TypeRegistry supplies per-field-type behavior.
	TypeRegistry *forms.TypeRegistry

	// AuditService writes the record change trail.
	AuditService *postgres.AuditService
}

// NewRouter creates and configures the Gin router for multi-tenant architecture.
func NewRouter(cfg RouterConfig) *gin.Engine {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no tenant required)
	healthHandler := handlers.NewHealthHandlerMultiTenant(cfg.MetaPool, cfg.TenantManager)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
		health.GET("/tenants", healthHandler.TenantsStats) // Admin endpoint for tenant stats
	}

	baseHandler := handlers.NewBaseHandler()
	recordsService := records.NewService(records.ServiceConfig{
		Repo:      record_repo.New(),
		Source:    cfg.SchemaCache,
		Validator: cfg.Validator,
	})
	if cfg.AuditService != nil {
		postgres.RegisterRecordAudit(recordsService, cfg.AuditService)
	}

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Auth routes - need TenantDB middleware BEFORE auth
		registerAuthRoutes(v1, cfg)

		// Public form routes - tenant resolution, auth optional so a
		// signed-in user keeps their role-based field visibility
		public := v1.Group("")
		public.Use(middleware.TenantDB(cfg.TenantManager))
		public.Use(middleware.OptionalAuth(cfg.JWTValidator))
		if cfg.IdempotencyEnabled {
			public.Use(idempotencyMiddleware(10 * time.Minute))
		}

		// Protected endpoints - TenantDB runs first, then Auth
		protected := v1.Group("")
		protected.Use(middleware.TenantDB(cfg.TenantManager)) // 1. Resolve tenant, get DB pool
		protected.Use(middleware.Auth(cfg.JWTValidator))      // 2. Validate JWT
		protected.Use(middleware.UserContext())               // 3. Enrich logs with user identity

		// Apply idempotency middleware for mutating operations
		if cfg.IdempotencyEnabled {
			protected.Use(idempotencyMiddleware(10 * time.Minute))
		}

		registerRecordRoutes(protected, cfg, baseHandler, recordsService)
		registerFormRoutes(protected, public, cfg, baseHandler, recordsService)
		registerViewRoutes(protected, cfg, baseHandler)
		registerMetaRoutes(protected, cfg, baseHandler)
	}

	return router
}

// idempotencyMiddleware creates idempotency middleware that uses tenant pool + TxManager from context.
func idempotencyMiddleware(ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		pool := tenant.MustGetPool(ctx)
		txm := postgres.MustGetTxManager(ctx)
		store := postgres.NewIdempotencyStoreFromRawPool(pool, txm, ttl)
		middleware.Idempotency(store)(c)
	}
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	baseHandler := handlers.NewBaseHandler()
	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

	// Public auth endpoints (no JWT required, but need tenant for DB access)
	publicAuth := rg.Group("/auth")
	publicAuth.Use(middleware.TenantDB(cfg.TenantManager))

	// Protected auth endpoints (JWT required)
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.TenantDB(cfg.TenantManager))
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}

// registerRecordRoutes registers module record CRUD endpoints.
func registerRecordRoutes(rg *gin.RouterGroup, cfg RouterConfig, base *handlers.BaseHandler, svc *records.Service) {
	handler := handlers.NewRecordsHandler(base, svc, cfg.MetadataRegistry)
	RegisterRecordRoutes(rg, handler, "records")

	// Typed nil guard: a nil *auth.Service must stay a nil interface.
	var users handlers.UserSearcher
	if cfg.AuthService != nil {
		users = cfg.AuthService
	}
	refHandler := handlers.NewReferenceHandler(base, svc, cfg.SchemaCache, cfg.MetadataRegistry, users)
	refHandler.RegisterRoutes(rg)
}

// registerFormRoutes registers form rendering and public submission endpoints.
func registerFormRoutes(protected, public *gin.RouterGroup, cfg RouterConfig, base *handlers.BaseHandler, svc *records.Service) {
	handler := handlers.NewFormsHandler(handlers.FormsHandlerConfig{
		Base:       base,
		Service:    svc,
		Source:     cfg.SchemaCache,
		Registry:   cfg.MetadataRegistry,
		Validator:  cfg.Validator,
		Types:      cfg.TypeRegistry,
		AutoNumber: autoNumberFunc(cfg.Numerator),
	})
	handler.RegisterRoutes(protected, public)
}

// registerViewRoutes registers saved list view endpoints.
func registerViewRoutes(rg *gin.RouterGroup, cfg RouterConfig, base *handlers.BaseHandler) {
	service := views.NewService(views_repo.New())
	handler := handlers.NewViewsHandler(base, service, cfg.MetadataRegistry)
	handler.RegisterRoutes(rg)
}

// registerMetaRoutes registers metadata/schema endpoints.
func registerMetaRoutes(rg *gin.RouterGroup, cfg RouterConfig, base *handlers.BaseHandler) {
	if cfg.MetadataRegistry == nil {
		return
	}

	repo := metadata_repo.New(cfg.MetadataRegistry)
	handler := handlers.NewMetadataHandler(base, cfg.MetadataRegistry, cfg.SchemaCache, repo, cfg.SchemaCache)
	handler.RegisterRoutes(rg, middleware.RequirePermission("metadata:write"))
}

// autoNumberFunc adapts the numerator to auto-number field stamping. The
// prefix derives from the field's apiName ("dealNumber" -> "DEAL").
func autoNumberFunc(gen numerator.Generator) forms.AutoNumberFunc {
	if gen == nil {
		return nil
	}
	return func(ctx context.Context, field metadata.FieldDescriptor) (string, error) {
		prefix := strings.TrimSuffix(field.APIName, "Number")
		if prefix == "" {
			prefix = field.APIName
		}
		cfg := numerator.DefaultConfig(strings.ToUpper(prefix))
		return gen.GetNextNumber(ctx, cfg, numerator.DefaultOptions(), time.Now())
	}
}
