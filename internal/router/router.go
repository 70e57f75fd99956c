package router

import (
	"time"

	"parkcore/internal/config"
	"parkcore/internal/handler"
	"parkcore/internal/infra"
	"parkcore/internal/middleware"
	"parkcore/internal/model"
	"parkcore/internal/repository"
	"parkcore/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Deps carries the collaborators built in the composition root.
// Index may be nil when no index service is configured.
type Deps struct {
	Quota    service.QuotaChecker
	Index    service.IndexSource
	Reports  service.ShiftReportEnqueuer
	Audit    service.AuditSink
	Breakers []*infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	if deps.Audit == nil {
		deps.Audit = service.NewLogAuditSink()
	}
	saleCfg := service.SaleSettings{
		DocType: cfg.SaleDocType,
		TaxRate: decimal.NewFromFloat(cfg.TaxRate),
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	operatorRepo := repository.NewOperatorRepository(db)
	sectorRepo := repository.NewSectorRepository(db)
	pricingRepo := repository.NewPricingRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	debtRepo := repository.NewDebtRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	idemRepo := repository.NewIdempotencyRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(operatorRepo, cfg)
	operatorSvc := service.NewOperatorService(operatorRepo, sectorRepo, deps.Quota)
	pricingSvc := service.NewPricingService(pricingRepo, sectorRepo, deps.Quota)
	indexSvc := service.NewIndexService(deps.Index)

	shortfall := service.NewShortfallOpener(debtRepo)
	guard := service.NewIdempotencyGuard(idemRepo)

	paymentSvc := service.NewPaymentService(paymentRepo, saleRepo, sessionRepo, shiftRepo, shortfall, guard)
	sessionSvc := service.NewSessionService(sessionRepo, saleRepo, operatorRepo, sectorRepo, pricingRepo, paymentRepo, deps.Quota, saleCfg)
	debtSvc := service.NewDebtService(debtRepo, sessionRepo, saleRepo, paymentSvc, shortfall, saleCfg)
	shiftSvc := service.NewShiftService(shiftRepo, paymentRepo, saleRepo, deps.Reports)

	// Money-moving services are audited at their boundary
	paymentSvc = service.WithPaymentAudit(paymentSvc, deps.Audit)
	sessionSvc = service.WithSessionAudit(sessionSvc, deps.Audit)
	debtSvc = service.WithDebtAudit(debtSvc, deps.Audit)
	shiftSvc = service.WithShiftAudit(shiftSvc, deps.Audit)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	sessionsH := handler.NewSessionsHandler(sessionSvc)
	paymentsH := handler.NewPaymentsHandler(paymentSvc)
	debtsH := handler.NewDebtsHandler(debtSvc)
	shiftsH := handler.NewShiftsHandler(shiftSvc)
	pricingH := handler.NewPricingHandler(pricingSvc)
	operatorsH := handler.NewOperatorsHandler(operatorSvc)
	indicesH := handler.NewIndicesHandler(indexSvc)
	reportsH := handler.NewReportsHandler(rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, deps.Breakers...))
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	anyRole := middleware.RequireRole(model.RoleOperator, model.RoleSupervisor, model.RoleAdmin)
	managers := middleware.RequireRole(model.RoleSupervisor, model.RoleAdmin)
	admins := middleware.RequireRole(model.RoleAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		sessions := v1.Group("/sessions", anyRole)
		{
			sessions.POST("", sessionsH.Open)
			sessions.GET("", sessionsH.ListByPlate)
			sessions.GET("/:id", sessionsH.Get)
			sessions.GET("/:id/payments", sessionsH.Payments)
			sessions.POST("/:id/checkout", sessionsH.Checkout)
		}
		v1.POST("/sessions/:id/cancel", managers, sessionsH.Cancel)
		v1.POST("/sessions/:id/mark-paid", managers, sessionsH.MarkPaid)
		v1.POST("/sessions/:id/close", managers, sessionsH.Close)

		payments := v1.Group("/payments", anyRole)
		{
			payments.POST("", paymentsH.Record)
			payments.POST("/declined", paymentsH.Declined)
			payments.POST("/confirm-external", paymentsH.ConfirmExternal)
		}
		v1.GET("/sales/:id", anyRole, paymentsH.SaleStatus)
		v1.GET("/sales/:id/payments", anyRole, paymentsH.ListBySale)

		debts := v1.Group("/debts", anyRole)
		{
			debts.GET("", debtsH.List)
			debts.GET("/:id", debtsH.Get)
			debts.POST("/:id/settle", debtsH.Settle)
		}
		v1.POST("/debts", managers, debtsH.Create)
		v1.POST("/debts/:id/cancel", managers, debtsH.Cancel)

		shifts := v1.Group("/shifts", anyRole)
		{
			shifts.POST("", shiftsH.Open)
			shifts.GET("/active", shiftsH.Active)
			shifts.POST("/:id/adjustments", shiftsH.RecordAdjustment)
			shifts.GET("/:id/adjustments", shiftsH.ListAdjustments)
			shifts.GET("/:id/totals", shiftsH.Totals)
			shifts.POST("/:id/close", shiftsH.Close)
		}
		v1.GET("/shifts/history", managers, shiftsH.History)
		v1.GET("/shifts/:id/operations", managers, shiftsH.Operations)
		v1.POST("/shifts/:id/cancel", managers, shiftsH.Cancel)

		// Quotes are read-only; tariff authoring is for admins
		v1.POST("/pricing/quote", anyRole, pricingH.Quote)
		v1.GET("/pricing/profiles/:id", anyRole, pricingH.GetProfile)
		v1.GET("/sectors/:sector_id/profiles", anyRole, pricingH.ListProfiles)
		pricing := v1.Group("/pricing", admins)
		{
			pricing.POST("/profiles", pricingH.CreateProfile)
			pricing.POST("/profiles/:id/rules", pricingH.AddRule)
			pricing.POST("/profiles/:id/discounts", pricingH.AddDiscount)
		}

		operators := v1.Group("/operators", admins)
		{
			operators.POST("", operatorsH.Create)
			operators.GET("", operatorsH.List)
			operators.DELETE("/:id", operatorsH.Deactivate)
			operators.PATCH("/:id/reactivate", operatorsH.Reactivate)
			operators.POST("/:id/assignments", operatorsH.CreateAssignment)
			operators.GET("/:id/assignments", operatorsH.ListAssignments)
		}

		v1.GET("/sectors", anyRole, operatorsH.ListSectors)
		v1.POST("/sectors", admins, operatorsH.CreateSector)

		v1.GET("/indices/:code", anyRole, indicesH.Current)

		reports := v1.Group("/reports/dead-letters", managers)
		{
			reports.GET("", reportsH.DeadLetters)
			reports.POST("/replay", reportsH.Replay)
		}
	}

	// Swagger UI outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
