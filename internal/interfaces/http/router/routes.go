package router

import (
	"fmt"

	"github.com/debtdesk/backend/internal/infrastructure/logger"
	"github.com/debtdesk/backend/internal/infrastructure/telemetry"
	"github.com/debtdesk/backend/internal/interfaces/http/handler"
	"github.com/debtdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers bundles the HTTP handlers of the collections API
type Handlers struct {
	Customer *handler.CustomerHandler
	Debt     *handler.DebtHandler
	Payment  *handler.PaymentHandler
	Health   *handler.HealthHandler
	// Auth guards every /api route when set; /health stays open
	Auth gin.HandlerFunc
}

// EngineConfig holds the settings of the shared middleware chain
type EngineConfig struct {
	Logger         *zap.Logger
	MaxBodySize    int64
	TrustedProxies []string
	Tracing        middleware.TracingConfig
	MeterProvider  *telemetry.MeterProvider
}

// NewEngine returns a gin engine with the standard middleware chain installed
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	// the server span must exist before the access log runs so log lines carry trace ids
	engine.Use(
		middleware.RequestID(),
		middleware.TracingWithConfig(cfg.Tracing),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
	)
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	engine.Use(
		middleware.SpanAttributes(),
		middleware.HTTPMetrics(cfg.MeterProvider, log),
	)
	return engine, nil
}

// RegisterCollectionRoutes wires the collections API onto the engine behind r
func RegisterCollectionRoutes(r *Router, h Handlers) {
	if h.Health != nil {
		r.engine.GET("/health", h.Health.Health)
	}

	customers := NewDomainGroup("customers", "/customers").
		POST("", h.Customer.Create).
		GET("", h.Customer.List).
		GET("/:id", h.Customer.Get)

	debts := NewDomainGroup("debts", "/debts").
		POST("", h.Debt.Create).
		GET("/:id", h.Debt.Get)

	installments := NewDomainGroup("installments", "/installments").
		GET("/:id", h.Debt.GetInstallment)

	payments := NewDomainGroup("payments", "/payments").
		POST("", h.Payment.Create).
		GET("/:id", h.Payment.Get).
		GET("/:id/allocations", h.Payment.ListAllocations).
		POST("/:id/allocations", h.Payment.Allocate).
		POST("/:id/allocations/auto", h.Payment.AutoAllocate).
		POST("/:id/reverse", h.Payment.Reverse)

	for _, g := range []*DomainGroup{customers, debts, installments, payments} {
		if h.Auth != nil {
			g.Use(h.Auth)
		}
		r.Register(g)
	}
	r.Setup()
}
