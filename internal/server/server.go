package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/streamgate/internal/access"
	"github.com/smallbiznis/streamgate/internal/authorization"
	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	catalogdomain "github.com/smallbiznis/streamgate/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/streamgate/internal/checkout/domain"
	"github.com/smallbiznis/streamgate/internal/config"
	"github.com/smallbiznis/streamgate/internal/gate"
	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
	"github.com/smallbiznis/streamgate/internal/identity/session"
	"github.com/smallbiznis/streamgate/internal/modal"
	"github.com/smallbiznis/streamgate/internal/observability"
	obsmiddleware "github.com/smallbiznis/streamgate/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/streamgate/internal/observability/metrics"
	obstracing "github.com/smallbiznis/streamgate/internal/observability/tracing"
	watchlistdomain "github.com/smallbiznis/streamgate/internal/watchlist/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
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
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// GateRunner drives one access gate session from an auth phase stream.
type GateRunner interface {
	Run(ctx context.Context, auth <-chan identitydomain.AuthPhase) <-chan gate.Update
}

// AccessReader reads the current access verdict for a principal.
type AccessReader interface {
	Current(ctx context.Context, principalID string) (billingdomain.EffectiveAccess, []billingdomain.SubscriptionRecord, error)
}

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Holder    *config.GateConfigHolder
	Identity  identitydomain.Service
	Sessions  *session.Manager
	Gate      *gate.Runner
	Access    *access.Reader
	Billing   billingdomain.Service
	Checkout  checkoutdomain.Service
	Catalog   catalogdomain.Service
	Watchlist watchlistdomain.Service
	Modals    *modal.Registry
	Authz     authorization.Service
}

type Server struct {
	cfg       config.Config
	log       *zap.Logger
	holder    *config.GateConfigHolder
	identity  identitydomain.Service
	sessions  *session.Manager
	gate      GateRunner
	access    AccessReader
	billing   billingdomain.Service
	checkout  checkoutdomain.Service
	catalog   catalogdomain.Service
	watchlist watchlistdomain.Service
	modals    *modal.Registry
	authz     authorization.Service

	heartbeat time.Duration
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:       p.Cfg,
		log:       p.Log.Named("http.server"),
		holder:    p.Holder,
		identity:  p.Identity,
		sessions:  p.Sessions,
		gate:      p.Gate,
		access:    p.Access,
		billing:   p.Billing,
		checkout:  p.Checkout,
		catalog:   p.Catalog,
		watchlist: p.Watchlist,
		modals:    p.Modals,
		authz:     p.Authz,
		heartbeat: 15 * time.Second,
	}
}

func registerRoutes(r *gin.Engine, s *Server) {
	s.RegisterRoutes(r)
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.Use(s.withPrincipal())

	auth := r.Group("/auth")
	{
		auth.POST("/session", s.CreateSession)
		auth.POST("/logout", s.Logout)
		auth.GET("/me", s.requirePrincipal(), s.Me)
	}

	r.POST("/api/payments/webhooks/:provider", s.HandlePaymentWebhook)

	api := r.Group("/api")
	{
		api.GET("/gate", s.GetGate)
		api.GET("/gate/stream", s.StreamGate)
		api.GET("/home", s.GetHome)

		signedIn := api.Group("", s.requirePrincipal())
		signedIn.GET("/modal", s.GetModal)
		signedIn.POST("/modal", s.OpenModal)
		signedIn.DELETE("/modal", s.CloseModal)

		signedIn.GET("/plans", s.ListPlans)
		signedIn.POST("/checkout", s.CreateCheckout)
		signedIn.POST("/billing-portal", s.CreateBillingPortal)
		signedIn.GET("/account", s.GetAccount)

		signedIn.GET("/watchlist", s.ListWatchlist)
		signedIn.GET("/watchlist/stream", s.StreamWatchlist)
		signedIn.GET("/watchlist/:title_id", s.GetWatchlistItem)
		signedIn.PUT("/watchlist/:title_id", s.PutWatchlistItem)
		signedIn.DELETE("/watchlist/:title_id", s.DeleteWatchlistItem)
	}

	admin := r.Group("/admin", s.requirePrincipal())
	{
		admin.GET("/principals/:id/access",
			s.authorizeAction(authorization.ObjectAccess, authorization.ActionAccessView),
			s.GetPrincipalAccess,
		)
		admin.GET("/principals/:id/subscriptions",
			s.authorizeAction(authorization.ObjectSubscription, authorization.ActionSubscriptionView),
			s.ListPrincipalSubscriptions,
		)
		admin.GET("/billing/events",
			s.authorizeAction(authorization.ObjectBillingEvent, authorization.ActionBillingEventView),
			s.ListBillingEvents,
		)
	}
}

func (s *Server) gateConfig() config.GateConfig {
	if s.holder == nil {
		return config.DefaultGateConfig()
	}
	return s.holder.Get()
}
