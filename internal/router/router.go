package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/config"
	"github.com/iliyamo/cinema-ticket-booking/internal/handler"
	"github.com/iliyamo/cinema-ticket-booking/internal/middleware"
	"github.com/iliyamo/cinema-ticket-booking/internal/payment"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
	"github.com/iliyamo/cinema-ticket-booking/internal/service"
)

// Deps is everything the HTTP layer needs.  Redis may be nil, in which case
// rate limiting and caching are disabled.
type Deps struct {
	Cfg       config.Config
	DB        *sql.DB
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Payments  *payment.Bridge
	Notifier  service.Notifier
	Mail      handler.OTPSender
	Log       *zap.Logger
}

// New builds the echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.Cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.RequestLogger(d.Log))

	RegisterRoutes(e, d.DB)

	var (
		users    = repository.NewUserRepo(d.DB)
		tokens   = repository.NewTokenRepo(d.DB)
		movies   = repository.NewMovieRepo(d.DB)
		theatres = repository.NewTheatreRepo(d.DB)
		shows    = repository.NewShowRepo(d.DB)
	)
	showSvc := service.NewShowService(shows, movies, theatres, d.Log)
	var verifier service.PaymentVerifier
	if d.Payments != nil {
		verifier = d.Payments
	}
	bookingSvc := service.NewBookingService(d.DB, verifier, d.Notifier, d.Log)

	api := e.Group("/api", middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	r := routes{
		api:       api,
		auth:      middleware.JWTAuth(d.Cfg.JWTSecret),
		sensitive: middleware.NewTokenBucket(d.RateLimit.Sensitive(), d.Redis, d.Log),
	}

	r.users(handler.NewUserHandler(d.Cfg, users, tokens, d.Mail, d.Log))
	r.movies(handler.NewMovieHandler(movies, d.Log),
		middleware.NewRedisCache(d.Cache, d.Redis, d.Log),
		middleware.PurgeOnWrite(d.Cache, d.Redis, d.Log))
	r.theatres(handler.NewTheatreHandler(theatres, d.Log))
	r.shows(handler.NewShowHandler(showSvc, shows, d.Log))
	r.bookings(handler.NewBookingHandler(bookingSvc, d.Payments, d.Log))
	return e
}

// RegisterRoutes registers routes that sit outside /api.  Currently it
// exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// routes carries the shared middleware used by the per-area registrars.
type routes struct {
	api       *echo.Group
	auth      echo.MiddlewareFunc
	sensitive echo.MiddlewareFunc
}
