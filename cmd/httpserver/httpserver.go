// Package httpserver manages server creation and api routing.
package httpserver

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/rueidis"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/idempotency"
	"github.com/go-petr/pet-ledger/internal/metrics"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/resilience"
	"github.com/go-petr/pet-ledger/internal/statementcache"
	"github.com/go-petr/pet-ledger/internal/statementdelivery"
	"github.com/go-petr/pet-ledger/internal/statementrepo"
	"github.com/go-petr/pet-ledger/internal/statementservice"
	"github.com/go-petr/pet-ledger/internal/transferdelivery"
	"github.com/go-petr/pet-ledger/internal/transferservice"
	"github.com/go-petr/pet-ledger/internal/userrepo"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "ledger"

var registerValidators sync.Once

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB       *sql.DB
	Engine   *gin.Engine
	Config   configpkg.Config
	Registry *prometheus.Registry

	redis rueidis.Client
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Close releases the connections the server opened itself. The database
// handle belongs to the caller.
func (s *Server) Close() error {
	if s.redis != nil {
		s.redis.Close()
	}

	return nil
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	collector := metrics.NewPrometheusCollector(metricsNamespace)
	if err := collector.Register(registry); err != nil {
		return nil, fmt.Errorf("cannot register metrics: %w", err)
	}

	tokenMaker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	userRepo := userrepo.NewRepoPGS(conn, config.DBTimeout)
	idempotencyStore := idempotency.NewStorePGS(conn, config.DBTimeout, config.IdempotencyStaleAfter)

	breaker := resilience.NewBreaker(
		statementrepo.NewRepoPGS(conn, config.DBTimeout),
		resilience.Config{
			Name:        "statements",
			MaxFailures: config.BreakerMaxFailures,
			OpenTimeout: config.BreakerOpenTimeout,
		},
		logger,
		collector,
	)

	var (
		statementRepo statementservice.Repo = breaker
		redisClient   rueidis.Client
	)

	if config.RedisAddr != "" {
		redisClient, err = statementcache.NewClient(context.Background(), config.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("cannot connect to statement cache: %w", err)
		}

		statementRepo = statementcache.New(breaker, redisClient, config.StatementCacheTTL, collector)
	}

	statementService := statementservice.New(statementRepo, userRepo, collector)
	transferService := transferservice.New(statementRepo, userRepo, collector)

	statementHandler := statementdelivery.NewHandler(statementService)
	transferHandler := transferdelivery.NewHandler(transferService)

	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			err = v.RegisterValidation(statementdelivery.AmountTag, statementdelivery.ValidAmount)
		}
	})

	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}

		return nil, fmt.Errorf("cannot register amount validator: %w", err)
	}

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	authRoutes := engine.Group("/statements", middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/balance", statementHandler.Balance)
	authRoutes.GET("/:statement_id", statementHandler.Get)

	writeRoutes := authRoutes.Group("", idempotency.Middleware(idempotencyStore))

	writeRoutes.POST("/deposit", statementHandler.Deposit)
	writeRoutes.POST("/withdraw", statementHandler.Withdraw)
	writeRoutes.POST("/transfers/:user_id", transferHandler.Create)

	server := &Server{
		DB:       conn,
		Engine:   engine,
		Config:   config,
		Registry: registry,
		redis:    redisClient,
	}

	return server, nil
}
