// Package server wires the plantapi auth core: Postgres credential store,
// Redis revocation ledger, S3 uploads, SMTP mail, the HTTP API and the gRPC
// health check.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/plantapi/internal/cryptox"
	"github.com/dmitrijs2005/plantapi/internal/logging"
	"github.com/dmitrijs2005/plantapi/internal/server/auth"
	"github.com/dmitrijs2005/plantapi/internal/server/config"
	"github.com/dmitrijs2005/plantapi/internal/server/httpapi"
	"github.com/dmitrijs2005/plantapi/internal/server/notify"
	"github.com/dmitrijs2005/plantapi/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/plantapi/internal/server/revocation"
	"github.com/dmitrijs2005/plantapi/internal/server/services"
	"github.com/dmitrijs2005/plantapi/internal/server/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/plantapi/internal/server/grpc"
)

const healthInterval = 15 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	http   *httpapi.Server
	health *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	rdb, err := revocation.Connect(ctx, c.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	uploader, err := storage.NewS3Uploader(ctx, c)
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, err
	}

	mailer, err := notify.NewSMTPMailer(c)
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, err
	}

	hasher := cryptox.NewHasher(c.BcryptCost)
	issuer := auth.NewIssuer(c.AccessSecret, c.RefreshSecret, c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	ledger := revocation.NewRedisLedger(rdb, c.StoreTimeout)

	us := services.NewUserService(db, rm, hasher, issuer, ledger, logger.With("module", "users"), c.RefreshChecksRevocation)
	as := services.NewAuthService(db, rm, issuer, ledger, services.ServiceSecrets{
		SyncTokenSecret:    c.SyncTokenSecret,
		SyncServiceSecret:  c.SyncServiceSecret,
		ChatbotTokenSecret: c.ChatbotTokenSecret,
		ChatbotSubject:     c.ChatbotSubject,
	})
	rs := services.NewPasswordResetService(db, rm, hasher, issuer, mailer, logger.With("module", "reset"), c.BaseURL)
	is := services.NewImageService(uploader)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Handler:       httpapi.NewHandler(us, rs, is, logger.With("module", "http")),
		Authenticator: as,
		Metrics:       httpapi.NewMetrics(reg),
		Logger:        logger.With("module", "http"),
		StoreTimeout:  c.StoreTimeout,
	})

	health := gs.NewHealthServer(c.EndpointAddrGRPC, logger, map[string]gs.Check{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}, healthInterval, c.StoreTimeout)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		redis:  rdb,
		http:   httpapi.NewServer(c.EndpointAddrHTTP, router, logger),
		health: health,
	}, nil
}

// Run serves HTTP and gRPC health until a signal arrives or either server
// fails, then releases the database and Redis connections.
func (app *App) Run(ctx context.Context) error {

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(ctx) })
	g.Go(func() error { return app.health.Run(ctx) })

	err := g.Wait()

	if cerr := app.redis.Close(); cerr != nil {
		app.logger.Error(context.Background(), "redis close failed", "error", cerr.Error())
	}
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(context.Background(), "db close failed", "error", cerr.Error())
	}

	app.logger.Info(context.Background(), "App stopped")
	return err
}
