package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-api/internal/config"
	"github.com/iliyamo/shop-api/internal/database"
	"github.com/iliyamo/shop-api/internal/handler"
	"github.com/iliyamo/shop-api/internal/queue"
	"github.com/iliyamo/shop-api/internal/repository"
	"github.com/iliyamo/shop-api/internal/router"
	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/storage"
)

// stores groups the persistence layer picked by DB_DRIVER.
type stores struct {
	users    repository.UserStore
	products repository.ProductStore
	ledger   repository.TokenLedger
	ping     func(context.Context) error
	close    func()
}

func main() {
	cfg := config.Load()
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("store unavailable")
	}
	defer st.close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, product cache disabled")
	} else {
		defer rdb.Close()
	}

	ledger, err := pickLedger(cfg, st, rdb)
	if err != nil {
		log.WithError(err).Fatal("token ledger unavailable")
	}

	backend, err := storage.NewBackend(cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("image storage unavailable")
	}
	pipeline := storage.NewPipeline(backend, cfg.Storage.MaxBytes, log)

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.AMQPURL != "" {
		events = service.NewAMQPPublisher(cfg.AMQPURL)
		go func() {
			if err := queue.StartCatalogConsumer(ctx, cfg.AMQPURL, cfg.AuditLogPath, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("catalog consumer stopped")
			}
		}()
	}

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, ledger, log)
	auth := service.NewAuthService(st.users, tokens, cfg.Admin, cfg.BcryptCost, log)
	catalog := service.NewCatalogService(st.products, pipeline, events, log)
	pipeline.OnCleanupFailure = catalog.CleanupFailureReporter()

	go service.RunLedgerPruner(ctx, tokens, cfg.LedgerPruneInterval, log)

	e := router.New(cfg.IsProduction(), cfg.Storage.MaxBytes, log)
	router.RegisterRoutes(e, st.ping)
	if backend.Name() == config.StorageLocal {
		router.RegisterUploads(e, cfg.Storage.UploadDir)
	}
	router.RegisterAuth(e, handler.NewAuthHandler(auth), tokens)
	router.RegisterCatalog(e, handler.NewProductHandler(catalog), tokens, config.LoadCacheConfig(), rdb, log)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    addr,
			"env":     cfg.Env,
			"store":   cfg.DBDriver,
			"ledger":  cfg.LedgerBackend,
			"storage": backend.Name(),
		}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("bye")
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if cfg.DBDriver == config.DriverMongo {
		client, db, err := database.OpenMongo(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, err
		}
		if err := repository.EnsureMongoIndexes(initCtx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return stores{}, err
		}
		return stores{
			users:    repository.NewMongoUserRepo(db),
			products: repository.NewMongoProductRepo(db),
			ledger:   repository.NewMongoTokenRepo(db),
			ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:    func() { _ = client.Disconnect(context.Background()) },
		}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, err
	}
	if err := database.EnsureSchema(initCtx, db); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	return stores{
		users:    repository.NewUserRepo(db),
		products: repository.NewProductRepo(db),
		ledger:   repository.NewTokenRepo(db),
		ping:     db.PingContext,
		close:    func() { _ = db.Close() },
	}, nil
}

func pickLedger(cfg config.Config, st stores, rdb *redis.Client) (repository.TokenLedger, error) {
	switch cfg.LedgerBackend {
	case "", "store":
		return st.ledger, nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("LEDGER_BACKEND=redis but redis is unreachable")
		}
		return repository.NewRedisTokenRepo(rdb, "revoked", time.Minute), nil
	}
	return nil, errors.New("unknown LEDGER_BACKEND " + cfg.LedgerBackend)
}
