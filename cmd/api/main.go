package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/neuroscan/internal/application"
	"github.com/bryanwahyu/neuroscan/internal/application/acquisition"
	appai "github.com/bryanwahyu/neuroscan/internal/application/ai"
	"github.com/bryanwahyu/neuroscan/internal/application/dispatch"
	appsamples "github.com/bryanwahyu/neuroscan/internal/application/samples"
	appscans "github.com/bryanwahyu/neuroscan/internal/application/scans"
	"github.com/bryanwahyu/neuroscan/internal/application/session"
	"github.com/bryanwahyu/neuroscan/internal/config"
	domai "github.com/bryanwahyu/neuroscan/internal/domain/ai"
	"github.com/bryanwahyu/neuroscan/internal/domain/media"
	domnotify "github.com/bryanwahyu/neuroscan/internal/domain/notify"
	"github.com/bryanwahyu/neuroscan/internal/domain/samples"
	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
	openaiClient "github.com/bryanwahyu/neuroscan/internal/infra/ai/openai"
	"github.com/bryanwahyu/neuroscan/internal/infra/ai/prompt"
	mysqlp "github.com/bryanwahyu/neuroscan/internal/infra/db/mysql"
	"github.com/bryanwahyu/neuroscan/internal/infra/db/postgres"
	"github.com/bryanwahyu/neuroscan/internal/infra/db/sqlite"
	"github.com/bryanwahyu/neuroscan/internal/infra/httpserver"
	"github.com/bryanwahyu/neuroscan/internal/infra/inference/httpclient"
	"github.com/bryanwahyu/neuroscan/internal/infra/notify"
	"github.com/bryanwahyu/neuroscan/internal/infra/storage"
	"github.com/bryanwahyu/neuroscan/internal/logger"
	"github.com/bryanwahyu/neuroscan/internal/middleware"
	"github.com/bryanwahyu/neuroscan/internal/tracer"
)

const module = "main"

type pinger interface {
	media.Store
	Ping(ctx context.Context) error
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewZapLogger(cfg.Logging.File, cfg.IsProd())
	defer log.Sync()

	shutdownTracer := tracer.InitTracer(cfg.Tracing.Enabled, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName, log)

	ctx := context.Background()

	// connect database
	db, records, sampleRepo, err := openDatabase(ctx, cfg)
	if err != nil {
		fatal(log, "database connect error", err)
	}
	defer db.Close()

	// init blob store
	store, err := openStore(ctx, cfg)
	if err != nil {
		fatal(log, "storage init error", err)
	}

	// init notifier
	var notifier domnotify.Notifier = notify.LogNotifier{Log: log}
	health := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
		"storage":  middleware.CheckFunc(store.Ping),
	}
	if cfg.NATS.URL != "" {
		nn, err := notify.NewNATSNotifier(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
		if err != nil {
			fatal(log, "nats connect error", err)
		}
		defer nn.Close()
		notifier = nn
		health["nats"] = middleware.CheckFunc(nn.Ping)
	}

	// init services
	clock := application.SystemClock{}
	stamps := application.NewStamper(clock)

	scanSvc := &appscans.Service{Repo: records, Media: store, Clock: clock, Stamps: stamps, Log: log}
	sampleSvc := &appsamples.Service{
		Repo:       sampleRepo,
		Media:      store,
		Clock:      clock,
		Stamps:     stamps,
		Log:        log,
		Notifier:   notifier,
		Records:    records,
		PurgeBlobs: cfg.Samples.PurgeBlobs,
		Limit:      cfg.Samples.Limit,
	}

	var narrator domai.Client = prompt.Template{}
	if cfg.OpenAI.APIKey != "" {
		if cfg.OpenAI.BaseURL != "" {
			narrator = openaiClient.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		} else {
			narrator = openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		}
	}

	sessions := session.NewManager(cfg.Session.TTL, session.Deps{
		Acquirer: &acquisition.Acquirer{
			Samples:         sampleSvc,
			Media:           store,
			ScanByReference: cfg.Inference.ScanByReference,
			Log:             log,
		},
		Analyzer: &dispatch.Dispatcher{
			Client: httpclient.New(cfg.Inference.BaseURL, cfg.Inference.Timeout),
			Log:    log,
		},
		Persister: scanSvc,
		Notifier:  notifier,
		Log:       log,
	}, session.Options{
		ProgressInterval: cfg.Session.ProgressInterval,
		ProgressStep:     cfg.Session.ProgressStep,
		ProgressCap:      cfg.Session.ProgressCap,
	})

	// init router
	handler := httpserver.NewRouter(httpserver.Deps{
		Sessions:    sessions,
		Scans:       scanSvc,
		Samples:     sampleSvc,
		AI:          appai.NewService(narrator, records),
		Log:         log,
		APIKeys:     cfg.Auth.APIKeys,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateRPS:     cfg.RateLimit.RPS,
		RateBurst:   cfg.RateLimit.Burst,
		Health:      health,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// run server
	go func() {
		log.Info(module, "server listening", map[string]interface{}{
			"addr":      addr,
			"db":        cfg.Database.Driver,
			"storage":   cfg.Storage.Driver,
			"inference": cfg.Inference.BaseURL,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(log, "server error", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info(module, "shutting down server", nil)

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error(module, "shutdown error", map[string]interface{}{"error": err})
	}
	if err := shutdownTracer(ctx2); err != nil {
		log.Error(module, "tracer shutdown error", map[string]interface{}{"error": err})
	}
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, scans.Repository, samples.Repository, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return db, postgres.NewRecordRepository(db), postgres.NewSampleRepository(db), nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, nil, err
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return db, mysqlp.NewRecordRepository(db), mysqlp.NewSampleRepository(db), nil
	default:
		db, err := sqlite.Connect(ctx, cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return db, mysqlp.NewRecordRepository(db), mysqlp.NewSampleRepository(db), nil
	}
}

func openStore(ctx context.Context, cfg *config.Config) (pinger, error) {
	switch cfg.Storage.Driver {
	case "minio":
		m := cfg.Storage.Minio
		return storage.NewMinio(ctx, m.Endpoint, m.Region, m.BucketName, m.AccessKey, m.SecretKey, m.UseSSL)
	case "s3":
		s := cfg.Storage.S3
		return storage.NewS3(ctx, storage.S3Config{
			Region:          s.Region,
			Bucket:          s.Bucket,
			Endpoint:        s.Endpoint,
			AccessKeyID:     s.AccessKey,
			SecretAccessKey: s.SecretKey,
			PathStyle:       s.PathStyle,
			PublicBaseURL:   s.PublicBaseURL,
		})
	default:
		return storage.NewMemory(""), nil
	}
}

func fatal(log logger.ILogger, msg string, err error) {
	log.Error(module, msg, map[string]interface{}{"error": err})
	_ = log.Sync()
	os.Exit(1)
}
