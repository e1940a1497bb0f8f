package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"recruit-backend/internal/applications"
	"recruit-backend/internal/audit"
	googleauth "recruit-backend/internal/auth"
	"recruit-backend/internal/documents"
	"recruit-backend/internal/messaging"
	"recruit-backend/internal/notifications"
	"recruit-backend/internal/orgs"
	"recruit-backend/internal/queue"
	"recruit-backend/internal/services/health"
	"recruit-backend/internal/shared/config"
	"recruit-backend/internal/shared/server"
	"recruit-backend/internal/shared/storage/db"
	"recruit-backend/internal/shared/storage/object"
	localstore "recruit-backend/internal/shared/storage/object/local"
	s3store "recruit-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	// AuditLog is only set when running on in-memory repositories; with
	// Postgres the audit trail is written inside repo transactions.
	AuditLog *audit.MemoryLog

	ApplicationsRepo applications.Repo
	MessagingRepo    messaging.Repo
	DocumentsRepo    documents.Repo
	OrgsRepo         orgs.Repo

	ApplicationsService *applications.Service
	MessagingService    *messaging.Service
	DocumentsService    *documents.Service
	Eligibility         *applications.Facade
	Notifier            *notifications.Notifier

	ApplicationsHandler *applications.Handler
	MessagingHandler    *messaging.Handler
	DocumentsHandler    *documents.Handler
	GoogleAuth          *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              app.Config,
		Health:              health.NewService(app.DB),
		ApplicationsHandler: app.ApplicationsHandler,
		MessagingHandler:    app.MessagingHandler,
		DocumentsHandler:    app.DocumentsHandler,
		GoogleAuth:          app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.NotifyQueueURL) == "" && strings.TrimSpace(os.Getenv("NOTIFY_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	var (
		appRepo  applications.Repo
		msgRepo  messaging.Repo
		docRepo  documents.Repo
		orgsRepo orgs.Repo
	)

	if app.DB != nil {
		appRepo = &applications.PGRepo{DB: app.DB}
		msgRepo = &messaging.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
		orgsRepo = &orgs.PGRepo{DB: app.DB}
	} else {
		app.AuditLog = audit.NewMemoryLog()
		appRepo = applications.NewMemoryRepo(app.AuditLog)
		msgRepo = messaging.NewMemoryRepo(app.AuditLog)
		docRepo = documents.NewMemoryRepo(app.AuditLog)
		orgsRepo = orgs.NewMemoryRepo()
	}

	notifier := &notifications.Notifier{Queue: app.Queue}
	facade := &applications.Facade{Repo: appRepo, Staff: orgsRepo}

	appSvc := &applications.Service{Repo: appRepo, Notify: notifier}
	msgSvc := &messaging.Service{Repo: msgRepo, Gate: facade, Notify: notifier}
	docSvc := &documents.Service{Store: app.Store, Repo: docRepo, Notify: notifier}

	app.ApplicationsRepo = appRepo
	app.MessagingRepo = msgRepo
	app.DocumentsRepo = docRepo
	app.OrgsRepo = orgsRepo
	app.Notifier = notifier
	app.Eligibility = facade
	app.ApplicationsService = appSvc
	app.MessagingService = msgSvc
	app.DocumentsService = docSvc
	app.ApplicationsHandler = applications.NewHandler(appSvc)
	app.MessagingHandler = messaging.NewHandler(msgSvc)
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.GoogleAuth = googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
	)
}
