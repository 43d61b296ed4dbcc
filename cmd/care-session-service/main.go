package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"care-session-service/internal/auth"
	"care-session-service/internal/config"
	"care-session-service/internal/domain"
	httpapi "care-session-service/internal/http"
	"care-session-service/internal/messaging"
	"care-session-service/internal/repository"
	"care-session-service/internal/service"
	"care-session-service/internal/store"
	"care-session-service/pkg/broker"
	"care-session-service/pkg/database"
	"care-session-service/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "care-session-service")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var (
		db           *sql.DB
		sessionsRepo repository.SessionsRepository
		feedbackRepo repository.FeedbackRepository
		patientsRepo repository.PatientsRepository
		tagsRepo     repository.TagsRepository
		tenantsRepo  repository.TenantsRepository
		reportsRepo  repository.ReportsRepository
	)

	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("database connected",
				zap.String("host", cfg.Database.Host),
				zap.String("database", cfg.Database.Database))
		} else {
			log.Warn("database enabled but connection failed, falling back to in-memory repositories", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	var sequences store.SequenceAllocator
	if db != nil {
		sessionsRepo = repository.NewPostgresSessionsRepository(db)
		feedbackRepo = repository.NewPostgresFeedbackRepository(db)
		patientsRepo = repository.NewPostgresPatientsRepository(db)
		tagsRepo = repository.NewPostgresTagsRepository(db)
		tenantsRepo = repository.NewPostgresTenantsRepository(db)
		reportsRepo = repository.NewPostgresReportsRepository(db)

		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sequences = store.NewRedisSequences(redisClient, seedFunc(sessionsRepo))
	} else {
		mem := repository.NewMemoryRepo()
		if os.Getenv("SEED_DEV_DATA") != "false" {
			seedDevData(mem, log)
		}
		sessionsRepo = mem
		feedbackRepo = mem
		patientsRepo = mem
		tagsRepo = mem
		tenantsRepo = mem
		reportsRepo = mem
		sequences = store.NewMemorySequences(seedFunc(mem))
	}

	verifier, err := auth.NewTokenVerifier(cfg.Keycloak.URL, cfg.Keycloak.Realm, cfg.Keycloak.Algorithm, log)
	if err != nil {
		log.Fatal("failed to initialize token verifier", zap.Error(err))
	}
	defer verifier.Close()

	table, err := auth.LoadPermissionTable(cfg.PermissionsFile)
	if err != nil {
		log.Fatal("failed to load permission table", zap.Error(err))
	}
	resolver := auth.NewTenantResolver(tenantsRepo)

	var events service.EventPublisher
	var brokerClient *broker.Client
	if cfg.Broker.Enabled {
		brokerClient, err = broker.NewClient(&broker.Config{
			URL:      cfg.Broker.URL,
			ClientID: cfg.Broker.ClientID,
			Username: cfg.Broker.Username,
			Password: cfg.Broker.Password,
		}, log)
		if err != nil {
			log.Warn("broker connection failed, session events disabled", zap.Error(err))
		} else {
			events = messaging.NewPublisher(brokerClient, cfg.Broker.TopicPrefix, log)
		}
	}

	sessionSvc := service.NewSessionService(sessionsRepo, tagsRepo, patientsRepo, sequences, events, log)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, sessionsRepo, log)
	reportSvc := service.NewReportService(reportsRepo, log)

	mw := httpapi.NewAuthMiddleware(verifier, table, resolver, log)
	router := httpapi.NewRouter(log)
	router.RegisterHealthRoute()
	router.RegisterSessionRoutes(httpapi.NewSessionHandler(sessionSvc, log), mw)
	router.RegisterFeedbackRoutes(httpapi.NewFeedbackHandler(feedbackSvc, log), mw)
	router.RegisterReportRoutes(httpapi.NewReportHandler(reportSvc, log), mw)

	srv := service.NewServer(cfg.HTTP.Addr, httpapi.CORS(cfg.AllowedOrigins, router), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)

	if brokerClient != nil {
		brokerClient.Disconnect()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}

func seedFunc(sessions repository.SessionsRepository) store.SeedFunc {
	return func(ctx context.Context, schemaName string) (int, error) {
		schema, err := repository.NewSchema(schemaName)
		if err != nil {
			return 0, err
		}
		return sessions.MaxSessionCodeSuffix(ctx, schema)
	}
}

// seedDevData makes the in-memory fallback usable without upstream services: a
// dev tenant, one patient with an NFC tag and one caregiver.
func seedDevData(mem *repository.MemoryRepo, log *zap.Logger) {
	ctx := context.Background()
	now := time.Now().UTC()

	mem.PutTenant(domain.Tenant{
		OrgID:      "dev-org",
		SchemaName: "org_dev",
		Name:       "Dev Organization",
		Active:     true,
	})
	schema, err := repository.NewSchema("org_dev")
	if err != nil {
		log.Warn("dev seed failed", zap.Error(err))
		return
	}

	_, _ = mem.UpsertPatient(ctx, schema, &domain.Patient{
		ID:        "patient-1",
		FirstName: "Pat",
		LastName:  "Example",
		Active:    true,
		UpdatedAt: now,
	})
	_, _ = mem.UpsertUser(ctx, schema, &domain.User{
		ID:        "caregiver-1",
		FirstName: "Casey",
		LastName:  "Example",
		Role:      domain.RoleCaregiver,
		Active:    true,
		UpdatedAt: now,
	})
	mem.PutTag(schema, domain.NFCTag{
		TagID:     "tag-1",
		PatientID: "patient-1",
		Active:    true,
	})
	log.Info("seeded in-memory dev data", zap.String("schema", string(schema)))
}
