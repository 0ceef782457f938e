package main

import (
	"Ashray/cache"
	"Ashray/config"
	"Ashray/identity"
	"Ashray/jobs"
	"Ashray/logger"
	"Ashray/migrations"
	"Ashray/notify"
	"Ashray/parser"
	"Ashray/repository"
	"Ashray/routes"
	"Ashray/server"
	"Ashray/services"
	"Ashray/storage"
	"Ashray/util"
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	startServer  = server.Start
	connectMongo = repository.Connect
	isTest       = false
)

// app holds the long-lived clients and the services built on them.
type app struct {
	mongo         *mongo.Client
	db            *mongo.Database
	redis         *goredis.Client
	cron          *cron.Cron
	notifications *services.NotificationService
	handlers      routes.Handlers
	log           *zap.Logger
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zl := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Production: cfg.IsProduction()})
	defer func() { _ = zl.Sync() }()

	util.ExposeErrors = !cfg.IsProduction()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := build(ctx, cfg, zl)
	cancel()
	if err != nil {
		return err
	}

	defaultopts := server.GetDefaultOptions()
	port := cfg.Port
	if port == "" {
		port = defaultopts.WebServerPort
	}

	options := server.Options{
		WebServerPort: port,
		Log:           zl,

		MigrationEnabled: defaultopts.MigrationEnabled && !isTest,
		MigrationHandler: func(ctx context.Context) error {
			if isTest {
				return nil
			}
			return migrations.Run(ctx, a.db, zl)
		},

		JobsEnabled: cfg.JobsEnabled && !isTest,
		JobsHandler: func() {
			if isTest {
				return
			}
			c, err := jobs.StartReminderScheduler(a.notifications, zl)
			if err != nil {
				zl.Error("reminder scheduler not started", zap.Error(err))
				return
			}
			a.cron = c
		},

		WebServerPreHandler: func(r *gin.Engine) {
			routes.Middleware(r, a.handlers)
			routes.Routes(r, a.handlers)
		},

		ShutdownHandler: a.close,
	}
	return startServer(options)
}

/*
* Connect Mongo, then the optional Redis cache and S3 bucket
* Build the Cognito client, token verifier, parser and mailer
* Wire the services and the HTTP handlers on top
 */
func build(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*app, error) {
	client, err := connectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDatabase)
	a := &app{mongo: client, db: db, log: zl}

	users := repository.NewUserStore(db)
	prescriptions := repository.NewPrescriptionStore(db)
	medications := repository.NewMedicationStore(db)
	inventory := repository.NewInventoryStore(db)

	var rxCache cache.PrescriptionCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, cache.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			zl.Warn("redis unavailable, prescription cache disabled", zap.Error(err))
		} else {
			a.redis = rdb
			rxCache = cache.NewRedis(rdb, cfg.Redis.TTL)
		}
	}

	var objects services.ObjectStore
	if cfg.AWS.Bucket != "" {
		gw, err := storage.New(ctx, storage.Options{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			SessionToken:    cfg.AWS.SessionToken,
			Bucket:          cfg.AWS.Bucket,
		})
		if err != nil {
			zl.Warn("s3 unavailable, files will be kept on local disk", zap.Error(err))
		} else {
			objects = gw
		}
	} else {
		zl.Warn("AWS_S3_BUCKET not set, files will be kept on local disk")
	}
	files := storage.NewLocalDisk(cfg.UploadDir)

	idp, err := identity.NewCognito(ctx, identity.CognitoOptions{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		SessionToken:    cfg.AWS.SessionToken,
		ClientID:        cfg.Cognito.ClientID,
		ClientSecret:    cfg.Cognito.ClientSecret,
		PhoneRegion:     cfg.DefaultPhoneRegion,
	})
	if err != nil {
		return nil, err
	}

	var keys identity.KeySource
	if issuer := cfg.Issuer(); issuer != "" {
		keys = identity.NewJWKSCache(identity.JWKSURL(issuer))
	}
	verifier := identity.NewVerifier(identity.VerifierOptions{
		Issuer:       cfg.Issuer(),
		Audience:     cfg.Cognito.ClientID,
		LegacySecret: cfg.JWTSecret,
	}, keys, users)

	rxParser := parser.New(cfg.ParserURL, cfg.ParserTimeout)
	mailer := notify.NewMailer(notify.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		User:     cfg.Email.User,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	})

	rxSvc := services.NewPrescriptionService(services.PrescriptionDeps{
		Prescriptions: prescriptions,
		Medications:   medications,
		Users:         users,
		Objects:       objects,
		Files:         files,
		Parser:        rxParser,
		Cache:         rxCache,
		Mailer:        mailer,
		Log:           zl.Named("prescriptions"),
	})
	a.notifications = services.NewNotificationService(medications, users, mailer, zl.Named("reminders"))
	a.handlers = routes.Handlers{
		Auth:          services.NewAuthService(idp, users, zl.Named("auth")),
		Patients:      services.NewPatientService(users, medications, prescriptions, zl.Named("patients")),
		Medications:   services.NewMedicationService(medications, zl.Named("medications")),
		Prescriptions: rxSvc,
		Pharmacy:      services.NewPharmacyService(prescriptions, inventory, rxSvc, zl.Named("pharmacy")),
		Inventory:     services.NewInventoryService(inventory, zl.Named("inventory")),
		Uploads:       services.NewUploadService(objects, zl.Named("uploads")),
		Verifier:      verifier,
		Parser:        rxParser,
		UploadDir:     cfg.UploadDir,
		ClientURL:     cfg.ClientURL,
		Log:           zl,
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}
}
