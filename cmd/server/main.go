package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"parasite-blog/internal/auth"
	"parasite-blog/internal/config"
	"parasite-blog/internal/domain"
	apphttp "parasite-blog/internal/http"
	"parasite-blog/internal/repository"
	"parasite-blog/internal/repository/sqlite"
	"parasite-blog/internal/service"
	"parasite-blog/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	roleRepo := sqlite.NewRoleRepository(db)
	userRepo := sqlite.NewUserRepository(db)
	postRepo := sqlite.NewPostRepository(db)

	// users reference roles and posts reference everything else
	if err := roleRepo.Init(ctx); err != nil {
		logger.Fatalf("init role repository: %v", err)
	}
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	var refRepos []repository.ReferenceRepository
	var refServices []service.ReferenceService
	for _, kind := range domain.ReferenceKinds {
		repo, err := sqlite.NewReferenceRepository(db, kind)
		if err != nil {
			logger.Fatalf("reference repository: %v", err)
		}
		if err := repo.Init(ctx); err != nil {
			logger.Fatalf("init %s repository: %v", kind, err)
		}
		refRepos = append(refRepos, repo)
		refServices = append(refServices, service.NewReferenceService(repo))
	}
	if err := postRepo.Init(ctx); err != nil {
		logger.Fatalf("init post repository: %v", err)
	}

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatalf("password hasher: %v", err)
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Fatalf("token manager: %v", err)
	}

	authService, err := service.NewAuthService(userRepo, hasher, tokens)
	if err != nil {
		logger.Fatalf("auth service: %v", err)
	}
	userService := service.NewUserService(userRepo, roleRepo, hasher, cfg.Auth.PrivilegedRoleID, logger)

	if cfg.Auth.Bootstrap.Email != "" {
		_, created, err := userService.EnsurePrivileged(ctx, cfg.Auth.Bootstrap.Name, cfg.Auth.Bootstrap.Email, cfg.Auth.Bootstrap.Password)
		if err != nil {
			logger.Fatalf("bootstrap privileged user: %v", err)
		}
		if created {
			logger.Infof("created privileged user %s", cfg.Auth.Bootstrap.Email)
		}
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}
	if err := storageSvc.EnsureBucket(ctx, cfg.Storage.Bucket); err != nil {
		logger.Warnf("ensure bucket %s: %v", cfg.Storage.Bucket, err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Services{
		Auth:       authService,
		Users:      userService,
		Roles:      service.NewRoleService(roleRepo),
		Posts:      service.NewPostService(postRepo, refRepos, cfg.Auth.PrivilegedRoleID),
		References: refServices,
		Media:      service.NewMediaService(storageSvc, cfg.Storage.Bucket, cfg.Server.PublicURL, logger),
	}, auth.NewGate(tokens, cfg.Auth.PrivilegedRoleID, logger), logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Driver == "memory" {
		logger.Warn("using in-memory object storage; uploads are lost on restart")
		return storage.NewMemoryService(), nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}
	if cfg.Storage.AccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, cfg.Storage.Region), nil
}
