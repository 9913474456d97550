package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/hverma/enrollhub/internal/app/controllers"
	appMigrations "github.com/hverma/enrollhub/internal/app/migrations"
	appRepos "github.com/hverma/enrollhub/internal/app/repositories"
	appRoutes "github.com/hverma/enrollhub/internal/app/routes"
	appServices "github.com/hverma/enrollhub/internal/app/services"
	"github.com/hverma/enrollhub/internal/config"
	"github.com/hverma/enrollhub/internal/db"
	appMiddleware "github.com/hverma/enrollhub/internal/middleware"
	"github.com/hverma/enrollhub/internal/pkg/filestorage"
	"github.com/hverma/enrollhub/internal/pkg/googleauth"
	"github.com/hverma/enrollhub/internal/pkg/logger"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	CategoryService    *appServices.CategoryService
	StudentService     *appServices.StudentService
	SessionService     *appServices.SessionService
	OAuthController    *appControllers.OAuthController
	CategoryController *appControllers.CategoryController
	StudentController  *appControllers.StudentController
	IdentityMiddleware *appMiddleware.IdentityMiddleware
	Repos              *appRepos.Repositories
	FileStorage        *filestorage.LocalStorage
	GoogleClient       *googleauth.Client
	Logger             zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}

	lgr.Info().Msg("Running database migrations...")
	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		dbPool.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	migrator := appMigrations.NewMigrator(dbPool)
	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database ready.")
	return dbPool, nil
}

// BuildDependencies wires repositories, services, controllers and middleware.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	repos := appRepos.NewRepositories(dbPool)

	storage, err := filestorage.NewLocalStorage(cfg.Server.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize attachment storage: %w", err)
	}

	googleClient := googleauth.NewClient(googleauth.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURI:  cfg.OAuth.RedirectURI,
		Timeout:      cfg.OAuthTimeout(),
	})

	categoryService := appServices.NewCategoryService(repos.CategoryRepository)
	studentService := appServices.NewStudentService(repos.StudentRepository, repos.CategoryRepository, storage)
	sessionService := appServices.NewSessionService(
		appServices.NewMemorySessionStore(),
		googleClient,
		appServices.SingleIdentityAuthorizer{Identity: cfg.OAuth.AdminEmail},
	)

	deps := &Dependencies{
		CategoryService:    categoryService,
		StudentService:     studentService,
		SessionService:     sessionService,
		OAuthController:    appControllers.NewOAuthController(googleClient, sessionService, cfg.Server.FrontendOrigin),
		CategoryController: appControllers.NewCategoryController(categoryService),
		StudentController:  appControllers.NewStudentController(studentService),
		IdentityMiddleware: appMiddleware.NewIdentityMiddleware(sessionService),
		Repos:              repos,
		FileStorage:        storage,
		GoogleClient:       googleClient,
		Logger:             lgr,
	}

	return deps, nil
}

// SetupRouter builds the gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(appMiddleware.CORS(cfg.Server.FrontendOrigin))

	appRoutes.SetupRouter(
		router,
		deps.OAuthController,
		deps.CategoryController,
		deps.StudentController,
		deps.IdentityMiddleware,
	)

	lgr.Info().Msg("Router configured")
	return router
}
