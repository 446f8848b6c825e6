package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/piae/company-expenses/internal"
	"github.com/piae/company-expenses/internal/auth"
	"github.com/piae/company-expenses/internal/category"
	categorypg "github.com/piae/company-expenses/internal/category/postgres"
	"github.com/piae/company-expenses/internal/core/events"
	"github.com/piae/company-expenses/internal/expense"
	expensepg "github.com/piae/company-expenses/internal/expense/postgres"
	"github.com/piae/company-expenses/internal/invitation"
	invitationpg "github.com/piae/company-expenses/internal/invitation/postgres"
	"github.com/piae/company-expenses/internal/limit"
	limitpg "github.com/piae/company-expenses/internal/limit/postgres"
	"github.com/piae/company-expenses/internal/notifier"
	"github.com/piae/company-expenses/internal/transport/rest"
	"github.com/piae/company-expenses/internal/workplace"
	workplacepg "github.com/piae/company-expenses/internal/workplace/postgres"
	"github.com/piae/company-expenses/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config      *internal.Config
	DB          *sqlx.DB
	Router      *chi.Mux
	EmailClient *notifier.Client
	Logger      *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.EmailClient.Shutdown()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ORM: %w", err)
	}

	publicKey, err := config.Security.GetPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load JWT public key: %w", err)
	}

	// Repositories
	categoryRepo := categorypg.NewCategoryRepository(gormDB)
	workplaceRepo := workplacepg.NewWorkplaceRepository(gormDB)
	expenseRepo := expensepg.NewExpenseRepository(gormDB)
	limitRepo := limitpg.NewLimitRepository(gormDB)
	invitationRepo := invitationpg.NewInvitationRepository(gormDB)

	// Event bus and notification pipeline
	eventBus := events.NewEventBus(lg)
	emailClient := notifier.NewClient(notifier.Config{
		APIURL:       config.Email.APIURL,
		APIToken:     config.Email.APIToken,
		SenderEmail:  config.Email.SenderEmail,
		SenderName:   config.Email.SenderName,
		InviteURL:    config.Email.InviteURL,
		SendTimeout:  config.Email.SendTimeout,
		MaxWorkers:   config.Email.MaxWorkers,
		JobQueueSize: config.Email.JobQueueSize,
	}, lg)
	notifier.RegisterEventHandlers(eventBus, emailClient, lg)

	// Services
	categoryService := category.NewService(categoryRepo, lg)
	workplaceService := workplace.NewService(workplaceRepo, lg)
	expenseService := expense.NewService(expenseRepo, workplaceRepo, categoryRepo, workplaceService, lg)
	limitService := limit.NewService(limitRepo, workplaceRepo, categoryRepo, workplaceService, lg)
	invitationService := invitation.NewService(invitationRepo, workplaceRepo, eventBus, lg)

	// Handlers
	verifier := auth.NewVerifier(publicKey)
	authHandler := auth.NewHandler(verifier, lg)
	categoryHandler := category.NewHandler(categoryService, lg)
	workplaceHandler := workplace.NewHandler(workplaceService, lg)
	expenseHandler := expense.NewHandler(expenseService, lg)
	limitHandler := limit.NewHandler(limitService, lg)
	invitationHandler := invitation.NewHandler(invitationService, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(
		router,
		db.DB,
		authHandler,
		expenseHandler,
		limitHandler,
		invitationHandler,
		workplaceHandler,
		categoryHandler,
		config.Server.AllowedOrigins,
		lg,
	)

	return &Dependencies{
		Config:      config,
		DB:          db,
		Router:      router,
		EmailClient: emailClient,
		Logger:      lg,
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
