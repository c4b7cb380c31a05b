package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/preepi/recordings/internal/config"
	"github.com/preepi/recordings/internal/domain/catalog"
	"github.com/preepi/recordings/internal/domain/retrieval"
	"github.com/preepi/recordings/internal/importer"
	"github.com/preepi/recordings/internal/platform/apperror"
	"github.com/preepi/recordings/internal/platform/auth"
	"github.com/preepi/recordings/internal/platform/db"
	"github.com/preepi/recordings/internal/platform/fileshare"
	"github.com/preepi/recordings/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "recordings-server",
		Short: "Hospital recording metadata API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(importCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// newShare builds the configured file-share backend.
func newShare(cfg *config.Config) (fileshare.Share, error) {
	switch cfg.ShareBackend {
	case "smb":
		return fileshare.NewSMBShare(cfg.SMBAddress, cfg.SMBUser, cfg.SMBPassword, cfg.ShareName), nil
	case "s3":
		return fileshare.NewS3Share(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.ShareName, cfg.S3UseSSL)
	case "dir":
		return fileshare.NewDirShare(cfg.ShareDir), nil
	default:
		return nil, fmt.Errorf("unknown SHARE_BACKEND %q", cfg.ShareBackend)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the recordings API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	share, err := newShare(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure file share")
	}
	if closer, ok := share.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	logger.Info().Str("backend", cfg.ShareBackend).Msg("file share configured")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		status := "ok"
		if err := db.Health(c.Request().Context(), pool); err != nil {
			status = "degraded"
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  status,
			"version": "0.1.0",
		})
	})

	authSvc := auth.NewService(auth.NewUserStore(pool), []byte(cfg.AuthSecret),
		time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	auth.NewHandler(authSvc).RegisterRoutes(e)

	// Every data route sits behind bearer auth.
	api := e.Group("", auth.Middleware(authSvc))

	catalogSvc := catalog.NewService(catalog.NewRepository(pool))
	catalog.NewHandler(catalogSvc).RegisterRoutes(api)

	retrievalSvc := retrieval.NewService(catalog.NewRecordStore(pool), share)
	retrieval.NewHandler(retrievalSvc).RegisterRoutes(api)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// withPool loads config, opens the pool and hands it to fn.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				count, err := db.NewMigrator(pool, dir).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, dir).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			sensitive, _ := cmd.Flags().GetBool("sensitive")
			if username == "" {
				return fmt.Errorf("--username is required")
			}

			fmt.Print("Password: ")
			password, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return err
			}
			fmt.Print("Confirm password: ")
			confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return err
			}
			if string(password) != string(confirm) {
				return fmt.Errorf("passwords do not match")
			}

			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				svc := auth.NewService(auth.NewUserStore(pool), []byte(cfg.AuthSecret),
					time.Duration(cfg.TokenTTLMinutes)*time.Minute)
				user, err := svc.CreateUser(ctx, username, string(password), sensitive)
				if err != nil {
					return err
				}
				fmt.Printf("User %q created (ID: %d).\n", user.Username, user.ID)
				return nil
			})
		},
	}
	createCmd.Flags().String("username", "", "Username for the new user")
	createCmd.Flags().Bool("sensitive", false, "Grant access to sensitive records (video, reports)")
	cmd.AddCommand(createCmd)

	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Populate the metadata schema",
	}

	runCSV := func(name string, fn func(imp *importer.Importer, ctx context.Context, f *os.File) (importer.Result, error)) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				return fmt.Errorf("--file is required")
			}

			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()

				logger := newLogger(cfg)
				imp := importer.New(importer.NewStore(pool), nil, logger)
				res, err := fn(imp, ctx, f)
				if err != nil {
					return fmt.Errorf("importing %s: %w", name, err)
				}
				fmt.Printf("Imported %d %s, skipped %d.\n", res.Imported, name, res.Skipped)
				return nil
			})
		}
	}

	patientsCmd := &cobra.Command{
		Use:   "patients",
		Short: "Import patients and diagnoses from CSV",
		RunE: runCSV("patients", func(imp *importer.Importer, ctx context.Context, f *os.File) (importer.Result, error) {
			return imp.Patients(ctx, f)
		}),
	}
	patientsCmd.Flags().String("file", "", "Path to the CSV file")
	cmd.AddCommand(patientsCmd)

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Import sessions from CSV",
		RunE: runCSV("sessions", func(imp *importer.Importer, ctx context.Context, f *os.File) (importer.Result, error) {
			return imp.Sessions(ctx, f)
		}),
	}
	sessionsCmd.Flags().String("file", "", "Path to the CSV file")
	cmd.AddCommand(sessionsCmd)

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Import events and their seizure types from CSV",
		RunE: runCSV("events", func(imp *importer.Importer, ctx context.Context, f *os.File) (importer.Result, error) {
			return imp.Events(ctx, f)
		}),
	}
	eventsCmd.Flags().String("file", "", "Path to the CSV file")
	cmd.AddCommand(eventsCmd)

	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Scan the file share and import record metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				share, err := newShare(cfg)
				if err != nil {
					return err
				}
				if closer, ok := share.(interface{ Close() error }); ok {
					defer closer.Close()
				}

				logger := newLogger(cfg)
				imp := importer.New(importer.NewStore(pool), share, logger)
				res, err := imp.Records(ctx)
				if err != nil {
					return fmt.Errorf("scanning share: %w", err)
				}
				fmt.Printf("Imported %d records, skipped %d.\n", res.Imported, res.Skipped)
				return nil
			})
		},
	}
	cmd.AddCommand(recordsCmd)

	return cmd
}
