package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/flux-qa/flux-backend/apitoken"
	"github.com/flux-qa/flux-backend/artifact"
	"github.com/flux-qa/flux-backend/cmd/backend/handlers"
	"github.com/flux-qa/flux-backend/database"
	"github.com/flux-qa/flux-backend/execution"
	"github.com/flux-qa/flux-backend/healing"
	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/madl"
	"github.com/flux-qa/flux-backend/orchestrator"
	"github.com/flux-qa/flux-backend/project"
	"github.com/flux-qa/flux-backend/runner"
	"github.com/flux-qa/flux-backend/scriptgen"
	"github.com/flux-qa/flux-backend/session"
	"github.com/flux-qa/flux-backend/testcase"
	"github.com/flux-qa/flux-backend/testplan"
	"github.com/flux-qa/flux-backend/user"
)

var configFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServer,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(serveCmd)
}

// newCompleter picks the model client for script generation, healing,
// and metadata extraction.
func newCompleter(ctx context.Context, cfg *Config) (scriptgen.Completer, error) {
	switch cfg.LLM.Provider {
	case "bedrock":
		return scriptgen.NewBedrockClient(ctx, cfg.LLM.BedrockRegion, cfg.LLM.Model, cfg.LLM.MaxTokens)
	case "openai":
		return scriptgen.NewOpenAIClient(cfg.LLM.OpenAIAPIKey, cfg.LLM.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.NewLogrusLogger(cfg.Log.Level)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Connect to database
	dbCfg := database.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}

	db, err := database.Connect(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	log.Info(ctx, "database connected", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Database,
	})

	// Initialize stores
	userStore := user.NewMySQLStore(db, log)
	projectStore := project.NewMySQLStore(db, log)
	testCaseStore := testcase.NewMySQLStore(db, log)
	executionStore := execution.NewMySQLStore(db, log)
	scriptStore := scriptgen.NewMySQLStore(db, log)
	tokenStore := apitoken.NewMySQLStore(db, log)

	// Initialize session manager
	sessionManager := session.NewManager(cfg.Session.Duration, log)
	sessionManager.StartCleanup(5 * time.Minute)
	defer sessionManager.StopCleanup()

	// Initialize artifact storage
	artifactStore, err := artifact.New(ctx, artifact.Config{
		Kind:          cfg.Storage.Type,
		BaseDir:       cfg.Storage.BaseDir,
		Bucket:        cfg.Storage.S3Bucket,
		Region:        cfg.Storage.S3Region,
		PresignExpiry: cfg.Storage.S3PresignExpiry,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize artifact storage: %w", err)
	}

	// Initialize model clients
	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize model client: %w", err)
	}

	generator := scriptgen.NewLLMGenerator(completer, log)
	healer := scriptgen.NewLLMHealer(completer, log)

	// Initialize the reusable method index
	embedder, err := madl.NewGenAIEmbedder(ctx, cfg.LLM.EmbeddingAPIKey, cfg.LLM.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	vecIndex, err := madl.NewVecIndex(cfg.MADL.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to open method index: %w", err)
	}
	defer vecIndex.Close()

	reuseEngine := madl.NewEngine(embedder, vecIndex, log)
	reuseEngine.SetLimits(cfg.MADL.TopK, cfg.MADL.MinScore)
	extractor := madl.NewExtractor(completer, log)

	// Initialize script execution
	runnerOpts := []runner.Option{}
	if len(cfg.Runner.Args) > 0 {
		runnerOpts = append(runnerOpts, runner.WithArgs(cfg.Runner.Args...))
	}
	if cfg.Runner.TempDir != "" {
		runnerOpts = append(runnerOpts, runner.WithTempDir(cfg.Runner.TempDir))
	}
	scriptRunner := runner.NewProcessRunner(cfg.Runner.Interpreter, cfg.Runner.Timeout, log, runnerOpts...)

	healController := healing.NewController(healer, scriptRunner, log)

	// Assemble the execution pipeline
	orch := orchestrator.New(orchestrator.Deps{
		Authorizer: project.NewAuthorizer(projectStore),
		TestCases:  testCaseStore,
		Plans:      testplan.NewBuilder(testCaseStore, log),
		Reuse:      reuseEngine,
		Generator:  generator,
		Runner:     scriptRunner,
		Healer:     healController,
		Extractor:  extractor,
		Executions: executionStore,
		Scripts:    scriptStore,
		Artifacts:  artifactStore,
		Logger:     log,
	}, orchestrator.Config{
		EditWait:      cfg.Orchestrator.EditWait,
		SelectionWait: cfg.Orchestrator.SelectionWait,
	})

	// Setup router
	router := mux.NewRouter()

	// Health check endpoint (public)
	router.HandleFunc("/health", handlers.HealthHandler).Methods("GET")

	// Auth handlers (public)
	authHandler := handlers.NewAuthHandler(
		userStore,
		sessionManager,
		cfg.Session.CookieSecret,
		cfg.Session.CookieName,
		cfg.Session.Secure,
		log,
	)

	router.HandleFunc("/api/v1/auth/register", authHandler.Register).Methods("POST")
	router.HandleFunc("/api/v1/auth/login", authHandler.Login).Methods("POST")
	router.HandleFunc("/api/v1/auth/logout", authHandler.Logout).Methods("POST")

	// Protected routes
	authMiddleware := handlers.NewAuthMiddleware(sessionManager, tokenStore, cfg.Session.CookieName, log)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMiddleware.Handler)
	apiRouter.Use(handlers.WriteScopeMiddleware)

	userHandler := handlers.NewUserHandler(userStore, log)
	apiRouter.HandleFunc("/users", userHandler.List).Methods("GET")
	apiRouter.HandleFunc("/users/{id}", userHandler.GetByID).Methods("GET")
	apiRouter.HandleFunc("/users/{id}", userHandler.Update).Methods("PUT")
	apiRouter.HandleFunc("/users/{id}", userHandler.Delete).Methods("DELETE")

	projectHandler := handlers.NewProjectHandler(projectStore, log)
	apiRouter.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	apiRouter.HandleFunc("/projects", projectHandler.List).Methods("GET")
	apiRouter.HandleFunc("/projects/{id}", projectHandler.GetByID).Methods("GET")
	apiRouter.HandleFunc("/projects/{id}", projectHandler.Update).Methods("PUT")
	apiRouter.HandleFunc("/projects/{id}", projectHandler.Delete).Methods("DELETE")
	apiRouter.HandleFunc("/projects/{id}/members", projectHandler.AddMember).Methods("POST")
	apiRouter.HandleFunc("/projects/{id}/members/{user_id}", projectHandler.RemoveMember).Methods("DELETE")

	testCaseHandler := handlers.NewTestCaseHandler(testCaseStore, projectStore, log)
	apiRouter.HandleFunc("/projects/{project_id}/cases", testCaseHandler.Create).Methods("POST")
	apiRouter.HandleFunc("/projects/{project_id}/cases", testCaseHandler.List).Methods("GET")
	apiRouter.HandleFunc("/cases/{case_id}", testCaseHandler.GetByCaseID).Methods("GET")
	apiRouter.HandleFunc("/cases/{case_id}", testCaseHandler.Update).Methods("PUT")
	apiRouter.HandleFunc("/cases/{case_id}", testCaseHandler.Delete).Methods("DELETE")

	scriptHandler := handlers.NewScriptHandler(scriptStore, testCaseStore, projectStore, log)
	apiRouter.HandleFunc("/cases/{case_id}/scripts", scriptHandler.ListByCase).Methods("GET")
	apiRouter.HandleFunc("/cases/{case_id}/scripts/latest", scriptHandler.GetLatest).Methods("GET")
	apiRouter.HandleFunc("/scripts/{id}", scriptHandler.GetByID).Methods("GET")

	executionHandler := handlers.NewExecutionHandler(executionStore, testCaseStore, projectStore, artifactStore, log)
	apiRouter.HandleFunc("/cases/{case_id}/executions", executionHandler.ListByCase).Methods("GET")
	apiRouter.HandleFunc("/projects/{project_id}/executions", executionHandler.ListByProject).Methods("GET")
	apiRouter.HandleFunc("/projects/{project_id}/executions/summary", executionHandler.Summary).Methods("GET")
	apiRouter.HandleFunc("/executions/{execution_id}", executionHandler.GetByExecutionID).Methods("GET")
	apiRouter.HandleFunc("/executions/{execution_id}/artifact", executionHandler.ArtifactURL).Methods("GET")

	executeHandler := handlers.NewExecuteHandler(orch, cfg.Orchestrator.ScriptType, log)
	apiRouter.HandleFunc("/cases/{case_id}/execute", executeHandler.Execute).Methods("GET")

	tokenHandler := handlers.NewAPITokenHandler(tokenStore, log)
	apiRouter.HandleFunc("/tokens", tokenHandler.Create).Methods("POST")
	apiRouter.HandleFunc("/tokens", tokenHandler.List).Methods("GET")
	apiRouter.HandleFunc("/tokens/{token_id}", tokenHandler.Revoke).Methods("DELETE")

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}
