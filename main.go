package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatbot-client/internal/backend"
	"chatbot-client/internal/config"
	"chatbot-client/internal/logging"
	"chatbot-client/internal/session"
	"chatbot-client/internal/terminal"
	"chatbot-client/internal/ui"
)

func main() {
	// Set the GetEnv function for config
	config.GetEnv = os.Getenv

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	width, _ := terminal.Size(os.Stdout)
	display := ui.NewDisplay(os.Stdout, ui.Options{
		Width:   width,
		TTY:     terminal.IsTerminal(os.Stdout),
		Verbose: cfg.Verbose,
	})
	defer display.Cleanup()

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		display.PrintWarning(fmt.Sprintf("Failed to load settings, using defaults: %v", err))
		defaults := config.DefaultSettings()
		settings = &defaults
	}

	client := backend.NewClient(backend.Options{
		BaseURL:           cfg.BackendURL,
		Token:             cfg.Token,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Logger:            logger,
	})

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		display.Cleanup()
		display.PrintInfo("\nShutting down gracefully...")
		logger.Sync()
		os.Exit(0)
	}()

	if err := client.HealthCheck(ctx); err != nil {
		display.PrintError(err)
		display.PrintInfo("Start the chatbot backend or point -backend-url at it")
		os.Exit(1)
	}

	controller := session.NewController(client, *settings, logger)
	unsubscribe := display.Watch(controller.Notifier(), controller.Store())
	defer unsubscribe()

	display.PrintWelcome(*settings, cfg.BackendURL)

	if _, err := controller.LoadSessions(ctx); err != nil {
		display.PrintWarning(fmt.Sprintf("Failed to load sessions: %v", err))
	}

	workingDir, err := os.Getwd()
	if err != nil {
		workingDir = "."
	}

	r := &repl{
		ctx:          ctx,
		controller:   controller,
		display:      display,
		backendURL:   cfg.BackendURL,
		settingsPath: cfg.SettingsPath,
		workingDir:   workingDir,
		log:          logger,
	}
	r.run(terminal.NewInput(os.Stdin))

	display.PrintGoodbye()
}

// loadConfig merges defaults, the .env file, the environment and flags, in
// that order of precedence
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()

	envFile := ".env"
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&envFile, "env", envFile, "Path to a .env file")
	backendURL := fs.String("backend-url", "", "Chatbot backend URL")
	token := fs.String("token", "", "Bearer token for the backend")
	timeout := fs.Duration("timeout", 0, "Backend request timeout")
	rps := fs.Float64("rps", -1, "Max backend requests per second (0 disables throttling)")
	settingsPath := fs.String("settings", "", "Settings file (provider, model, language)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "Log format: console or json")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Show citations excerpts and list updates")
	fs.Parse(os.Args[1:])

	if err := cfg.LoadEnv(envFile); err != nil {
		return nil, err
	}

	// Flags win over the environment
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}
	if *token != "" {
		cfg.Token = *token
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *rps >= 0 {
		cfg.RequestsPerSecond = *rps
	}
	if *settingsPath != "" {
		cfg.SettingsPath = *settingsPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if cfg.Verbose && *logLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
