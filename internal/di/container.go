package di

import (
	"context"
	"fmt"

	"kairos/internal/application/port/input"
	"kairos/internal/application/port/output"
	"kairos/internal/infrastructure/browser/rod"
	"kairos/internal/infrastructure/config"
	"kairos/internal/infrastructure/fetcher"
	"kairos/internal/infrastructure/httpapi"
	"kairos/internal/infrastructure/llm"
	"kairos/internal/infrastructure/logger"
	"kairos/internal/infrastructure/metrics"
	"kairos/internal/infrastructure/toolprovider/mcpstdio"
	"kairos/internal/usecase/client"
	"kairos/internal/usecase/orchestrator"
)

type Container struct {
	Config    config.Config
	Logger    output.LoggerPort
	Metrics   *metrics.Metrics
	Evaluator input.Evaluator
	Providers []llm.ProviderInfo

	version string
}

type Options struct {
	Version string
	// LogName names the per-run log file when LOG_FILE is not set.
	LogName string
}

func NewContainer(ctx context.Context, cfg config.Config, opts Options) (*Container, error) {
	logName := cfg.LogFile
	if logName == "" {
		logName = opts.LogName
	}
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Name: logName, Dir: "log"})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tools, err := newToolProviderFactory(cfg, opts.Version, log)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	m := metrics.New()

	settings := cfg.LLM
	settings.Logger = log
	llms := llm.NewFactory(ctx, settings)

	clients := client.NewFactory(llms, tools, log, m, client.Options{Session: cfg.SessionConfig()})
	pages := fetcher.New(fetcher.Config{Clean: cfg.CleanHTML, Logger: log})

	log.Info("Container ready",
		"defaultProvider", string(cfg.DefaultProvider),
		"toolProvider", string(cfg.ToolProvider),
		"maxIterations", cfg.MaxIterations,
	)

	return &Container{
		Config:    cfg,
		Logger:    log,
		Metrics:   m,
		Evaluator: orchestrator.New(clients.New, pages, log, m),
		Providers: settings.Describe(),
		version:   opts.Version,
	}, nil
}

func newToolProviderFactory(cfg config.Config, version string, log output.LoggerPort) (output.ToolProviderFactory, error) {
	switch cfg.ToolProvider {
	case config.ToolProviderRod:
		browserCfg := rod.DefaultConfig()
		browserCfg.Headless = cfg.BrowserHeadless
		return rod.NewToolProviderFactory(browserCfg, log), nil

	default:
		serverCfg := mcpstdio.PlaywrightConfig(cfg.BrowserHeadless)
		if cfg.MCPConfigPath != "" {
			loaded, err := mcpstdio.LoadConfig(cfg.MCPConfigPath)
			if err != nil {
				return nil, err
			}
			serverCfg = loaded
		}
		return mcpstdio.NewFactory(serverCfg, version, log), nil
	}
}

func (c *Container) HTTPServer(requestLogging bool) *httpapi.Server {
	return httpapi.NewServer(c.Evaluator, httpapi.Config{
		Version:         c.version,
		DefaultProvider: c.Config.DefaultProvider,
		Providers:       c.Providers,
		Metrics:         c.Metrics.Handler(),
		RequestLogging:  requestLogging,
	})
}

func (c *Container) Close() {
	if c.Logger != nil {
		_ = c.Logger.Close()
	}
}
