// Command kairos evaluates web applications with a tool-driving LLM agent.
//
//	kairos evaluate --query "todo app" --url https://todo.test
//	kairos serve --addr :8000
//	kairos providers
//
// Settings come from the environment, optionally loaded from .env and
// .env.$APP_ENV.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kairos/internal/infrastructure/config"
	"kairos/internal/infrastructure/env"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildRootCmd(env.NewEnvService()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd(settings *env.EnvService) *cobra.Command {
	root := &cobra.Command{
		Use:          "kairos",
		Short:        "Evaluate web applications with an LLM browser agent",
		Version:      version,
		SilenceUsage: true,
	}

	load := func() (config.Config, error) {
		cfg, err := config.Load(settings)
		if err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		buildEvaluateCmd(load),
		buildServeCmd(load),
		buildProvidersCmd(load),
	)
	return root
}
