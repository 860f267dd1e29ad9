package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"kairos/internal/di"
	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/config"
)

type configLoader func() (config.Config, error)

var errEvaluationFailed = errors.New("evaluation failed")

func buildEvaluateCmd(load configLoader) *cobra.Command {
	var (
		query       string
		url         string
		kind        string
		provider    string
		model       string
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one evaluation and print the result as JSON",
		Example: `  kairos evaluate --query "portfolio site" --url https://example.test
  kairos evaluate --kind qualitative --provider openai --url https://example.test`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			req, err := buildRequest(cfg, query, url, kind, provider, model, temperature)
			if err != nil {
				return err
			}

			c, err := di.NewContainer(cmd.Context(), cfg, di.Options{Version: version, LogName: "evaluate"})
			if err != nil {
				return err
			}
			defer c.Close()

			res := c.Evaluator.Evaluate(cmd.Context(), req)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return errEvaluationFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Description of what the application should do")
	cmd.Flags().StringVarP(&url, "url", "u", "", "URL of the application under test")
	cmd.Flags().StringVarP(&kind, "kind", "k", string(entity.KindFeatureCorrectness), "Evaluation type: feature_correctness or qualitative")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "LLM provider (defaults to DEFAULT_PROVIDER)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name (defaults to the provider's default)")
	cmd.Flags().Float64VarP(&temperature, "temperature", "t", entity.DefaultTemperature, "Sampling temperature for agent sessions")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func buildRequest(cfg config.Config, query, url, kind, provider, model string, temperature float64) (entity.EvaluationRequest, error) {
	k, err := entity.ParseEvaluationKind(kind)
	if err != nil {
		return entity.EvaluationRequest{}, err
	}

	p := cfg.DefaultProvider
	if provider != "" {
		if p, err = entity.ParseProvider(provider); err != nil {
			return entity.EvaluationRequest{}, err
		}
	}

	req := entity.NewEvaluationRequest(query, url, p, k)
	req.Model = model
	req.Temperature = temperature
	return req, req.Validate()
}

func buildServeCmd(load configLoader) *cobra.Command {
	var (
		addr     string
		quietLog bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			c, err := di.NewContainer(cmd.Context(), cfg, di.Options{Version: version})
			if err != nil {
				return err
			}
			defer c.Close()

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           c.HTTPServer(!quietLog).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), srv, func(msg string, args ...any) { c.Logger.Info(msg, args...) })
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to HTTP_ADDR)")
	cmd.Flags().BoolVar(&quietLog, "quiet", false, "Disable request logging")
	return cmd
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, logf func(msg string, args ...any)) error {
	errCh := make(chan error, 1)
	go func() {
		logf("HTTP server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	logf("HTTP server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func buildProvidersCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported LLM providers and their default models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range cfg.LLM.Describe() {
				model := p.DefaultModel
				if model == "" {
					model = "(not configured)"
				}
				if _, err := fmt.Fprintf(out, "%-14s %-30s %s\n", p.ID, model, p.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
