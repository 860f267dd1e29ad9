package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"kairos/internal/application/port/input"
	"kairos/internal/domain/entity"
	"kairos/internal/infrastructure/llm"
)

const (
	serviceName     = "kairos"
	maxRequestBytes = 1 << 20
)

type Config struct {
	Version         string
	DefaultProvider entity.Provider
	Providers       []llm.ProviderInfo
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// RequestLogging enables JSON access logs.
	RequestLogging bool
}

type Server struct {
	evaluator input.Evaluator
	cfg       Config
}

func NewServer(evaluator input.Evaluator, cfg Config) *Server {
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = entity.ProviderClaudeVertex
	}
	return &Server{evaluator: evaluator, cfg: cfg}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.cfg.RequestLogging {
		r.Use(httplog.RequestLogger(httplog.NewLogger(serviceName, httplog.Options{JSON: true})))
	}
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/providers", s.handleProviders)
	r.Post("/evaluate", s.handleEvaluate)
	r.Route("/evaluation", func(r chi.Router) {
		r.Post("/feature-test", s.handleLegacy(entity.KindFeatureCorrectness))
		r.Post("/qualitative", s.handleLegacy(entity.KindQualitative))
	})
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}
	return r
}

type evaluateRequest struct {
	Query       string   `json:"user_query"`
	URL         string   `json:"app_url"`
	Provider    string   `json:"provider"`
	Kind        string   `json:"evaluation_type"`
	Model       string   `json:"llm_model_name"`
	Temperature *float64 `json:"temperature"`
}

type legacyRequest struct {
	Query string `json:"user_query"`
	URL   string `json:"url"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Web App Evaluation API",
		"status":  "running",
		"version": s.cfg.Version,
		"endpoints": map[string]string{
			"POST /evaluate":                "Evaluation with full configuration",
			"POST /evaluation/feature-test": "Legacy feature correctness evaluation",
			"POST /evaluation/qualitative":  "Legacy qualitative evaluation",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": s.cfg.Version,
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": s.cfg.Providers})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var body evaluateRequest
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := s.toRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.evaluator.Evaluate(r.Context(), req))
}

func (s *Server) handleLegacy(kind entity.EvaluationKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body legacyRequest
		if err := decode(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		req := entity.NewEvaluationRequest(body.Query, body.URL, s.cfg.DefaultProvider, kind)
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res := s.evaluator.Evaluate(r.Context(), req)
		if kind == entity.KindQualitative {
			writeJSON(w, http.StatusOK, map[string]any{"result": qualitativeText(res)})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": res})
	}
}

func (s *Server) toRequest(body evaluateRequest) (entity.EvaluationRequest, error) {
	provider := s.cfg.DefaultProvider
	if body.Provider != "" {
		p, err := entity.ParseProvider(body.Provider)
		if err != nil {
			return entity.EvaluationRequest{}, err
		}
		provider = p
	}

	kind := entity.KindFeatureCorrectness
	if body.Kind != "" {
		k, err := entity.ParseEvaluationKind(body.Kind)
		if err != nil {
			return entity.EvaluationRequest{}, err
		}
		kind = k
	}

	req := entity.NewEvaluationRequest(body.Query, body.URL, provider, kind)
	req.Model = strings.TrimSpace(body.Model)
	if body.Temperature != nil {
		req.Temperature = *body.Temperature
	}
	return req, req.Validate()
}

func qualitativeText(res *entity.EvaluationResult) string {
	if res.Success {
		if text, ok := res.RawResponse["response"].(string); ok {
			return text
		}
	}
	return res.ErrorMessage
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
