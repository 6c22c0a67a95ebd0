package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/signupassist/provider-pipeline/internal/forms"
	"github.com/signupassist/provider-pipeline/internal/pipeline"
	"github.com/signupassist/provider-pipeline/pkg/httpx"
)

// Pipeline is the slice of the discovery service the HTTP layer exposes.
type Pipeline interface {
	GetOrSynthesizeProgramData(ctx context.Context, orgRef, category string, ageHint int) (pipeline.DiscoverResult, error)
	BuildQuestions(fields []forms.DiscoveredField) []forms.Question
	DefaultAnswers(fields []forms.DiscoveredField) map[string]string
	QuoteTotal(basePriceCents *int64, fields []forms.DiscoveredField, answers map[string]any) int64
	SweepCache(ctx context.Context) (int, error)
	ClearCache(ctx context.Context) (int, error)
}

type Server struct {
	pipeline Pipeline
	logger   *log.Logger

	requiredAPIKey string
	rateLimiter    *fixedWindowLimiter
}

type Options struct {
	APIKey          string
	DiscoverPerMin  int
	RateLimitWindow time.Duration
	Logger          *log.Logger
}

func NewServer(p Pipeline, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	var limiter *fixedWindowLimiter
	if opts.DiscoverPerMin > 0 {
		window := opts.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		limiter = newFixedWindowLimiter(opts.DiscoverPerMin, window)
	}

	return &Server{
		pipeline:       p,
		logger:         opts.Logger,
		requiredAPIKey: opts.APIKey,
		rateLimiter:    limiter,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/programs/discover", s.handleDiscover)
	mux.HandleFunc("/v1/questions/normalize", s.handleNormalizeQuestions)
	mux.HandleFunc("/v1/price/quote", s.handleQuote)
	mux.HandleFunc("/v1/cache/sweep", s.handleCacheSweep)
	mux.HandleFunc("/v1/cache/clear", s.handleCacheClear)

	return s.withAPISecurity(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
