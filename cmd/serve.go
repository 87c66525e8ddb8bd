package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/covercount/insights-cli/internal/confidence"
	"github.com/covercount/insights-cli/internal/generate"
	"github.com/covercount/insights-cli/internal/model"
	"github.com/covercount/insights-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the insights HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		orch, err := initOrchestrator(st)
		if err != nil {
			return err
		}

		srv := newServer(st, orch)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.routes(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type server struct {
	store  store.Store
	orch   *generate.Orchestrator
	scorer *confidence.Scorer

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newServer(st store.Store, orch *generate.Orchestrator) *server {
	return &server{
		store:    st,
		orch:     orch,
		scorer:   confidence.NewScorer(st),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/restaurants/{restaurantID}", func(r chi.Router) {
		r.Get("/confidence", s.handleConfidence)
		r.Get("/insights", s.handleListInsights)
		r.Post("/insights/generate", s.handleGenerate)
	})
	r.Post("/insights/{insightID}/feedback", s.handleFeedback)

	return r
}

// limiter returns the per-restaurant rate limiter, creating it on first use.
func (s *server) limiter(restaurantID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[restaurantID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(cfg.Generate.RatePerMinute)/60.0), cfg.Generate.RateBurst)
		s.limiters[restaurantID] = l
	}
	return l
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleConfidence(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")

	conf, err := s.scorer.Score(r.Context(), restaurantID)
	if err != nil {
		zap.L().Error("confidence scoring failed",
			zap.String("restaurant_id", restaurantID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "confidence scoring failed")
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (s *server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")

	insights, err := s.store.ListInsights(r.Context(), restaurantID, 50)
	if err != nil {
		zap.L().Error("listing insights failed",
			zap.String("restaurant_id", restaurantID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "listing insights failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")

	if !s.limiter(restaurantID).Allow() {
		writeError(w, http.StatusTooManyRequests, "generation rate limit exceeded")
		return
	}

	var req struct {
		SalesSummary string `json:"sales_summary"`
		CostSummary  string `json:"cost_summary"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := s.orch.Generate(r.Context(), generate.GenerateRequest{
		RestaurantID: restaurantID,
		SalesSummary: req.SalesSummary,
		CostSummary:  req.CostSummary,
	})
	for stream.Next() {
		writeSSE(w, flusher, stream.Event())
	}
	if err := stream.Err(); err != nil {
		zap.L().Error("generation stream ended with error",
			zap.String("restaurant_id", restaurantID),
			zap.Error(err),
		)
	}
}

func (s *server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	insightID := chi.URLParam(r, "insightID")

	var req struct {
		Rating  string `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rating == "" {
		writeError(w, http.StatusBadRequest, "rating is required")
		return
	}

	record, err := s.orch.RecordFeedback(r.Context(), insightID, model.FeedbackRating(req.Rating), req.Comment)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "insight not found")
			return
		}
		zap.L().Error("recording feedback failed",
			zap.String("insight_id", insightID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "recording feedback failed")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// writeSSE encodes one generation event as a named SSE frame.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, e generate.Event) {
	data, err := json.Marshal(e.Data())
	if err != nil {
		zap.L().Warn("encoding sse event failed", zap.Error(err))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
