package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"movers/internal/config"
	"movers/internal/domain"
)

// Server serves the movers HTTP API.
type Server struct {
	provider Provider
	log      *slog.Logger
}

// NewServer creates a new API server backed by provider.
func NewServer(provider Provider, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{provider: provider, log: log.With("component", "httpapi")}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sources", s.handleSources)
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("GET /api/{source}/latest", s.handleLatest)
	mux.HandleFunc("GET /api/{source}/dates", s.handleDates)
	mux.HandleFunc("GET /api/{source}/history", s.handleHistory)
	mux.HandleFunc("GET /api/{source}/history/{date}", s.handleHistory)
}

// Handler returns the API wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.logRequests(corsMiddleware(mux))
}

// Serve listens on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("http api listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// source resolves the {source} path value against the configured sources
// and writes a 404 when it is unknown.
func (s *Server) source(w http.ResponseWriter, r *http.Request) (config.Source, bool) {
	name := strings.ToLower(r.PathValue("source"))
	for _, src := range s.provider.Sources() {
		if strings.ToLower(src.Name) == name {
			return src, true
		}
	}
	writeError(w, http.StatusNotFound, "unknown source "+strconv.Quote(name))
	return config.Source{}, false
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	resp := SourcesResponse{Sources: []SourceJSON{}}
	for _, src := range s.provider.Sources() {
		resp.Sources = append(resp.Sources, SourceJSON{Name: src.Name, URL: src.URL})
	}
	writeJSON(w, resp)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}
	snap, err := s.provider.Latest(r.Context(), src.Name)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "no snapshot for "+src.Name)
		return
	}
	if err != nil {
		s.log.Error("loading latest snapshot", "source", src.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "loading snapshot")
		return
	}
	writeJSON(w, LatestResponse{
		Source:     src.Name,
		CapturedAt: snap.CapturedAt,
		Count:      len(snap.Rows),
		Rows:       snap.Rows,
	})
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}
	dates, err := s.provider.Dates(r.Context(), src.Name)
	if err != nil {
		s.log.Error("listing dates", "source", src.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "listing dates")
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, DatesResponse{Source: src.Name, Dates: dates})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(w, r)
	if !ok {
		return
	}
	date := r.PathValue("date")
	if date == "" {
		dates, err := s.provider.Dates(r.Context(), src.Name)
		if err != nil {
			s.log.Error("listing dates", "source", src.Name, "error", err)
			writeError(w, http.StatusInternalServerError, "listing dates")
			return
		}
		if len(dates) == 0 {
			writeError(w, http.StatusNotFound, "no history for "+src.Name)
			return
		}
		date = dates[len(dates)-1]
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	history, err := s.provider.History(r.Context(), src.Name, date)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "no history for "+src.Name)
		return
	}
	if err != nil {
		s.log.Error("loading history", "source", src.Name, "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "loading history")
		return
	}
	if history == nil {
		history = domain.History{}
	}
	writeJSON(w, HistoryResponse{Source: src.Name, Date: date, Count: len(history), Entries: history})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := s.provider.SymbolRecords(r.Context(), symbol, limit)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "no records for "+symbol)
		return
	}
	if err != nil {
		s.log.Error("loading symbol records", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "loading records")
		return
	}
	writeJSON(w, SymbolResponse{Symbol: symbol, Records: recs})
}
