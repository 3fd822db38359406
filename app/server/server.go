package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"GoWikiRAG/app/configs"
	"GoWikiRAG/app/pipeline"
	"GoWikiRAG/app/storage"
	"GoWikiRAG/app/vectors"
)

// Server is the JSON surface the chat front-end talks to. It owns no
// domain logic: every handler delegates to the pipeline or the stores.
type Server struct {
	pipeline *pipeline.Pipeline
	store    storage.Interface
	index    vectors.Index
	listen   string
}

func New(cfg configs.ServerConfig, p *pipeline.Pipeline, store storage.Interface, index vectors.Index) *Server {
	return &Server{
		pipeline: p,
		store:    store,
		index:    index,
		listen:   cfg.Listen,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/search", s.handleSearch)
	mux.HandleFunc("POST /v1/refresh", s.handleRefresh)
	mux.HandleFunc("POST /v1/topics", s.handleAddTopic)
	mux.HandleFunc("POST /v1/logs", s.handleLog)
	mux.HandleFunc("GET /v1/count", s.handleCount)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("🚀 Listening on %s", s.listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type searchRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "user_id and text are required")
		return
	}

	result := s.pipeline.Retrieve(r.Context(), req.UserID, req.Text)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	report, err := s.pipeline.FullRefresh(r.Context())
	if err != nil {
		log.Printf("❌ Refresh failed: %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type addTopicRequest struct {
	UserID int64  `json:"user_id"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

func (s *Server) handleAddTopic(w http.ResponseWriter, r *http.Request) {
	var req addTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "title and text are required")
		return
	}

	hash, err := s.pipeline.AddTopic(r.Context(), req.Title, req.Text, req.UserID)
	if errors.Is(err, pipeline.ErrContentTooShort) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		log.Printf("❌ Add topic failed: %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"hash": hash})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	var entry storage.LogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil || entry.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if entry.Status == "" {
		entry.Status = "success"
	}

	if err := s.store.LogInteraction(r.Context(), entry); err != nil {
		log.Printf("⚠️ Error logging interaction for user %d: %v", entry.UserID, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unreachable")
		return
	}
	if _, err := s.index.Count(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "vector index unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
