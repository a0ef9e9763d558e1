// Package api serves the questionnaire and scoring engine over JSON HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ppiankov/casestrength/internal/analytics"
	"github.com/ppiankov/casestrength/internal/cache"
	"github.com/ppiankov/casestrength/internal/llm"
	"github.com/ppiankov/casestrength/internal/logger"
	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/schema"
	"github.com/ppiankov/casestrength/internal/worker"
)

// Schemas is the read side of the schema registry
type Schemas interface {
	SchemaFor(t model.NoticeType) (schema.Schema, error)
	NoticeTypes() []model.NoticeType
}

// Container holds all dependencies for the router
type Container struct {
	Schemas        Schemas
	Sessions       *cache.SessionStore
	Analytics      analytics.Sink  // nil disables event forwarding
	Narrator       *llm.Narrator   // nil disables narratives
	Limiter        *worker.Limiter // nil disables per-client rate limiting
	Logger         logger.Logger
	AllowedOrigins string
	TrustedProxies []string // Peers whose X-Forwarded-For is honoured
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Analytics == nil {
		c.Analytics = analytics.NopSink{}
	}

	h := &handler{
		schemas:        c.Schemas,
		sessions:       c.Sessions,
		analytics:      c.Analytics,
		narrator:       c.Narrator,
		log:            c.Logger,
		forwardTimeout: analyticsForwardTimeout,
	}

	proxies, err := parseTrustedProxies(c.TrustedProxies)
	if err != nil {
		c.Logger.Warnf("ignoring trusted proxies: %v", err)
	}

	r := mux.NewRouter()

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.AllowedOrigins))
	r.Use(loggingMiddleware(c.Logger))
	if c.Limiter != nil {
		r.Use(rateLimitMiddleware(c.Limiter, proxies))
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	// Schema registry
	v1.HandleFunc("/notice-types", h.ListNoticeTypes).Methods("GET", "OPTIONS")
	v1.HandleFunc("/notice-types/{type}/questions", h.GetQuestions).Methods("GET", "OPTIONS")

	// Questionnaire sessions
	v1.HandleFunc("/sessions", h.CreateSession).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET", "OPTIONS")
	v1.HandleFunc("/sessions/{id}", h.DeleteSession).Methods("DELETE", "OPTIONS")
	v1.HandleFunc("/sessions/{id}/answers", h.SubmitAnswer).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{id}/back", h.Back).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{id}/forward", h.Forward).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{id}/finalize", h.Finalize).Methods("POST", "OPTIONS")

	// One-shot scoring of a full answer set
	v1.HandleFunc("/assessments", h.Assess).Methods("POST", "OPTIONS")

	return r
}
