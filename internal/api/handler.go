package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ppiankov/casestrength/internal/analytics"
	"github.com/ppiankov/casestrength/internal/cache"
	"github.com/ppiankov/casestrength/internal/llm"
	"github.com/ppiankov/casestrength/internal/logger"
	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/schema"
	"github.com/ppiankov/casestrength/internal/session"
)

// analyticsForwardTimeout bounds event delivery after the response is written
const analyticsForwardTimeout = 30 * time.Second

type handler struct {
	schemas        Schemas
	sessions       *cache.SessionStore
	analytics      analytics.Sink
	narrator       *llm.Narrator
	log            logger.Logger
	forwardTimeout time.Duration
}

// NoticeTypeSummary is one entry of GET /v1/notice-types
type NoticeTypeSummary struct {
	NoticeType  model.NoticeType `json:"notice_type"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Questions   int              `json:"questions"`
}

// SessionView is the client's picture of a session
type SessionView struct {
	ID             string                    `json:"id"`
	NoticeType     model.NoticeType          `json:"notice_type"`
	Title          string                    `json:"title"`
	State          session.State             `json:"state"`
	Progress       session.Progress          `json:"progress"`
	Question       *model.QuestionDefinition `json:"question,omitempty"`        // Nil once complete
	PreviousAnswer model.AnswerValue         `json:"previous_answer,omitempty"` // Pre-fill after Back
	Moved          *bool                     `json:"moved,omitempty"`           // Forward only
}

// AnswerRequest is the body of POST /v1/sessions/{id}/answers
type AnswerRequest struct {
	QuestionID string            `json:"question_id"`
	Value      model.AnswerValue `json:"value"`
}

// CreateSessionRequest is the body of POST /v1/sessions
type CreateSessionRequest struct {
	NoticeType string `json:"notice_type"`
}

// ResultResponse is returned by finalize and assessments
type ResultResponse struct {
	Result    model.CaseStrengthResult `json:"result"`
	NextStep  string                   `json:"next_step"`
	Narrative string                   `json:"narrative,omitempty"`
}

func newSessionView(s *session.Session) SessionView {
	v := SessionView{
		ID:         s.ID(),
		NoticeType: s.NoticeType(),
		Title:      s.Title(),
		State:      s.State(),
		Progress:   s.Progress(),
	}
	if q, ok := s.CurrentQuestion(); ok {
		v.Question = &q
		if prev, ok := s.PreviousAnswer(q.ID); ok {
			v.PreviousAnswer = prev
		}
	}
	return v
}

// ListNoticeTypes handles GET /v1/notice-types
func (h *handler) ListNoticeTypes(w http.ResponseWriter, r *http.Request) {
	types := h.schemas.NoticeTypes()
	out := make([]NoticeTypeSummary, 0, len(types))
	for _, t := range types {
		sc, err := h.schemas.SchemaFor(t)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out = append(out, NoticeTypeSummary{
			NoticeType:  sc.NoticeType,
			Title:       sc.Title,
			Description: sc.Description,
			Questions:   len(sc.Questions),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notice_types": out})
}

// GetQuestions handles GET /v1/notice-types/{type}/questions
func (h *handler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	sc, err := h.schemas.SchemaFor(model.ParseNoticeType(mux.Vars(r)["type"]))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// CreateSession handles POST /v1/sessions
func (h *handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := session.Start(h.schemas, model.ParseNoticeType(req.NoticeType))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.sessions.Put(s); err != nil {
		h.log.Errorf("save session: %v", err)
		writeServiceError(w, err)
		return
	}

	h.log.Debugf("session %s started (%s)", s.ID(), s.NoticeType())
	writeJSON(w, http.StatusCreated, newSessionView(s))
}

// GetSession handles GET /v1/sessions/{id}
func (h *handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(s))
}

// DeleteSession handles DELETE /v1/sessions/{id}
func (h *handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitAnswer handles POST /v1/sessions/{id}/answers
func (h *handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.update(w, r, func(s *session.Session) (SessionView, error) {
		if err := s.Answer(req.QuestionID, req.Value); err != nil {
			return SessionView{}, err
		}
		return newSessionView(s), nil
	})
}

// Back handles POST /v1/sessions/{id}/back
func (h *handler) Back(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(s *session.Session) (SessionView, error) {
		s.Back()
		return newSessionView(s), nil
	})
}

// Forward handles POST /v1/sessions/{id}/forward
func (h *handler) Forward(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(s *session.Session) (SessionView, error) {
		moved := s.Forward()
		v := newSessionView(s)
		v.Moved = &moved
		return v, nil
	})
}

// update loads a session, applies fn and saves the result.
// A failed fn leaves the stored session untouched.
func (h *handler) update(w http.ResponseWriter, r *http.Request, fn func(*session.Session) (SessionView, error)) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	view, err := fn(s)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.sessions.Put(s); err != nil {
		h.log.Errorf("save session: %v", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Finalize handles POST /v1/sessions/{id}/finalize.
// The session is discarded once it has been scored.
func (h *handler) Finalize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, err := h.sessions.Get(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := s.Finalize()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.sessions.Delete(id); err != nil {
		h.log.Warnf("discard session %s: %v", id, err)
	}
	h.respondResult(w, r, result)
}

// Assess handles POST /v1/assessments, scoring a full answer set in one call
func (h *handler) Assess(w http.ResponseWriter, r *http.Request) {
	var f session.AnswerFile
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f.NoticeType = model.ParseNoticeType(string(f.NoticeType))

	result, err := session.NewReplayer(h.schemas).Assess(f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondResult(w, r, result)
}

func (h *handler) respondResult(w http.ResponseWriter, r *http.Request, result model.CaseStrengthResult) {
	h.forward(r.Context(), result)

	resp := ResultResponse{Result: result, NextStep: NextStep(result.RecommendationBucket)}
	if wantNarrative(r) && h.narrator != nil && h.narrator.Enabled() {
		resp.Narrative = h.narrator.Narrate(r.Context(), result)
	}
	if !wantContributions(r) {
		resp.Result.Contributions = nil
	}
	writeJSON(w, http.StatusOK, resp)
}

// forward sends the analytics event in the background so a slow collector
// never delays the response. The send outlives the request but not forwardTimeout.
func (h *handler) forward(parent context.Context, result model.CaseStrengthResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), h.forwardTimeout)
	go func() {
		defer cancel()
		analytics.Forward(ctx, h.analytics, result, h.log)
	}()
}

func wantNarrative(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("narrative"))
	return ok
}

func wantContributions(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("contributions"))
	return ok
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrUnknownNoticeType), errors.Is(err, cache.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrOutOfSequenceAnswer), errors.Is(err, session.ErrIncompleteSession):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidAnswer):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
