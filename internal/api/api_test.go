package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/casestrength/internal/analytics"
	"github.com/ppiankov/casestrength/internal/cache"
	"github.com/ppiankov/casestrength/internal/logger"
	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/schema"
	"github.com/ppiankov/casestrength/internal/worker"
)

type recordingSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (s *recordingSink) Send(_ context.Context, e analytics.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// waitForEvents waits for n events forwarded in the background
func (s *recordingSink) waitForEvents(t *testing.T, n int) {
	t.Helper()
	assert.Eventually(t, func() bool { return s.count() == n }, time.Second, 5*time.Millisecond)
}

// blockingSink holds every send until its context ends
type blockingSink struct {
	done chan error
}

func (s *blockingSink) Send(ctx context.Context, _ analytics.Event) error {
	<-ctx.Done()
	s.done <- ctx.Err()
	return ctx.Err()
}

func newTestRouter(t *testing.T, limiter *worker.Limiter) (http.Handler, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	return NewRouter(&Container{
		Schemas:   schema.MustLoadBuiltin(),
		Sessions:  cache.NewSessionStore(cache.NewMemoryCache(time.Minute, 0), time.Minute),
		Analytics: sink,
		Limiter:   limiter,
	}), sink
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func startSession(t *testing.T, h http.Handler, noticeType string) SessionView {
	t.Helper()
	rec := do(t, h, "POST", "/v1/sessions", CreateSessionRequest{NoticeType: noticeType})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v SessionView
	decode(t, rec, &v)
	return v
}

// answerWith answers the current question with the first value whose weight pick accepts
func answerWith(t *testing.T, h http.Handler, v SessionView, pick func(lo, hi, w int) bool) SessionView {
	t.Helper()
	require.NotNil(t, v.Question)
	lo, hi := v.Question.WeightBounds()
	value, ok := v.Question.Example(func(w int) bool { return pick(lo, hi, w) })
	require.True(t, ok)

	rec := do(t, h, "POST", "/v1/sessions/"+v.ID+"/answers", AnswerRequest{QuestionID: v.Question.ID, Value: value})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var next SessionView
	decode(t, rec, &next)
	return next
}

func best(_, hi, w int) bool  { return w == hi }
func worst(lo, _, w int) bool { return w == lo }

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := do(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListNoticeTypes(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := do(t, h, "GET", "/v1/notice-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		NoticeTypes []NoticeTypeSummary `json:"notice_types"`
	}
	decode(t, rec, &body)
	assert.Len(t, body.NoticeTypes, len(model.KnownNoticeTypes()))
	for _, nt := range body.NoticeTypes {
		assert.NotEmpty(t, nt.Title)
		assert.Positive(t, nt.Questions)
	}
}

func TestGetQuestions(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rec := do(t, h, "GET", "/v1/notice-types/money-recovery/questions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sc schema.Schema
	decode(t, rec, &sc)
	assert.Equal(t, model.NoticeMoneyRecovery, sc.NoticeType)
	assert.Len(t, sc.Questions, 10)

	rec = do(t, h, "GET", "/v1/notice-types/defamation/questions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionFlow_StrongCase(t *testing.T) {
	h, sink := newTestRouter(t, nil)

	v := startSession(t, h, "Money Recovery")
	assert.Equal(t, model.NoticeMoneyRecovery, v.NoticeType)
	assert.Equal(t, "in_progress", string(v.State))
	assert.Equal(t, 1, v.Progress.Position)

	for v.Question != nil {
		v = answerWith(t, h, v, best)
	}
	assert.Equal(t, "complete", string(v.State))
	assert.Equal(t, 100, v.Progress.Percent)

	rec := do(t, h, "POST", "/v1/sessions/"+v.ID+"/finalize", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ResultResponse
	decode(t, rec, &resp)
	assert.Equal(t, 100, resp.Result.Score)
	assert.Equal(t, model.BucketStrong, resp.Result.RecommendationBucket)
	assert.Equal(t, StepNoticeDrafting, resp.NextStep)
	assert.Nil(t, resp.Result.Contributions)
	sink.waitForEvents(t, 1)

	// Finalized sessions are discarded
	rec = do(t, h, "GET", "/v1/sessions/"+v.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionFlow_WeakCaseRoutesToConsultation(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	v := startSession(t, h, "money-recovery")
	for v.Question != nil {
		v = answerWith(t, h, v, worst)
	}

	rec := do(t, h, "POST", "/v1/sessions/"+v.ID+"/finalize?contributions=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ResultResponse
	decode(t, rec, &resp)
	assert.Equal(t, 0, resp.Result.Score)
	assert.Equal(t, StepConsultationBooking, resp.NextStep)
	assert.Len(t, resp.Result.Contributions, 10)
}

func TestSession_ErrorMapping(t *testing.T) {
	h, sink := newTestRouter(t, nil)
	v := startSession(t, h, "money-recovery")

	rec := do(t, h, "POST", "/v1/sessions/"+v.ID+"/answers", AnswerRequest{QuestionID: "amount", Value: "500"})
	assert.Equal(t, http.StatusConflict, rec.Code, "out of sequence")

	rec = do(t, h, "POST", "/v1/sessions/"+v.ID+"/answers", AnswerRequest{QuestionID: v.Question.ID, Value: "gift"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "invalid answer")

	rec = do(t, h, "POST", "/v1/sessions/"+v.ID+"/finalize", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "incomplete")

	rec = do(t, h, "GET", "/v1/sessions/no-such-session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "POST", "/v1/sessions", CreateSessionRequest{NoticeType: "defamation"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest("POST", "/v1/sessions", bytes.NewBufferString("{"))
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	// Failed calls never advanced the stored session
	rec = do(t, h, "GET", "/v1/sessions/"+v.ID, nil)
	var after SessionView
	decode(t, rec, &after)
	assert.Equal(t, 0, after.Progress.Answered)
	assert.Equal(t, v.Question.ID, after.Question.ID)
	assert.Zero(t, sink.count())
}

func TestSession_BackAndForward(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	v := startSession(t, h, "money-recovery")
	first := v.Question.ID
	v = answerWith(t, h, v, best)

	rec := do(t, h, "POST", "/v1/sessions/"+v.ID+"/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var back SessionView
	decode(t, rec, &back)
	assert.Equal(t, first, back.Question.ID)
	assert.NotEmpty(t, back.PreviousAnswer)
	assert.Equal(t, 1, back.Progress.Answered)

	rec = do(t, h, "POST", "/v1/sessions/"+v.ID+"/forward", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fwd SessionView
	decode(t, rec, &fwd)
	require.NotNil(t, fwd.Moved)
	assert.True(t, *fwd.Moved)
	assert.Equal(t, v.Question.ID, fwd.Question.ID)

	rec = do(t, h, "POST", "/v1/sessions/"+v.ID+"/forward", nil)
	decode(t, rec, &fwd)
	assert.False(t, *fwd.Moved, "next question is unanswered")
}

func TestDeleteSession(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	v := startSession(t, h, "employment")

	rec := do(t, h, "DELETE", "/v1/sessions/"+v.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, "GET", "/v1/sessions/"+v.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssess(t *testing.T) {
	h, sink := newTestRouter(t, nil)
	sc, err := schema.MustLoadBuiltin().SchemaFor(model.NoticeChequeBounce)
	require.NoError(t, err)

	answers := model.AnswerSet{}
	for _, q := range sc.Questions {
		_, hi := q.WeightBounds()
		v, ok := q.Example(func(w int) bool { return w == hi })
		require.True(t, ok)
		answers[q.ID] = v
	}

	rec := do(t, h, "POST", "/v1/assessments", map[string]interface{}{"notice_type": "Cheque Bounce", "answers": answers})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ResultResponse
	decode(t, rec, &resp)
	assert.Equal(t, 100, resp.Result.Score)
	assert.Equal(t, StepNoticeDrafting, resp.NextStep)
	sink.waitForEvents(t, 1)

	delete(answers, sc.Questions[len(sc.Questions)-1].ID)
	rec = do(t, h, "POST", "/v1/assessments", map[string]interface{}{"notice_type": "cheque-bounce", "answers": answers})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h, _ := newTestRouter(t, worker.NewLimiter(0.001, 1))

	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/health", nil).Code)
	rec := do(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// A forwarded address from an untrusted peer does not buy a new budget
	spoofed := httptest.NewRequest("GET", "/health", nil)
	spoofed.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, spoofed)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different peer has its own budget
	other := httptest.NewRequest("GET", "/health", nil)
	other.RemoteAddr = "198.51.100.20:4000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_BehindTrustedProxy(t *testing.T) {
	h := NewRouter(&Container{
		Schemas:        schema.MustLoadBuiltin(),
		Sessions:       cache.NewSessionStore(cache.NewMemoryCache(time.Minute, 0), time.Minute),
		Limiter:        worker.NewLimiter(0.001, 1),
		TrustedProxies: []string{"10.0.0.0/8"},
	})

	viaProxy := func(forwardedFor string) int {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.1.2.3:443"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, viaProxy("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, viaProxy("203.0.113.1"))
	assert.Equal(t, http.StatusOK, viaProxy("203.0.113.2"))
}

func TestAssess_DoesNotWaitForAnalytics(t *testing.T) {
	sink := &blockingSink{done: make(chan error, 1)}
	h := NewRouter(&Container{
		Schemas:   schema.MustLoadBuiltin(),
		Sessions:  cache.NewSessionStore(cache.NewMemoryCache(time.Minute, 0), time.Minute),
		Analytics: sink,
	})

	answers := model.AnswerSet{}
	sc, err := schema.MustLoadBuiltin().SchemaFor(model.NoticeMoneyRecovery)
	require.NoError(t, err)
	for _, q := range sc.Questions {
		v, ok := q.Example(func(w int) bool { return w == 0 })
		require.True(t, ok, q.ID)
		answers[q.ID] = v
	}

	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]interface{}{"notice_type": "money-recovery", "answers": answers}))
	req := httptest.NewRequest("POST", "/v1/assessments", &buf).WithContext(ctx)

	start := time.Now()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// The send outlives the request
	cancel()
	select {
	case err := <-sink.done:
		t.Fatalf("send ended with the request: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandler_ForwardIsBounded(t *testing.T) {
	sink := &blockingSink{done: make(chan error, 1)}
	h := &handler{analytics: sink, log: logger.Nop(), forwardTimeout: 20 * time.Millisecond}

	h.forward(context.Background(), model.CaseStrengthResult{NoticeType: model.NoticeMoneyRecovery})

	select {
	case err := <-sink.done:
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	case <-time.After(time.Second):
		t.Fatal("forward was not bounded by its timeout")
	}
}

func TestCORS(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := do(t, h, "OPTIONS", "/v1/sessions", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNextStep(t *testing.T) {
	assert.Equal(t, StepNoticeDrafting, NextStep(model.BucketStrong))
	assert.Equal(t, StepConsultationBooking, NextStep(model.BucketModerate))
	assert.Equal(t, StepConsultationBooking, NextStep(model.BucketWeak))
}

func TestClientIP(t *testing.T) {
	proxies, err := parseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.10 ", ""})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	assert.Equal(t, "198.51.100.7", clientIP(req, proxies), "untrusted peer")
	assert.Equal(t, "198.51.100.7", clientIP(req, nil))

	req.RemoteAddr = "10.0.0.2:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.1, 198.51.100.50, 192.0.2.10")
	assert.Equal(t, "198.51.100.50", clientIP(req, proxies), "nearest untrusted hop")

	req.Header.Set("X-Forwarded-For", "10.9.9.9")
	assert.Equal(t, "10.9.9.9", clientIP(req, proxies), "every hop trusted")

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.2", clientIP(req, proxies))

	_, err = parseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = parseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}
