// Package session walks one user through a notice type's questionnaire,
// one question at a time, and hands the completed answers to the scorer.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/schema"
	"github.com/ppiankov/casestrength/internal/score"
)

// Protocol errors. A failed call leaves the session unchanged.
var (
	ErrOutOfSequenceAnswer = errors.New("answer out of sequence")
	ErrInvalidAnswer       = errors.New("invalid answer")
	ErrIncompleteSession   = errors.New("session incomplete")
	ErrCorruptSession      = errors.New("corrupt session")
)

// State is the lifecycle position of a session
type State string

const (
	StateInProgress State = "in_progress"
	StateComplete   State = "complete"
)

// SchemaSource resolves a notice type to its question schema
type SchemaSource interface {
	SchemaFor(t model.NoticeType) (schema.Schema, error)
}

// Progress summarizes how far through the questionnaire a session is
type Progress struct {
	Position int `json:"position"` // 1-based index of the current question, Total when complete
	Answered int `json:"answered"`
	Total    int `json:"total"`
	Percent  int `json:"percent"`
}

// Session is one in-flight questionnaire. It is not safe for concurrent use;
// each session belongs to a single caller.
type Session struct {
	id        string
	schema    schema.Schema // Snapshot taken at Start
	cursor    int
	answers   model.AnswerSet
	startedAt time.Time
	scorer    *score.Scorer
}

// now is swapped in tests
var now = time.Now

// Start opens a session for a notice type at its first question
func Start(src SchemaSource, t model.NoticeType) (*Session, error) {
	sc, err := src.SchemaFor(t)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	return &Session{
		id:        uuid.NewString(),
		schema:    sc.Clone(),
		answers:   make(model.AnswerSet, len(sc.Questions)),
		startedAt: now().UTC(),
		scorer:    score.NewScorer(),
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// NoticeType returns the notice type the session was started for
func (s *Session) NoticeType() model.NoticeType {
	return s.schema.NoticeType
}

// StartedAt returns when the session was opened
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Title returns the schema title, for display
func (s *Session) Title() string {
	return s.schema.Title
}

// CurrentQuestion returns the question at the cursor.
// It returns false once every question has been answered.
func (s *Session) CurrentQuestion() (model.QuestionDefinition, bool) {
	if s.IsComplete() {
		return model.QuestionDefinition{}, false
	}
	return s.schema.Questions[s.cursor].Clone(), true
}

// Answer records the answer to the current question and advances the cursor.
// Answering a question revisited with Back overwrites the earlier answer.
func (s *Session) Answer(questionID string, value model.AnswerValue) error {
	q, ok := s.CurrentQuestion()
	if !ok {
		return fmt.Errorf("%w: %q, questionnaire already complete", ErrOutOfSequenceAnswer, questionID)
	}
	if questionID != q.ID {
		return fmt.Errorf("%w: got %q, want %q", ErrOutOfSequenceAnswer, questionID, q.ID)
	}

	choice, ok := q.Resolve(value)
	if !ok {
		return fmt.Errorf("%w: %q for %q, want %s", ErrInvalidAnswer, value, q.ID, q.DomainSummary())
	}

	s.answers[q.ID] = choice.Value
	s.cursor++
	return nil
}

// Back moves to the previous question, keeping every recorded answer.
// At the first question, and once complete, it does nothing.
func (s *Session) Back() {
	if s.cursor > 0 && !s.IsComplete() {
		s.cursor--
	}
}

// Forward re-advances over a question that already has an answer.
// It never moves onto the terminal position; only Answer completes a session.
func (s *Session) Forward() bool {
	if s.IsComplete() || s.cursor+1 >= len(s.schema.Questions) {
		return false
	}
	if _, ok := s.answers[s.schema.Questions[s.cursor].ID]; !ok {
		return false
	}
	s.cursor++
	return true
}

// PreviousAnswer returns the answer recorded for a question, for pre-filling
func (s *Session) PreviousAnswer(questionID string) (model.AnswerValue, bool) {
	v, ok := s.answers[questionID]
	return v, ok
}

// Answers returns a copy of the recorded answers
func (s *Session) Answers() model.AnswerSet {
	return s.answers.Clone()
}

// Progress reports the cursor position and answer count
func (s *Session) Progress() Progress {
	total := len(s.schema.Questions)
	p := Progress{
		Position: s.cursor + 1,
		Answered: len(s.answers),
		Total:    total,
	}
	if p.Position > total {
		p.Position = total
	}
	if total > 0 {
		p.Percent = p.Answered * 100 / total
	}
	return p
}

// State reports whether the questionnaire is still being answered
func (s *Session) State() State {
	if s.IsComplete() {
		return StateComplete
	}
	return StateInProgress
}

// IsComplete reports whether the cursor has passed the last question
func (s *Session) IsComplete() bool {
	return s.cursor >= len(s.schema.Questions)
}

// Finalize scores the completed questionnaire.
// It does not change the session, so repeated calls return equal results.
func (s *Session) Finalize() (model.CaseStrengthResult, error) {
	if !s.IsComplete() {
		p := s.Progress()
		return model.CaseStrengthResult{}, fmt.Errorf("%w: answered %d of %d questions", ErrIncompleteSession, p.Answered, p.Total)
	}

	result, err := s.scorer.Evaluate(s.schema, s.answers.Clone())
	if err != nil {
		return model.CaseStrengthResult{}, fmt.Errorf("finalize: %w", err)
	}
	return result, nil
}

// snapshot is the persisted form of a session
type snapshot struct {
	ID        string          `json:"id"`
	Schema    schema.Schema   `json:"schema"`
	Cursor    int             `json:"cursor"`
	Answers   model.AnswerSet `json:"answers"`
	StartedAt time.Time       `json:"started_at"`
}

// MarshalJSON serializes the session together with its schema snapshot
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{
		ID:        s.id,
		Schema:    s.schema,
		Cursor:    s.cursor,
		Answers:   s.answers,
		StartedAt: s.startedAt,
	})
}

// UnmarshalJSON restores a session, rejecting any state Answer could not have produced
func (s *Session) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}

	restored, err := fromSnapshot(snap)
	if err != nil {
		return err
	}
	*s = *restored
	return nil
}

// Restore decodes a session persisted with MarshalJSON
func Restore(data []byte) (*Session, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	return fromSnapshot(snap)
}

func fromSnapshot(snap snapshot) (*Session, error) {
	if snap.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrCorruptSession)
	}

	sc, err := schema.Validate(snap.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}

	total := len(sc.Questions)
	if snap.Cursor < 0 || snap.Cursor > total {
		return nil, fmt.Errorf("%w: cursor %d outside [0, %d]", ErrCorruptSession, snap.Cursor, total)
	}

	// Answers must form a prefix of the questionnaire reaching at least the cursor
	answers := make(model.AnswerSet, len(snap.Answers))
	prefix := 0
	for i, q := range sc.Questions {
		v, ok := snap.Answers[q.ID]
		if !ok {
			break
		}
		choice, ok := q.Resolve(v)
		if !ok {
			return nil, fmt.Errorf("%w: answer %q for %q outside its domain", ErrCorruptSession, v, q.ID)
		}
		answers[q.ID] = choice.Value
		prefix = i + 1
	}
	if len(answers) != len(snap.Answers) {
		return nil, fmt.Errorf("%w: answers outside the answered prefix", ErrCorruptSession)
	}
	if snap.Cursor > prefix {
		return nil, fmt.Errorf("%w: cursor %d beyond %d answered questions", ErrCorruptSession, snap.Cursor, prefix)
	}

	return &Session{
		id:        snap.ID,
		schema:    sc,
		cursor:    snap.Cursor,
		answers:   answers,
		startedAt: snap.StartedAt,
		scorer:    score.NewScorer(),
	}, nil
}
