package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/casestrength/internal/model"
)

// AnswerFile is a saved questionnaire: a notice type and one answer per question.
// JSON documents decode too, since JSON is valid YAML.
type AnswerFile struct {
	NoticeType model.NoticeType `json:"notice_type" yaml:"notice_type"`
	Answers    model.AnswerSet  `json:"answers" yaml:"answers"`
}

// DecodeAnswerFile parses an answer file
func DecodeAnswerFile(r io.Reader) (AnswerFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f AnswerFile
	if err := dec.Decode(&f); err != nil {
		return AnswerFile{}, fmt.Errorf("decode answer file: %w", err)
	}
	f.NoticeType = model.ParseNoticeType(string(f.NoticeType))
	return f, nil
}

// LoadAnswerFile reads and parses an answer file from disk
func LoadAnswerFile(path string) (AnswerFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return AnswerFile{}, fmt.Errorf("open answer file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return DecodeAnswerFile(file)
}

// Replay feeds saved answers through a new session in question order,
// so a replayed assessment obeys exactly the rules of an interactive one.
// The returned session is complete when err is nil.
func Replay(src SchemaSource, f AnswerFile) (*Session, error) {
	s, err := Start(src, f.NoticeType)
	if err != nil {
		return nil, err
	}

	for {
		q, ok := s.CurrentQuestion()
		if !ok {
			break
		}
		v, ok := f.Answers[q.ID]
		if !ok {
			p := s.Progress()
			return s, fmt.Errorf("%w: no answer for %q (question %d of %d)", ErrIncompleteSession, q.ID, p.Position, p.Total)
		}
		if err := s.Answer(q.ID, v); err != nil {
			return s, err
		}
	}

	if extra := unknownAnswers(s, f.Answers); len(extra) > 0 {
		return s, fmt.Errorf("%w: no such questions %v", ErrOutOfSequenceAnswer, extra)
	}
	return s, nil
}

func unknownAnswers(s *Session, answers model.AnswerSet) []string {
	var extra []string
	for id := range answers {
		if _, ok := s.schema.Question(id); !ok {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return extra
}

// Replayer scores answer files against a schema source
type Replayer struct {
	src SchemaSource
}

// NewReplayer creates a replayer backed by src
func NewReplayer(src SchemaSource) *Replayer {
	return &Replayer{src: src}
}

// Assess replays and finalizes one answer set
func (r *Replayer) Assess(f AnswerFile) (model.CaseStrengthResult, error) {
	s, err := Replay(r.src, f)
	if err != nil {
		return model.CaseStrengthResult{}, err
	}
	return s.Finalize()
}

// ReplayFile loads, replays and finalizes the answer file at path
func (r *Replayer) ReplayFile(ctx context.Context, path string) (model.CaseStrengthResult, error) {
	if err := ctx.Err(); err != nil {
		return model.CaseStrengthResult{}, err
	}

	f, err := LoadAnswerFile(path)
	if err != nil {
		return model.CaseStrengthResult{}, err
	}
	return r.Assess(f)
}
