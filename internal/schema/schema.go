// Package schema holds the declarative question banks, one per notice type,
// and validates them before anything is allowed to score against them.
package schema

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/casestrength/internal/model"
)

// Limits enforced on every schema
const (
	MinQuestions = 9  // ~3 minute assessment
	MaxQuestions = 11 // ~4 minute assessment
	MinWeight    = -10
	MaxWeight    = 10
)

// ErrInvalidSchema is matched by every *ValidationError
var ErrInvalidSchema = errors.New("invalid question schema")

// Schema is the ordered question list for one notice type
type Schema struct {
	NoticeType  model.NoticeType           `json:"notice_type" yaml:"notice_type"`
	Title       string                     `json:"title" yaml:"title"`
	Description string                     `json:"description,omitempty" yaml:"description,omitempty"`
	Questions   []model.QuestionDefinition `json:"questions" yaml:"questions"`

	// Achievable weight sums, computed by Validate
	MinSum int `json:"min_sum" yaml:"-"`
	MaxSum int `json:"max_sum" yaml:"-"`
}

// Clone returns a deep copy of the schema
func (s Schema) Clone() Schema {
	out := s
	out.Questions = make([]model.QuestionDefinition, len(s.Questions))
	for i, q := range s.Questions {
		out.Questions[i] = q.Clone()
	}
	return out
}

// Question looks up a question by id
func (s Schema) Question(id string) (model.QuestionDefinition, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.QuestionDefinition{}, false
}

// ValidationError lists every problem found in one schema
type ValidationError struct {
	NoticeType model.NoticeType
	Source     string // File the schema came from, if any
	Problems   []string
}

func (e *ValidationError) Error() string {
	where := string(e.NoticeType)
	if where == "" {
		where = "<unnamed>"
	}
	if e.Source != "" {
		where += " (" + e.Source + ")"
	}
	return fmt.Sprintf("schema %s: %s", where, strings.Join(e.Problems, "; "))
}

// Is lets errors.Is(err, ErrInvalidSchema) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// Validate checks a schema and returns a copy with MinSum/MaxSum filled in.
// A schema that fails any check must not be served.
func Validate(s Schema) (Schema, error) {
	var problems []string
	addf := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if s.NoticeType == "" {
		addf("notice_type is required")
	} else if s.NoticeType != model.ParseNoticeType(string(s.NoticeType)) {
		addf("notice_type %q is not in canonical form", s.NoticeType)
	}

	if n := len(s.Questions); n < MinQuestions || n > MaxQuestions {
		addf("has %d questions, want %d-%d", n, MinQuestions, MaxQuestions)
	}

	seen := make(map[string]bool)
	minSum, maxSum := 0, 0
	for i, q := range s.Questions {
		label := fmt.Sprintf("question %d", i+1)
		if q.ID == "" {
			addf("%s: id is required", label)
		} else {
			label = fmt.Sprintf("question %q", q.ID)
			if seen[q.ID] {
				addf("%s: duplicate id", label)
			}
			seen[q.ID] = true
		}
		if strings.TrimSpace(q.Prompt) == "" {
			addf("%s: prompt is required", label)
		}

		for _, p := range validateDomain(q) {
			addf("%s: %s", label, p)
		}

		lo, hi := q.WeightBounds()
		if lo == 0 && hi == 0 {
			addf("%s: no answer moves the score", label)
		}
		minSum += lo
		maxSum += hi
	}

	if len(problems) == 0 {
		if minSum >= 0 {
			addf("minimum achievable sum %d must be negative", minSum)
		}
		if maxSum <= 0 {
			addf("maximum achievable sum %d must be positive", maxSum)
		}
	}

	if len(problems) > 0 {
		return Schema{}, &ValidationError{NoticeType: s.NoticeType, Problems: problems}
	}

	out := s.Clone()
	out.MinSum = minSum
	out.MaxSum = maxSum
	return out, nil
}

func validateDomain(q model.QuestionDefinition) []string {
	var problems []string

	switch q.Kind {
	case model.KindBoolean:
		if q.Range != nil {
			problems = append(problems, "boolean question must not declare a range")
		}
		values := make([]string, 0, len(q.Options))
		for _, opt := range q.Options {
			values = append(values, string(opt.Value))
		}
		sort.Strings(values)
		if strings.Join(values, ",") != "no,yes" {
			problems = append(problems, fmt.Sprintf("boolean options must be exactly yes and no, got [%s]", strings.Join(values, ", ")))
		}
		problems = append(problems, validateOptions(q.Options)...)

	case model.KindChoice:
		if q.Range != nil {
			problems = append(problems, "choice question must not declare a range")
		}
		if len(q.Options) < 2 {
			problems = append(problems, fmt.Sprintf("choice question needs at least 2 options, got %d", len(q.Options)))
		}
		seen := make(map[model.AnswerValue]bool)
		for _, opt := range q.Options {
			if opt.Value == "" {
				problems = append(problems, "option value is required")
				continue
			}
			if opt.Value != model.AnswerValue(strings.TrimSpace(string(opt.Value))) {
				problems = append(problems, fmt.Sprintf("option %q has surrounding whitespace", opt.Value))
			}
			if seen[opt.Value] {
				problems = append(problems, fmt.Sprintf("duplicate option %q", opt.Value))
			}
			seen[opt.Value] = true
		}
		problems = append(problems, validateOptions(q.Options)...)

	case model.KindRange:
		if len(q.Options) > 0 {
			problems = append(problems, "range question must not declare options")
		}
		if q.Range == nil {
			problems = append(problems, "range question needs a range")
			break
		}
		problems = append(problems, validateRange(*q.Range)...)

	default:
		problems = append(problems, fmt.Sprintf("unknown answer kind %q", q.Kind))
	}

	return problems
}

func validateOptions(opts []model.AnswerOption) []string {
	var problems []string
	for _, opt := range opts {
		if opt.Label == "" {
			problems = append(problems, fmt.Sprintf("option %q: label is required", opt.Value))
		}
		if p := checkWeight(opt.Weight, opt.MissingEvidence); p != "" {
			problems = append(problems, fmt.Sprintf("option %q: %s", opt.Value, p))
		}
	}
	return problems
}

func validateRange(r model.NumericRange) []string {
	var problems []string

	if r.Min >= r.Max {
		return append(problems, fmt.Sprintf("range min %d must be below max %d", r.Min, r.Max))
	}
	if len(r.Bands) == 0 {
		return append(problems, "range needs at least one band")
	}

	// Bands must tile [Min, Max] in order with no gaps or overlaps
	next := r.Min
	for i, b := range r.Bands {
		if b.Min > b.Max {
			problems = append(problems, fmt.Sprintf("band %d: min %d above max %d", i+1, b.Min, b.Max))
		}
		if b.Min != next {
			problems = append(problems, fmt.Sprintf("band %d: starts at %d, want %d", i+1, b.Min, next))
		}
		if b.Label == "" {
			problems = append(problems, fmt.Sprintf("band %d: label is required", i+1))
		}
		if p := checkWeight(b.Weight, b.MissingEvidence); p != "" {
			problems = append(problems, fmt.Sprintf("band %d: %s", i+1, p))
		}
		if b.Max == math.MaxInt {
			next = b.Max
		} else {
			next = b.Max + 1
		}
	}
	if last := r.Bands[len(r.Bands)-1]; last.Max != r.Max {
		problems = append(problems, fmt.Sprintf("bands end at %d, want %d", last.Max, r.Max))
	}

	return problems
}

func checkWeight(w int, missingEvidence bool) string {
	if w < MinWeight || w > MaxWeight {
		return fmt.Sprintf("weight %d outside [%d, %d]", w, MinWeight, MaxWeight)
	}
	if missingEvidence && w >= 0 {
		return fmt.Sprintf("missing-evidence answer must have a negative weight, got %d", w)
	}
	return ""
}
