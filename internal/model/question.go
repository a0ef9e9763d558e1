package model

import (
	"fmt"
	"strconv"
	"strings"
)

// QuestionDefinition is one step of a notice type's questionnaire
type QuestionDefinition struct {
	ID      string         `json:"id" yaml:"id"`
	Prompt  string         `json:"prompt" yaml:"prompt"`
	Help    string         `json:"help,omitempty" yaml:"help,omitempty"`
	Kind    AnswerKind     `json:"kind" yaml:"kind"`
	Options []AnswerOption `json:"options,omitempty" yaml:"options,omitempty"` // boolean and choice
	Range   *NumericRange  `json:"range,omitempty" yaml:"range,omitempty"`     // range only
}

// AnswerOption is one selectable answer with its scoring weight
type AnswerOption struct {
	Value           AnswerValue `json:"value" yaml:"value"`
	Label           string      `json:"label" yaml:"label"`
	Weight          int         `json:"weight" yaml:"weight"`                                           // >0 strength, <0 risk
	Factor          string      `json:"factor,omitempty" yaml:"factor,omitempty"`                       // Explanation shown in results
	MissingEvidence bool        `json:"missing_evidence,omitempty" yaml:"missing_evidence,omitempty"` // Answer admits a gap in proof
}

// NumericRange is the domain of a range question, split into weighted bands
type NumericRange struct {
	Min   int    `json:"min" yaml:"min"`
	Max   int    `json:"max" yaml:"max"`
	Unit  string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Bands []Band `json:"bands" yaml:"bands"`
}

// Band is an inclusive sub-range of a NumericRange sharing one weight
type Band struct {
	Min             int    `json:"min" yaml:"min"`
	Max             int    `json:"max" yaml:"max"`
	Label           string `json:"label" yaml:"label"`
	Weight          int    `json:"weight" yaml:"weight"`
	Factor          string `json:"factor,omitempty" yaml:"factor,omitempty"`
	MissingEvidence bool   `json:"missing_evidence,omitempty" yaml:"missing_evidence,omitempty"`
}

// Choice is the scoring outcome of one resolved answer
type Choice struct {
	Value           AnswerValue
	Label           string
	Weight          int
	Factor          string
	MissingEvidence bool
}

// Normalize canonicalizes an answer for this question's kind.
// Booleans accept true/false/y/n in any case, ranges accept surrounding whitespace.
func (q QuestionDefinition) Normalize(v AnswerValue) AnswerValue {
	s := strings.TrimSpace(string(v))
	switch q.Kind {
	case KindBoolean:
		switch strings.ToLower(s) {
		case "yes", "y", "true":
			return AnswerYes
		case "no", "n", "false":
			return AnswerNo
		}
	case KindRange:
		if n, err := strconv.Atoi(s); err == nil {
			return IntAnswer(n)
		}
	}
	return AnswerValue(s)
}

// Resolve maps an answer to its weight and factor.
// It reports false when the value is outside the answer domain.
func (q QuestionDefinition) Resolve(v AnswerValue) (Choice, bool) {
	v = q.Normalize(v)

	switch q.Kind {
	case KindBoolean, KindChoice:
		for _, opt := range q.Options {
			if opt.Value == v {
				return Choice{
					Value:           opt.Value,
					Label:           opt.Label,
					Weight:          opt.Weight,
					Factor:          opt.Factor,
					MissingEvidence: opt.MissingEvidence,
				}, true
			}
		}
	case KindRange:
		if q.Range == nil {
			return Choice{}, false
		}
		n, err := strconv.Atoi(string(v))
		if err != nil || n < q.Range.Min || n > q.Range.Max {
			return Choice{}, false
		}
		for _, b := range q.Range.Bands {
			if n >= b.Min && n <= b.Max {
				return Choice{
					Value:           v,
					Label:           b.Label,
					Weight:          b.Weight,
					Factor:          b.Factor,
					MissingEvidence: b.MissingEvidence,
				}, true
			}
		}
	}

	return Choice{}, false
}

// WeightBounds returns the lowest and highest weight any answer can produce
func (q QuestionDefinition) WeightBounds() (lo, hi int) {
	weights := q.weights()
	if len(weights) == 0 {
		return 0, 0
	}
	lo, hi = weights[0], weights[0]
	for _, w := range weights[1:] {
		if w < lo {
			lo = w
		}
		if w > hi {
			hi = w
		}
	}
	return lo, hi
}

// HasNeutral reports whether some answer carries zero weight
func (q QuestionDefinition) HasNeutral() bool {
	for _, w := range q.weights() {
		if w == 0 {
			return true
		}
	}
	return false
}

// Example returns the first answer whose weight satisfies pick, in domain order.
// Range questions answer with the lower bound of the matching band.
func (q QuestionDefinition) Example(pick func(w int) bool) (AnswerValue, bool) {
	switch q.Kind {
	case KindBoolean, KindChoice:
		for _, opt := range q.Options {
			if pick(opt.Weight) {
				return opt.Value, true
			}
		}
	case KindRange:
		if q.Range == nil {
			return "", false
		}
		for _, b := range q.Range.Bands {
			if pick(b.Weight) {
				return IntAnswer(b.Min), true
			}
		}
	}
	return "", false
}

// DomainSummary describes the legal answers, for error messages and prompts
func (q QuestionDefinition) DomainSummary() string {
	switch q.Kind {
	case KindRange:
		if q.Range == nil {
			return "integer"
		}
		if q.Range.Unit != "" {
			return fmt.Sprintf("integer %d-%d (%s)", q.Range.Min, q.Range.Max, q.Range.Unit)
		}
		return fmt.Sprintf("integer %d-%d", q.Range.Min, q.Range.Max)
	default:
		values := make([]string, len(q.Options))
		for i, opt := range q.Options {
			values[i] = string(opt.Value)
		}
		return strings.Join(values, ", ")
	}
}

func (q QuestionDefinition) weights() []int {
	var out []int
	switch q.Kind {
	case KindBoolean, KindChoice:
		for _, opt := range q.Options {
			out = append(out, opt.Weight)
		}
	case KindRange:
		if q.Range != nil {
			for _, b := range q.Range.Bands {
				out = append(out, b.Weight)
			}
		}
	}
	return out
}

// Clone returns a deep copy so a snapshot cannot alias registry data
func (q QuestionDefinition) Clone() QuestionDefinition {
	out := q
	if q.Options != nil {
		out.Options = append([]AnswerOption(nil), q.Options...)
	}
	if q.Range != nil {
		r := *q.Range
		r.Bands = append([]Band(nil), q.Range.Bands...)
		out.Range = &r
	}
	return out
}
