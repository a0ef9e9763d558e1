package score

import (
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/schema"
)

// Confidence thresholds as a share of questions with a non-neutral answer
const (
	lowConfidenceRatio  = 0.5 // below: low
	highConfidenceRatio = 0.8 // at or above: high
)

// Invariant violations. Sessions only score complete answer sets, so these
// indicate a caller bug rather than bad user input.
var (
	ErrMissingAnswer = errors.New("missing answer")
	ErrForeignAnswer = errors.New("answer for unknown question")
	ErrInvalidAnswer = errors.New("answer outside question domain")
)

// Breakdown is the scoring engine's raw output before classification
type Breakdown struct {
	Score           int                  // 0-100
	Sum             int                  // Signed weight total
	Confidence      model.Confidence
	StrengthFactors []string
	RiskFactors     []string
	Substantive     int // Answers with non-zero weight
	Contributions   []model.Contribution
}

// Scorer calculates case strength from a completed answer set
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate scores an answer set against the schema it was collected with
func (s *Scorer) Calculate(sc schema.Schema, answers model.AnswerSet) (Breakdown, error) {
	// 1. Every answer must belong to the schema
	for id := range answers {
		if _, ok := sc.Question(id); !ok {
			return Breakdown{}, fmt.Errorf("%w: %q", ErrForeignAnswer, id)
		}
	}

	b := Breakdown{
		StrengthFactors: []string{},
		RiskFactors:     []string{},
		Contributions:   make([]model.Contribution, 0, len(sc.Questions)),
	}

	for _, q := range sc.Questions {
		// 2. Resolve the chosen answer's weight
		v, ok := answers[q.ID]
		if !ok {
			return Breakdown{}, fmt.Errorf("%w: %q", ErrMissingAnswer, q.ID)
		}
		choice, ok := q.Resolve(v)
		if !ok {
			return Breakdown{}, fmt.Errorf("%w: %q=%q", ErrInvalidAnswer, q.ID, v)
		}

		// 3. Accumulate
		b.Sum += choice.Weight

		// 4. Partition by sign
		c := model.Contribution{
			QuestionID:      q.ID,
			Answer:          choice.Value,
			AnswerLabel:     choice.Label,
			Weight:          choice.Weight,
			MissingEvidence: choice.MissingEvidence,
		}
		switch {
		case choice.Weight > 0:
			c.Polarity = model.PolarityStrength
			c.Factor = factorLabel(q, choice)
			b.StrengthFactors = append(b.StrengthFactors, c.Factor)
			b.Substantive++
		case choice.Weight < 0:
			c.Polarity = model.PolarityRisk
			c.Factor = factorLabel(q, choice)
			b.RiskFactors = append(b.RiskFactors, c.Factor)
			b.Substantive++
		default:
			c.Polarity = model.PolarityNeutral
		}
		b.Contributions = append(b.Contributions, c)
	}

	// 5. Normalize against the schema's precomputed bounds
	b.Score = Normalize(b.Sum, sc.MinSum, sc.MaxSum)
	b.Confidence = determineConfidence(b.Substantive, len(sc.Questions))

	return b, nil
}

// Evaluate scores an answer set and composes the final result
func (s *Scorer) Evaluate(sc schema.Schema, answers model.AnswerSet) (model.CaseStrengthResult, error) {
	b, err := s.Calculate(sc, answers)
	if err != nil {
		return model.CaseStrengthResult{}, err
	}

	bucket := Classify(b.Score)

	return model.CaseStrengthResult{
		NoticeType:           sc.NoticeType,
		Score:                b.Score,
		Confidence:           b.Confidence,
		StrengthFactors:      b.StrengthFactors,
		RiskFactors:          b.RiskFactors,
		RecommendationBucket: bucket,
		Recommendation:       RecommendationFor(bucket),
		Contributions:        b.Contributions,
	}, nil
}

// Normalize maps a signed weight sum onto 0-100.
// minSum maps to 0, a neutral sum of 0 to 50 and maxSum to 100, linearly on
// each side of zero, so schemas with lopsided weight ranges still agree that
// an all-neutral questionnaire sits at the midpoint.
func Normalize(sum, minSum, maxSum int) int {
	var v float64
	switch {
	case sum >= 0 && maxSum > 0:
		v = 50 + 50*float64(sum)/float64(maxSum)
	case sum < 0 && minSum < 0:
		v = 50 - 50*float64(sum)/float64(minSum)
	default:
		v = 50
	}

	// Schemas edited without revalidation could exceed their bounds
	return clamp(int(math.Round(v)), 0, 100)
}

// determineConfidence derives confidence from how many answers were decisive
func determineConfidence(substantive, total int) model.Confidence {
	if total == 0 {
		return model.ConfidenceLow
	}

	ratio := float64(substantive) / float64(total)
	switch {
	case ratio < lowConfidenceRatio:
		return model.ConfidenceLow
	case ratio >= highConfidenceRatio:
		return model.ConfidenceHigh
	default:
		return model.ConfidenceMedium
	}
}

// factorLabel falls back to "<prompt>: <answer>" when the schema gives no label
func factorLabel(q model.QuestionDefinition, c model.Choice) string {
	if c.Factor != "" {
		return c.Factor
	}
	return fmt.Sprintf("%s: %s", q.Prompt, c.Label)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
