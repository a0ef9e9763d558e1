package model

// Confidence is how decisive (non-neutral) the answers were, independent of the score
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Bucket is the discrete recommendation derived from the score
type Bucket string

const (
	BucketWeak     Bucket = "weak"     // Seek an alternative remedy
	BucketModerate Bucket = "moderate" // Consult a lawyer first
	BucketStrong   Bucket = "strong"   // Pursue a legal notice
)

// Rank orders buckets from weakest to strongest
func (b Bucket) Rank() int {
	switch b {
	case BucketWeak:
		return 0
	case BucketModerate:
		return 1
	case BucketStrong:
		return 2
	default:
		return -1
	}
}

// Polarity says which way an answer moved the score
type Polarity string

const (
	PolarityStrength Polarity = "strength"
	PolarityRisk     Polarity = "risk"
	PolarityNeutral  Polarity = "neutral"
)

// CaseStrengthResult is the engine's output for one completed questionnaire
type CaseStrengthResult struct {
	NoticeType           NoticeType     `json:"notice_type" yaml:"notice_type"`
	Score                int            `json:"score" yaml:"score"` // 0-100
	Confidence           Confidence     `json:"confidence" yaml:"confidence"`
	StrengthFactors      []string       `json:"strength_factors" yaml:"strength_factors"`
	RiskFactors          []string       `json:"risk_factors" yaml:"risk_factors"`
	RecommendationBucket Bucket         `json:"recommendation_bucket" yaml:"recommendation_bucket"`
	Recommendation       Recommendation `json:"recommendation" yaml:"recommendation"`
	Contributions        []Contribution `json:"contributions,omitempty" yaml:"contributions,omitempty"`
}

// Recommendation is the user-facing messaging attached to a bucket
type Recommendation struct {
	Headline  string       `json:"headline" yaml:"headline"`
	Summary   string       `json:"summary" yaml:"summary"`
	Primary   CallToAction `json:"primary" yaml:"primary"`
	Secondary CallToAction `json:"secondary" yaml:"secondary"`
}

// CallToAction is a button on the result screen
type CallToAction struct {
	Label  string `json:"label" yaml:"label"`
	Action string `json:"action" yaml:"action"` // Machine-readable target, e.g. "send-notice"
}

// Contribution records how one answer moved the score
type Contribution struct {
	QuestionID      string      `json:"question_id" yaml:"question_id"`
	Answer          AnswerValue `json:"answer" yaml:"answer"`
	AnswerLabel     string      `json:"answer_label,omitempty" yaml:"answer_label,omitempty"`
	Weight          int         `json:"weight" yaml:"weight"`
	Polarity        Polarity    `json:"polarity" yaml:"polarity"`
	Factor          string      `json:"factor,omitempty" yaml:"factor,omitempty"`
	MissingEvidence bool        `json:"missing_evidence,omitempty" yaml:"missing_evidence,omitempty"`
}
