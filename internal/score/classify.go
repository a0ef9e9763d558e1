package score

import "github.com/ppiankov/casestrength/internal/model"

// Bucket lower bounds, inclusive
const (
	ModerateThreshold = 40
	StrongThreshold   = 60
)

// Call-to-action targets
const (
	ActionSendNotice   = "send-notice"
	ActionTalkToLawyer = "talk-to-lawyer"
	ActionAlternatives = "explore-alternatives"
	ActionBookConsult  = "book-consultation"
)

// Classify maps a 0-100 score to its recommendation bucket
func Classify(score int) model.Bucket {
	switch {
	case score >= StrongThreshold:
		return model.BucketStrong
	case score >= ModerateThreshold:
		return model.BucketModerate
	default:
		return model.BucketWeak
	}
}

var recommendations = map[model.Bucket]model.Recommendation{
	model.BucketStrong: {
		Headline: "Your case looks strong",
		Summary:  "Your answers point to a well documented claim. A formal legal notice is a sensible next step.",
		Primary:  model.CallToAction{Label: "Send a legal notice", Action: ActionSendNotice},
		Secondary: model.CallToAction{
			Label:  "Talk to a lawyer",
			Action: ActionTalkToLawyer,
		},
	},
	model.BucketModerate: {
		Headline: "Your case has merit but some gaps",
		Summary:  "Some answers weaken your position. Have a lawyer review the gaps before sending a notice.",
		Primary:  model.CallToAction{Label: "Consult a lawyer first", Action: ActionTalkToLawyer},
		Secondary: model.CallToAction{
			Label:  "Send a legal notice",
			Action: ActionSendNotice,
		},
	},
	model.BucketWeak: {
		Headline: "A legal notice may not be your best option",
		Summary:  "Key evidence or timing is missing. Mediation, negotiation or a consumer forum may serve you better.",
		Primary:  model.CallToAction{Label: "Explore alternative remedies", Action: ActionAlternatives},
		Secondary: model.CallToAction{
			Label:  "Book a consultation",
			Action: ActionBookConsult,
		},
	},
}

// RecommendationFor returns the messaging for a bucket.
// Unknown buckets get the weak messaging.
func RecommendationFor(b model.Bucket) model.Recommendation {
	if r, ok := recommendations[b]; ok {
		return r
	}
	return recommendations[model.BucketWeak]
}
