package api

import "github.com/ppiankov/casestrength/internal/model"

// Destinations a finished assessment routes the user to
const (
	StepNoticeDrafting      = "notice-drafting"
	StepConsultationBooking = "consultation-booking"
)

// NextStep picks where the user goes after seeing their result.
// Only strong cases go straight to drafting a notice.
func NextStep(b model.Bucket) string {
	if b == model.BucketStrong {
		return StepNoticeDrafting
	}
	return StepConsultationBooking
}
