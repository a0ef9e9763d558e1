package score

import (
	"testing"

	"github.com/ppiankov/casestrength/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  model.Bucket
	}{
		{0, model.BucketWeak},
		{39, model.BucketWeak},
		{40, model.BucketModerate},
		{59, model.BucketModerate},
		{60, model.BucketStrong},
		{100, model.BucketStrong},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %d", tt.score)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	for s := 0; s < 100; s++ {
		assert.LessOrEqual(t, Classify(s).Rank(), Classify(s+1).Rank(), "score %d", s)
	}
}

func TestRecommendationFor(t *testing.T) {
	strong := RecommendationFor(model.BucketStrong)
	assert.Equal(t, ActionSendNotice, strong.Primary.Action)
	assert.Equal(t, ActionTalkToLawyer, strong.Secondary.Action)

	moderate := RecommendationFor(model.BucketModerate)
	assert.Equal(t, "Consult a lawyer first", moderate.Primary.Label)

	weak := RecommendationFor(model.BucketWeak)
	assert.Equal(t, ActionAlternatives, weak.Primary.Action)

	assert.Equal(t, weak, RecommendationFor("unknown"))

	for _, b := range []model.Bucket{model.BucketWeak, model.BucketModerate, model.BucketStrong} {
		r := RecommendationFor(b)
		assert.NotEmpty(t, r.Headline, b)
		assert.NotEmpty(t, r.Summary, b)
	}
}
