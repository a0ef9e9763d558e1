package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/schema"
)

func TestReplayer_ReplayFile(t *testing.T) {
	r := NewReplayer(schema.MustLoadBuiltin())

	weak, err := r.ReplayFile(context.Background(), "testdata/money-recovery-weak.yaml")
	require.NoError(t, err)
	assert.Equal(t, 19, weak.Score)
	assert.Equal(t, model.BucketWeak, weak.RecommendationBucket)
	assert.Len(t, weak.RiskFactors, 5)

	strong, err := r.ReplayFile(context.Background(), "testdata/cheque-bounce-strong.json")
	require.NoError(t, err)
	assert.Equal(t, model.NoticeChequeBounce, strong.NoticeType)
	assert.Equal(t, 100, strong.Score)
	assert.Equal(t, model.BucketStrong, strong.RecommendationBucket)
}

func TestReplayer_ReplayFile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReplayer(schema.MustLoadBuiltin()).ReplayFile(ctx, "testdata/money-recovery-weak.yaml")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReplay_Errors(t *testing.T) {
	reg := schema.MustLoadBuiltin()

	base, err := LoadAnswerFile("testdata/money-recovery-weak.yaml")
	require.NoError(t, err)

	t.Run("missing answer", func(t *testing.T) {
		f := AnswerFile{NoticeType: base.NoticeType, Answers: base.Answers.Clone()}
		delete(f.Answers, "due_since")
		s, err := Replay(reg, f)
		assert.True(t, errors.Is(err, ErrIncompleteSession))
		assert.Contains(t, err.Error(), "due_since")
		assert.False(t, s.IsComplete())
	})

	t.Run("invalid answer", func(t *testing.T) {
		f := AnswerFile{NoticeType: base.NoticeType, Answers: base.Answers.Clone()}
		f.Answers["debt_nature"] = "gift"
		_, err := Replay(reg, f)
		assert.True(t, errors.Is(err, ErrInvalidAnswer))
	})

	t.Run("foreign answer", func(t *testing.T) {
		f := AnswerFile{NoticeType: base.NoticeType, Answers: base.Answers.Clone()}
		f.Answers["favourite_colour"] = "blue"
		_, err := Replay(reg, f)
		assert.True(t, errors.Is(err, ErrOutOfSequenceAnswer))
		assert.Contains(t, err.Error(), "favourite_colour")
	})

	t.Run("unknown notice type", func(t *testing.T) {
		_, err := Replay(reg, AnswerFile{NoticeType: "defamation"})
		assert.True(t, errors.Is(err, schema.ErrUnknownNoticeType))
	})
}

func TestDecodeAnswerFile(t *testing.T) {
	f, err := DecodeAnswerFile(strings.NewReader("notice_type: Money_Recovery\nanswers:\n  amount: 750\n  witnesses: no\n"))
	require.NoError(t, err)
	assert.Equal(t, model.NoticeMoneyRecovery, f.NoticeType)
	assert.Equal(t, model.AnswerValue("750"), f.Answers["amount"])
	assert.Equal(t, model.AnswerValue("no"), f.Answers["witnesses"])

	_, err = DecodeAnswerFile(strings.NewReader("notice: x\n"))
	assert.Error(t, err)

	_, err = LoadAnswerFile("testdata/missing.yaml")
	assert.Error(t, err)
}
