package llm

import (
	"context"

	"github.com/ppiankov/casestrength/internal/logger"
	"github.com/ppiankov/casestrength/internal/model"
)

// Narrator wraps an optional provider; with none configured it returns no text
type Narrator struct {
	provider Provider
	log      logger.Logger
}

// NewNarrator builds a narrator from config
func NewNarrator(config Config, log logger.Logger) (*Narrator, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Narrator{provider: provider, log: log}, nil
}

// NewNarratorWithProvider wraps an existing provider
func NewNarratorWithProvider(provider Provider, log logger.Logger) *Narrator {
	return &Narrator{provider: provider, log: log}
}

// Enabled reports whether a provider is configured
func (n *Narrator) Enabled() bool {
	return n != nil && n.provider != nil
}

// Narrate returns narrative text for a result, or "" when disabled or on failure.
// Failures are logged; a narrative is never required to show a result.
func (n *Narrator) Narrate(ctx context.Context, result model.CaseStrengthResult) string {
	if !n.Enabled() {
		return ""
	}

	resp, err := n.provider.Narrate(ctx, NarrateRequest{Result: result})
	if err != nil {
		n.log.Warnf("narrative (%s): %v", n.provider.Name(), err)
		return ""
	}

	n.log.Debugf("narrative (%s, %s): %d tokens", n.provider.Name(), resp.Model, resp.TokensUsed)
	return resp.Text
}
