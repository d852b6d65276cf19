package llm

import (
	"context"

	"github.com/zivvlabs/token-triage/internal/entity"
)

// Classifier is the stage-2 collaborator: narrative tags, a 0-100 vibe score,
// a risk level and a short comment for a token snapshot. Implementations must
// fail loudly on malformed upstream responses rather than return partial data.
type Classifier interface {
	Classify(ctx context.Context, token *entity.Token) (entity.Classification, error)
}

// Investigator is the stage-3 collaborator: a free-text research report for a
// token, optionally informed by a prior on-chain signal.
type Investigator interface {
	Investigate(ctx context.Context, token *entity.Token, sig *entity.OnchainSignal) (string, error)
}
