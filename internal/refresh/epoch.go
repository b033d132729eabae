package refresh

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var errSuperseded = errors.New("epoch superseded")

// Outcome is how a refresh epoch ended.
type Outcome int

const (
	OutcomeApplied Outcome = iota + 1
	OutcomeSuperseded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeSuperseded:
		return "superseded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// epoch is one fetch cycle. Its results are applied only while it is not
// cancelled and its account is still the active one.
type epoch struct {
	id      string
	seq     uint64
	account common.Address
	// scope is empty for a full refresh, otherwise the asset id.
	scope string

	ctx    context.Context
	cancel context.CancelFunc
}

func newEpoch(seq uint64, account common.Address, scope string) *epoch {
	ctx, cancel := context.WithCancel(context.Background())
	return &epoch{
		id:      uuid.NewString(),
		seq:     seq,
		account: account,
		scope:   scope,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (e *epoch) cancelled() bool {
	return e.ctx.Err() != nil
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "full"
	}
	return scope
}
