package orchestratornode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

// FetchContext loads the turn snapshot. A failure aborts the turn.
func FetchContext(
	ctx context.Context,
	in *GraphState,
	store contractx.ContextStore,
	timeout time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	snap, err := store.FetchContext(ctx, in.In.ContactID, in.In.CompanyID)
	if err != nil {
		return nil, err
	}
	in.Snapshot = snap
	return in, nil
}
