package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/fitcoach-backend/internal/data/aggregates"
	"github.com/yungbote/fitcoach-backend/internal/platform/dbctx"
)

// FlakyRunner runs aggregate bodies and fails the commit on demand. With DB
// set the body runs inside a real transaction, so an injected commit failure
// rolls its writes back; without DB the body sees a context with no Tx.
type FlakyRunner struct {
	DB *gorm.DB

	// CommitErr is returned in place of a successful commit.
	CommitErr error
	// CommitFailures limits CommitErr to the first n attempts; zero fails all.
	CommitFailures int

	mu        sync.Mutex
	attempts  int
	commits   int
	rollbacks int
}

var _ aggregates.TxRunner = (*FlakyRunner)(nil)

func (r *FlakyRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.attempts++
	injected := r.CommitErr
	if r.CommitFailures > 0 && r.attempts > r.CommitFailures {
		injected = nil
	}
	r.mu.Unlock()

	run := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return injected
	}

	var err error
	if r.DB == nil {
		err = run(dbctx.Context{Ctx: ctx})
	} else {
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return run(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}

// Calls reports how many transactions were attempted, committed and rolled back.
func (r *FlakyRunner) Calls() (attempts, commits, rollbacks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts, r.commits, r.rollbacks
}
