package store

import (
	"context"
	"time"

	"github.com/ClusterCockpit/scanhub-edge/pkg/log"
)

// queryTimerKey is an unexported context key type so this package's use of
// context.WithValue can never collide with another package's key.
type queryTimerKey struct{}

// Hooks satisfies sqlhooks.Hooks, timing every query issued against the
// sqlite3 connection. Grounded on
// _examples/ClusterCockpit-cc-backend/internal/repository/hooks.go,
// generalized only to use a typed context key instead of a bare string.
type Hooks struct{}

func (h *Hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("sql query %s %q", query, args)
	return context.WithValue(ctx, queryTimerKey{}, time.Now()), nil
}

func (h *Hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(queryTimerKey{}).(time.Time); ok {
		log.Debugf("sql query took %s", time.Since(begin))
	}
	return ctx, nil
}
