package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/scenedex/scenedex/internal/application/revision"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
)

// unlockScript deletes the lock key only when it still holds this owner's
// token, so an expired lock re-acquired by another run is never released.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// ScriptLocker serializes reconciliation runs per script using SET NX with
// a TTL.  It implements the pipeline's Locker port.
type ScriptLocker struct {
	client *Client
	logger logging.Logger
}

var _ revision.Locker = (*ScriptLocker)(nil)

// NewScriptLocker creates a Redis-backed lock over the given client.
func NewScriptLocker(client *Client, log logging.Logger) *ScriptLocker {
	return &ScriptLocker{
		client: client,
		logger: log.Named("script_locker"),
	}
}

// Acquire takes the lock for key, returning a release function.  A lock
// already held by another run fails with ErrCodeScriptLocked.
func (l *ScriptLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	full := l.client.key("lock:" + key)
	token := uuid.NewString()

	ok, err := l.client.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire reconciliation lock")
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeScriptLocked, "script is being reconciled by another run").
			WithDetail("lock=" + key)
	}

	release := func() {
		// The originating context may already be cancelled when the
		// pipeline unwinds, so the unlock gets its own deadline.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := unlockScript.Run(releaseCtx, l.client.rdb, []string{full}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("Failed to release reconciliation lock",
				logging.String("lock", key),
				logging.Err(err),
			)
		}
	}
	return release, nil
}
