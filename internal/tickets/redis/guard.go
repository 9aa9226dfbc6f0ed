package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-eventgrid/internal/logger"
)

const defaultGuardTTL = 10 * time.Second

// unlockScript deletes KEYS[1] only while it still holds ARGV[1].
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// BookingGuard holds a short lock per (event, email) while a booking is in
// flight, so a double-submitted form is rejected before it reaches Postgres.
type BookingGuard struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewBookingGuard(client *redis.Client, ttl time.Duration, log *logger.Logger) *BookingGuard {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &BookingGuard{Client: client, TTL: ttl, Logger: log}
}

func lockKey(eventID, email string) string {
	return fmt.Sprintf("booking_lock:%s:%s", eventID, strings.ToLower(email))
}

// Acquire takes the lock for eventID and email. ok is false when another
// booking for the same pair holds it. The returned release is safe to call
// more than once and only deletes the key while this caller still owns it.
func (g *BookingGuard) Acquire(ctx context.Context, eventID, email string) (func(), bool, error) {
	key := lockKey(eventID, email)
	owner := uuid.NewString()

	ok, err := g.Client.SetNX(ctx, key, owner, g.TTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if g.Logger != nil {
			g.Logger.Debug("REDIS", fmt.Sprintf("Booking lock %s already held", key))
		}
		return nil, false, nil
	}

	release := func() {
		if err := g.unlock(context.Background(), key, owner); err != nil && g.Logger != nil {
			g.Logger.Warn("REDIS", fmt.Sprintf("Failed to release booking lock %s: %v", key, err))
		}
	}
	return release, true, nil
}

func (g *BookingGuard) unlock(ctx context.Context, key, owner string) error {
	return unlockScript.Run(ctx, g.Client, []string{key}, owner).Err()
}

// Ping reports whether Redis is reachable.
func (g *BookingGuard) Ping(ctx context.Context) error {
	return g.Client.Ping(ctx).Err()
}
