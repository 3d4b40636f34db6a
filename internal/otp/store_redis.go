package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "veristay/pkg/domain"
	"veristay/pkg/platform/sentinel"
)

const challengeKeyPrefix = "otp:challenge:"

// consumeScript performs compare-and-delete server-side so at most one
// Consume per request id can ever succeed, across all instances. Expiry is
// checked against the stored deadline rather than relying on key TTL so an
// expired challenge is distinguishable from an unknown one.
var consumeScript = redis.NewScript(`
local vals = redis.call('HMGET', KEYS[1], 'code', 'expires_at', 'provider_ref', 'subject_id')
if not vals[1] then
	return {'missing'}
end
if tonumber(vals[2]) < tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1])
	return {'expired'}
end
if vals[1] ~= ARGV[1] then
	return {'mismatch'}
end
redis.call('DEL', KEYS[1])
return {'ok', vals[3], vals[4]}
`)

// RedisChallengeStore is the production challenge store: shared across
// instances, expiring naturally, consumed atomically via Lua.
type RedisChallengeStore struct {
	client redis.Cmdable
}

func NewRedisChallengeStore(client redis.Cmdable) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func (s *RedisChallengeStore) Save(ctx context.Context, ch Challenge) error {
	key := challengeKeyPrefix + ch.RequestID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"code":         ch.Code,
		"expires_at":   ch.ExpiresAt.Unix(),
		"provider_ref": ch.ProviderRef,
		"subject_id":   ch.SubjectID.String(),
	})
	// Keep the key one hour past the deadline so verify-time reads report
	// "expired" instead of "missing".
	pipe.ExpireAt(ctx, key, ch.ExpiresAt.Add(time.Hour))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func (s *RedisChallengeStore) Consume(ctx context.Context, requestID, code string, now time.Time) (Challenge, error) {
	key := challengeKeyPrefix + requestID
	raw, err := consumeScript.Run(ctx, s.client, []string{key}, code, now.Unix()).Slice()
	if err != nil {
		return Challenge{}, fmt.Errorf("consume challenge: %w", err)
	}
	if len(raw) == 0 {
		return Challenge{}, fmt.Errorf("challenge %s: empty script reply: %w", requestID, sentinel.ErrUnavailable)
	}

	status, _ := raw[0].(string)
	switch status {
	case "missing":
		return Challenge{}, fmt.Errorf("challenge %s: %w", requestID, sentinel.ErrNotFound)
	case "expired":
		return Challenge{}, fmt.Errorf("challenge %s: %w", requestID, sentinel.ErrExpired)
	case "mismatch":
		return Challenge{}, fmt.Errorf("challenge %s: %w", requestID, sentinel.ErrInvalidState)
	case "ok":
		ch := Challenge{RequestID: requestID, Code: code}
		if len(raw) > 1 {
			ch.ProviderRef, _ = raw[1].(string)
		}
		if len(raw) > 2 {
			if str, ok := raw[2].(string); ok {
				if parsed, err := uuid.Parse(str); err == nil {
					ch.SubjectID = id.SubjectID(parsed)
				}
			}
		}
		return ch, nil
	default:
		return Challenge{}, fmt.Errorf("challenge %s: unexpected script status %q: %w", requestID, status, sentinel.ErrUnavailable)
	}
}
