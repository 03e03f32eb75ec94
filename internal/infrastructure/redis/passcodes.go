package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	fieldIdentifier = "identifier"
	fieldSecret     = "secret"
	fieldCode       = "code"
	fieldExpiresAt  = "expires_at"
	fieldAttempts   = "attempts"
	fieldCreatedAt  = "created_at"
)

// addAttemptLua bumps the attempt counter of an existing record and returns
// the whole record. A missing key yields a nil reply and is not created.
// KEYS[1] = record hash
var addAttemptLua = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return redis.call('HGETALL', KEYS[1])
`)

// PasscodeStore keeps one hash per identifier so the attempt counter can be
// incremented in place by every process sharing the Redis instance.
// Keys live for retention past ExpiresAt, so an expired record is still
// reported as expired for a while before Redis evicts it.
type PasscodeStore struct {
	redis     goredis.UniversalClient
	prefix    string
	retention time.Duration
	nowF      func() time.Time
}

func NewPasscodeStore(client goredis.UniversalClient, prefix string, retention time.Duration) *PasscodeStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &PasscodeStore{redis: client, prefix: prefix, retention: retention, nowF: time.Now}
}

func (s *PasscodeStore) key(identifier string) string {
	return s.prefix + ":passcode:" + identifier
}

func (s *PasscodeStore) Put(ctx context.Context, identifier string, rec *domain.PasscodeRecord) error {
	ttl := rec.ExpiresAt.Add(s.retention).Sub(s.nowF())
	if ttl < time.Second {
		ttl = time.Second
	}
	key := s.key(identifier)
	_, err := s.redis.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldIdentifier, rec.Identifier,
			fieldSecret, rec.Secret,
			fieldCode, rec.Code,
			fieldExpiresAt, unixNano(rec.ExpiresAt),
			fieldAttempts, rec.Attempts,
			fieldCreatedAt, unixNano(rec.CreatedAt),
		)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put passcode: %v: %w", err, domain.ErrUnavailable)
	}
	return nil
}

func (s *PasscodeStore) Get(ctx context.Context, identifier string) (*domain.PasscodeRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(identifier)).Result()
	if err != nil {
		return nil, fmt.Errorf("get passcode: %v: %w", err, domain.ErrUnavailable)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
	}
	return decodePasscode(fields)
}

func (s *PasscodeStore) AddAttempt(ctx context.Context, identifier string) (*domain.PasscodeRecord, error) {
	flat, err := addAttemptLua.Run(ctx, s.redis, []string{s.key(identifier)}).StringSlice()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("add passcode attempt: %v: %w", err, domain.ErrUnavailable)
	}
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("add passcode attempt: odd reply length %d: %w", len(flat), domain.ErrUnavailable)
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		fields[flat[i]] = flat[i+1]
	}
	return decodePasscode(fields)
}

func (s *PasscodeStore) Delete(ctx context.Context, identifier string) error {
	if err := s.redis.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("delete passcode: %v: %w", err, domain.ErrUnavailable)
	}
	return nil
}

func decodePasscode(fields map[string]string) (*domain.PasscodeRecord, error) {
	attempts, err := strconv.Atoi(fields[fieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("decode passcode attempts: %w", err)
	}
	expires, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode passcode expiry: %w", err)
	}
	created, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode passcode creation time: %w", err)
	}
	return &domain.PasscodeRecord{
		Identifier: fields[fieldIdentifier],
		Secret:     fields[fieldSecret],
		Code:       fields[fieldCode],
		ExpiresAt:  fromUnixNano(expires),
		Attempts:   attempts,
		CreatedAt:  fromUnixNano(created),
	}, nil
}

// The zero time is stored as 0.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
