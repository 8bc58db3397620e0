package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every network or server error from Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned by Get when no session is stored under the id.
var ErrNotFound = errors.New("session not found")

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
if KEYS[2] ~= "" then
  redis.call("SREM", KEYS[2], ARGV[1])
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store. Sessions expire through Redis TTLs;
// each identity also has an index set so all of its sessions can be revoked.
type Store struct {
	redis    redis.UniversalClient
	prefix   string
	encoding Encoding
}

// NewStore creates a [Store]. prefix namespaces every key; enc selects the
// blob format for new sessions.
func NewStore(client redis.UniversalClient, prefix string, enc Encoding) *Store {
	if prefix == "" {
		prefix = "gs"
	}
	if enc == "" {
		enc = EncodingBinary
	}
	return &Store{
		redis:    client,
		prefix:   prefix,
		encoding: enc,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) identityKey(identity string) string {
	return s.prefix + ":u:" + identity
}

// Save persists sess with the given TTL.
//
//	Performance: 1 MULTI/EXEC (SET + SADD + EXPIRE).
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.SessionID == "" {
		return errors.New("session id is required")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be > 0")
	}

	data, err := Encode(sess, s.encoding)
	if err != nil {
		return err
	}

	indexKey := s.identityKey(sess.Identity)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, ttl)
		pipe.SAdd(ctx, indexKey, sess.SessionID)
		pipe.Expire(ctx, indexKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session. It does not judge expiry; callers compare ExpiresAt
// against their own clock.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID
	return sess, nil
}

// Delete removes a session and its index entry. Deleting a missing session
// succeeds.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	indexKey := ""
	if sess, decErr := Decode(data); decErr == nil {
		indexKey = s.identityKey(sess.Identity)
	}

	if _, err := deleteSessionLua.Run(ctx, s.redis, []string{s.key(sessionID), indexKey}, sessionID).Result(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveSessionIDs returns the ids of live sessions for identity, pruning
// index entries whose session key has already expired.
func (s *Store) ActiveSessionIDs(ctx context.Context, identity string) ([]string, error) {
	indexKey := s.identityKey(identity)
	ids, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		existsCmds[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	live := make([]string, 0, len(ids))
	stale := make([]interface{}, 0)
	for i, cmd := range existsCmds {
		if cmd.Val() == 1 {
			live = append(live, ids[i])
		} else {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, indexKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return live, nil
}

// DeleteAllForIdentity removes every session of identity and returns how many
// session keys existed.
//
// Not atomic with concurrent logins: a session saved between SMEMBERS and DEL
// survives and expires on its own TTL.
func (s *Store) DeleteAllForIdentity(ctx context.Context, identity string) (int, error) {
	indexKey := s.identityKey(identity)
	ids, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}

	var deleted *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			deleted = pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, indexKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if deleted == nil {
		return 0, nil
	}
	return int(deleted.Val()), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
