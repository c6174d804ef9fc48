// Package redis provides a Redis-backed session store for deployments that
// keep follow-up history out of Postgres.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

// ensureScript binds a session to its origin analysis exactly once.
var ensureScript = goredis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
	return existing
end
redis.call('SET', KEYS[2], ARGV[2])
redis.call('SET', KEYS[1], ARGV[1])
return ARGV[1]
`)

// appendScript pushes one iteration and returns the new list length, which is
// the iteration seq. It returns -1 when the session does not exist.
var appendScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('RPUSH', KEYS[2], ARGV[1])
`)

type storedIteration struct {
	ID        string                  `json:"id"`
	Kind      domain.IterationKind    `json:"kind"`
	Timestamp time.Time               `json:"timestamp"`
	Payload   domain.IterationPayload `json:"payload"`
}

type Store struct {
	client *goredis.Client
	prefix string
}

func NewRedisStore(redisURL string) (*Store, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *goredis.Client) *Store {
	return &Store{client: client, prefix: "compliance:"}
}

func (s *Store) sessionKey(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *Store) iterationsKey(sessionID string) string {
	return s.prefix + "session:" + sessionID + ":iterations"
}

func (s *Store) originKey(analysisID string) string {
	return s.prefix + "analysis:" + analysisID + ":session"
}

func (s *Store) EnsureSession(ctx context.Context, session domain.Session) (*domain.Session, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	sessionID, err := ensureScript.Run(ctx, s.client,
		[]string{s.originKey(session.OriginAnalysisID), s.sessionKey(session.ID)},
		session.ID, string(data),
	).Text()
	if err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}
	return s.GetSession(ctx, sessionID)
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id=%s", sessionID))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "get session", err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *Store) AppendIteration(ctx context.Context, it domain.Iteration) (domain.Iteration, error) {
	data, err := json.Marshal(storedIteration{
		ID:        it.ID,
		Kind:      it.Kind,
		Timestamp: it.Timestamp,
		Payload:   it.Payload,
	})
	if err != nil {
		return domain.Iteration{}, fmt.Errorf("marshal iteration: %w", err)
	}

	seq, err := appendScript.Run(ctx, s.client,
		[]string{s.sessionKey(it.SessionID), s.iterationsKey(it.SessionID)},
		string(data),
	).Int64()
	if err != nil {
		return domain.Iteration{}, domain.WrapError(domain.ErrTemporary, "append iteration", err)
	}
	if seq < 0 {
		return domain.Iteration{}, domain.WrapError(domain.ErrSessionNotFound, "append iteration",
			fmt.Errorf("id=%s", it.SessionID))
	}
	it.Seq = seq
	return it, nil
}

// ListIterations returns the log in push order; seq is the 1-based list position.
func (s *Store) ListIterations(ctx context.Context, sessionID string) ([]domain.Iteration, error) {
	items, err := s.client.LRange(ctx, s.iterationsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "list iterations", err)
	}

	out := make([]domain.Iteration, 0, len(items))
	for i, item := range items {
		var stored storedIteration
		if err := json.Unmarshal([]byte(item), &stored); err != nil {
			return nil, fmt.Errorf("unmarshal iteration: %w", err)
		}
		out = append(out, domain.Iteration{
			ID:        stored.ID,
			SessionID: sessionID,
			Seq:       int64(i + 1),
			Kind:      stored.Kind,
			Timestamp: stored.Timestamp,
			Payload:   stored.Payload,
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
