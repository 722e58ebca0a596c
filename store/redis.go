package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	sopapilla:user:{id}          → JSON user record
//	sopapilla:user:email:{email} → id
//	sopapilla:revoked:{sid}      → "1", expires with the session
func userKey(id string) string {
	return fmt.Sprintf("sopapilla:user:%s", id)
}

func userEmailKey(email string) string {
	return fmt.Sprintf("sopapilla:user:email:%s", email)
}

func revokedKey(sessionID string) string {
	return fmt.Sprintf("sopapilla:revoked:%s", sessionID)
}

// Redis keeps users as JSON documents with an email → id index.
type Redis struct {
	rdb *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// NewRedisFromURL parses a redis:// URL into a client.
func NewRedisFromURL(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedis(redis.NewClient(opts)), nil
}

func (r *Redis) Migrate(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) FindByEmail(ctx context.Context, email string) (*User, error) {
	id, err := r.rdb.Get(ctx, userEmailKey(NormalizeEmail(email))).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *Redis) FindByID(ctx context.Context, id string) (*User, error) {
	val, err := r.rdb.Get(ctx, userKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var u User
	if err := json.Unmarshal([]byte(val), &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	return &u, nil
}

func (r *Redis) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = NormalizeEmail(u.Email)

	claimed, err := r.rdb.SetNX(ctx, userEmailKey(u.Email), u.ID, 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return ErrDuplicateEmail
	}

	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, userKey(u.ID), data, 0).Err(); err != nil {
		return r.releaseEmail(ctx, u.Email, err)
	}
	return nil
}

func (r *Redis) Update(ctx context.Context, u *User) error {
	current, err := r.FindByID(ctx, u.ID)
	if err != nil {
		return err
	}
	u.Email = NormalizeEmail(u.Email)
	emailChanged := u.Email != current.Email
	if emailChanged {
		claimed, err := r.rdb.SetNX(ctx, userEmailKey(u.Email), u.ID, 0).Result()
		if err != nil {
			return err
		}
		if !claimed {
			return ErrDuplicateEmail
		}
	}

	data, err := json.Marshal(u)
	if err == nil {
		pipe := r.rdb.TxPipeline()
		pipe.Set(ctx, userKey(u.ID), data, 0)
		if emailChanged {
			pipe.Del(ctx, userEmailKey(current.Email))
		}
		_, err = pipe.Exec(ctx)
	}
	if err != nil && emailChanged {
		return r.releaseEmail(ctx, u.Email, err)
	}
	return err
}

// releaseEmail drops an email index entry claimed by a write that failed.
func (r *Redis) releaseEmail(ctx context.Context, email string, cause error) error {
	if err := r.rdb.Del(ctx, userEmailKey(email)).Err(); err != nil {
		return errors.Join(cause, fmt.Errorf("release email %s: %w", email, err))
	}
	return cause
}

func (r *Redis) RevokeSession(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedKey(sessionID), "1", ttl).Err()
}

func (r *Redis) SessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
