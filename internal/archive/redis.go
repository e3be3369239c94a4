package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps finished-game records in redis with a TTL, indexed per user so
// recent games can be listed for either player.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(redisURL string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required for archive store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}, nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func gameKey(sessionID string) string { return "room:archive:" + strings.TrimSpace(sessionID) }
func idxUserKey(userID string) string { return "room:archive:user:" + strings.TrimSpace(userID) }

// Save stores the record and indexes it by both players.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, gameKey(rec.SessionID), raw, s.ttl).Err(); err != nil {
		return err
	}
	for _, uid := range []string{rec.WhiteID, rec.BlackID} {
		if strings.TrimSpace(uid) == "" {
			continue
		}
		key := idxUserKey(uid)
		if err := s.rdb.SAdd(ctx, key, rec.SessionID).Err(); err != nil {
			return err
		}
		// keep the index from outliving its games
		_ = s.rdb.Expire(ctx, key, s.ttl).Err()
	}
	return nil
}

// Load returns the archived record for sessionID, or nil when absent.
func (s *Store) Load(ctx context.Context, sessionID string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, gameKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser returns the archived records a user played in, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	ids, err := s.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var out []*Record
	for _, id := range ids {
		rec, rerr := s.Load(ctx, id)
		if rerr == nil && rec != nil {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	return out, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
