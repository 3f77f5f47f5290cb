package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/models"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// RedisStore implements SessionStore on Redis so several bot replicas can share quiz state
type RedisStore struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
	log    *logrus.Entry
}

// NewRedisStore connects to redisURL and pings it once
func NewRedisStore(ctx context.Context, redisURL, keyPrefix string, ttl time.Duration, logger *logrus.Entry) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing redis URL: %w", utils.ErrDatabase, err)
	}
	c := redis.NewClient(opt)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %w", utils.ErrDatabase, opt.Addr, err)
	}
	logger.Infof("Connected to redis at %s (db %d)", opt.Addr, opt.DB)
	return newRedisStoreWithClient(c, keyPrefix, ttl, logger), nil
}

func newRedisStoreWithClient(c *redis.Client, keyPrefix string, ttl time.Duration, logger *logrus.Entry) *RedisStore {
	return &RedisStore{client: c, keyNS: keyPrefix + sessionKeyPrefix, ttl: ttl, log: logger}
}

func (s *RedisStore) key(chatID int64) string { return s.keyNS + strconv.FormatInt(chatID, 10) }

func (s *RedisStore) Get(ctx context.Context, chatID int64) (*models.QuizSession, bool, error) {
	raw, err := s.client.Get(ctx, s.key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: redis GET %s: %w", utils.ErrDatabase, s.key(chatID), err)
	}
	var sess models.QuizSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.log.Warnf("Failed to unmarshal session for key '%s': %v. Treating as missing.", s.key(chatID), err)
		return nil, false, nil
	}
	return &sess, true, nil
}

func (s *RedisStore) Put(ctx context.Context, sess *models.QuizSession) error {
	val, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal session: %w", utils.ErrParsing, err)
	}
	// ttl 0 means no expiration for go-redis
	if err := s.client.Set(ctx, s.key(sess.ChatID), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis SET %s: %w", utils.ErrDatabase, s.key(sess.ChatID), err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, s.key(chatID)).Err(); err != nil {
		return fmt.Errorf("%w: redis DEL %s: %w", utils.ErrDatabase, s.key(chatID), err)
	}
	return nil
}

// Count walks the key namespace with SCAN; it never blocks the server like KEYS would
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, s.keyNS+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("%w: redis SCAN %s*: %w", utils.ErrDatabase, s.keyNS, err)
	}
	return count, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
