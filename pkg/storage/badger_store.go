package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/log"
	"github.com/Sriram-PR/wiki-bot/pkg/models"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

const (
	sessionKeyPrefix = "quiz:"       // Prefix for chat session keys in DB
	sessionsDBDir    = "sessions_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements SessionStore on an embedded BadgerDB, so quizzes survive restarts
type BadgerStore struct {
	db  *badger.DB
	log *logrus.Entry
	ttl time.Duration
}

// NewBadgerStore opens (or creates) the session database under stateDir.
// Without resume any previous database is wiped first.
func NewBadgerStore(stateDir string, resume bool, ttl time.Duration, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{
		log: logger,
		ttl: ttl,
	}

	dbPath := filepath.Join(stateDir, sessionsDBDir)

	if !resume {
		logger.Warnf("Resume flag is false. REMOVING existing session directory: %s", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			logger.Errorf("Failed to remove existing session directory %s: %v", dbPath, err)
		}
	}

	logger.Infof("Initializing quiz session database at: %s (Resume: %v)", dbPath, resume)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrDatabase, dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLogger(log.NewBadgerLogrusAdapter(logger)).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	if resume {
		if count, err := store.Count(context.Background()); err != nil {
			logger.Warnf("Failed to count existing sessions on resume: %v", err)
		} else {
			logger.Infof("Loaded %d quiz session(s) on resume", count)
		}
	}
	return store, nil
}

func sessionKey(chatID int64) []byte {
	return []byte(sessionKeyPrefix + strconv.FormatInt(chatID, 10))
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Conflicts resolve in microseconds, so no backoff is needed.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

func (s *BadgerStore) Get(_ context.Context, chatID int64) (*models.QuizSession, bool, error) {
	key := sessionKey(chatID)
	var sess *models.QuizSession

	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting session key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}
		return item.Value(func(val []byte) error {
			var decoded models.QuizSession
			if errJSON := json.Unmarshal(val, &decoded); errJSON != nil {
				// A corrupt entry is treated as absent; the next Put overwrites it
				s.log.Warnf("Failed to unmarshal session for key '%s': %v. Treating as missing.", string(key), errJSON)
				return nil
			}
			sess = &decoded
			return nil
		})
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB View error in Get: %v", err)
		return nil, false, err
	}
	return sess, sess != nil, nil
}

func (s *BadgerStore) Put(_ context.Context, sess *models.QuizSession) error {
	key := sessionKey(sess.ChatID)
	val, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal session for key '%s': %w", utils.ErrParsing, string(key), err)
	}

	err = s.dbUpdate(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, val)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in Put: %v", err)
		return fmt.Errorf("%w: failed setting session key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	return nil
}

func (s *BadgerStore) Delete(_ context.Context, chatID int64) error {
	key := sessionKey(chatID)
	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: failed deleting session key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	return nil
}

// Count scans the session prefix. Expired entries are skipped by the iterator.
func (s *BadgerStore) Count(_ context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(sessionKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting sessions: %w", utils.ErrDatabase, err)
	}
	return count, nil
}

// RunGC runs BadgerDB's value log garbage collection periodically until ctx is done
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				s.log.Info("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}

			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for {
				err = s.db.RunValueLogGC(0.5)
				if err != nil {
					break
				}
				s.log.Debug("BadgerDB GC cycle completed.")
			}

			if errors.Is(err, badger.ErrNoRewrite) {
				s.log.Debug("BadgerDB GC finished (no rewrite needed).")
			} else {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Infof("Stopping BadgerDB garbage collection goroutine: %v", ctx.Err())
			return
		}
	}
}

// Close closes the database. Safe to call more than once.
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	s.log.Info("Closing quiz session database...")
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing badger: %w", utils.ErrDatabase, err)
	}
	return nil
}
