package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/scanalyze/scanalyze/internal/auth"
)

const (
	historyBucketName = "history"
	sessionBucketName = "session"
	usersBucketName   = "users"

	// history and session are single-record buckets, rewritten in full
	currentKey = "current"
)

// BoltDB persists the history record, the session record and registered
// users. It implements HistoryDB, auth.SessionDB and auth.UserDB.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{historyBucketName, sessionBucketName, usersBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveHistory replaces the persisted history sequence
func (b *BoltDB) SaveHistory(analyses []*Analysis) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucketName))
		data, err := json.Marshal(analyses)
		if err != nil {
			return fmt.Errorf("marshaling history: %w", err)
		}
		return bucket.Put([]byte(currentKey), data)
	})
}

// LoadHistory returns the persisted history sequence, or nil when absent
func (b *BoltDB) LoadHistory() ([]*Analysis, error) {
	var analyses []*Analysis
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucketName))
		data := bucket.Get([]byte(currentKey))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &analyses); err != nil {
			return fmt.Errorf("unmarshaling history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return analyses, nil
}

// SaveSession replaces the persisted session record
func (b *BoltDB) SaveSession(state *auth.AuthState) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshaling session: %w", err)
		}
		return bucket.Put([]byte(currentKey), data)
	})
}

// LoadSession returns the persisted session record, or nil when absent
func (b *BoltDB) LoadSession() (*auth.AuthState, error) {
	var state *auth.AuthState
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data := bucket.Get([]byte(currentKey))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &state); err != nil {
			return fmt.Errorf("unmarshaling session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ClearSession removes the persisted session record
func (b *BoltDB) ClearSession() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		return bucket.Delete([]byte(currentKey))
	})
}

// SaveUser saves a registered account keyed by email
func (b *BoltDB) SaveUser(user *auth.StoredUser) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersBucketName))
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshaling user: %w", err)
		}
		return bucket.Put([]byte(user.User.Email), data)
	})
}

// GetUserByEmail retrieves a registered account by email
func (b *BoltDB) GetUserByEmail(email string) (*auth.StoredUser, error) {
	var user *auth.StoredUser
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersBucketName))
		data := bucket.Get([]byte(email))
		if data == nil {
			return auth.ErrUserNotFound
		}
		return json.Unmarshal(data, &user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
