// Package userstore persists registered users for the stub service in a
// bbolt file.
package userstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketUsers   = "users"
	bucketEmails  = "emails"
	bucketPrivacy = "privacy"
)

var (
	// ErrEmailTaken is returned by Create when the email is already registered.
	ErrEmailTaken = errors.New("userstore: email already registered")
	// ErrNotFound is returned when a user id is unknown.
	ErrNotFound = errors.New("userstore: not found")
)

var initDB = map[string]func(*bolt.Tx) error{
	"initialize users table": func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketUsers))
		return err
	},
	"initialize email index": func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketEmails))
		return err
	},
	"initialize privacy settings table": func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketPrivacy))
		return err
	},
}

// User is a stored registration.
type User struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Email                 string    `json:"email"`
	DateOfBirth           string    `json:"date_of_birth"`
	Age                   *int      `json:"age,omitempty"`
	Gender                string    `json:"gender,omitempty"`
	TermsAccepted         bool      `json:"termsAccepted"`
	PrivacyPolicyAccepted bool      `json:"privacyPolicyAccepted"`
	PrivacySetting        string    `json:"privacySetting"`
	CreatedAt             time.Time `json:"created_at"`
}

// PrivacySettings is a stored privacy-settings submission.
type PrivacySettings struct {
	ID                    string    `json:"id"`
	PrivacySetting        string    `json:"privacySetting"`
	PrivacyPolicyAccepted bool      `json:"privacyPolicyAccepted"`
	CreatedAt             time.Time `json:"created_at"`
}

// Store is a bbolt backed user repository. It is safe for concurrent use.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("userstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("userstore: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// EmailTaken reports whether email belongs to a stored user. Comparison is
// case-insensitive.
func (s *Store) EmailTaken(email string) (bool, error) {
	var taken bool
	err := s.db.View(func(tx *bolt.Tx) error {
		taken = tx.Bucket([]byte(bucketEmails)).Get(emailKey(email)) != nil
		return nil
	})
	return taken, err
}

// Create stores u under a fresh id and returns the stored copy.
func (s *Store) Create(u User) (User, error) {
	u.ID = uuid.NewString()
	u.CreatedAt = s.now().UTC()

	err := s.db.Update(func(tx *bolt.Tx) error {
		emails := tx.Bucket([]byte(bucketEmails))
		key := emailKey(u.Email)
		if emails.Get(key) != nil {
			return ErrEmailTaken
		}
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		if err := tx.Bucket([]byte(bucketUsers)).Put([]byte(u.ID), data); err != nil {
			return err
		}
		return emails.Put(key, []byte(u.ID))
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Get returns the user with id.
func (s *Store) Get(id string) (User, error) {
	var u User
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketUsers)).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &u)
	})
	return u, err
}

// List returns every stored user ordered by creation time.
func (s *Store) List() ([]User, error) {
	var users []User
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketUsers)).ForEach(func(_, v []byte) error {
			var u User
			if err := json.Unmarshal(v, &u); err != nil {
				return err
			}
			users = append(users, u)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortByCreated(users)
	return users, nil
}

// SavePrivacy appends a privacy-settings submission.
func (s *Store) SavePrivacy(p PrivacySettings) (PrivacySettings, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC()
	err := s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketPrivacy)).Put([]byte(p.ID), data)
	})
	if err != nil {
		return PrivacySettings{}, err
	}
	return p, nil
}

func emailKey(email string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(email)))
}
