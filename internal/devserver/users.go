package devserver

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/classloop/classloop/pkg/session"
)

var (
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("devserver: email already registered")

	// ErrBadCredentials is returned on login with a wrong email or password.
	ErrBadCredentials = errors.New("devserver: invalid email or password")
)

type userRecord struct {
	user session.User
	hash []byte
}

// UserRegistry is the dev server's in-memory account database.
type UserRegistry struct {
	mu         sync.RWMutex
	byEmail    map[string]*userRecord
	byID       map[int]*userRecord
	nextID     int
	bcryptCost int
}

// NewUserRegistry creates an empty registry hashing passwords at cost.
func NewUserRegistry(bcryptCost int) *UserRegistry {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserRegistry{
		byEmail:    make(map[string]*userRecord),
		byID:       make(map[int]*userRecord),
		nextID:     1,
		bcryptCost: bcryptCost,
	}
}

// Create registers a new account and returns its profile.
func (r *UserRegistry) Create(username, email, password, role string) (*session.User, error) {
	email = normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[email]; exists {
		return nil, ErrEmailTaken
	}
	rec := &userRecord{
		user: session.User{
			ID:       r.nextID,
			Username: username,
			Email:    email,
			Role:     role,
		},
		hash: hash,
	}
	r.nextID++
	r.byEmail[email] = rec
	r.byID[rec.user.ID] = rec

	u := rec.user
	return &u, nil
}

// Authenticate verifies credentials and returns the matching profile.
func (r *UserRegistry) Authenticate(email, password string) (*session.User, error) {
	r.mu.RLock()
	rec, ok := r.byEmail[normalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword(rec.hash, []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	u := rec.user
	return &u, nil
}

// UpdateUsername changes the username for id and returns the new profile.
func (r *UserRegistry) UpdateUsername(id int, username string) (*session.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, errors.New("devserver: unknown user")
	}
	rec.user.Username = username
	u := rec.user
	return &u, nil
}

// Get returns the profile for id, or nil when unknown.
func (r *UserRegistry) Get(id int) *session.User {
	r.mu.RLock()
	rec, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	u := rec.user
	return &u
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
