// Package auth manages accounts in the users collection.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

var (
	// ErrAuthenticationFailed is returned for an unknown user or wrong password.
	ErrAuthenticationFailed = errors.New("invalid credentials")

	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// Users authenticates and manages accounts.
type Users struct {
	store store.Store
	cost  int

	dummyOnce sync.Once
	dummy     []byte
}

// NewUsers creates a Users backed by s.
func NewUsers(s store.Store) *Users {
	return &Users{store: s, cost: bcrypt.DefaultCost}
}

type userDoc map[string]*models.User

func (u *Users) load(ctx context.Context) (userDoc, error) {
	doc := userDoc{}
	if err := u.store.Load(ctx, store.Users, &doc); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for name, user := range doc {
		user.Username = name
	}
	return doc, nil
}

func (u *Users) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (u *Users) dummyHash() []byte {
	u.dummyOnce.Do(func() {
		u.dummy, _ = bcrypt.GenerateFromPassword([]byte("unused"), u.cost)
	})
	return u.dummy
}

// GeneratePassword returns a random URL-safe password.
func GeneratePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Bootstrap creates the users document with one admin account the first
// time it runs. An empty password is replaced by a generated one, which is
// returned so the caller can show it once. When the document already
// exists Bootstrap does nothing and returns "".
func (u *Users) Bootstrap(ctx context.Context, username, password string) (string, error) {
	exists, err := u.store.Exists(store.Users)
	if err != nil {
		return "", err
	}
	if exists {
		return "", nil
	}
	generated := ""
	if password == "" {
		if password, err = GeneratePassword(); err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		generated = password
	}
	h, err := u.hash(password)
	if err != nil {
		return "", err
	}
	doc := userDoc{}
	err = u.store.Update(ctx, store.Users, &doc, func() error {
		if len(doc) > 0 {
			generated = ""
			return store.ErrNoChange
		}
		doc[username] = &models.User{PasswordHash: h, Role: models.RoleAdmin}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("bootstrap users: %w", err)
	}
	return generated, nil
}

// Authenticate checks a username/password pair.
func (u *Users) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	doc, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	user, ok := doc[strings.TrimSpace(username)]
	if !ok {
		// Spend comparable time on unknown users.
		_ = bcrypt.CompareHashAndPassword(u.dummyHash(), []byte(password))
		return nil, ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrAuthenticationFailed
	}
	return user, nil
}

// Add creates a new account.
func (u *Users) Add(ctx context.Context, username, password, role string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("add user: username and password are required")
	}
	if role == "" {
		role = "user"
	}
	h, err := u.hash(password)
	if err != nil {
		return err
	}
	doc := userDoc{}
	return u.store.Update(ctx, store.Users, &doc, func() error {
		if _, ok := doc[username]; ok {
			return fmt.Errorf("add user %s: %w", username, ErrUserExists)
		}
		doc[username] = &models.User{PasswordHash: h, Role: role}
		return nil
	})
}

// SetPassword replaces the password of an existing account.
func (u *Users) SetPassword(ctx context.Context, username, password string) error {
	if password == "" {
		return fmt.Errorf("set password: password is required")
	}
	h, err := u.hash(password)
	if err != nil {
		return err
	}
	doc := userDoc{}
	return u.store.Update(ctx, store.Users, &doc, func() error {
		user, ok := doc[username]
		if !ok {
			return fmt.Errorf("set password %s: %w", username, ErrUserNotFound)
		}
		user.PasswordHash = h
		return nil
	})
}

// List returns all accounts sorted by username.
func (u *Users) List(ctx context.Context) ([]*models.User, error) {
	doc, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(doc))
	for _, user := range doc {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}
