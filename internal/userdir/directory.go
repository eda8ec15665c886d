// Package userdir is an in-memory user directory implementing
// tokenguard.UserLookup and tokenguard.UserRegistrar. It backs the server
// binary, the load generator and tests; production deployments plug in
// their own database.
package userdir

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/tokenguard"
)

// Directory is safe for concurrent use.
type Directory struct {
	mu    sync.RWMutex
	users map[string]tokenguard.UserRecord
}

func New() *Directory {
	return &Directory{users: make(map[string]tokenguard.UserRecord)}
}

// LookupByIdentifier implements tokenguard.UserLookup.
func (d *Directory) LookupByIdentifier(_ context.Context, identifier string) (tokenguard.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[normalize(identifier)]
	if !ok {
		return tokenguard.UserRecord{}, tokenguard.ErrUserNotFound
	}
	return u, nil
}

// CreateUser implements tokenguard.UserRegistrar.
func (d *Directory) CreateUser(_ context.Context, in tokenguard.CreateUserInput) (tokenguard.Principal, error) {
	key := normalize(in.Identifier)
	if key == "" {
		return tokenguard.Principal{}, fmt.Errorf("identifier required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.users[key]; exists {
		return tokenguard.Principal{}, tokenguard.ErrUserExists
	}

	role := in.Role
	if role == "" {
		role = tokenguard.RoleUser
	}
	rec := tokenguard.UserRecord{
		Principal: tokenguard.Principal{
			ID:         uuid.NewString(),
			Identifier: key,
			Name:       in.Name,
			Role:       role,
		},
		PasswordHash: in.PasswordHash,
	}
	d.users[key] = rec
	return rec.Principal, nil
}

// Put inserts or replaces a record. An empty ID gets a fresh uuid.
func (d *Directory) Put(rec tokenguard.UserRecord) {
	rec.Identifier = normalize(rec.Identifier)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	d.mu.Lock()
	d.users[rec.Identifier] = rec
	d.mu.Unlock()
}

// Delete removes identifier. Tokens already issued for it stop resolving.
func (d *Directory) Delete(identifier string) {
	d.mu.Lock()
	delete(d.users, normalize(identifier))
	d.mu.Unlock()
}

// SetRole changes identifier's role; it returns false for unknown users.
func (d *Directory) SetRole(identifier string, role tokenguard.Role) bool {
	key := normalize(identifier)

	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[key]
	if !ok {
		return false
	}
	u.Role = role
	d.users[key] = u
	return true
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// CanonicalIdentifier implements tokenguard.IdentifierCanonicalizer with
// the same folding LookupByIdentifier applies.
func (d *Directory) CanonicalIdentifier(identifier string) string {
	return normalize(identifier)
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// SeedFile is the YAML layout read by LoadFile.
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

type SeedUser struct {
	ID           string `yaml:"id"`
	Identifier   string `yaml:"identifier"`
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"password_hash"`
}

// LoadFile seeds d from a YAML file of the form
//
//	users:
//	  - identifier: a@b.com
//	    name: Alice
//	    role: USER
//	    password_hash: $argon2id$v=19$...
func (d *Directory) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading user seed file: %w", err)
	}

	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("parsing user seed file: %w", err)
	}

	for i, u := range f.Users {
		if u.Identifier == "" || u.PasswordHash == "" {
			return i, fmt.Errorf("user seed %d: identifier and password_hash are required", i)
		}
		role := tokenguard.Role(strings.ToUpper(u.Role))
		if role == "" {
			role = tokenguard.RoleUser
		}
		if !role.Valid() {
			return i, fmt.Errorf("user seed %d: unknown role %q", i, u.Role)
		}
		d.Put(tokenguard.UserRecord{
			Principal: tokenguard.Principal{
				ID:         u.ID,
				Identifier: u.Identifier,
				Name:       u.Name,
				Role:       role,
			},
			PasswordHash: u.PasswordHash,
		})
	}

	return len(f.Users), nil
}
