package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"gopkg.in/yaml.v3"
)

// Directory resolves staff accounts by email.
type Directory interface {
	Lookup(ctx context.Context, email string) (domain.Actor, bool, error)
}

type StaticDirectory struct {
	byEmail map[string]domain.Actor
}

type staffFile struct {
	Staff []domain.Actor `yaml:"staff"`
}

func NewStaticDirectory(actors []domain.Actor) (*StaticDirectory, error) {
	byEmail := make(map[string]domain.Actor, len(actors))
	for _, a := range actors {
		email := normalizeEmail(a.Email)
		if email == "" || a.ID == "" {
			return nil, errors.New("staff entry needs an id and an email")
		}
		if !validHash(a.PasswordHash) {
			return nil, fmt.Errorf("staff entry %s: password_hash is not a bcrypt hash", email)
		}
		if _, dup := byEmail[email]; dup {
			return nil, fmt.Errorf("staff entry %s is listed twice", email)
		}
		a.Email = email
		byEmail[email] = a
	}
	return &StaticDirectory{byEmail: byEmail}, nil
}

// LoadDirectory reads a YAML document of the form
//
//	staff:
//	  - id: reporter-1
//	    email: reporter@lantern.news
//	    name: Reporter One
//	    password_hash: $2a$12$...
func LoadDirectory(r io.Reader) (*StaticDirectory, error) {
	var f staffFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode staff file: %w", err)
	}
	return NewStaticDirectory(f.Staff)
}

func LoadDirectoryFile(path string) (*StaticDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open staff file: %w", err)
	}
	defer f.Close()
	return LoadDirectory(f)
}

func (d *StaticDirectory) Lookup(_ context.Context, email string) (domain.Actor, bool, error) {
	a, ok := d.byEmail[normalizeEmail(email)]
	return a, ok, nil
}

func (d *StaticDirectory) Len() int {
	return len(d.byEmail)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
