// Package slug derives URL-safe, collision-free article identifiers.
package slug

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMaxAttempts = 50
	DefaultMaxLength   = 96
	fallbackPrefix     = "article"
	separator          = '-'
)

// Lookup reports whether a slug is already assigned to an article,
// drafts included.
type Lookup interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type Config struct {
	MaxAttempts int
	MaxLength   int
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		MaxLength:   DefaultMaxLength,
	}
}

type Generator struct {
	lookup Lookup
	cfg    Config
	now    func() time.Time
}

func NewGenerator(lookup Lookup, cfg Config) *Generator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	return &Generator{
		lookup: lookup,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for fallback tokens.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Base returns the normalized slug before collision resolution.
// It is never empty.
func (g *Generator) Base(title, locality string) string {
	source := title
	if strings.TrimSpace(locality) != "" {
		source = title + " " + locality
	}

	base := truncate(Normalize(source), g.cfg.MaxLength)
	if base == "" {
		base = fallbackPrefix + string(separator) + strconv.FormatInt(g.now().UnixNano(), 36)
	}
	return base
}

// Generate resolves the first free slug for title and locality: the base
// slug, then base-1, base-2 and so on. The check is read-then-write, so the
// store must still enforce uniqueness on insert.
func (g *Generator) Generate(ctx context.Context, title, locality string) (string, error) {
	base := g.Base(title, locality)

	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = base + string(separator) + strconv.Itoa(attempt)
		}

		taken, err := g.lookup.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: base %q after %d attempts", apperr.ErrSlugCollisionExhausted, base, g.cfg.MaxAttempts)
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize strips diacritics, lower-cases and collapses every run of
// characters outside [a-z0-9] into a single '-'. Leading and trailing
// separators are dropped.
func Normalize(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false

	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteRune(separator)
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	return b.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if i := strings.LastIndexByte(cut, separator); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, string(separator))
}
