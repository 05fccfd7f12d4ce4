package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTokenPrefix        = "UID"
	DefaultTokenSuffixLength  = 6
	DefaultMaxAttemptsPerSlot = 64

	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	// Largest multiple of 36 that fits in a byte; higher bytes are discarded
	// so every symbol is equally likely.
	base36Cutoff = 252
)

type TokenGeneratorConfig struct {
	Prefix             string
	SuffixLength       int
	MaxAttemptsPerSlot int
}

type TokenGeneratorOption func(*TokenGenerator)

// WithRandomSource replaces crypto/rand as the suffix entropy source.
func WithRandomSource(r io.Reader) TokenGeneratorOption {
	return func(g *TokenGenerator) { g.random = r }
}

func WithClock(now func() time.Time) TokenGeneratorOption {
	return func(g *TokenGenerator) { g.now = now }
}

// TokenGenerator produces identifiers of the form <prefix>-<unix ms>-<suffix>.
// It has no side effects beyond reading its entropy source.
type TokenGenerator struct {
	prefix      string
	suffixLen   int
	maxAttempts int
	random      io.Reader
	now         func() time.Time
}

func NewTokenGenerator(cfg TokenGeneratorConfig, opts ...TokenGeneratorOption) *TokenGenerator {
	g := &TokenGenerator{
		prefix:      cfg.Prefix,
		suffixLen:   cfg.SuffixLength,
		maxAttempts: cfg.MaxAttemptsPerSlot,
		random:      rand.Reader,
		now:         time.Now,
	}
	if g.prefix == "" {
		g.prefix = DefaultTokenPrefix
	}
	if g.suffixLen <= 0 {
		g.suffixLen = DefaultTokenSuffixLength
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = DefaultMaxAttemptsPerSlot
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *TokenGenerator) Prefix() string { return g.prefix }

// Generate returns n distinct tokens, none of which appear in known, in the
// order they were produced.
func (g *TokenGenerator) Generate(n int, known []string) ([]string, error) {
	taken := make(map[string]struct{}, len(known)+n)
	for _, k := range known {
		taken[k] = struct{}{}
	}
	out := make([]string, 0, n)
	for slot := 0; slot < n; slot++ {
		token, err := g.nextDistinct(slot, taken)
		if err != nil {
			return nil, err
		}
		taken[token] = struct{}{}
		out = append(out, token)
	}
	return out, nil
}

func (g *TokenGenerator) nextDistinct(slot int, taken map[string]struct{}) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		candidate, err := g.candidate()
		if err != nil {
			return "", err
		}
		if _, exists := taken[candidate]; !exists {
			return candidate, nil
		}
	}
	return "", &GenerationExhaustedError{Slot: slot, Attempts: g.maxAttempts}
}

func (g *TokenGenerator) candidate() (string, error) {
	suffix, err := g.suffix()
	if err != nil {
		return "", err
	}
	return g.prefix + "-" + strconv.FormatInt(g.now().UnixMilli(), 10) + "-" + suffix, nil
}

func (g *TokenGenerator) suffix() (string, error) {
	var sb strings.Builder
	sb.Grow(g.suffixLen)
	buf := make([]byte, g.suffixLen*2)
	for sb.Len() < g.suffixLen {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("read token entropy: %w", err)
		}
		for _, b := range buf {
			if b >= base36Cutoff {
				continue
			}
			sb.WriteByte(base36Alphabet[int(b)%len(base36Alphabet)])
			if sb.Len() == g.suffixLen {
				break
			}
		}
	}
	return sb.String(), nil
}

// ParseCount validates an operator-entered batch size.
func ParseCount(raw string, max int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, &InvalidCountError{Input: raw, Reason: "a number is required"}
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, &InvalidCountError{Input: raw, Reason: "not a whole number"}
	}
	if n <= 0 {
		return 0, &InvalidCountError{Input: raw, Reason: "must be greater than zero"}
	}
	if max > 0 && n > max {
		return 0, &InvalidCountError{Input: raw, Reason: fmt.Sprintf("must not exceed %d", max)}
	}
	return n, nil
}
