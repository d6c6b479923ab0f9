package domain

import (
	"strings"
	"time"
	"unicode"
)

// Convention is the naming convention attached to one channel
type Convention struct {
	ChannelID string
	Pattern   string
	CreatedAt time.Time
	UpdatedAt time.Time
	// Revision counts writes since the row was created, starting at 1
	Revision int64
}

// Created reports whether the write that returned this convention created it
func (c *Convention) Created() bool {
	return c.Revision == 1
}

// Matches reports whether the given name satisfies this convention
func (c *Convention) Matches(name string) bool {
	return Compile(c.Pattern)(name)
}

// ReconcileJob is the payload handed to the asynchronous reconciler
type ReconcileJob struct {
	ChannelID string `json:"channel_id"`
	Pattern   string `json:"pattern"`
}

// NormalizePattern trims surrounding whitespace from admin input
func NormalizePattern(text string) string {
	return strings.TrimSpace(text)
}

// ValidatePattern checks a normalized, non-empty convention pattern.
// Patterns must not contain whitespace and must contain at least one
// literal character; a pattern made only of wildcards would match every
// member of the workspace.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return &ValidationError{Pattern: pattern, Reason: "convention is empty"}
	}
	if strings.IndexFunc(pattern, unicode.IsSpace) >= 0 {
		return &ValidationError{Pattern: pattern, Reason: "convention must be a single word without spaces"}
	}
	if strings.Trim(pattern, Wildcard) == "" {
		return &ValidationError{Pattern: pattern, Reason: "convention must contain at least one literal character"}
	}
	return nil
}
