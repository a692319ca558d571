package model

import (
	"fmt"
	"strings"
	"time"
)

// Scope says where in a message a phrase has to appear to count as a match.
type Scope int

const (
	ScopeSubject  Scope = iota // subject line only
	ScopeAnywhere              // body, sender name or sender address
)

func (s Scope) String() string {
	switch s {
	case ScopeSubject:
		return "subject"
	case ScopeAnywhere:
		return "anywhere"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ParseScope accepts the config spelling of a scope. An empty scope means
// subject, the zero value.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "subject", "subject-only", "subjectonly", "":
		return ScopeSubject, nil
	case "anywhere", "body":
		return ScopeAnywhere, nil
	}
	return 0, fmt.Errorf("unknown scope %q", s)
}

// MarshalText lets scopes round-trip through TOML as strings.
func (s Scope) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Scope) UnmarshalText(b []byte) error {
	v, err := ParseScope(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Phrase is one literal search phrase of the taxonomy.
type Phrase struct {
	Text  string `toml:"text"`
	Scope Scope  `toml:"scope"`
}

// Taxonomy is the ordered phrase list. Order is significant: reports list
// per-phrase counts in taxonomy order.
type Taxonomy []Phrase

// Subject returns the subject-restricted phrases in taxonomy order.
func (t Taxonomy) Subject() []Phrase { return t.filter(ScopeSubject) }

// Anywhere returns the anywhere-in-message phrases in taxonomy order.
func (t Taxonomy) Anywhere() []Phrase { return t.filter(ScopeAnywhere) }

func (t Taxonomy) filter(s Scope) []Phrase {
	var out []Phrase
	for _, p := range t {
		if p.Scope == s {
			out = append(out, p)
		}
	}
	return out
}

// MessageRef is the provider's opaque message identifier.
type MessageRef struct {
	ID string
}

// MessageRecord pairs a message with its receipt time, truncated to seconds.
type MessageRecord struct {
	Ref      MessageRef
	Received time.Time
}
