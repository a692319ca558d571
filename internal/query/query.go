// Package query turns taxonomy phrases into Gmail search strings.
package query

import (
	"strings"
	"time"

	"jobtally/internal/model"
)

// DateLayout is the format Gmail expects after "after:".
const DateLayout = "2006/01/02"

const draftFilter = "-is:draft"

// Query is a generated Gmail search string. The zero value matches nothing
// and must never reach the provider, where an empty q lists the whole mailbox.
type Query string

// Matchless reports whether q is the "matches nothing" sentinel.
func (q Query) Matchless() bool { return q == "" }

func (q Query) String() string { return string(q) }

// Builder produces date-bounded queries. Now defaults to time.Now and Location
// to time.Local; tests freeze both.
type Builder struct {
	Now      func() time.Time
	Location *time.Location
}

// NewBuilder returns a Builder evaluating "today" in loc.
func NewBuilder(loc *time.Location) Builder {
	return Builder{Now: time.Now, Location: loc}
}

// Since returns the lower date bound for a look-back window of days.
// Negative windows are treated as zero.
func (b Builder) Since(days int) time.Time {
	if days < 0 {
		days = 0
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	loc := b.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc).AddDate(0, 0, -days)
}

// ForPhrase builds the query counting a single phrase.
func (b Builder) ForPhrase(p model.Phrase, days int) Query {
	return b.ForPhrases([]model.Phrase{p}, days)
}

// ForTaxonomy builds the combined, non-redundant query over every phrase.
func (b Builder) ForTaxonomy(t model.Taxonomy, days int) Query {
	return b.ForPhrases(t, days)
}

// ForPhrases ORs the scoped terms of phrases, excludes drafts and bounds the
// result by the look-back window. No phrases yields the matchless Query.
func (b Builder) ForPhrases(phrases []model.Phrase, days int) Query {
	terms := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if t := Term(p); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return ""
	}
	combined := "(" + strings.Join(terms, " OR ") + ")"
	since := b.Since(days).Format(DateLayout)
	return Query("(" + combined + " " + draftFilter + ") after:" + since)
}

// Term wraps a phrase according to its scope. Gmail has no escape for double
// quotes inside a quoted phrase, so they are dropped.
func Term(p model.Phrase) string {
	text := strings.TrimSpace(strings.ReplaceAll(p.Text, `"`, ""))
	if text == "" {
		return ""
	}
	if p.Scope == model.ScopeSubject {
		return `subject:"` + text + `"`
	}
	return `"` + text + `"`
}
