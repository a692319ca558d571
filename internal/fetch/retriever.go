// Package fetch exhausts provider listings and resolves message receipt times.
package fetch

import (
	"context"
	"fmt"

	"jobtally/internal/model"
	"jobtally/internal/query"
)

// Page is one listing response. An empty NextCursor ends the listing.
type Page struct {
	Refs       []model.MessageRef
	NextCursor string
}

// Lister is the provider listing endpoint.
type Lister interface {
	ListPage(ctx context.Context, mailbox string, q query.Query, cursor string) (Page, error)
}

// ListError reports which page of which query failed.
type ListError struct {
	Query query.Query
	Page  int
	Err   error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list page %d of %q: %v", e.Page, e.Query, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// Retriever collects every ref matching a query, one page at a time.
type Retriever struct {
	Lister  Lister
	Mailbox string

	// OnPage, when set, is called after each successful page.
	OnPage func(q query.Query, page int, refs int)
}

// Collect follows continuation cursors until the provider stops returning
// one. Refs are de-duplicated by ID in first-seen order. Any page failure
// discards everything collected so far: an undercount must never pass for
// a count.
//
// There is no page cap. A provider that always returns a cursor never ends.
func (r *Retriever) Collect(ctx context.Context, q query.Query) ([]model.MessageRef, error) {
	if q.Matchless() {
		return nil, nil
	}
	seen := make(map[string]struct{})
	var refs []model.MessageRef
	cursor := ""
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, &ListError{Query: q, Page: page, Err: err}
		}
		resp, err := r.Lister.ListPage(ctx, r.Mailbox, q, cursor)
		if err != nil {
			return nil, &ListError{Query: q, Page: page, Err: err}
		}
		for _, ref := range resp.Refs {
			if _, dup := seen[ref.ID]; dup {
				continue
			}
			seen[ref.ID] = struct{}{}
			refs = append(refs, ref)
		}
		if r.OnPage != nil {
			r.OnPage(q, page, len(resp.Refs))
		}
		if resp.NextCursor == "" {
			return refs, nil
		}
		cursor = resp.NextCursor
	}
}

// Count is Collect reduced to its cardinality; a failed listing counts 0.
func (r *Retriever) Count(ctx context.Context, q query.Query) (int, error) {
	refs, err := r.Collect(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(refs), nil
}
