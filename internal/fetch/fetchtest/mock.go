// Package fetchtest provides an in-memory provider for exercising fetch and
// report without a network.
package fetchtest

import (
	"context"
	"fmt"
	"sync"

	"jobtally/internal/fetch"
	"jobtally/internal/model"
	"jobtally/internal/query"
)

// MockAPI is a scripted Lister and MetadataGetter.
type MockAPI struct {
	mu sync.Mutex

	// Pages per query; a query without an entry lists nothing.
	Pages map[query.Query][][]string

	// DefaultPages is served for queries missing from Pages when non-nil.
	DefaultPages [][]string

	// Receipt times in epoch milliseconds. A ref without an entry has no
	// timestamp.
	Millis map[string]int64

	// Error injection
	ListError    map[query.Query]error // fails one page of a query
	ListErrorAt  map[query.Query]int   // page index at which ListError fires, 0 when unset
	MetadataErrs map[string]error

	// Call tracking
	ListCalls     []ListCall
	MetadataCalls []string
}

// ListCall records one ListPage invocation.
type ListCall struct {
	Mailbox string
	Query   query.Query
	Cursor  string
}

// NewMockAPI creates an empty mock.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		Pages:        make(map[query.Query][][]string),
		Millis:       make(map[string]int64),
		ListError:    make(map[query.Query]error),
		ListErrorAt:  make(map[query.Query]int),
		MetadataErrs: make(map[string]error),
	}
}

// ListPage serves pages with cursors of the form "page_N".
func (m *MockAPI) ListPage(ctx context.Context, mailbox string, q query.Query, cursor string) (fetch.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls = append(m.ListCalls, ListCall{Mailbox: mailbox, Query: q, Cursor: cursor})

	pageNum := 0
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "page_%d", &pageNum); err != nil {
			return fetch.Page{}, fmt.Errorf("invalid page token: %s", cursor)
		}
	}
	if err, ok := m.ListError[q]; ok && err != nil && m.ListErrorAt[q] == pageNum {
		return fetch.Page{}, err
	}

	pages, ok := m.Pages[q]
	if !ok {
		pages = m.DefaultPages
	}
	if pageNum >= len(pages) {
		return fetch.Page{}, nil
	}
	page := pages[pageNum]
	refs := make([]model.MessageRef, len(page))
	for i, id := range page {
		refs[i] = model.MessageRef{ID: id}
	}
	var next string
	if pageNum+1 < len(pages) {
		next = fmt.Sprintf("page_%d", pageNum+1)
	}
	return fetch.Page{Refs: refs, NextCursor: next}, nil
}

// ReceivedAt returns the scripted receipt time.
func (m *MockAPI) ReceivedAt(ctx context.Context, mailbox string, ref model.MessageRef) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MetadataCalls = append(m.MetadataCalls, ref.ID)

	if err, ok := m.MetadataErrs[ref.ID]; ok && err != nil {
		return 0, false, err
	}
	ms, ok := m.Millis[ref.ID]
	return ms, ok, nil
}

// ListCallsFor counts ListPage calls made for q.
func (m *MockAPI) ListCallsFor(q query.Query) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.ListCalls {
		if c.Query == q {
			n++
		}
	}
	return n
}
