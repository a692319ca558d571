// Package gmail adapts the Gmail REST API to the listing and metadata
// contracts of package fetch, and owns OAuth credential acquisition.
package gmail

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	gmailv1 "google.golang.org/api/gmail/v1"

	"jobtally/internal/fetch"
	"jobtally/internal/model"
	"jobtally/internal/query"
)

// pageSize is Gmail's maximum page size for messages.list.
const pageSize = 500

// API implements fetch.Lister and fetch.MetadataGetter.
type API struct {
	svc     *gmailv1.Service
	limiter *rate.Limiter
}

var (
	_ fetch.Lister         = (*API)(nil)
	_ fetch.MetadataGetter = (*API)(nil)
)

// NewAPI wraps svc. A positive qps paces every request; retries and
// timeouts are left to the HTTP client.
func NewAPI(svc *gmailv1.Service, qps float64) *API {
	a := &API{svc: svc}
	if qps > 0 {
		burst := int(qps)
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
	return a
}

func (a *API) wait(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// ListPage fetches one page of message ids matching q. Drafts and spam
// handling is left to the query itself.
func (a *API) ListPage(ctx context.Context, mailbox string, q query.Query, cursor string) (fetch.Page, error) {
	if err := a.wait(ctx); err != nil {
		return fetch.Page{}, err
	}
	call := a.svc.Users.Messages.List(mailbox).
		Q(q.String()).
		MaxResults(pageSize).
		Fields("messages/id", "nextPageToken").
		Context(ctx)
	if cursor != "" {
		call = call.PageToken(cursor)
	}
	resp, err := call.Do()
	if err != nil {
		return fetch.Page{}, fmt.Errorf("list messages: %w", err)
	}
	page := fetch.Page{
		Refs:       make([]model.MessageRef, 0, len(resp.Messages)),
		NextCursor: resp.NextPageToken,
	}
	for _, m := range resp.Messages {
		if m == nil || m.Id == "" {
			continue
		}
		page.Refs = append(page.Refs, model.MessageRef{ID: m.Id})
	}
	return page, nil
}

// ReceivedAt returns Gmail's internalDate, the epoch milliseconds at which
// the message was received. Gmail omits the field when it is zero.
func (a *API) ReceivedAt(ctx context.Context, mailbox string, ref model.MessageRef) (int64, bool, error) {
	if err := a.wait(ctx); err != nil {
		return 0, false, err
	}
	msg, err := a.svc.Users.Messages.Get(mailbox, ref.ID).
		Format("metadata").
		Fields("id", "internalDate").
		Context(ctx).
		Do()
	if err != nil {
		return 0, false, fmt.Errorf("get message %s: %w", ref.ID, err)
	}
	if msg.InternalDate == 0 {
		return 0, false, nil
	}
	return msg.InternalDate, true, nil
}
