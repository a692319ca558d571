package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"jobtally/internal/fetch"
	"jobtally/internal/model"
	"jobtally/internal/query"
)

// fakeGmail serves messages.list in two pages and messages.get for a few ids.
type fakeGmail struct {
	queries []string
	tokens  []string
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/users/me/messages"):
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		tok := r.URL.Query().Get("pageToken")
		f.tokens = append(f.tokens, tok)
		if tok == "" {
			fmt.Fprint(w, `{"messages":[{"id":"a"},{"id":"b"}],"nextPageToken":"p2"}`)
			return
		}
		fmt.Fprint(w, `{"messages":[{"id":"c"}]}`)
	case strings.HasSuffix(path, "/users/me/messages/a"):
		fmt.Fprint(w, `{"id":"a","internalDate":"1700000000000"}`)
	case strings.HasSuffix(path, "/users/me/messages/nodate"):
		fmt.Fprint(w, `{"id":"nodate"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`)
	}
}

func newTestAPI(t *testing.T, h http.Handler) *API {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := gmailv1.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewAPI(svc, 0)
}

func TestAPI_ListPageThroughRetriever(t *testing.T) {
	fake := &fakeGmail{}
	api := newTestAPI(t, fake)
	q := query.Query(`((subject:"foo") -is:draft) after:2024/01/01`)

	r := &fetch.Retriever{Lister: api, Mailbox: "me"}
	refs, err := r.Collect(context.Background(), q)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []model.MessageRef{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if diff := cmp.Diff(want, refs); diff != "" {
		t.Fatalf("refs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", "p2"}, fake.tokens); diff != "" {
		t.Fatalf("page tokens mismatch (-want +got):\n%s", diff)
	}
	if fake.queries[0] != q.String() {
		t.Fatalf("q sent = %q", fake.queries[0])
	}
}

func TestAPI_ReceivedAt(t *testing.T) {
	api := newTestAPI(t, &fakeGmail{})
	ctx := context.Background()

	ms, ok, err := api.ReceivedAt(ctx, "me", model.MessageRef{ID: "a"})
	if err != nil || !ok || ms != 1700000000000 {
		t.Fatalf("a: ms=%d ok=%v err=%v", ms, ok, err)
	}
	if _, ok, err := api.ReceivedAt(ctx, "me", model.MessageRef{ID: "nodate"}); err != nil || ok {
		t.Fatalf("nodate: ok=%v err=%v", ok, err)
	}
	if _, _, err := api.ReceivedAt(ctx, "me", model.MessageRef{ID: "gone"}); err == nil {
		t.Fatal("gone: expected error")
	}
}

func TestAPI_ListErrorPropagates(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"insufficient scope"}}`)
	}))
	r := &fetch.Retriever{Lister: api, Mailbox: "me"}
	refs, err := r.Collect(context.Background(), query.Query("x"))
	var le *fetch.ListError
	if refs != nil || !errors.As(err, &le) {
		t.Fatalf("refs=%v err=%v", refs, err)
	}
}

func TestNewAPI_Pacing(t *testing.T) {
	if a := NewAPI(nil, 0); a.limiter != nil {
		t.Fatal("qps 0 must disable pacing")
	}
	a := NewAPI(nil, 0.5)
	if a.limiter == nil || a.limiter.Burst() != 1 {
		t.Fatalf("limiter = %+v", a.limiter)
	}
}
