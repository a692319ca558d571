package fetch

import (
	"context"
	"time"

	"jobtally/internal/model"
)

// MetadataGetter fetches a message's provider-assigned receipt time in
// milliseconds since the epoch. ok is false when the field is absent.
type MetadataGetter interface {
	ReceivedAt(ctx context.Context, mailbox string, ref model.MessageRef) (millis int64, ok bool, err error)
}

// SkipReason explains why a ref produced no record.
type SkipReason int

const (
	SkipFetchFailed SkipReason = iota + 1
	SkipNoTimestamp
)

func (r SkipReason) String() string {
	switch r {
	case SkipFetchFailed:
		return "fetch failed"
	case SkipNoTimestamp:
		return "no timestamp"
	default:
		return "unknown"
	}
}

// Skip records a ref that was dropped.
type Skip struct {
	Ref    model.MessageRef
	Reason SkipReason
	Err    error // set for SkipFetchFailed
}

// Resolution is the outcome of resolving a batch of refs.
type Resolution struct {
	Records []model.MessageRecord
	Skipped []Skip
}

// Progress is emitted after every ref, resolved or not.
type Progress struct {
	Done  int
	Total int
}

// Resolver turns refs into records, one metadata fetch at a time.
type Resolver struct {
	Getter   MetadataGetter
	Mailbox  string
	Location *time.Location // defaults to time.Local
}

// Resolve fetches each ref's receipt time. A failing fetch or a missing
// timestamp skips that ref only; the batch always runs to the end unless
// ctx is cancelled, in which case the remaining refs are skipped as failed.
func (r *Resolver) Resolve(ctx context.Context, refs []model.MessageRef, progress func(Progress)) Resolution {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	res := Resolution{Records: make([]model.MessageRecord, 0, len(refs))}
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			res.Skipped = append(res.Skipped, Skip{Ref: ref, Reason: SkipFetchFailed, Err: err})
		} else {
			millis, ok, err := r.Getter.ReceivedAt(ctx, r.Mailbox, ref)
			switch {
			case err != nil:
				res.Skipped = append(res.Skipped, Skip{Ref: ref, Reason: SkipFetchFailed, Err: err})
			case !ok:
				res.Skipped = append(res.Skipped, Skip{Ref: ref, Reason: SkipNoTimestamp})
			default:
				res.Records = append(res.Records, model.MessageRecord{Ref: ref, Received: FromMillis(millis, loc)})
			}
		}
		if progress != nil {
			progress(Progress{Done: i + 1, Total: len(refs)})
		}
	}
	return res
}

// Times returns the receipt times of the resolved records.
func (r Resolution) Times() []time.Time {
	out := make([]time.Time, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Received
	}
	return out
}

// FromMillis converts epoch milliseconds to a whole-second time in loc.
func FromMillis(millis int64, loc *time.Location) time.Time {
	return time.Unix(millis/1000, 0).In(loc)
}
