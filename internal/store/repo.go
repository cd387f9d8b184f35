package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup by ID matches nothing.
var ErrNotFound = errors.New("not found")

// QualityUnrated marks a night that has not been rated yet.
const QualityUnrated = -1

// Night is one tracked sleep session.
type Night struct {
	ID        int64
	StartTime time.Time
	EndTime   time.Time
	Quality   int
}

// NewNight returns an unsaved night that starts (and, for now, ends) at now.
func NewNight(now time.Time) Night {
	at := time.UnixMilli(now.UnixMilli())
	return Night{
		StartTime: at,
		EndTime:   at,
		Quality:   QualityUnrated,
	}
}

// InProgress reports whether the night has been started but not stopped.
func (n Night) InProgress() bool {
	return n.EndTime.Equal(n.StartTime)
}

// Duration is the time slept; zero while in progress.
func (n Night) Duration() time.Duration {
	if n.InProgress() {
		return 0
	}
	return n.EndTime.Sub(n.StartTime)
}

// NightRepo persists nights. Implementations must be safe for concurrent use.
type NightRepo interface {
	// Latest returns the most recently inserted night, or nil if none exist.
	Latest(ctx context.Context) (*Night, error)

	// All returns every night, newest first.
	All(ctx context.Context) ([]Night, error)

	// Get returns the night with the given ID or ErrNotFound.
	Get(ctx context.Context, id int64) (*Night, error)

	// Insert stores a new night and sets its ID.
	Insert(ctx context.Context, n *Night) error

	// Update overwrites the stored night with the same ID.
	Update(ctx context.Context, n Night) error

	// Clear deletes every night.
	Clear(ctx context.Context) error

	// Subscribe returns a channel that receives a value after every change.
	// Notifications are coalesced; call the returned func to unsubscribe.
	Subscribe() (<-chan struct{}, func())
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	From  time.Time // timestamp >= From
	To    time.Time // timestamp <= To
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a stored LLM request event.
type LLMRequestEventRecord struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// EventRepo provides append and query access to audit events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error)

	// GetLLMEvent returns one LLM event by ID, or nil if it doesn't exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEventRecord, error)
}
