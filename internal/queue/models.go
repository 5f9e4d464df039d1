package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue entry.
type Status string

const (
	StatusPremiered  Status = "premiered"
	StatusPrequeued  Status = "prequeued"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusDiscarded  Status = "discarded"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPremiered,
	StatusPrequeued,
	StatusPending,
	StatusProcessing,
	StatusDone,
	StatusDiscarded,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// terminalStatuses are states an entry never leaves without operator action.
var terminalStatuses = map[Status]struct{}{
	StatusDone:      {},
	StatusDiscarded: {},
	StatusFailed:    {},
}

// Entry represents a queued set persisted in SQLite. Entries are never
// deleted; terminal states keep the record as the submission ledger.
type Entry struct {
	ID              int64
	VideoID         string
	Status          Status
	QueuedAt        time.Time
	UpdatedAt       time.Time
	PremiereEnds    *time.Time
	NAttempts       int
	DiscardedReason string
	VideoInfoJSON   string
	DurationSec     int
	NbChapters      int
	ClaimToken      string
	SubmittedBy     string
	NotifyEmail     bool
	PlaySound       bool
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the entry reached a state the pipeline will not
// advance on its own.
func (e Entry) IsTerminal() bool {
	_, ok := terminalStatuses[e.Status]
	return ok
}

// IsAwaitingWork reports whether the entry is eligible for a worker claim or
// validation pass.
func (e Entry) IsAwaitingWork() bool {
	return e.Status == StatusPrequeued || e.Status == StatusPending
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Waiting    int
	Processing int
	Premiered  int
	Done       int
	Discarded  int
	Failed     int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalEntries     int
	Error            string
}
