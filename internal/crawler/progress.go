package crawler

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// EventKind classifies a progress event from a crawl worker.
type EventKind string

const (
	EventFetched EventKind = "fetched"
	EventSkipped EventKind = "skipped"
	EventErrored EventKind = "errored"
	EventImage   EventKind = "image"
)

// Event is one progress notification. Workers never touch shared counters;
// they send events to the single reporter goroutine that owns the Summary.
type Event struct {
	Kind      EventKind
	URL       string
	Depth     int
	ErrorKind string // taxonomy bucket when Kind == EventErrored
}

// Summary aggregates a run's outcome.
type Summary struct {
	Succeeded  int
	Skipped    int
	Errored    int
	Images     int
	ErrorKinds map[string]int
	Started    time.Time
	Finished   time.Time
}

// String renders the user-facing one-line outcome plus error buckets.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d succeeded, %d skipped, %d errored",
		s.Succeeded, s.Skipped, s.Errored)
	if s.Images > 0 {
		fmt.Fprintf(&b, ", %d images", s.Images)
	}
	if len(s.ErrorKinds) > 0 {
		kinds := make([]string, 0, len(s.ErrorKinds))
		for k := range s.ErrorKinds {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		b.WriteString(" (")
		for i, k := range kinds {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %d", k, s.ErrorKinds[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

// reporter owns the summary state and consumes worker events.
type reporter struct {
	events  chan Event
	done    chan struct{}
	summary *Summary
	logger  *slog.Logger
}

func newReporter(logger *slog.Logger, buffer int) *reporter {
	return &reporter{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
		summary: &Summary{
			ErrorKinds: make(map[string]int),
			Started:    time.Now(),
		},
		logger: logger.With("component", "progress"),
	}
}

// run consumes events until the channel is closed. Single goroutine; no
// other code mutates the summary.
func (r *reporter) run() {
	defer close(r.done)
	for ev := range r.events {
		switch ev.Kind {
		case EventFetched:
			r.summary.Succeeded++
			if r.summary.Succeeded%25 == 0 {
				r.logger.Info("crawl progress",
					"fetched", r.summary.Succeeded,
					"skipped", r.summary.Skipped,
					"errored", r.summary.Errored,
				)
			}
		case EventSkipped:
			r.summary.Skipped++
		case EventErrored:
			r.summary.Errored++
			if ev.ErrorKind != "" {
				r.summary.ErrorKinds[ev.ErrorKind]++
			}
		case EventImage:
			r.summary.Images++
		}
	}
	r.summary.Finished = time.Now()
}

// wait closes the event stream and blocks until the summary is final.
func (r *reporter) wait() *Summary {
	close(r.events)
	<-r.done
	return r.summary
}
