package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"

	// input layouts also take unpadded month, day and hour
	parseDateLayout     = "2006-1-2"
	parseDateTimeLayout = "2006-1-2 15:04:05"
)

var (
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrStartAfterEnd     = errors.New("start is after end")
)

// Window is the request boundary in epoch milliseconds.
// Start == 0 leaves the lower bound open.
type Window struct {
	Start int64
	End   int64
}

// Bounded reports whether a lower bound was requested.
func (w Window) Bounded() bool {
	return w.Start > 0
}

// Resolver turns optional human date strings into a Window.
type Resolver struct {
	Now func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{Now: time.Now}
}

// Resolve interprets start and end as UTC. An empty end means now,
// an empty start means no lower bound.
func (r *Resolver) Resolve(start, end string) (Window, error) {
	var w Window

	if start != "" {
		t, err := Parse(start)
		if err != nil {
			return Window{}, err
		}
		w.Start = t.UnixMilli()
	}

	if end != "" {
		t, err := Parse(end)
		if err != nil {
			return Window{}, err
		}
		w.End = t.UnixMilli()
	} else {
		now := time.Now
		if r != nil && r.Now != nil {
			now = r.Now
		}
		w.End = now().UTC().UnixMilli()
	}

	if w.Bounded() && w.Start > w.End {
		return Window{}, fmt.Errorf("%w: %s > %s", ErrStartAfterEnd, start, FormatMillis(w.End))
	}
	return w, nil
}

// Parse accepts "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS" and returns the UTC instant.
// Month, day and hour may omit the leading zero ("2024-1-5 9:30:00").
func Parse(s string) (time.Time, error) {
	layout := parseDateLayout
	if strings.Contains(s, " ") {
		layout = parseDateTimeLayout
	}
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q, use 'YYYY-MM-DD' or 'YYYY-MM-DD HH:MM:SS'", ErrInvalidDateFormat, s)
	}
	return t, nil
}

// FormatMillis renders an epoch-ms instant in the DateTimeLayout, UTC.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DateTimeLayout)
}
