// Package pagination implements opaque keyset cursors over timestamped
// streams. Cursors encode the (timestamp, id) pair of the last item a page
// returned; the id breaks ties between events sharing a timestamp.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed is returned when a cursor string cannot be parsed.
var ErrMalformed = errors.New("invalid cursor")

// Cursor marks the last (timestamp, id) pair a page returned.
type Cursor struct {
	Timestamp time.Time
	ID        string
}

// Encode returns the opaque string form of a cursor position.
func Encode(ts time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", ts.UnixNano(), id)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// Decode parses an opaque cursor string. Empty input means "start from the
// top" and decodes to nil without error.
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrMalformed
	}
	sep := strings.IndexByte(string(raw), '|')
	if sep < 0 {
		return nil, ErrMalformed
	}
	nanos, err := strconv.ParseInt(string(raw[:sep]), 10, 64)
	if err != nil {
		return nil, ErrMalformed
	}
	return &Cursor{
		Timestamp: time.Unix(0, nanos).UTC(),
		ID:        string(raw[sep+1:]),
	}, nil
}

// Matches reports whether the item key equals this cursor position.
func (c *Cursor) Matches(ts time.Time, id string) bool {
	return ts.Equal(c.Timestamp) && id == c.ID
}

// ComputePage trims a limit+1 fetch down to one page. It returns the items
// to serve, the cursor for the following page, and whether more remain.
// key extracts the (timestamp, id) pair from an item.
func ComputePage[T any](items []T, limit int, key func(T) (time.Time, string)) ([]T, string, bool) {
	if len(items) <= limit {
		return items, "", false
	}
	items = items[:limit]
	ts, id := key(items[len(items)-1])
	return items, Encode(ts, id), true
}
