package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// TimestampFormat is RFC3339 with millisecond precision, as used by nodes.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is a point in time with millisecond precision.
type Timestamp struct {
	time.Time
}

// Now returns the current time truncated to the millisecond.
func Now() Timestamp {
	return NewTimestamp(time.Now())
}

// NewTimestamp returns t in UTC truncated to the millisecond.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Millisecond)}
}

// MaxTimestampMillis is the latest Timestamp in milliseconds since the Unix
// epoch. Later times overflow the nanosecond count of a time.Time.
const MaxTimestampMillis uint64 = math.MaxInt64 / uint64(time.Millisecond)

// ErrTimestampRange is returned for a Timestamp that is not after the Unix
// epoch or is after MaxTimestampMillis.
var ErrTimestampRange = errors.New("timestamp out of range")

// TimestampFromMillis returns the Timestamp ms milliseconds after the Unix
// epoch.
func TimestampFromMillis(ms uint64) (Timestamp, error) {
	if ms > MaxTimestampMillis {
		return Timestamp{}, fmt.Errorf("%w: %v ms", ErrTimestampRange, ms)
	}
	return Timestamp{time.UnixMilli(int64(ms)).UTC()}, nil
}

// Validate returns ErrTimestampRange unless ts is after the Unix epoch and
// no later than MaxTimestampMillis.
func (ts Timestamp) Validate() error {
	ms := ts.UnixMilli()
	if ms < 1 || uint64(ms) > MaxTimestampMillis {
		return fmt.Errorf("%w: %v", ErrTimestampRange, ts)
	}
	return nil
}

// Millis returns the milliseconds since the Unix epoch. Call Validate
// first; the result is meaningless for a Timestamp out of range.
func (ts Timestamp) Millis() uint64 {
	return uint64(ts.UnixMilli())
}

func (ts Timestamp) String() string {
	return ts.UTC().Format(TimestampFormat)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%T: expected JSON string", ts)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("%T: %w", ts, err)
	}
	*ts = NewTimestamp(t)
	return nil
}

// TTL is the time a deploy remains valid after its Timestamp. Only whole
// milliseconds are encoded.
type TTL time.Duration

// Millis returns ttl in milliseconds.
func (ttl TTL) Millis() uint64 {
	return uint64(time.Duration(ttl) / time.Millisecond)
}

// TTLFromMillis returns a TTL of ms milliseconds.
func TTLFromMillis(ms uint64) TTL {
	return TTL(time.Duration(ms) * time.Millisecond)
}

const (
	day          = 24 * time.Hour
	maxParsedTTL = 1000 * day
)

var ttlUnits = map[string]time.Duration{
	"ms":   time.Millisecond,
	"s":    time.Second,
	"sec":  time.Second,
	"m":    time.Minute,
	"min":  time.Minute,
	"h":    time.Hour,
	"hr":   time.Hour,
	"d":    day,
	"day":  day,
	"days": day,
}

// ParseTTL parses a humanized duration such as "30m", "1h 30m", "2days" or
// "500ms". Terms may be separated by spaces.
func ParseTTL(s string) (TTL, error) {
	rest := strings.TrimSpace(s)
	if rest == "" {
		return 0, fmt.Errorf("ttl: empty duration")
	}
	var total time.Duration
	for rest != "" {
		i := strings.IndexFunc(rest, func(r rune) bool {
			return !unicode.IsDigit(r)
		})
		if i == 0 {
			return 0, fmt.Errorf("ttl: expected number: %q", s)
		}
		if i < 0 {
			return 0, fmt.Errorf("ttl: missing unit: %q", s)
		}
		n, err := strconv.ParseUint(rest[:i], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("ttl: %w", err)
		}
		rest = strings.TrimLeft(rest[i:], " ")

		j := strings.IndexFunc(rest, func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		if j < 0 {
			j = len(rest)
		}
		unit, ok := ttlUnits[rest[:j]]
		if !ok {
			return 0, fmt.Errorf("ttl: unknown unit %q", rest[:j])
		}
		rest = strings.TrimLeft(rest[j:], " ")

		if n > uint64(maxParsedTTL/unit) {
			return 0, fmt.Errorf("ttl: duration too large: %q", s)
		}
		total += time.Duration(n) * unit
		if total > maxParsedTTL {
			return 0, fmt.Errorf("ttl: duration too large: %q", s)
		}
	}
	return TTL(total), nil
}

// String returns the canonical humanized form of ttl, such as "1day 2h 30m"
// or "500ms". The result is accepted by ParseTTL.
func (ttl TTL) String() string {
	d := time.Duration(ttl).Truncate(time.Millisecond)
	if d <= 0 {
		return "0ms"
	}
	var terms []string
	if days := d / day; days > 0 {
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		terms = append(terms, fmt.Sprintf("%d%v", days, unit))
		d -= days * day
	}
	for _, u := range []struct {
		Unit string
		Size time.Duration
	}{{"h", time.Hour}, {"m", time.Minute}, {"s", time.Second},
		{"ms", time.Millisecond}} {
		if n := d / u.Size; n > 0 {
			terms = append(terms, fmt.Sprintf("%d%v", n, u.Unit))
			d -= n * u.Size
		}
	}
	return strings.Join(terms, " ")
}

func (ttl TTL) MarshalJSON() ([]byte, error) {
	return json.Marshal(ttl.String())
}

func (ttl *TTL) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%T: expected JSON string", ttl)
	}
	v, err := ParseTTL(s)
	if err != nil {
		return fmt.Errorf("%T: %w", ttl, err)
	}
	*ttl = v
	return nil
}

// Set implements pflag.Value.
func (ttl *TTL) Set(s string) error {
	v, err := ParseTTL(s)
	if err != nil {
		return err
	}
	*ttl = v
	return nil
}

// Type implements pflag.Value.
func (TTL) Type() string {
	return "duration"
}
