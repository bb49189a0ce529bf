package deploy_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cspr-tools/cspr/deploy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTTL(t *testing.T) {
	valid := []struct {
		Input string
		TTL   time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"1h 30m", 90 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"2days", 48 * time.Hour},
		{"1day", 24 * time.Hour},
		{"1d 2hr 3min 4sec 5ms", 26*time.Hour + 3*time.Minute +
			4*time.Second + 5*time.Millisecond},
		{"500ms", 500 * time.Millisecond},
		{" 10s ", 10 * time.Second},
	}
	for _, test := range valid {
		ttl, err := deploy.ParseTTL(test.Input)
		require.NoError(t, err, test.Input)
		assert.Equal(t, deploy.TTL(test.TTL), ttl, test.Input)
	}

	invalid := []string{"", "30", "m", "30x", "1h -5m", "4294967296s",
		"1001days"}
	for _, input := range invalid {
		_, err := deploy.ParseTTL(input)
		assert.Error(t, err, input)
	}
}

func TestTTLString(t *testing.T) {
	tests := []struct {
		TTL    time.Duration
		String string
	}{
		{30 * time.Minute, "30m"},
		{24 * time.Hour, "1day"},
		{50*time.Hour + 30*time.Minute, "2days 2h 30m"},
		{1500 * time.Millisecond, "1s 500ms"},
		{0, "0ms"},
	}
	for _, test := range tests {
		ttl := deploy.TTL(test.TTL)
		assert.Equal(t, test.String, ttl.String())
		parsed, err := deploy.ParseTTL(ttl.String())
		require.NoError(t, err)
		if test.TTL > 0 {
			assert.Equal(t, ttl, parsed)
		}
	}
}

func TestTTLJSON(t *testing.T) {
	data, err := json.Marshal(deploy.TTL(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, `"1h"`, string(data))

	var ttl deploy.TTL
	require.NoError(t, json.Unmarshal([]byte(`"1h 30m"`), &ttl))
	assert.Equal(t, deploy.TTL(90*time.Minute), ttl)

	assert.EqualError(t, ttl.UnmarshalJSON([]byte(`5`)),
		"*deploy.TTL: expected JSON string")
	assert.EqualError(t, ttl.UnmarshalJSON([]byte(`"5 parsecs"`)),
		`*deploy.TTL: ttl: unknown unit "parsecs"`)
}

func TestTimestamp(t *testing.T) {
	ts, err := deploy.TimestampFromMillis(1605573564072)
	require.NoError(t, err)
	assert.Equal(t, uint64(1605573564072), ts.Millis())
	assert.Equal(t, "2020-11-17T00:39:24.072Z", ts.String())

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2020-11-17T00:39:24.072Z"`, string(data))

	var back deploy.Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ts.Millis(), back.Millis())

	// Sub-millisecond precision is dropped.
	back = deploy.NewTimestamp(ts.Add(999 * time.Microsecond))
	assert.Equal(t, ts.Millis(), back.Millis())

	assert.EqualError(t, back.UnmarshalJSON([]byte(`1605573564072`)),
		"*deploy.Timestamp: expected JSON string")
}

func TestTimestampRange(t *testing.T) {
	ts, err := deploy.TimestampFromMillis(deploy.MaxTimestampMillis)
	require.NoError(t, err)
	assert.NoError(t, ts.Validate())
	assert.Equal(t, deploy.MaxTimestampMillis, ts.Millis())

	_, err = deploy.TimestampFromMillis(deploy.MaxTimestampMillis + 1)
	assert.True(t, errors.Is(err, deploy.ErrTimestampRange), "%v", err)

	ts, err = deploy.TimestampFromMillis(1)
	require.NoError(t, err)
	assert.NoError(t, ts.Validate())

	for _, tm := range []time.Time{
		time.Unix(0, 0),
		time.Unix(-1, 0),
		time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		err := deploy.NewTimestamp(tm).Validate()
		assert.True(t, errors.Is(err, deploy.ErrTimestampRange),
			"%v: %v", tm, err)
	}
}
