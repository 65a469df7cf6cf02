package schedule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want TimeOfDay
	}{
		{"00:00", 0},
		{"08:00", 480},
		{"09:30", 570},
		{"23:59", 1439},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.in, got.String())
	}
}

func TestParseTimeOfDayRejectsOutOfRange(t *testing.T) {
	for _, in := range []string{"24:00", "12:60", "-1:00", "noon"} {
		_, err := ParseTimeOfDay(in)
		assert.Error(t, err, in)
	}
}

func TestTimeOfDayAdd(t *testing.T) {
	start := MustTimeOfDay("09:00")
	assert.Equal(t, MustTimeOfDay("09:30"), start.Add(30))
	assert.Equal(t, MustTimeOfDay("11:00"), start.Add(120))

	// Passing midnight is representable but invalid as a wall-clock time.
	assert.False(t, MustTimeOfDay("23:45").Add(30).Valid())
}

func TestTimeOfDayJSON(t *testing.T) {
	data, err := json.Marshal(MustTimeOfDay("14:05"))
	require.NoError(t, err)
	assert.Equal(t, `"14:05"`, string(data))

	var parsed TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"08:15"`), &parsed))
	assert.Equal(t, MustTimeOfDay("08:15"), parsed)

	assert.Error(t, json.Unmarshal([]byte(`"25:00"`), &parsed))
}
