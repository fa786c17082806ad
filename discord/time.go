package discord

import (
	"encoding/json"
	"time"
)

type Timestamp time.Time

const TimestampFormat = time.RFC3339 // same as ISO8601

var (
	_ json.Unmarshaler = (*Timestamp)(nil)
	_ json.Marshaler   = (*Timestamp)(nil)
)

func (t *Timestamp) UnmarshalJSON(v []byte) error {
	str := string(v)
	if str == "null" {
		*t = Timestamp{}
		return nil
	}

	if len(str) > 1 && str[0] == '"' {
		str = str[1 : len(str)-1]
	}

	r, err := time.Parse(TimestampFormat, str)
	if err != nil {
		return err
	}

	*t = Timestamp(r)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.IsValid() {
		return []byte("null"), nil
	}
	return []byte(`"` + time.Time(t).Format(TimestampFormat) + `"`), nil
}

// IsValid returns false if the timestamp is the zero time.
func (t Timestamp) IsValid() bool {
	return !time.Time(t).IsZero()
}

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// Milliseconds is a duration encoded as an integer millisecond count, used by
// gateway intervals.
type Milliseconds float64

func DurationToMilliseconds(dura time.Duration) Milliseconds {
	return Milliseconds(dura.Milliseconds())
}

func (ms Milliseconds) Duration() time.Duration {
	return time.Duration(ms * Milliseconds(time.Millisecond))
}
