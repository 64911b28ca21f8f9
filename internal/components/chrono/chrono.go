package chrono

import (
	"time"
	// zone names must resolve on hosts without a zoneinfo database
	_ "time/tzdata"
)

const (
	// DateLayout is the layout of the collection date stamped on rows and file names.
	DateLayout = "2006-01-02"
	// TimestampLayout is the layout of the collection timestamp, safe for file names.
	TimestampLayout = "2006-01-02_15-04-05"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
	Location() *time.Location
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime loads the named zone (ex. "Asia/Kolkata"), an empty name means UTC.
func NewStandardTime(zone string) (StandardTime, error) {
	if zone == "" {
		return StandardTime{location: time.UTC}, nil
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		return StandardTime{}, err
	}
	return StandardTime{location: location}, nil
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}

// FixedTime always returns the same instant, it is used to make runs reproducible in tests.
type FixedTime struct {
	Time time.Time
}

func (f FixedTime) Now() time.Time {
	return f.Time
}

func (f FixedTime) Location() *time.Location {
	return f.Time.Location()
}

// Date formats t with DateLayout.
func Date(t time.Time) string {
	return t.Format(DateLayout)
}

// Timestamp formats t with TimestampLayout.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
