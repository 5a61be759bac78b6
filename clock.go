package tablemap

import "time"

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Clock supplies the current time for audit column defaults.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// FixedClock always returns the same instant.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Now returns the current instant.
func Now() time.Time { return time.Now() }

// FormatDate formats t as YYYY-MM-DD. No zone conversion happens.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// FormatDateTime formats t as YYYY-MM-DD HH:MM:SS. No zone conversion happens.
func FormatDateTime(t time.Time) string { return t.Format(DateTimeLayout) }
