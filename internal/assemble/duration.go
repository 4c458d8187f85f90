package assemble

import "time"

// Unavailable marks a field whose source signal was missing.
const Unavailable = "<unavailable>"

// Duration is a signed nanosecond value with its rendering.
type Duration struct {
	NS     int64  `json:"ns"`
	Pretty string `json:"pretty"`
	Valid  bool   `json:"valid"`
}

// NewDuration wraps ns. Pretty is always derived from ns.
func NewDuration(ns int64) Duration {
	return Duration{NS: ns, Pretty: Pretty(ns), Valid: true}
}

// UnavailableDuration is the placeholder for a missing timestamp.
func UnavailableDuration() Duration {
	return Duration{Pretty: Unavailable}
}

// Sub returns d - other, unavailable when either side is.
func (d Duration) Sub(other Duration) Duration {
	if !d.Valid || !other.Valid {
		return UnavailableDuration()
	}
	return NewDuration(d.NS - other.NS)
}

// Pretty renders ns as a Go duration, rounded to microseconds from one
// millisecond up.
func Pretty(ns int64) string {
	d := time.Duration(ns)
	abs := d
	if abs < 0 {
		abs = -abs
	}
	if abs >= time.Millisecond {
		d = d.Round(time.Microsecond)
	}
	return d.String()
}
