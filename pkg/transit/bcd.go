package transit

import (
	"fmt"
	"time"

	"github.com/gregLibert/transit-card/pkg/bits"
)

// Date is a card date stored digit-packed as YY MM DD.
type Date [3]byte

// Time is a card time stored digit-packed as HH MM.
type Time [2]byte

// NewDate packs t into the on-card representation. Only years 2000-2099 round-trip.
func NewDate(t time.Time) Date {
	return Date{bits.ToBCD(t.Year() % 100), bits.ToBCD(int(t.Month())), bits.ToBCD(t.Day())}
}

// NewTime packs the hour and minute of t.
func NewTime(t time.Time) Time {
	return Time{bits.ToBCD(t.Hour()), bits.ToBCD(t.Minute())}
}

func (d Date) Year() int  { return 2000 + bits.FromBCD(d[0]) }
func (d Date) Month() int { return bits.FromBCD(d[1]) }
func (d Date) Day() int   { return bits.FromBCD(d[2]) }

// IsZero reports an unset date (all digits zero).
func (d Date) IsZero() bool {
	return d == Date{}
}

// Valid reports whether every byte is BCD and month/day are in calendar range.
func (d Date) Valid() bool {
	for _, b := range d {
		if !bits.IsBCD(b) {
			return false
		}
	}
	m, day := d.Month(), d.Day()
	return m >= 1 && m <= 12 && day >= 1 && day <= 31
}

// String renders the raw digits, YY/MM/DD.
func (d Date) String() string {
	return fmt.Sprintf("%02X/%02X/%02X", d[0], d[1], d[2])
}

func (t Time) Hour() int   { return bits.FromBCD(t[0]) }
func (t Time) Minute() int { return bits.FromBCD(t[1]) }

// Valid reports whether both bytes are BCD and within a 24h clock.
func (t Time) Valid() bool {
	if !bits.IsBCD(t[0]) || !bits.IsBCD(t[1]) {
		return false
	}
	return t.Hour() <= 23 && t.Minute() <= 59
}

// String renders the raw digits, HH:MM.
func (t Time) String() string {
	return fmt.Sprintf("%02X:%02X", t[0], t[1])
}

// Timestamp combines a date and a time in loc. It fails if either is not valid.
func Timestamp(d Date, t Time, loc *time.Location) (time.Time, error) {
	if !d.Valid() {
		return time.Time{}, &DecodeError{Format: "BCD date", Reason: fmt.Sprintf("invalid digits %s", d)}
	}
	if !t.Valid() {
		return time.Time{}, &DecodeError{Format: "BCD time", Reason: fmt.Sprintf("invalid digits %s", t)}
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), time.Month(d.Month()), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
