package calypso

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gregLibert/transit-card/pkg/transit"
)

// Contract is one transport title stored on the card. Values are immutable once parsed:
// changes go through WithTrips/Encode and an authenticated UpdateContract.
type Contract struct {
	Number        byte
	Tariff        byte
	Profile       uint16
	ValidityStart transit.Date
	ValidityEnd   transit.Date
	Trips         uint16
	Zones         [8]byte
	Active        bool
}

// Event is one entry of the card's journey log.
type Event struct {
	Kind         transit.EventKind
	Code         byte
	Date         transit.Date
	Time         transit.Time
	Location     uint16
	ContractUsed byte
	BalanceAfter uint16
	VehicleID    [2]byte
}

// Generic 29-byte layout offsets.
const (
	contractActiveOffset = 20
	contractMinSize      = contractActiveOffset + 1
	eventMinSize         = 13
)

// ParseContract decodes a contract record according to the layout of t.
func ParseContract(raw []byte, t CardType) (Contract, error) {
	var c Contract
	if len(raw) == 0 {
		return c, transit.InvalidArgument("empty contract record")
	}

	format := FormatOf(t)
	if !format.Known() {
		return c, &transit.DecodeError{Format: "contract", Reason: fmt.Sprintf("no layout for %s", format)}
	}
	if len(raw) < contractMinSize {
		return c, &transit.DecodeError{Format: "contract", Reason: fmt.Sprintf("record too short: %d bytes", len(raw))}
	}

	c.Number = raw[0]
	c.Tariff = raw[1]
	c.Profile = binary.LittleEndian.Uint16(raw[2:4])
	copy(c.ValidityStart[:], raw[4:7])
	copy(c.ValidityEnd[:], raw[7:10])
	c.Trips = binary.LittleEndian.Uint16(raw[10:12])
	copy(c.Zones[:], raw[12:20])
	c.Active = raw[contractActiveOffset] == 0x01
	return c, nil
}

// Encode serializes the contract into a full record, zero padded.
func (c Contract) Encode() [RecordSize]byte {
	var raw [RecordSize]byte
	raw[0] = c.Number
	raw[1] = c.Tariff
	binary.LittleEndian.PutUint16(raw[2:4], c.Profile)
	copy(raw[4:7], c.ValidityStart[:])
	copy(raw[7:10], c.ValidityEnd[:])
	binary.LittleEndian.PutUint16(raw[10:12], c.Trips)
	copy(raw[12:20], c.Zones[:])
	if c.Active {
		raw[contractActiveOffset] = 0x01
	}
	return raw
}

// WithTrips returns a copy of c holding n trips.
func (c Contract) WithTrips(n uint16) Contract {
	c.Trips = n
	return c
}

// InZone reports whether zone (1-64) is set in the zone bitmask.
func (c Contract) InZone(zone int) bool {
	if zone < 1 || zone > 64 {
		return false
	}
	i := zone - 1
	return c.Zones[i/8]&(1<<(i%8)) != 0
}

// Describe renders the contract for display.
func (c Contract) Describe() string {
	status := "Inactive"
	if c.Active {
		status = "Active"
	}
	return fmt.Sprintf("Contract #%d\nTariff: %d\nValid: %s - %s\nTrips remaining: %d\nStatus: %s",
		c.Number, c.Tariff, c.ValidityStart, c.ValidityEnd, c.Trips, status)
}

func eventKind(code byte) transit.EventKind {
	switch code {
	case 0x01:
		return transit.KindEntry
	case 0x02:
		return transit.KindExit
	case 0x03:
		return transit.KindInspection
	default:
		return transit.KindUnknown
	}
}

// ParseEvent decodes an event log record according to the layout of t.
func ParseEvent(raw []byte, t CardType) (Event, error) {
	var e Event
	if len(raw) == 0 {
		return e, transit.InvalidArgument("empty event record")
	}

	format := FormatOf(t)
	if !format.Known() {
		return e, &transit.DecodeError{Format: "event", Reason: fmt.Sprintf("no layout for %s", format)}
	}
	if len(raw) < eventMinSize {
		return e, &transit.DecodeError{Format: "event", Reason: fmt.Sprintf("record too short: %d bytes", len(raw))}
	}

	e.Code = raw[0]
	e.Kind = eventKind(raw[0])
	copy(e.Date[:], raw[1:4])
	copy(e.Time[:], raw[4:6])
	e.Location = binary.LittleEndian.Uint16(raw[6:8])
	e.ContractUsed = raw[8]
	e.BalanceAfter = binary.LittleEndian.Uint16(raw[9:11])
	copy(e.VehicleID[:], raw[11:13])
	return e, nil
}

// Describe renders the event for display. Locations are resolved to station names on Navigo cards.
func (e Event) Describe(t CardType) string {
	var where string
	if t == Navigo {
		where, _ = StationName(e.Location)
	} else {
		where = fmt.Sprintf("Location #%04X", e.Location)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at %s\n", e.Kind, where)
	fmt.Fprintf(&sb, "%s %s\n", e.Date, e.Time)
	fmt.Fprintf(&sb, "Contract: #%d, Balance: €%d.%02d", e.ContractUsed, e.BalanceAfter/100, e.BalanceAfter%100)
	return sb.String()
}
