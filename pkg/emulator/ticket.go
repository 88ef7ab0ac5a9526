/*
Package emulator answers Calypso validator commands from an emulated ticket.

A Dispatcher owns one Ticket and turns each received C-APDU into an R-APDU:

	A4  SELECT        -> 6F 09 84 07 <AID> 90 00
	B2  READ RECORD   -> valid 01 balHi balLo trips, 24 x 00, 90 00
	84  GET CHALLENGE -> 01 23 45 67 89 AB CD EF 90 00
	..  anything else -> 6D 00

Answers are a pure function of the ticket and the INS byte. The Listener pumps commands
from a Link into the Dispatcher until its context is cancelled.
*/
package emulator

import "fmt"

// Default ticket state at power-on.
const (
	DefaultBalance uint16 = 10000
	DefaultTrips   uint8  = 50
)

// DefaultUID is the UID the emulated ticket presents.
var DefaultUID = [4]byte{0x12, 0x34, 0x56, 0x78}

// Ticket is the emulated contract. Balance is in centimes.
type Ticket struct {
	UID           [4]byte
	BalanceHigh   byte
	BalanceLow    byte
	Trips         uint8
	ContractValid byte
	Initialized   bool
}

// NewTicket returns a ticket in its power-on state: 100.00 with 50 trips, valid, not initialized.
func NewTicket() *Ticket {
	return &Ticket{
		UID:           DefaultUID,
		BalanceHigh:   byte(DefaultBalance >> 8),
		BalanceLow:    byte(DefaultBalance & 0xFF),
		Trips:         DefaultTrips,
		ContractValid: 0x01,
	}
}

// Init loads a balance and trip count and marks the contract valid.
func (t *Ticket) Init(balance uint16, trips uint8) {
	t.BalanceHigh = byte(balance >> 8)
	t.BalanceLow = byte(balance)
	t.Trips = trips
	t.ContractValid = 0x01
	t.Initialized = true
}

// Balance returns the balance in centimes.
func (t *Ticket) Balance() uint16 {
	return uint16(t.BalanceHigh)<<8 | uint16(t.BalanceLow)
}

// contractRecord is the 29-byte record answered to READ RECORD.
func (t *Ticket) contractRecord() []byte {
	rec := make([]byte, 29)
	rec[0] = t.ContractValid
	rec[1] = 0x01
	rec[2] = t.BalanceHigh
	rec[3] = t.BalanceLow
	rec[4] = t.Trips
	return rec
}

func (t *Ticket) String() string {
	return fmt.Sprintf("%d.%02d, %d trips", t.Balance()/100, t.Balance()%100, t.Trips)
}
