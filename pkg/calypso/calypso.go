/*
Package calypso implements the reader side of the Calypso transit card protocol
(ISO 14443-B, ISO 7816 APDUs with the proprietary class 0x94).

# Session

A Session drives one card through the states

	Idle -> SessionOpen -> SessionClosed

Reads are allowed in any state. Writes (UPDATE RECORD, INCREASE, DECREASE) require
SessionOpen and fail with transit.ErrNotAuthenticated otherwise. Any status word other
than 90 00 is returned as a *transit.StatusError and never retried.

# Records

Contracts and events are decoded according to the card's Format. Only the 29-byte
Navigo layout is known; other operators yield a transit.DecodeError.
*/
package calypso

import "github.com/gregLibert/transit-card/pkg/iso7816"

// CLA is the Calypso proprietary class byte.
const CLA byte = 0x94

// AID is the Calypso "1TIC.IC" application identifier.
var AID = []byte{0x31, 0x54, 0x49, 0x43, 0x2E, 0x49, 0x43}

// Calypso instruction codes. READ RECORD, UPDATE RECORD, GET CHALLENGE and GET RESPONSE
// share the ISO values.
const (
	InsSelect           iso7816.InsCode = 0x02
	InsDecrease         iso7816.InsCode = 0x30
	InsIncrease         iso7816.InsCode = 0x32
	InsGetChallenge                     = iso7816.INS_GET_CHALLENGE
	InsOpenSession      iso7816.InsCode = 0x8A
	InsCloseSession     iso7816.InsCode = 0x8E
	InsReadRecord                       = iso7816.INS_READ_RECORD
	InsGetResponse                      = iso7816.INS_GET_RESPONSE
	InsUpdateRecord                     = iso7816.INS_UPDATE_RECORD
)

// Short file identifiers of the transport application.
const (
	SFIEventLog  byte = 0x08
	SFIContracts byte = 0x09
	SFICounters  byte = 0x19
)

const (
	// RecordSize is the length of a Calypso record.
	RecordSize = 29
	// MaxContracts is the number of contract records a card holds.
	MaxContracts = 4
	// MaxSFI is the highest short file identifier.
	MaxSFI = 0x1E
	// ChallengeSize is the length of card and reader challenges.
	ChallengeSize = 8
	// MACSize is the length of the close-session signature.
	MACSize = 4
	// CounterSize is the length of a counter value.
	CounterSize = 3
	// MaxCounterValue is the largest 3-byte counter value.
	MaxCounterValue = 0xFFFFFF
)

func insName(ins iso7816.InsCode) string {
	switch ins {
	case InsSelect:
		return "SELECT APPLICATION"
	case InsDecrease:
		return "DECREASE"
	case InsIncrease:
		return "INCREASE"
	case InsGetChallenge:
		return "GET CHALLENGE"
	case InsOpenSession:
		return "OPEN SECURE SESSION"
	case InsCloseSession:
		return "CLOSE SECURE SESSION"
	case InsReadRecord:
		return "READ RECORD"
	case InsUpdateRecord:
		return "UPDATE RECORD"
	case InsGetResponse:
		return "GET RESPONSE"
	default:
		return ins.String()
	}
}
