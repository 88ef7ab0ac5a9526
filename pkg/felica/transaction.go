package felica

import (
	"encoding/binary"
	"fmt"

	"github.com/gregLibert/transit-card/pkg/transit"
)

// Format tells which history layout a card type uses.
type Format struct {
	name  string
	known bool
	typ   CardType
}

// FormatSuicaFamily is the 16-byte history block shared by the JR and affiliated cards.
var FormatSuicaFamily = Format{name: "SuicaFamily", known: true}

// Unrecognized returns the format of a card type with no known history layout.
func Unrecognized(t CardType) Format {
	return Format{name: "Unrecognized", typ: t}
}

var formats = map[CardType]Format{
	Suica:  FormatSuicaFamily,
	Pasmo:  FormatSuicaFamily,
	ICOCA:  FormatSuicaFamily,
	Kitaca: FormatSuicaFamily,
	TOICA:  FormatSuicaFamily,
	SUGOCA: FormatSuicaFamily,
	Nimoca: FormatSuicaFamily,
}

// FormatOf returns the history layout of t.
func FormatOf(t CardType) Format {
	if f, ok := formats[t]; ok {
		return f
	}
	return Unrecognized(t)
}

// Known reports whether history blocks in this format can be decoded.
func (f Format) Known() bool {
	return f.known
}

func (f Format) String() string {
	if !f.known {
		return fmt.Sprintf("Unrecognized(%s)", f.typ)
	}
	return f.name
}

// Transaction is one history entry. Amounts are in yen.
type Transaction struct {
	Kind         transit.EventKind
	Code         byte
	Terminal     [4]byte
	Amount       uint16
	BalanceAfter uint16
	Date         transit.Date
	Time         transit.Time
	Region       byte
}

func transactionKind(code byte) transit.EventKind {
	switch code {
	case 0x01:
		return transit.KindDebit
	case 0x02:
		return transit.KindCredit
	case 0x03:
		return transit.KindPurchase
	case 0x14:
		return transit.KindEntry
	case 0x15:
		return transit.KindExit
	default:
		return transit.KindUnknown
	}
}

// ParseTransaction decodes a history block according to the layout of t.
func ParseTransaction(raw []byte, t CardType) (Transaction, error) {
	var tr Transaction
	if len(raw) == 0 {
		return tr, transit.InvalidArgument("empty history block")
	}

	format := FormatOf(t)
	if !format.Known() {
		return tr, &transit.DecodeError{Format: "transaction", Reason: fmt.Sprintf("no layout for %s", format)}
	}
	if len(raw) < BlockSize {
		return tr, &transit.DecodeError{Format: "transaction", Reason: fmt.Sprintf("block too short: %d bytes", len(raw))}
	}

	tr.Code = raw[0]
	tr.Kind = transactionKind(raw[0])
	copy(tr.Terminal[:], raw[1:5])
	tr.Amount = binary.LittleEndian.Uint16(raw[5:7])
	tr.BalanceAfter = binary.LittleEndian.Uint16(raw[7:9])
	copy(tr.Date[:], raw[9:12])
	copy(tr.Time[:], raw[12:14])
	tr.Region = raw[14]
	return tr, nil
}

// StationName renders a terminal id. No station table is bundled, so the raw
// little-endian code is returned.
func StationName(terminal [4]byte) string {
	return fmt.Sprintf("Station #%08X", binary.LittleEndian.Uint32(terminal[:]))
}

// Describe renders the transaction for display.
func (t Transaction) Describe() string {
	return fmt.Sprintf("%s at %s\n%s %s\n¥%d (Balance: ¥%d)",
		t.Kind, StationName(t.Terminal), t.Date, t.Time, t.Amount, t.BalanceAfter)
}
