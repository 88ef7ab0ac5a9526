package transit

// EventKind classifies a journey log entry across both card families.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindEntry
	KindExit
	KindInspection
	KindDebit
	KindCredit
	KindPurchase
)

func (k EventKind) String() string {
	switch k {
	case KindEntry:
		return "Entry"
	case KindExit:
		return "Exit"
	case KindInspection:
		return "Inspection"
	case KindDebit:
		return "Debit"
	case KindCredit:
		return "Credit"
	case KindPurchase:
		return "Purchase"
	default:
		return "Unknown"
	}
}
