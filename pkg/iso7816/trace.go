package iso7816

import (
	"fmt"
	"strings"
)

// A Transaction is one C-APDU and the R-APDU it produced. A Trace is the ordered list
// of transactions behind one logical exchange (or a whole session, when read from a
// Client). GET RESPONSE and 6CXX re-sends show up as extra transactions.

// Transaction represents a completed Command-Response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess checks if the transaction ended with a successful status.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.Status.IsSuccess()
}

// Trace is a sequence of transactions (Command-Response pairs).
type Trace []Transaction

// Last returns the final transaction of the trace.
// Returns nil if the trace is empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess checks if the FINAL transaction in the trace was successful.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Response merges the trace into the response the caller asked for: the data of every
// transaction in order, followed by the final status word.
func (t Trace) Response() *ResponseAPDU {
	last := t.Last()
	if last == nil || last.Response == nil {
		return &ResponseAPDU{}
	}

	var data []byte
	for _, tx := range t {
		if tx.Response != nil {
			data = append(data, tx.Response.Data...)
		}
	}
	return &ResponseAPDU{Data: data, Status: last.Response.Status}
}

// Describe renders one line per transaction, for logs and research dumps.
func (t Trace) Describe() string {
	var sb strings.Builder
	for i, tx := range t {
		raw, _ := tx.Command.Bytes()
		fmt.Fprintf(&sb, "%02d > % X\n", i+1, raw)
		if tx.Response != nil {
			fmt.Fprintf(&sb, "%02d < % X %s\n", i+1, tx.Response.Data, tx.Response.Status.Verbose())
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
