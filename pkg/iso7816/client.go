package iso7816

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned by Send when the card answers with no bytes at all.
var ErrEmptyResponse = errors.New("empty response")

// The Client sits between a codec and the physical link. One logical exchange may take
// several APDUs:
//
//   - "61 XX": XX more bytes are waiting. The client fetches them with GET RESPONSE and
//     returns the concatenated data. This completes the exchange, it is not a retry.
//   - "6C XX": the card asks for Le = XX. Re-sending is a retry, so the client only does
//     it when RetryWrongLength is set; otherwise the 6CXX response is returned as-is.
//
// Every APDU is appended to the client's Trace.

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client manages the high-level communication with the card.
type Client struct {
	Card Transmitter

	// RetryWrongLength re-sends a command answered with 6CXX using Le = XX.
	RetryWrongLength bool

	trace Trace
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Trace returns every transaction sent through the client so far.
func (c *Client) Trace() Trace {
	return c.trace
}

// ResetTrace drops the recorded transactions.
func (c *Client) ResetTrace() {
	c.trace = nil
}

// Transmit sends a raw C-APDU and returns the final raw R-APDU, so a Client can stand in
// wherever a Transmitter is expected. Bytes that do not parse as a C-APDU are passed
// through untouched and not traced. An empty answer is returned as-is.
func (c *Client) Transmit(raw []byte) ([]byte, error) {
	cmd, err := ParseCommandAPDU(raw)
	if err != nil {
		return c.Card.Transmit(raw)
	}

	trace, err := c.Send(cmd)
	if errors.Is(err, ErrEmptyResponse) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return trace.Response().Bytes(), nil
}

// Send transmits a command and handles 61XX (and 6CXX when enabled).
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	rawCmd, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	rawResp, err := c.Card.Transmit(rawCmd)
	if err != nil {
		return nil, err
	}
	if len(rawResp) == 0 {
		return nil, ErrEmptyResponse
	}

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return nil, err
	}

	trace := Trace{{Command: cmd, Response: resp}}
	c.trace = append(c.trace, trace[0])

	sw1 := resp.Status.SW1()
	sw2 := resp.Status.SW2()

	switch {
	case sw1 == 0x61:
		// GET RESPONSE goes out on the same logical channel as the original command.
		respCls := cmd.Class
		respCls.IsChained = false

		ins, _ := NewInstruction(INS_GET_RESPONSE)
		ne := int(sw2)
		if ne == 0 {
			ne = MaxShortLe
		}
		getRespCmd := NewCommandAPDU(respCls, ins, 0x00, 0x00, nil, ne)

		subTrace, err := c.Send(getRespCmd)
		if err != nil {
			return trace, err
		}
		trace = append(trace, subTrace...)

	case sw1 == 0x6C && c.RetryWrongLength:
		newCmd := *cmd
		newCmd.Ne = int(sw2)

		subTrace, err := c.Send(&newCmd)
		if err != nil {
			return trace, err
		}
		trace = append(trace, subTrace...)
	}

	return trace, nil
}
