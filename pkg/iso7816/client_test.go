package iso7816

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gregLibert/transit-card/pkg/tlv"
)

type exchange struct {
	expect []byte
	reply  []byte
}

// replayCard answers each command with the next scripted reply.
type replayCard struct {
	t     *testing.T
	steps []exchange
	pos   int
}

func (r *replayCard) Transmit(cmd []byte) ([]byte, error) {
	if r.pos >= len(r.steps) {
		r.t.Fatalf("unexpected command %X", cmd)
	}
	step := r.steps[r.pos]
	r.pos++
	if !bytes.Equal(step.expect, cmd) {
		r.t.Errorf("step %d: sent %X, want %X", r.pos, cmd, step.expect)
	}
	return step.reply, nil
}

func TestClient_GetResponseChaining(t *testing.T) {
	card := &replayCard{t: t, steps: []exchange{
		{tlv.Hex("94 B2 01 4C 1D"), tlv.Hex("61 03")},
		{tlv.Hex("94 C0 00 00 03"), tlv.Hex("AA BB CC 90 00")},
	}}
	client := NewClient(card)

	got, err := client.Transmit(tlv.Hex("94 B2 01 4C 1D"))
	if err != nil {
		t.Fatalf("Transmit() error: %v", err)
	}
	if want := tlv.Hex("AA BB CC 90 00"); !bytes.Equal(got, want) {
		t.Errorf("Transmit() = %X, want %X", got, want)
	}
	if n := len(client.Trace()); n != 2 {
		t.Errorf("trace length = %d, want 2", n)
	}
}

func TestClient_WrongLengthPolicy(t *testing.T) {
	t.Run("Returned as-is by default", func(t *testing.T) {
		card := &replayCard{t: t, steps: []exchange{
			{tlv.Hex("94 B2 01 4C 1D"), tlv.Hex("6C 10")},
		}}
		client := NewClient(card)

		got, err := client.Transmit(tlv.Hex("94 B2 01 4C 1D"))
		if err != nil {
			t.Fatalf("Transmit() error: %v", err)
		}
		if !bytes.Equal(got, tlv.Hex("6C 10")) {
			t.Errorf("Transmit() = %X, want 6C10", got)
		}
	})

	t.Run("Re-sent when enabled", func(t *testing.T) {
		card := &replayCard{t: t, steps: []exchange{
			{tlv.Hex("94 B2 01 4C 1D"), tlv.Hex("6C 02")},
			{tlv.Hex("94 B2 01 4C 02"), tlv.Hex("01 02 90 00")},
		}}
		client := NewClient(card)
		client.RetryWrongLength = true

		got, err := client.Transmit(tlv.Hex("94 B2 01 4C 1D"))
		if err != nil {
			t.Fatalf("Transmit() error: %v", err)
		}
		if !bytes.Equal(got, tlv.Hex("01 02 90 00")) {
			t.Errorf("Transmit() = %X, want 01029000", got)
		}
	})
}

func TestClient_PassThroughAndErrors(t *testing.T) {
	linkErr := errors.New("reader removed")
	var sent []byte
	client := NewClient(transmitFunc(func(cmd []byte) ([]byte, error) {
		sent = cmd
		if len(cmd) < HeaderSize {
			return []byte{0x01}, nil
		}
		return nil, linkErr
	}))

	// Too short to be an APDU: forwarded untouched, not traced.
	got, err := client.Transmit([]byte{0x06, 0x00})
	if err != nil || !bytes.Equal(got, []byte{0x01}) || !bytes.Equal(sent, []byte{0x06, 0x00}) {
		t.Errorf("pass-through: got %X, %v", got, err)
	}
	if len(client.Trace()) != 0 {
		t.Error("pass-through must not be traced")
	}

	if _, err := client.Transmit(tlv.Hex("94 84 00 00 08")); !errors.Is(err, linkErr) {
		t.Errorf("Transmit() error = %v, want link error", err)
	}

	silent := NewClient(transmitFunc(func([]byte) ([]byte, error) { return nil, nil }))
	if got, err := silent.Transmit(tlv.Hex("94 84 00 00 08")); err != nil || len(got) != 0 {
		t.Errorf("empty answer: got %X, %v; want no bytes and no error", got, err)
	}
	if _, err := silent.Send(NewCommandAPDU(Class{}, Instruction{Raw: INS_GET_CHALLENGE}, 0, 0, nil, 8)); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Send() error = %v, want ErrEmptyResponse", err)
	}

	client.ResetTrace()
	if client.Trace() != nil {
		t.Error("ResetTrace() should clear the trace")
	}
}

type transmitFunc func([]byte) ([]byte, error)

func (f transmitFunc) Transmit(cmd []byte) ([]byte, error) { return f(cmd) }
