// Package transittest provides a scripted transmitter that replays card exchanges in tests.
package transittest

import (
	"bytes"
	"errors"
	"testing"
)

// ErrScriptExhausted is returned when more commands are sent than the script holds.
var ErrScriptExhausted = errors.New("script exhausted")

// Step is one expected exchange. A nil Expect accepts any command.
type Step struct {
	Expect []byte
	Reply  []byte
	Err    error
}

// Script is a transit.Transmitter replaying Steps in order.
type Script struct {
	t     testing.TB
	steps []Step
	pos   int

	// Sent records every command received, in order.
	Sent [][]byte
}

// New returns a Script bound to t. Mismatched commands are reported with t.Errorf.
func New(t testing.TB, steps ...Step) *Script {
	t.Helper()
	return &Script{t: t, steps: steps}
}

func (s *Script) Transmit(cmd []byte) ([]byte, error) {
	s.t.Helper()
	s.Sent = append(s.Sent, append([]byte(nil), cmd...))

	if s.pos >= len(s.steps) {
		s.t.Errorf("unexpected command % X: script has %d steps", cmd, len(s.steps))
		return nil, ErrScriptExhausted
	}

	step := s.steps[s.pos]
	s.pos++

	if step.Expect != nil && !bytes.Equal(step.Expect, cmd) {
		s.t.Errorf("step %d: sent % X, want % X", s.pos, cmd, step.Expect)
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return append([]byte(nil), step.Reply...), nil
}

// Done fails the test if steps remain unplayed.
func (s *Script) Done() {
	s.t.Helper()
	if s.pos != len(s.steps) {
		s.t.Errorf("script stopped after %d of %d steps", s.pos, len(s.steps))
	}
}
