package transit

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// stubProtocol treats the last byte of a response as a status flag (0 = ok).
type stubProtocol struct{}

func (stubProtocol) Name() string { return "stub" }

func (stubProtocol) BuildSelect(target []byte) ([]byte, error) {
	return append([]byte{0x00, 0x01}, target...), nil
}

func (stubProtocol) BuildRead(file, record uint16) ([]byte, error) {
	return []byte{0x00, 0x02, byte(file), byte(record)}, nil
}

func (stubProtocol) ParseStatus(rx []byte) ([]byte, error) {
	last := rx[len(rx)-1]
	if last != 0 {
		return nil, &StatusError{Protocol: "stub", SW1: last, SW2: 0}
	}
	return rx[:len(rx)-1], nil
}

func TestExchange(t *testing.T) {
	linkDown := errors.New("link down")

	tests := []struct {
		name      string
		reply     []byte
		linkErr   error
		want      []byte
		check     func(error) bool
		checkDesc string
	}{
		{
			name:  "Payload returned on success",
			reply: []byte{0xCA, 0xFE, 0x00},
			want:  []byte{0xCA, 0xFE},
		},
		{
			name:      "Link error wrapped as transport failure",
			linkErr:   linkDown,
			check:     func(err error) bool { return IsTransport(err) && errors.Is(err, linkDown) },
			checkDesc: "TransportError wrapping link error",
		},
		{
			name:      "Empty response is a transport failure",
			reply:     []byte{},
			check:     func(err error) bool { return IsTransport(err) && errors.Is(err, ErrNoResponse) },
			checkDesc: "TransportError wrapping ErrNoResponse",
		},
		{
			name:  "Rejection annotated with command code",
			reply: []byte{0x42},
			check: func(err error) bool {
				var se *StatusError
				return errors.As(err, &se) && se.Command == 0x02 && se.SW1 == 0x42
			},
			checkDesc: "StatusError for command 0x02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, _ := stubProtocol{}.BuildRead(1, 2)
			link := TransmitFunc(func(cmd []byte) ([]byte, error) {
				return tt.reply, tt.linkErr
			})

			got, err := Exchange(link, stubProtocol{}, tx)
			if tt.check != nil {
				if err == nil || !tt.check(err) {
					t.Fatalf("Exchange() error = %v, want %s", err, tt.checkDesc)
				}
				return
			}
			if err != nil {
				t.Fatalf("Exchange() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExchange_InvalidInput(t *testing.T) {
	called := false
	link := TransmitFunc(func(cmd []byte) ([]byte, error) {
		called = true
		return []byte{0x00}, nil
	})

	if _, err := Exchange(link, stubProtocol{}, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty command: error = %v, want ErrInvalidArgument", err)
	}
	if _, err := Exchange(nil, stubProtocol{}, []byte{0x01}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil transmitter: error = %v, want ErrInvalidArgument", err)
	}
	if called {
		t.Error("transmitter must not be called for invalid input")
	}
}

func TestErrorHelpers(t *testing.T) {
	err := &StatusError{Protocol: "calypso", Command: 0x02, SW1: 0x6A, SW2: 0x82, Detail: "file not found"}

	if !IsStatus(err, 0x6A, 0x82) {
		t.Error("IsStatus(6A82) should be true")
	}
	if IsStatus(err, 0x90, 0x00) {
		t.Error("IsStatus(9000) should be false")
	}
	want := "calypso command 0x02 rejected with status 6A 82 (file not found)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var dec error = &DecodeError{Format: "contract", Reason: "unsupported layout"}
	if !errors.Is(dec, ErrDecode) {
		t.Error("DecodeError should match ErrDecode")
	}

	if !errors.Is(InvalidArgument("record %d", 0), ErrInvalidArgument) {
		t.Error("InvalidArgument should match ErrInvalidArgument")
	}
}

func TestDateTime(t *testing.T) {
	d := Date{0x24, 0x03, 0x15}
	tm := Time{0x08, 0x45}

	if !d.Valid() || !tm.Valid() {
		t.Fatal("expected valid date and time")
	}
	if d.String() != "24/03/15" || tm.String() != "08:45" {
		t.Errorf("String() = %s %s", d, tm)
	}

	ts, err := Timestamp(d, tm, nil)
	if err != nil {
		t.Fatalf("Timestamp() error: %v", err)
	}
	want := time.Date(2024, time.March, 15, 8, 45, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("Timestamp() = %v, want %v", ts, want)
	}

	if NewDate(want) != d || NewTime(want) != tm {
		t.Errorf("NewDate/NewTime = %s %s, want %s %s", NewDate(want), NewTime(want), d, tm)
	}

	invalid := []Date{{}, {0x24, 0x13, 0x01}, {0x24, 0x01, 0x1F}}
	for _, bad := range invalid {
		if bad.Valid() {
			t.Errorf("Date %s should be invalid", bad)
		}
	}
	if (Time{0x24, 0x00}).Valid() {
		t.Error("Time 24:00 should be invalid")
	}
	if _, err := Timestamp(Date{}, tm, nil); !errors.Is(err, ErrDecode) {
		t.Errorf("Timestamp(zero date) error = %v, want ErrDecode", err)
	}
}

func TestEventKindString(t *testing.T) {
	if KindInspection.String() != "Inspection" || EventKind(42).String() != "Unknown" {
		t.Errorf("unexpected names: %s, %s", KindInspection, EventKind(42))
	}
}
