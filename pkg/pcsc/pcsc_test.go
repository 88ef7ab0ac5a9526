package pcsc

import (
	"errors"
	"strings"
	"testing"

	"github.com/ebfe/scard"
	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/gregLibert/transit-card/pkg/calypso"
	"github.com/gregLibert/transit-card/pkg/tlv"
	"github.com/gregLibert/transit-card/pkg/transit"
	"github.com/gregLibert/transit-card/pkg/transit/transittest"
)

type fakeHandle struct {
	atr           []byte
	statusErr     error
	responses     map[string][]byte
	disconnected  bool
	disconnectErr error
}

func (f *fakeHandle) Transmit(cmd []byte) ([]byte, error) {
	rsp, ok := f.responses[string(cmd)]
	if !ok {
		return nil, errors.New("unexpected command")
	}
	return rsp, nil
}

func (f *fakeHandle) Status() (*scard.CardStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &scard.CardStatus{Atr: f.atr}, nil
}

func (f *fakeHandle) Disconnect(scard.Disposition) error {
	f.disconnected = true
	return f.disconnectErr
}

func newTestConnection(h *fakeHandle) (*Connection, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return &Connection{card: h, Reader: "test reader", log: logger}, hook
}

func TestPickReader(t *testing.T) {
	readers := []string{"ACS ACR122U 00 00", "SONY FeliCa RC-S380 01 00"}

	tests := []struct {
		name     string
		selector string
		want     string
		wantErr  bool
	}{
		{"Default", "", readers[0], false},
		{"Index", "1", readers[1], false},
		{"Substring", "RC-S380", readers[1], false},
		{"Index out of range", "2", "", true},
		{"No match", "Omnikey", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickReader(readers, tt.selector)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pickReader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("pickReader() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := pickReader(nil, ""); err == nil {
		t.Error("expected an error without readers")
	}
}

func TestConnection_DetectCard(t *testing.T) {
	h := &fakeHandle{
		atr: tlv.Hex("3B 8F 80 01 80 4F 0C A0 00 00 03 06 03 00 01 00 00 00 00 6A"),
		responses: map[string][]byte{
			string(tlv.Hex("FF CA 00 00 00")): tlv.Hex("12345678 9000"),
		},
	}
	conn, _ := newTestConnection(h)

	uid, err := conn.UID()
	if err != nil {
		t.Fatalf("UID() error: %v", err)
	}
	if diff := cmp.Diff(tlv.Hex("12345678"), uid); diff != "" {
		t.Errorf("UID() mismatch (-want +got):\n%s", diff)
	}

	atr, err := conn.ATR()
	if err != nil {
		t.Fatalf("ATR() error: %v", err)
	}
	if diff := cmp.Diff(h.atr, atr); diff != "" {
		t.Errorf("ATR() mismatch (-want +got):\n%s", diff)
	}

	card, err := calypso.DetectCard(conn)
	if err != nil {
		t.Fatalf("DetectCard() error: %v", err)
	}
	if card.Type != calypso.Navigo || card.CardNumber != 0x12345678 {
		t.Errorf("DetectCard() = %s #%d", card.Type, card.CardNumber)
	}
}

func TestConnection_StatusFailure(t *testing.T) {
	conn, _ := newTestConnection(&fakeHandle{statusErr: errors.New("reader unavailable")})
	if _, err := calypso.DetectCard(conn); !transit.IsTransport(err) {
		t.Errorf("DetectCard() error = %v, want TransportError", err)
	}
}

func TestConnection_UIDRejected(t *testing.T) {
	h := &fakeHandle{responses: map[string][]byte{
		string(tlv.Hex("FF CA 00 00 00")): tlv.Hex("6A81"),
	}}
	conn, _ := newTestConnection(h)

	_, err := conn.UID()
	if err == nil || !strings.Contains(err.Error(), "[6A81] SW_ERR_FUNC_NOT_SUPPORTED") {
		t.Errorf("UID() error = %v, want the rejected status", err)
	}
}

func TestConnection_NotEstablished(t *testing.T) {
	var conn *Connection
	if _, err := conn.Transmit([]byte{0x00}); err == nil {
		t.Error("expected an error on a nil connection")
	}
	if _, err := (&Connection{}).ATR(); err == nil {
		t.Error("expected an error without a card")
	}
	conn.Close()
}

func TestConnection_Close(t *testing.T) {
	h := &fakeHandle{disconnectErr: errors.New("reader gone")}
	conn, hook := newTestConnection(h)

	conn.Close()
	if !h.disconnected {
		t.Error("card not disconnected")
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != log.WarnLevel {
		t.Errorf("expected a warning, got %+v", entry)
	}
}

func TestFeliCaBridge(t *testing.T) {
	frame := tlv.Hex("06 00 0003 01 00")

	tests := []struct {
		name    string
		reply   []byte
		want    []byte
		wantErr bool
	}{
		{"Answer", tlv.Hex("12 01 0102030405060708 1112131415161718 9000"), tlv.Hex("12 01 0102030405060708 1112131415161718"), false},
		{"Card silent", tlv.Hex("6401"), nil, false},
		{"Reader error", tlv.Hex("6A81"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := transittest.New(t, transittest.Step{
				Expect: tlv.Hex("FF FE 00 00 06 06 00 0003 01 00"),
				Reply:  tt.reply,
			})
			got, err := FeliCaBridge{T: script}.Transmit(frame)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Transmit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Transmit() mismatch (-want +got):\n%s", diff)
			}
			script.Done()
		})
	}
}

func TestFeliCaBridge_InvalidInput(t *testing.T) {
	if _, err := (FeliCaBridge{}).Transmit([]byte{0x01}); !errors.Is(err, transit.ErrInvalidArgument) {
		t.Errorf("nil transmitter error = %v", err)
	}
	b := FeliCaBridge{T: transittest.New(t)}
	if _, err := b.Transmit(nil); !errors.Is(err, transit.ErrInvalidArgument) {
		t.Errorf("empty frame error = %v", err)
	}
	if _, err := b.Transmit(make([]byte, 256)); !errors.Is(err, transit.ErrInvalidArgument) {
		t.Errorf("long frame error = %v", err)
	}
}
