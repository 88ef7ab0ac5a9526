package felica

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/gregLibert/transit-card/pkg/keyderiv"
	"github.com/gregLibert/transit-card/pkg/tlv"
	"github.com/gregLibert/transit-card/pkg/transit"
	"github.com/gregLibert/transit-card/pkg/transit/transittest"
)

func pollingResponse(extra ...byte) []byte {
	out := []byte{byte(2 + IDmSize + PMmSize + len(extra)), CmdPolling + 1}
	out = append(out, testIDm[:]...)
	out = append(out, testPMm[:]...)
	return append(out, extra...)
}

func newTestReader(t *testing.T, script *transittest.Script, opts ...Option) (*Reader, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	card := &Card{IDm: testIDm, PMm: testPMm, SystemCode: SystemSuica, Type: Suica}
	r, err := NewReader(script, card, append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		t.Fatalf("NewReader() error: %v", err)
	}
	return r, hook
}

func TestDetect(t *testing.T) {
	script := transittest.New(t, transittest.Step{
		Expect: tlv.Hex("06 00 0003 01 00"),
		Reply:  pollingResponse(),
	})

	card, err := Detect(script, SystemSuica)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	want := &Card{IDm: testIDm, PMm: testPMm, SystemCode: SystemSuica, Type: Suica}
	if diff := cmp.Diff(want, card); diff != "" {
		t.Errorf("Detect() mismatch (-want +got):\n%s", diff)
	}
	script.Done()
}

func TestDetect_WildcardTakesSystemCodeFromResponse(t *testing.T) {
	script := transittest.New(t, transittest.Step{
		Expect: tlv.Hex("06 00 FFFF 01 00"),
		Reply:  pollingResponse(0x80, 0x08),
	})

	card, err := Detect(script, SystemWildcard)
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if card.SystemCode != SystemOctopus || card.Type != Octopus {
		t.Errorf("Detect() = system %04X type %s", card.SystemCode, card.Type)
	}
}

func TestDetect_Failures(t *testing.T) {
	tests := []struct {
		name    string
		step    transittest.Step
		wantErr error
	}{
		{"Silence", transittest.Step{Reply: nil}, transit.ErrNoCard},
		{"Truncated", transittest.Step{Reply: tlv.Hex("04 01 0102")}, transit.ErrDecode},
		{"Link error", transittest.Step{Err: errors.New("rf off")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Detect(transittest.New(t, tt.step), SystemSuica)
			if tt.wantErr == nil {
				if !transit.IsTransport(err) {
					t.Errorf("Detect() error = %v, want TransportError", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Detect() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewReader_InvalidInput(t *testing.T) {
	if _, err := NewReader(nil, &Card{}); !errors.Is(err, transit.ErrInvalidArgument) {
		t.Errorf("nil transmitter error = %v", err)
	}
	if _, err := NewReader(transittest.New(t), nil); !errors.Is(err, transit.ErrInvalidArgument) {
		t.Errorf("nil card error = %v", err)
	}
}

func TestReader_ReadBalance(t *testing.T) {
	block := "00000000 00000000 00 00 1027 000000 00"
	script := transittest.New(t, transittest.Step{
		Expect: tlv.Hex("10 06", testIDmHex, "01 8B00 01 8000"),
		Reply:  response(0x07, "00 00 01", block),
	})
	r, _ := newTestReader(t, script)

	balance, err := r.ReadBalance()
	if err != nil {
		t.Fatalf("ReadBalance() error: %v", err)
	}
	if balance != 10000 {
		t.Errorf("ReadBalance() = %d, want 10000", balance)
	}
	script.Done()
}

func TestReader_ReadWithoutEncryption_Rejected(t *testing.T) {
	script := transittest.New(t, transittest.Step{Reply: response(0x07, "01 A8")})
	r, hook := newTestReader(t, script)

	_, err := r.ReadWithoutEncryption(0x1234, []uint16{0})

	var se *transit.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if se.SW1 != 0x01 || se.SW2 != 0xA8 || se.Command != CmdReadWithoutEncryption {
		t.Errorf("StatusError = %+v", se)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.WarnLevel || entry.Data["sw"] != "01A8" {
		t.Errorf("expected a warning carrying the status flags, got %+v", entry)
	}
}

func TestReader_ReadWithoutEncryption_ShortData(t *testing.T) {
	script := transittest.New(t, transittest.Step{Reply: response(0x07, "00 00 02", "00112233445566778899AABBCCDDEEFF")})
	r, _ := newTestReader(t, script)

	if _, err := r.ReadWithoutEncryption(ServiceSuicaHistory, []uint16{0, 1}); !errors.Is(err, transit.ErrDecode) {
		t.Errorf("error = %v, want DecodeError", err)
	}
}

func TestReader_ReadHistory(t *testing.T) {
	blank := "00000000000000000000000000000000"
	script := transittest.New(t,
		transittest.Step{
			Expect: tlv.Hex("10 06", testIDmHex, "01 0F09 01 8000"),
			Reply:  response(0x07, "00 00 01", hex.EncodeToString(suicaEntry)),
		},
		transittest.Step{
			Expect: tlv.Hex("10 06", testIDmHex, "01 0F09 01 8001"),
			Reply:  response(0x07, "00 00 01", blank),
		},
	)
	r, _ := newTestReader(t, script)

	got, err := r.ReadHistory(5)
	if err != nil {
		t.Fatalf("ReadHistory() error: %v", err)
	}
	if len(got) != 1 || got[0].Kind != transit.KindEntry || got[0].BalanceAfter != 1790 {
		t.Errorf("ReadHistory() = %+v", got)
	}
	script.Done()
}

func TestReader_ReadHistory_Guards(t *testing.T) {
	r, _ := newTestReader(t, transittest.New(t))
	if _, err := r.ReadHistory(0); !errors.Is(err, transit.ErrInvalidArgument) {
		t.Errorf("ReadHistory(0) error = %v", err)
	}

	r.Card.Type = Edy
	if _, err := r.ReadHistory(1); !errors.Is(err, transit.ErrDecode) {
		t.Errorf("ReadHistory on Edy error = %v", err)
	}
}

func TestReader_WriteWithoutEncryption(t *testing.T) {
	data := tlv.Hex("00112233445566778899AABBCCDDEEFF")
	script := transittest.New(t, transittest.Step{
		Expect: tlv.Hex("20 08", testIDmHex, "01 0900 01 8003", "00112233445566778899AABBCCDDEEFF"),
		Reply:  response(0x09, "00 00"),
	})
	r, _ := newTestReader(t, script)

	if err := r.WriteWithoutEncryption(0x0009, 3, data); err != nil {
		t.Errorf("WriteWithoutEncryption() error: %v", err)
	}
	script.Done()
}

func TestReader_RequestSystemCode(t *testing.T) {
	script := transittest.New(t, transittest.Step{
		Expect: tlv.Hex("0A 0C", testIDmHex),
		Reply:  response(0x0D, "02 0003 FE00"),
	})
	r, _ := newTestReader(t, script)

	got, err := r.RequestSystemCode()
	if err != nil {
		t.Fatalf("RequestSystemCode() error: %v", err)
	}
	if diff := cmp.Diff([]uint16{SystemSuica, SystemCommon}, got); diff != "" {
		t.Errorf("RequestSystemCode() mismatch (-want +got):\n%s", diff)
	}
	script.Done()
}

func TestReader_RequestService(t *testing.T) {
	script := transittest.New(t, transittest.Step{
		Expect: tlv.Hex("0F 02", testIDmHex, "02 8B00 0F09"),
		Reply:  response(0x03, "02 0100 FFFF"),
	})
	r, _ := newTestReader(t, script)

	got, err := r.RequestService([]uint16{ServiceSuicaBalance, ServiceSuicaHistory})
	if err != nil {
		t.Fatalf("RequestService() error: %v", err)
	}
	if diff := cmp.Diff([]uint16{0x0001, 0xFFFF}, got); diff != "" {
		t.Errorf("RequestService() mismatch (-want +got):\n%s", diff)
	}
	script.Done()
}

func TestReader_MutualAuthenticate(t *testing.T) {
	cardKey, err := keyderiv.DeriveCardKey(keyderiv.Default3DES[:], testIDm[:])
	if err != nil {
		t.Fatal(err)
	}
	rc := "0123456789ABCDEF"
	script := transittest.New(t, transittest.Step{
		Expect: tlv.Hex("13 10", testIDmHex, "00 0123456789ABCDEF"),
		Reply:  response(0x11, rc),
	})
	r, _ := newTestReader(t, script)

	auth, err := keyderiv.NewAuthContext(cardKey[:], 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.MutualAuthenticate(auth); err != nil {
		t.Fatalf("MutualAuthenticate() error: %v", err)
	}

	want, err := keyderiv.LegacySessionKey(cardKey[:], tlv.Hex(rc), FixedChallenge[:])
	if err != nil {
		t.Fatal(err)
	}
	if auth.SessionKey != want {
		t.Errorf("session key = %X, want %X", auth.SessionKey, want)
	}
	if !auth.Authenticated || !r.Card.Authenticated {
		t.Error("expected auth context and card to be authenticated")
	}
	if auth.Diversifier != testIDm {
		t.Errorf("diversifier = %X, want IDm", auth.Diversifier)
	}
	script.Done()

	if err := r.MutualAuthenticate(nil); !errors.Is(err, transit.ErrInvalidArgument) {
		t.Errorf("nil auth error = %v", err)
	}
}

func TestReader_MutualAuthenticate_NoChallenge(t *testing.T) {
	script := transittest.New(t, transittest.Step{Reply: response(0x11, "0102")})
	r, _ := newTestReader(t, script, WithChallengeSource(func() ([ChallengeSize]byte, error) {
		return [ChallengeSize]byte{}, nil
	}))
	auth, _ := keyderiv.NewAuthContext(keyderiv.Default3DES[:], 0)

	if err := r.MutualAuthenticate(auth); !errors.Is(err, transit.ErrDecode) {
		t.Errorf("error = %v, want DecodeError", err)
	}
	if auth.Authenticated || r.Card.Authenticated {
		t.Error("failed authentication must not mark anything authenticated")
	}
}
