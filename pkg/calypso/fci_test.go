package calypso

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gregLibert/transit-card/pkg/tlv"
)

func TestParseFCI(t *testing.T) {
	tests := []struct {
		name         string
		rawData      []byte
		wantDF       []byte
		wantStartup  bool
		wantRevision Revision
		wantErr      bool
	}{
		{
			name: "Rev3 FCI with startup info",
			rawData: tlv.Hex(
				"6F 19",
				"84 07 315449432E4943",
				"A5 0E",
				"BF0C 0B",
				"C7 09 0A 3C 8A 05 02 00 01 00 00",
			),
			wantDF:       AID,
			wantStartup:  true,
			wantRevision: Rev3,
		},
		{
			name:    "Bare DF name",
			rawData: tlv.Hex("6F 09 84 07 315449432E4943"),
			wantDF:  AID,
		},
		{
			name:    "Empty",
			rawData: nil,
			wantErr: true,
		},
		{
			name:    "Truncated",
			rawData: tlv.Hex("6F 09 84 07 3154"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFCI(tt.rawData)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFCI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !bytes.Equal(got.DFName, tt.wantDF) {
				t.Errorf("DFName = %X, want %X", got.DFName, tt.wantDF)
			}
			startup, ok := got.Startup()
			if ok != tt.wantStartup {
				t.Fatalf("Startup() ok = %v, want %v", ok, tt.wantStartup)
			}
			if ok && startup.Revision() != tt.wantRevision {
				t.Errorf("Revision() = %s, want %s", startup.Revision(), tt.wantRevision)
			}
		})
	}
}

func TestEncodeFCI(t *testing.T) {
	raw, err := EncodeFCI(&FCI{DFName: AID})
	if err != nil {
		t.Fatalf("EncodeFCI() error: %v", err)
	}
	want := tlv.Hex("6F 09 84 07 315449432E4943")
	if !bytes.Equal(raw, want) {
		t.Errorf("EncodeFCI() = % X, want % X", raw, want)
	}
}

func TestStartupInfo_Revision(t *testing.T) {
	tests := []struct {
		appType byte
		want    Revision
	}{
		{0x00, Rev1},
		{0xFF, Rev1},
		{0x06, Rev2},
		{0x28, Rev3Light},
		{0x8A, Rev3},
	}
	for _, tt := range tests {
		if got := (StartupInfo{AppType: tt.appType}).Revision(); got != tt.want {
			t.Errorf("AppType %02X: Revision() = %s, want %s", tt.appType, got, tt.want)
		}
	}
}

func TestFCI_Describe(t *testing.T) {
	fci, err := ParseFCI(tlv.Hex("6F 09 84 07 315449432E4943"))
	if err != nil {
		t.Fatal(err)
	}
	out := fci.Describe()
	if !strings.HasPrefix(out, "=== CALYPSO FCI TEMPLATE ===") {
		t.Errorf("Describe() = %q", out)
	}
	if !strings.Contains(out, "1TIC.IC") {
		t.Errorf("Describe() does not render the DF name as ASCII:\n%s", out)
	}
}
