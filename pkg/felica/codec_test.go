package felica

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gregLibert/transit-card/pkg/tlv"
	"github.com/gregLibert/transit-card/pkg/transit"
)

var _ transit.Protocol = Codec{}

var (
	testIDm = [IDmSize]byte{0x01, 0x2E, 0x4C, 0x7A, 0x8B, 0x9C, 0xAD, 0xBE}
	testPMm = [PMmSize]byte{0x10, 0x0B, 0x4B, 0x42, 0x84, 0x85, 0xD0, 0xFF}
)

const testIDmHex = "01 2E 4C 7A 8B 9C AD BE"

// response builds a framed card answer with the given code, the test IDm and payload.
func response(code byte, payload ...string) []byte {
	body := tlv.Hex(payload...)
	out := []byte{byte(headerSize + len(body)), code}
	out = append(out, testIDm[:]...)
	return append(out, body...)
}

func TestCodec_Builders(t *testing.T) {
	c := Codec{IDm: testIDm}
	data := tlv.Hex("00112233445566778899AABBCCDDEEFF")

	tests := []struct {
		name  string
		build func() ([]byte, error)
		want  []byte
	}{
		{
			name:  "Polling via BuildSelect",
			build: func() ([]byte, error) { return c.BuildSelect([]byte{0x00, 0x03}) },
			want:  tlv.Hex("06 00 0003 01 00"),
		},
		{
			name:  "Read one block",
			build: func() ([]byte, error) { return c.BuildRead(ServiceSuicaBalance, 0) },
			want:  tlv.Hex("10 06", testIDmHex, "01 8B00 01 8000"),
		},
		{
			name:  "Read two blocks",
			build: func() ([]byte, error) { return c.BuildReadBlocks(ServiceSuicaHistory, []uint16{0, 1}) },
			want:  tlv.Hex("12 06", testIDmHex, "01 0F09 02 8000 8001"),
		},
		{
			name:  "Read block above FF uses the 3-byte element",
			build: func() ([]byte, error) { return c.BuildRead(ServiceSuicaHistory, 0x0102) },
			want:  tlv.Hex("11 06", testIDmHex, "01 0F09 01 00 0201"),
		},
		{
			name:  "Write one block",
			build: func() ([]byte, error) { return c.BuildWrite(0x0009, 3, data) },
			want:  tlv.Hex("20 08", testIDmHex, "01 0900 01 8003", "00112233445566778899AABBCCDDEEFF"),
		},
		{
			name:  "Request Service",
			build: func() ([]byte, error) { return c.BuildRequestService([]uint16{0x008B, 0x090F}) },
			want:  tlv.Hex("0F 02", testIDmHex, "02 8B00 0F09"),
		},
		{
			name:  "Request System Code",
			build: func() ([]byte, error) { return c.BuildRequestSystemCode() },
			want:  tlv.Hex("0A 0C", testIDmHex),
		},
		{
			name:  "Authentication1",
			build: func() ([]byte, error) { return c.BuildAuthentication1(FixedChallenge[:]) },
			want:  tlv.Hex("13 10", testIDmHex, "00 0123456789ABCDEF"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build()
			if err != nil {
				t.Fatalf("build error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got % X, want % X", got, tt.want)
			}
			if int(got[0]) != len(got) {
				t.Errorf("length byte %d, frame holds %d", got[0], len(got))
			}
		})
	}
}

func TestCodec_BuildersRejectBadInput(t *testing.T) {
	c := Codec{IDm: testIDm}
	tests := []struct {
		name  string
		build func() ([]byte, error)
	}{
		{"System code of 1 byte", func() ([]byte, error) { return c.BuildSelect([]byte{0x03}) }},
		{"No blocks", func() ([]byte, error) { return c.BuildReadBlocks(ServiceSuicaHistory, nil) }},
		{"Too many blocks", func() ([]byte, error) {
			return c.BuildReadBlocks(ServiceSuicaHistory, make([]uint16, MaxBlocksPerRead+1))
		}},
		{"Short write data", func() ([]byte, error) { return c.BuildWrite(0x0009, 0, []byte{0x01}) }},
		{"No services", func() ([]byte, error) { return c.BuildRequestService(nil) }},
		{"Short challenge", func() ([]byte, error) { return c.BuildAuthentication1([]byte{0x01}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.build(); !errors.Is(err, transit.ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestCodec_ParseStatus(t *testing.T) {
	c := Codec{IDm: testIDm}

	tests := []struct {
		name       string
		rx         []byte
		want       []byte
		wantStatus bool
		wantErr    error
	}{
		{
			name: "Read success strips the status flags",
			rx:   response(0x07, "00 00 01 AABB"),
			want: tlv.Hex("01 AABB"),
		},
		{
			name:       "Read rejected",
			rx:         response(0x07, "01 A6"),
			wantStatus: true,
		},
		{
			name: "Write success",
			rx:   response(0x09, "00 00"),
			want: []byte{},
		},
		{
			name: "Response without flags",
			rx:   response(0x0D, "01 0003"),
			want: tlv.Hex("01 0003"),
		},
		{
			name: "Polling response keeps the IDm",
			rx:   append([]byte{0x12, 0x01}, append(testIDm[:], testPMm[:]...)...),
			want: append(append([]byte(nil), testIDm[:]...), testPMm[:]...),
		},
		{
			name:    "Length byte mismatch",
			rx:      tlv.Hex("05 07 00"),
			wantErr: transit.ErrDecode,
		},
		{
			name:    "Missing flags",
			rx:      response(0x07),
			wantErr: transit.ErrDecode,
		},
		{
			name:    "Single byte",
			rx:      []byte{0x01},
			wantErr: transit.ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ParseStatus(tt.rx)
			switch {
			case tt.wantStatus:
				var se *transit.StatusError
				if !errors.As(err, &se) {
					t.Fatalf("ParseStatus() error = %v, want StatusError", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseStatus() error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("ParseStatus() error: %v", err)
				}
				if !bytes.Equal(got, tt.want) {
					t.Errorf("ParseStatus() = % X, want % X", got, tt.want)
				}
			}
		})
	}
}

func TestCodec_StatusFlagsCarried(t *testing.T) {
	_, err := Codec{}.ParseStatus(response(0x07, "01 A6"))
	if !transit.IsStatus(err, 0x01, 0xA6) {
		t.Errorf("error = %v, want status 01 A6", err)
	}
	var se *transit.StatusError
	if errors.As(err, &se) && se.Detail != "error at list element 1" {
		t.Errorf("Detail = %q", se.Detail)
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		data []byte
		want uint16
	}{
		{nil, 0},
		{tlv.Hex("01 02 03"), 6},
		{bytes.Repeat([]byte{0xFF}, 300), (0xFF * 300) & 0xFFFF},
	}
	for _, tt := range tests {
		if got := Checksum(tt.data); got != tt.want {
			t.Errorf("Checksum(%d bytes) = %04X, want %04X", len(tt.data), got, tt.want)
		}
	}
}
