package tdes

import (
	"bytes"
	"crypto/aes"
	"errors"
	"testing"

	"github.com/gregLibert/transit-card/pkg/tlv"
	"github.com/gregLibert/transit-card/pkg/transit"
)

// With K1 == K2, 2-key 3DES collapses to single DES, so the classic DES vectors apply.
func TestEncrypt_SingleDESVectors(t *testing.T) {
	tests := []struct {
		name      string
		desKey    string
		plaintext string
		expected  string
	}{
		{
			name:      "Textbook DES vector",
			desKey:    "133457799BBCDFF1",
			plaintext: "0123456789ABCDEF",
			expected:  "85E813540F0AB405",
		},
		{
			name:      "All zero key and block",
			desKey:    "0000000000000000",
			plaintext: "0000000000000000",
			expected:  "8CA64DE9C1B123A7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := tlv.Hex(tt.desKey, tt.desKey)
			got, err := Encrypt(key, tlv.Hex(tt.plaintext))
			if err != nil {
				t.Fatalf("Encrypt() error: %v", err)
			}
			if want := tlv.Hex(tt.expected); !bytes.Equal(got, want) {
				t.Errorf("Encrypt() = %X, want %X", got, want)
			}

			back, err := Decrypt(key, got)
			if err != nil {
				t.Fatalf("Decrypt() error: %v", err)
			}
			if !bytes.Equal(back, tlv.Hex(tt.plaintext)) {
				t.Errorf("Decrypt() = %X, want %s", back, tt.plaintext)
			}
		})
	}
}

func TestEncrypt_TwoKeyRoundTrip(t *testing.T) {
	key := tlv.Hex("0123456789ABCDEF FEDCBA9876543210")
	block := tlv.Hex("1122334455667788")

	enc, err := Encrypt(key, block)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if bytes.Equal(enc, block) {
		t.Fatal("ciphertext equals plaintext")
	}
	dec, err := Decrypt(key, enc)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(dec, block) {
		t.Errorf("round trip = %X, want %X", dec, block)
	}
}

func TestEncryptAES(t *testing.T) {
	// FIPS-197 appendix C.1
	key := tlv.Hex("000102030405060708090A0B0C0D0E0F")
	plain := tlv.Hex("00112233445566778899AABBCCDDEEFF")
	want := tlv.Hex("69C4E0D86A7B0430D8CDB78070B4C55A")

	got, err := EncryptAES(key, plain)
	if err != nil {
		t.Fatalf("EncryptAES() error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("EncryptAES() = %X, want %X", got, want)
	}
}

func TestInvalidLengths(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"3DES short key", func() error { _, err := Encrypt(make([]byte, 8), make([]byte, 8)); return err }},
		{"3DES nil block", func() error { _, err := Encrypt(make([]byte, 16), nil); return err }},
		{"3DES decrypt long block", func() error { _, err := Decrypt(make([]byte, 16), make([]byte, 9)); return err }},
		{"AES nil key", func() error { _, err := EncryptAES(nil, make([]byte, aes.BlockSize)); return err }},
		{"AES short block", func() error { _, err := EncryptAES(make([]byte, 16), make([]byte, 8)); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, transit.ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}
