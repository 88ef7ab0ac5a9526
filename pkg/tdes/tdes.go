// Package tdes wraps the single-block ciphers used by card key derivation:
// 2-key triple DES (K1 K2 K1) and AES-128, both in ECB on exactly one block.
package tdes

import (
	"crypto/aes"
	"crypto/des"

	"github.com/gregLibert/transit-card/pkg/transit"
)

const (
	// KeySize is the length of a 2-key 3DES or AES-128 key.
	KeySize = 16
	// BlockSize is the DES block length.
	BlockSize = des.BlockSize
)

// Encrypt encrypts one 8-byte block under a 16-byte 2-key 3DES key.
func Encrypt(key, block []byte) ([]byte, error) {
	c, err := newCipher(key, block)
	if err != nil {
		return nil, err
	}
	out := make([]byte, BlockSize)
	c.Encrypt(out, block)
	return out, nil
}

// Decrypt decrypts one 8-byte block under a 16-byte 2-key 3DES key.
func Decrypt(key, block []byte) ([]byte, error) {
	c, err := newCipher(key, block)
	if err != nil {
		return nil, err
	}
	out := make([]byte, BlockSize)
	c.Decrypt(out, block)
	return out, nil
}

// EncryptAES encrypts one 16-byte block under an AES-128 key.
func EncryptAES(key, block []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, transit.InvalidArgument("AES key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(block) != aes.BlockSize {
		return nil, transit.InvalidArgument("AES block must be %d bytes, got %d", aes.BlockSize, len(block))
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, aes.BlockSize)
	c.Encrypt(out, block)
	return out, nil
}

type blockCipher interface {
	Encrypt(dst, src []byte)
	Decrypt(dst, src []byte)
}

func newCipher(key, block []byte) (blockCipher, error) {
	if len(key) != KeySize {
		return nil, transit.InvalidArgument("3DES key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(block) != BlockSize {
		return nil, transit.InvalidArgument("3DES block must be %d bytes, got %d", BlockSize, len(block))
	}
	return des.NewTripleDESCipher(expand(key))
}

// expand turns K1||K2 into K1||K2||K1.
func expand(key []byte) []byte {
	k := make([]byte, 24)
	copy(k, key)
	copy(k[16:], key[:8])
	return k
}
