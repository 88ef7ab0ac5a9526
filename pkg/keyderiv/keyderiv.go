// Package keyderiv derives per-card and per-session keys from master keys and challenges.
package keyderiv

import (
	"github.com/gregLibert/transit-card/pkg/tdes"
	"github.com/gregLibert/transit-card/pkg/transit"
)

const (
	KeySize       = tdes.KeySize
	ChallengeSize = tdes.BlockSize
)

// Well-known keys found on test and sample cards.
var (
	Default3DES = [KeySize]byte{}
	DefaultAES  = [KeySize]byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}
	NavigoSample = [KeySize]byte{
		0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF,
		0xFE, 0xDC, 0xBA, 0x98, 0x76, 0x54, 0x32, 0x10,
	}
)

// CommonKeys returns the well-known keys, in probing order.
func CommonKeys() [][KeySize]byte {
	return [][KeySize]byte{Default3DES, DefaultAES, NavigoSample}
}

// SessionKeyFunc turns a key and the two session challenges into a session key.
type SessionKeyFunc func(key, cardChallenge, readerChallenge []byte) ([KeySize]byte, error)

// GenerateSessionKey is the derivation used by sessions unless they are configured
// otherwise. It is LegacySessionKey; sessions take another SessionKeyFunc through options.
func GenerateSessionKey(key, cardChallenge, readerChallenge []byte) ([KeySize]byte, error) {
	return LegacySessionKey(key, cardChallenge, readerChallenge)
}

// DiversifyKey derives a card key as E(K, D) || E(K, D xor FF..FF) with 2-key 3DES.
func DiversifyKey(master, diversifier []byte) ([KeySize]byte, error) {
	var out [KeySize]byte
	if len(diversifier) != ChallengeSize {
		return out, transit.InvalidArgument("diversifier must be %d bytes, got %d", ChallengeSize, len(diversifier))
	}

	left, err := tdes.Encrypt(master, diversifier)
	if err != nil {
		return out, err
	}

	inverted := make([]byte, ChallengeSize)
	for i, b := range diversifier {
		inverted[i] = ^b
	}
	right, err := tdes.Encrypt(master, inverted)
	if err != nil {
		return out, err
	}

	copy(out[:8], left)
	copy(out[8:], right)
	return out, nil
}

// DiversifyKeyAES derives a card key for AES-128 cards as AES(K, D).
func DiversifyKeyAES(master, diversifier []byte) ([KeySize]byte, error) {
	var out [KeySize]byte
	enc, err := tdes.EncryptAES(master, diversifier)
	if err != nil {
		return out, err
	}
	copy(out[:], enc)
	return out, nil
}

// LegacySessionKey computes S = 3DES(key, cardChallenge xor readerChallenge) and returns S || S.
//
// Only 8 bytes of key material are produced; the second half duplicates the first.
// Validators of this card generation expect exactly this, so it must not be changed.
// Stronger derivations plug in through SessionKeyFunc.
func LegacySessionKey(key, cardChallenge, readerChallenge []byte) ([KeySize]byte, error) {
	var out [KeySize]byte
	if len(cardChallenge) != ChallengeSize || len(readerChallenge) != ChallengeSize {
		return out, transit.InvalidArgument("challenges must be %d bytes, got %d and %d",
			ChallengeSize, len(cardChallenge), len(readerChallenge))
	}

	mixed := make([]byte, ChallengeSize)
	for i := range mixed {
		mixed[i] = cardChallenge[i] ^ readerChallenge[i]
	}

	s, err := tdes.Encrypt(key, mixed)
	if err != nil {
		return out, err
	}
	copy(out[:8], s)
	copy(out[8:], s)
	return out, nil
}

// DeriveCardKey derives a FeliCa card key from the master key and the card IDm.
func DeriveCardKey(master, idm []byte) ([KeySize]byte, error) {
	if len(idm) != 8 {
		return [KeySize]byte{}, transit.InvalidArgument("IDm must be 8 bytes, got %d", len(idm))
	}
	return DiversifyKey(master, idm)
}
