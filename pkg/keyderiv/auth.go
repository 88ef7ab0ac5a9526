package keyderiv

import (
	"fmt"

	"github.com/gregLibert/transit-card/pkg/transit"
)

// AuthContext is the key material of one secure session. It belongs to the session that
// opened it. The session key is derived at most once per session.
type AuthContext struct {
	IssuerKey       [KeySize]byte
	SessionKey      [KeySize]byte
	Diversifier     [ChallengeSize]byte
	CardChallenge   [ChallengeSize]byte
	ReaderChallenge [ChallengeSize]byte
	KeyIndex        byte
	Authenticated   bool

	derived bool
}

// NewAuthContext returns a context for the given issuer (or diversified card) key.
func NewAuthContext(key []byte, keyIndex byte) (*AuthContext, error) {
	if len(key) != KeySize {
		return nil, transit.InvalidArgument("key must be %d bytes, got %d", KeySize, len(key))
	}
	a := &AuthContext{KeyIndex: keyIndex}
	copy(a.IssuerKey[:], key)
	return a, nil
}

// Derive records both challenges and computes the session key with fn
// (GenerateSessionKey when nil). A second call before Invalidate fails with
// transit.ErrSessionState.
func (a *AuthContext) Derive(fn SessionKeyFunc, cardChallenge, readerChallenge []byte) error {
	if a.derived {
		return fmt.Errorf("%w: session key already derived", transit.ErrSessionState)
	}
	if fn == nil {
		fn = GenerateSessionKey
	}

	key, err := fn(a.IssuerKey[:], cardChallenge, readerChallenge)
	if err != nil {
		return err
	}

	copy(a.CardChallenge[:], cardChallenge)
	copy(a.ReaderChallenge[:], readerChallenge)
	a.SessionKey = key
	a.derived = true
	return nil
}

// Derived reports whether the session key has been set.
func (a *AuthContext) Derived() bool {
	return a.derived
}

// Invalidate ends the session: the context is no longer authenticated and the session key
// is wiped.
func (a *AuthContext) Invalidate() {
	a.Authenticated = false
	a.SessionKey = [KeySize]byte{}
	a.derived = false
}
