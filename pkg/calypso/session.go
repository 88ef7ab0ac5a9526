package calypso

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/gregLibert/transit-card/pkg/iso7816"
	"github.com/gregLibert/transit-card/pkg/keyderiv"
	"github.com/gregLibert/transit-card/pkg/transit"
)

// State is the position of a Session in its lifecycle.
type State int

const (
	Idle State = iota
	SessionOpen
	SessionClosed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case SessionOpen:
		return "SessionOpen"
	case SessionClosed:
		return "SessionClosed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ChallengeSource supplies the reader challenge of each secure session.
type ChallengeSource func() ([ChallengeSize]byte, error)

// MACFunc computes the signature sent with CLOSE SECURE SESSION from the session state and
// every exchange recorded by the session so far.
type MACFunc func(auth *keyderiv.AuthContext, trace iso7816.Trace) ([MACSize]byte, error)

// FixedChallenge is the reader challenge used unless a ChallengeSource is configured.
var FixedChallenge = [ChallengeSize]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}

// ZeroMAC returns the all-zero placeholder signature. Real validators reject it.
func ZeroMAC(*keyderiv.AuthContext, iso7816.Trace) ([MACSize]byte, error) {
	return [MACSize]byte{}, nil
}

func fixedChallenge() ([ChallengeSize]byte, error) {
	return FixedChallenge, nil
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The session adds its own "session" and "protocol" fields.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Session) { s.log = l }
}

// WithChallengeSource replaces the fixed reader challenge.
func WithChallengeSource(src ChallengeSource) Option {
	return func(s *Session) { s.challenge = src }
}

// WithMAC replaces the placeholder close-session signature.
func WithMAC(fn MACFunc) Option {
	return func(s *Session) { s.mac = fn }
}

// WithSessionKeyFunc replaces the session key derivation, e.g. for Rev3 cards.
func WithSessionKeyFunc(fn keyderiv.SessionKeyFunc) Option {
	return func(s *Session) { s.sessionKey = fn }
}

// WithRetryWrongLength makes the underlying client re-send commands answered with 6CXX.
func WithRetryWrongLength() Option {
	return func(s *Session) { s.client.RetryWrongLength = true }
}

// Session drives one Calypso card. It is not safe for concurrent use.
type Session struct {
	ID   uuid.UUID
	Card *Card

	client     *iso7816.Client
	codec      Codec
	log        log.FieldLogger
	challenge  ChallengeSource
	mac        MACFunc
	sessionKey keyderiv.SessionKeyFunc

	state State
	auth  *keyderiv.AuthContext
}

// NewSession returns an Idle session talking to card through t.
func NewSession(t transit.Transmitter, card *Card, opts ...Option) (*Session, error) {
	if t == nil {
		return nil, transit.InvalidArgument("nil transmitter")
	}
	if card == nil {
		return nil, transit.InvalidArgument("nil card")
	}

	s := &Session{
		ID:        uuid.New(),
		Card:      card,
		client:    iso7816.NewClient(t),
		log:       log.StandardLogger(),
		challenge: fixedChallenge,
		mac:       ZeroMAC,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields(log.Fields{
		"session":  s.ID.String(),
		"protocol": s.codec.Name(),
	})
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Auth returns the context of the open session, or nil.
func (s *Session) Auth() *keyderiv.AuthContext {
	return s.auth
}

// Trace returns every APDU exchanged by the session.
func (s *Session) Trace() iso7816.Trace {
	return s.client.Trace()
}

func (s *Session) exchange(tx []byte, fields log.Fields) ([]byte, error) {
	entry := s.log.WithFields(fields)
	entry.WithField("ins", insName(iso7816.InsCode(tx[1]))).Debugf("-> % X", tx)

	payload, err := transit.Exchange(s.client, s.codec, tx)
	if err != nil {
		var se *transit.StatusError
		if errors.As(err, &se) {
			entry.WithFields(log.Fields{
				"ins": insName(iso7816.InsCode(se.Command)),
				"sw":  fmt.Sprintf("%02X%02X", se.SW1, se.SW2),
			}).Warn(se.Detail)
		} else {
			entry.WithError(err).Error("exchange failed")
		}
		return nil, err
	}
	return payload, nil
}

func (s *Session) requireOpen(op string) error {
	if s.state != SessionOpen {
		return fmt.Errorf("%s: %w (session is %s)", op, transit.ErrNotAuthenticated, s.state)
	}
	return nil
}

// SelectApplication selects aid (AID when nil). The FCI is nil when the card sends none
// or sends one that does not decode.
func (s *Session) SelectApplication(aid []byte) (*FCI, error) {
	if aid == nil {
		aid = AID
	}
	tx, err := s.codec.BuildSelect(aid)
	if err != nil {
		return nil, err
	}

	payload, err := s.exchange(tx, nil)
	if err != nil {
		return nil, fmt.Errorf("select application: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	fci, err := ParseFCI(payload)
	if err != nil {
		s.log.WithError(err).Warn("ignoring undecodable FCI")
		return nil, nil
	}
	if startup, ok := fci.Startup(); ok {
		s.Card.Revision = startup.Revision()
	}
	return fci, nil
}

// OpenSecureSession opens a session with the key at keyIndex, derives the session key into
// auth and moves to SessionOpen. The card challenge is the first 8 data bytes of the answer,
// zero padded when the card returns fewer. auth must not hold a session key yet.
func (s *Session) OpenSecureSession(auth *keyderiv.AuthContext, keyIndex byte) error {
	if auth == nil {
		return transit.InvalidArgument("nil auth context")
	}
	if s.state == SessionOpen {
		return fmt.Errorf("open secure session: %w: already open", transit.ErrSessionState)
	}
	if auth.Derived() {
		return fmt.Errorf("open secure session: %w: auth context already holds a session key", transit.ErrSessionState)
	}

	tx, err := s.codec.BuildOpenSession(keyIndex)
	if err != nil {
		return err
	}
	payload, err := s.exchange(tx, log.Fields{"key": keyIndex})
	if err != nil {
		return fmt.Errorf("open secure session: %w", err)
	}
	if len(payload) == 0 {
		return &transit.DecodeError{Format: "open session response", Reason: "no card challenge"}
	}
	// Le is 04: a card may answer with fewer than 8 challenge bytes.
	var cc [ChallengeSize]byte
	copy(cc[:], payload)

	rc, err := s.challenge()
	if err != nil {
		return fmt.Errorf("reader challenge: %w", err)
	}

	auth.KeyIndex = keyIndex
	if d, err := s.Card.Diversifier(); err == nil {
		auth.Diversifier = d
	}
	if err := auth.Derive(s.sessionKey, cc[:], rc[:]); err != nil {
		return fmt.Errorf("open secure session: %w", err)
	}

	auth.Authenticated = true
	s.Card.Authenticated = true
	s.auth = auth
	s.state = SessionOpen
	s.log.WithField("key", keyIndex).Info("secure session open")
	return nil
}

// CloseSecureSession sends the closing signature and moves to SessionClosed. The auth
// context is invalidated even when the card rejects the command.
func (s *Session) CloseSecureSession() error {
	if s.state != SessionOpen {
		return fmt.Errorf("close secure session: %w (session is %s)", transit.ErrSessionState, s.state)
	}

	mac, err := s.mac(s.auth, s.client.Trace())
	if err != nil {
		return fmt.Errorf("session MAC: %w", err)
	}
	tx, err := s.codec.BuildCloseSession(mac)
	if err != nil {
		return err
	}
	_, err = s.exchange(tx, nil)

	s.auth.Invalidate()
	s.Card.Authenticated = false
	s.auth = nil
	s.state = SessionClosed

	if err != nil {
		return fmt.Errorf("close secure session: %w", err)
	}
	s.log.Info("secure session closed")
	return nil
}

// ReadRecord reads one record of a short file, in any state.
func (s *Session) ReadRecord(sfi, record byte) ([]byte, error) {
	tx, err := s.codec.BuildRead(uint16(sfi), uint16(record))
	if err != nil {
		return nil, err
	}
	payload, err := s.exchange(tx, log.Fields{"file": sfi, "record": record})
	if err != nil {
		return nil, fmt.Errorf("read record %d of SFI %02X: %w", record, sfi, err)
	}
	return payload, nil
}

// ReadContract reads and decodes contract n (1-4).
func (s *Session) ReadContract(n int) (Contract, error) {
	if n < 1 || n > MaxContracts {
		return Contract{}, transit.InvalidArgument("contract number %d out of range 1-%d", n, MaxContracts)
	}
	raw, err := s.ReadRecord(SFIContracts, byte(n))
	if err != nil {
		return Contract{}, err
	}
	return ParseContract(raw, s.Card.Type)
}

// ReadAllContracts returns the active contracts. A missing record ends the list.
func (s *Session) ReadAllContracts() ([]Contract, error) {
	var out []Contract
	for n := 1; n <= MaxContracts; n++ {
		c, err := s.ReadContract(n)
		if isRecordNotFound(err) {
			break
		}
		if err != nil {
			return out, err
		}
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

// ReadEventLog returns up to max events, most recent first. The log ends at the first
// missing or blank record.
func (s *Session) ReadEventLog(max int) ([]Event, error) {
	if max < 1 || max > 0xFF {
		return nil, transit.InvalidArgument("event count %d out of range 1-255", max)
	}

	var out []Event
	for rec := 1; rec <= max; rec++ {
		raw, err := s.ReadRecord(SFIEventLog, byte(rec))
		if isRecordNotFound(err) {
			break
		}
		if err != nil {
			return out, err
		}
		e, err := ParseEvent(raw, s.Card.Type)
		if err != nil {
			return out, err
		}
		if e.Code == 0 && e.Date.IsZero() {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

// ReadCounter returns counter n (1-based) from the counter file.
func (s *Session) ReadCounter(n byte) (uint32, error) {
	if n == 0 || int(n)*CounterSize > RecordSize {
		return 0, transit.InvalidArgument("counter number %d out of range", n)
	}
	raw, err := s.ReadRecord(SFICounters, 1)
	if err != nil {
		return 0, err
	}
	off := int(n-1) * CounterSize
	if len(raw) < off+CounterSize {
		return 0, &transit.DecodeError{Format: "counter", Reason: fmt.Sprintf("record holds %d bytes, counter %d needs %d", len(raw), n, off+CounterSize)}
	}
	return counterValue(raw[off:]), nil
}

// GetChallenge asks the card for 8 random bytes.
func (s *Session) GetChallenge() ([ChallengeSize]byte, error) {
	var out [ChallengeSize]byte
	tx, err := s.codec.BuildGetChallenge()
	if err != nil {
		return out, err
	}
	payload, err := s.exchange(tx, nil)
	if err != nil {
		return out, fmt.Errorf("get challenge: %w", err)
	}
	if len(payload) < ChallengeSize {
		return out, &transit.DecodeError{Format: "challenge", Reason: fmt.Sprintf("%d bytes", len(payload))}
	}
	copy(out[:], payload)
	return out, nil
}

// UpdateRecord overwrites a record. It requires SessionOpen.
func (s *Session) UpdateRecord(sfi, record byte, data []byte) error {
	if err := s.requireOpen("update record"); err != nil {
		return err
	}
	tx, err := s.codec.BuildUpdateRecord(uint16(sfi), record, data)
	if err != nil {
		return err
	}
	if _, err := s.exchange(tx, log.Fields{"file": sfi, "record": record}); err != nil {
		return fmt.Errorf("update record %d of SFI %02X: %w", record, sfi, err)
	}
	return nil
}

// UpdateContract writes c back to its record. It requires SessionOpen.
func (s *Session) UpdateContract(c Contract) error {
	if c.Number == 0 || int(c.Number) > MaxContracts {
		return transit.InvalidArgument("contract number %d out of range 1-%d", c.Number, MaxContracts)
	}
	raw := c.Encode()
	return s.UpdateRecord(SFIContracts, c.Number, raw[:])
}

// IncreaseCounter adds amount to a counter and returns its new value. It requires SessionOpen.
func (s *Session) IncreaseCounter(counter byte, amount uint32) (uint32, error) {
	if err := s.requireOpen("increase"); err != nil {
		return 0, err
	}
	tx, err := s.codec.BuildIncrease(uint16(SFICounters), counter, amount)
	if err != nil {
		return 0, err
	}
	return s.counterResult(tx, counter)
}

// DecreaseCounter subtracts amount from a counter and returns its new value. It requires SessionOpen.
func (s *Session) DecreaseCounter(counter byte, amount uint32) (uint32, error) {
	if err := s.requireOpen("decrease"); err != nil {
		return 0, err
	}
	tx, err := s.codec.BuildDecrease(uint16(SFICounters), counter, amount)
	if err != nil {
		return 0, err
	}
	return s.counterResult(tx, counter)
}

func (s *Session) counterResult(tx []byte, counter byte) (uint32, error) {
	payload, err := s.exchange(tx, log.Fields{"file": SFICounters, "record": counter})
	if err != nil {
		return 0, fmt.Errorf("counter %d: %w", counter, err)
	}
	if len(payload) < CounterSize {
		return 0, &transit.DecodeError{Format: "counter", Reason: fmt.Sprintf("%d bytes returned", len(payload))}
	}
	return counterValue(payload), nil
}

func isRecordNotFound(err error) bool {
	return transit.IsStatus(err, 0x6A, 0x83) || transit.IsStatus(err, 0x6A, 0x82)
}
