package felica

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/gregLibert/transit-card/pkg/keyderiv"
	"github.com/gregLibert/transit-card/pkg/transit"
)

// ChallengeSource supplies the reader challenge RR of mutual authentication.
type ChallengeSource func() ([ChallengeSize]byte, error)

// FixedChallenge is the RR used unless a ChallengeSource is configured.
var FixedChallenge = [ChallengeSize]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger. The reader adds "session", "protocol" and "idm" fields.
func WithLogger(l log.FieldLogger) Option {
	return func(r *Reader) { r.log = l }
}

// WithChallengeSource replaces the fixed reader challenge.
func WithChallengeSource(src ChallengeSource) Option {
	return func(r *Reader) { r.challenge = src }
}

// WithSessionKeyFunc replaces the session key derivation.
func WithSessionKeyFunc(fn keyderiv.SessionKeyFunc) Option {
	return func(r *Reader) { r.sessionKey = fn }
}

// Detect polls for a card answering on systemCode (SystemWildcard for any).
// Silence from the field is reported as transit.ErrNoCard.
func Detect(t transit.Transmitter, systemCode uint16) (*Card, error) {
	var codec Codec
	payload, err := transit.Exchange(t, codec, codec.BuildPolling(systemCode))
	if errors.Is(err, transit.ErrNoResponse) {
		return nil, fmt.Errorf("poll system %04X: %w", systemCode, transit.ErrNoCard)
	}
	if err != nil {
		return nil, fmt.Errorf("poll system %04X: %w", systemCode, err)
	}
	if len(payload) < IDmSize+PMmSize {
		return nil, &transit.DecodeError{Format: "polling response", Reason: fmt.Sprintf("%d bytes after response code", len(payload))}
	}

	card := &Card{SystemCode: systemCode}
	copy(card.IDm[:], payload[:IDmSize])
	copy(card.PMm[:], payload[IDmSize:IDmSize+PMmSize])
	if systemCode == SystemWildcard && len(payload) >= IDmSize+PMmSize+2 {
		card.SystemCode = binary.BigEndian.Uint16(payload[IDmSize+PMmSize:])
	}
	card.Type = Identify(card.SystemCode, card.IDm, card.PMm)
	return card, nil
}

// Reader runs commands against one polled card. It is not safe for concurrent use.
type Reader struct {
	ID   uuid.UUID
	Card *Card

	t          transit.Transmitter
	codec      Codec
	log        log.FieldLogger
	challenge  ChallengeSource
	sessionKey keyderiv.SessionKeyFunc
}

// NewReader returns a Reader addressing card through t.
func NewReader(t transit.Transmitter, card *Card, opts ...Option) (*Reader, error) {
	if t == nil {
		return nil, transit.InvalidArgument("nil transmitter")
	}
	if card == nil {
		return nil, transit.InvalidArgument("nil card")
	}

	r := &Reader{
		ID:    uuid.New(),
		Card:  card,
		t:     t,
		codec: Codec{IDm: card.IDm},
		log:   log.StandardLogger(),
		challenge: func() ([ChallengeSize]byte, error) {
			return FixedChallenge, nil
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithFields(log.Fields{
		"session":  r.ID.String(),
		"protocol": r.codec.Name(),
		"idm":      fmt.Sprintf("%X", card.IDm),
	})
	return r, nil
}

func (r *Reader) exchange(tx []byte, fields log.Fields) ([]byte, error) {
	entry := r.log.WithFields(fields)
	entry.Debugf("-> % X", tx)

	payload, err := transit.Exchange(r.t, r.codec, tx)
	if err != nil {
		var se *transit.StatusError
		if errors.As(err, &se) {
			entry.WithFields(log.Fields{
				"cmd": fmt.Sprintf("%02X", se.Command),
				"sw":  fmt.Sprintf("%02X%02X", se.SW1, se.SW2),
			}).Warn(se.Detail)
		} else {
			entry.WithError(err).Error("exchange failed")
		}
		return nil, err
	}
	return payload, nil
}

// RequestService returns the key version of each service or area code; FFFF marks a code
// the card does not have.
func (r *Reader) RequestService(codes []uint16) ([]uint16, error) {
	tx, err := r.codec.BuildRequestService(codes)
	if err != nil {
		return nil, err
	}
	payload, err := r.exchange(tx, nil)
	if err != nil {
		return nil, fmt.Errorf("request service: %w", err)
	}
	if len(payload) < 1 || len(payload) < 1+int(payload[0])*2 {
		return nil, &transit.DecodeError{Format: "request service response", Reason: fmt.Sprintf("%d bytes", len(payload))}
	}

	versions := make([]uint16, payload[0])
	for i := range versions {
		versions[i] = binary.LittleEndian.Uint16(payload[1+2*i:])
	}
	return versions, nil
}

// ReadWithoutEncryption reads blocks of one service that allows plain reads.
func (r *Reader) ReadWithoutEncryption(service uint16, blocks []uint16) ([][BlockSize]byte, error) {
	tx, err := r.codec.BuildReadBlocks(service, blocks)
	if err != nil {
		return nil, err
	}
	payload, err := r.exchange(tx, log.Fields{"service": fmt.Sprintf("%04X", service)})
	if err != nil {
		return nil, fmt.Errorf("read service %04X: %w", service, err)
	}
	if len(payload) < 1 {
		return nil, &transit.DecodeError{Format: "read response", Reason: "missing block count"}
	}

	count := int(payload[0])
	if len(payload) < 1+count*BlockSize {
		return nil, &transit.DecodeError{Format: "read response", Reason: fmt.Sprintf("%d blocks announced, %d bytes present", count, len(payload)-1)}
	}
	out := make([][BlockSize]byte, count)
	for i := range out {
		copy(out[i][:], payload[1+i*BlockSize:])
	}
	return out, nil
}

// WriteWithoutEncryption writes one block of a service that allows plain writes.
func (r *Reader) WriteWithoutEncryption(service uint16, block uint16, data []byte) error {
	tx, err := r.codec.BuildWrite(service, block, data)
	if err != nil {
		return err
	}
	if _, err := r.exchange(tx, log.Fields{"service": fmt.Sprintf("%04X", service), "block": block}); err != nil {
		return fmt.Errorf("write service %04X block %d: %w", service, block, err)
	}
	return nil
}

// RequestSystemCode lists the system codes of the card.
func (r *Reader) RequestSystemCode() ([]uint16, error) {
	tx, err := r.codec.BuildRequestSystemCode()
	if err != nil {
		return nil, err
	}
	payload, err := r.exchange(tx, nil)
	if err != nil {
		return nil, fmt.Errorf("request system code: %w", err)
	}
	if len(payload) < 1 || len(payload) < 1+int(payload[0])*2 {
		return nil, &transit.DecodeError{Format: "system code response", Reason: fmt.Sprintf("%d bytes", len(payload))}
	}

	codes := make([]uint16, payload[0])
	for i := range codes {
		codes[i] = binary.BigEndian.Uint16(payload[1+2*i:])
	}
	return codes, nil
}

// MutualAuthenticate sends RR in Authentication1, takes RC from the answer and derives the
// session key into auth. auth.IssuerKey must hold the card key (see keyderiv.DeriveCardKey).
func (r *Reader) MutualAuthenticate(auth *keyderiv.AuthContext) error {
	if auth == nil {
		return transit.InvalidArgument("nil auth context")
	}
	rr, err := r.challenge()
	if err != nil {
		return fmt.Errorf("reader challenge: %w", err)
	}

	tx, err := r.codec.BuildAuthentication1(rr[:])
	if err != nil {
		return err
	}
	payload, err := r.exchange(tx, nil)
	if err != nil {
		return fmt.Errorf("authentication1: %w", err)
	}
	if len(payload) < ChallengeSize {
		return &transit.DecodeError{Format: "authentication1 response", Reason: fmt.Sprintf("%d bytes, no card challenge", len(payload))}
	}

	auth.Diversifier = r.Card.IDm
	if err := auth.Derive(r.sessionKey, payload[:ChallengeSize], rr[:]); err != nil {
		return fmt.Errorf("authentication1: %w", err)
	}
	auth.Authenticated = true
	r.Card.Authenticated = true
	r.log.Info("mutual authentication complete")
	return nil
}

// ReadBalance returns the stored value of a Suica family card, in yen.
func (r *Reader) ReadBalance() (uint16, error) {
	blocks, err := r.ReadWithoutEncryption(ServiceSuicaBalance, []uint16{0})
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, &transit.DecodeError{Format: "balance", Reason: "no block returned"}
	}
	return binary.LittleEndian.Uint16(blocks[0][10:12]), nil
}

// ReadHistory returns up to max transactions (at most MaxHistory), most recent first.
// Reading stops at the first blank block.
func (r *Reader) ReadHistory(max int) ([]Transaction, error) {
	if max < 1 {
		return nil, transit.InvalidArgument("history count %d must be positive", max)
	}
	if !FormatOf(r.Card.Type).Known() {
		return nil, &transit.DecodeError{Format: "transaction", Reason: fmt.Sprintf("no layout for %s", FormatOf(r.Card.Type))}
	}
	if max > MaxHistory {
		max = MaxHistory
	}

	var out []Transaction
	for i := 0; i < max; i++ {
		blocks, err := r.ReadWithoutEncryption(ServiceSuicaHistory, []uint16{uint16(i)})
		if err != nil {
			return out, err
		}
		if len(blocks) == 0 || blocks[0] == [BlockSize]byte{} {
			break
		}
		tr, err := ParseTransaction(blocks[0][:], r.Card.Type)
		if err != nil {
			return out, err
		}
		out = append(out, tr)
	}
	return out, nil
}
