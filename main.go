package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/gregLibert/transit-card/internal/config"
	"github.com/gregLibert/transit-card/pkg/calypso"
	"github.com/gregLibert/transit-card/pkg/emulator"
	"github.com/gregLibert/transit-card/pkg/felica"
	"github.com/gregLibert/transit-card/pkg/keyderiv"
	"github.com/gregLibert/transit-card/pkg/pcsc"
)

func main() {
	mode := flag.String("mode", "calypso", "calypso, felica or emulate")
	cfgPath := flag.String("config", "", "path to the YAML configuration")
	reader := flag.String("reader", "", "reader index or name substring (overrides the config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	if err := cfg.ConfigureLogger(log.StandardLogger()); err != nil {
		log.Fatalf("Error configuring logger: %v", err)
	}
	if *reader != "" {
		cfg.Reader.Selector = *reader
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "calypso":
		err = runCalypso(ctx, cfg)
	case "felica":
		err = runFeliCa(ctx, cfg)
	case "emulate":
		err = runEmulate(ctx, cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("%s: %v", *mode, err)
		os.Exit(1)
	}
}

// =========================================================================
// Calypso
// =========================================================================

func runCalypso(ctx context.Context, cfg *config.Config) error {
	conn, err := pcsc.Connect(ctx, cfg.Reader.Selector, cfg.Reader.Wait, log.StandardLogger())
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf(">> Using reader: %s\n", conn.Reader)

	card, err := calypso.DetectCard(conn)
	if err != nil {
		return fmt.Errorf("detect card: %w", err)
	}
	fmt.Println(card.Describe())

	opts := []calypso.Option{calypso.WithLogger(log.StandardLogger())}
	if cfg.Calypso.RetryWrongLength {
		opts = append(opts, calypso.WithRetryWrongLength())
	}
	session, err := calypso.NewSession(conn, card, opts...)
	if err != nil {
		return err
	}

	fci, err := session.SelectApplication(nil)
	if err != nil {
		return fmt.Errorf("select application: %w", err)
	}
	if fci != nil {
		fmt.Println(fci.Describe())
	}

	printContracts(session)
	printEvents(session, cfg.Calypso.MaxEvents)

	issuerKey := cfg.Calypso.IssuerKey
	if issuerKey == nil {
		issuerKey = promptKey("Calypso issuer key")
	}
	if issuerKey == nil {
		fmt.Println("\n>> No issuer key: secure session skipped.")
		return nil
	}
	return authenticateCalypso(session, issuerKey, byte(cfg.Calypso.KeyIndex))
}

func printContracts(session *calypso.Session) {
	fmt.Println("\n=============================================")
	fmt.Println(" CONTRACTS")
	fmt.Println("=============================================")

	contracts, err := session.ReadAllContracts()
	if err != nil {
		log.Warnf("Reading contracts stopped: %v", err)
	}
	if len(contracts) == 0 {
		fmt.Println(">> No active contract.")
	}
	for _, c := range contracts {
		fmt.Println(c.Describe())
	}
}

func printEvents(session *calypso.Session, max int) {
	fmt.Println("\n=============================================")
	fmt.Printf(" EVENT LOG (last %d)\n", max)
	fmt.Println("=============================================")

	events, err := session.ReadEventLog(max)
	if err != nil {
		log.Warnf("Reading event log stopped: %v", err)
	}
	for i, e := range events {
		fmt.Printf("\n[Event #%d]\n%s\n", i+1, e.Describe(session.Card.Type))
	}
}

// authenticateCalypso opens a secure session with the card key diversified from
// issuerKey, reads the first counter and closes the session.
func authenticateCalypso(session *calypso.Session, issuerKey []byte, keyIndex byte) error {
	div, err := session.Card.Diversifier()
	if err != nil {
		return err
	}
	cardKey, err := keyderiv.DiversifyKey(issuerKey, div[:])
	if err != nil {
		return err
	}
	auth, err := keyderiv.NewAuthContext(cardKey[:], keyIndex)
	if err != nil {
		return err
	}

	if err := session.OpenSecureSession(auth, keyIndex); err != nil {
		return fmt.Errorf("open secure session: %w", err)
	}
	fmt.Printf("\n>> Secure session open (key index %d)\n", keyIndex)

	if value, err := session.ReadCounter(1); err != nil {
		log.Warnf("Reading counter 1 failed: %v", err)
	} else {
		fmt.Printf(">> Counter #1: %d\n", value)
	}

	if err := session.CloseSecureSession(); err != nil {
		return fmt.Errorf("close secure session: %w", err)
	}
	fmt.Println(">> Secure session closed")
	return nil
}

// =========================================================================
// FeliCa
// =========================================================================

func runFeliCa(ctx context.Context, cfg *config.Config) error {
	conn, err := pcsc.Connect(ctx, cfg.Reader.Selector, cfg.Reader.Wait, log.StandardLogger())
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf(">> Using reader: %s\n", conn.Reader)

	bridge := pcsc.FeliCaBridge{T: conn}
	card, err := felica.Detect(bridge, cfg.FeliCa.SystemCode)
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	fmt.Println(card.Describe())

	reader, err := felica.NewReader(bridge, card, felica.WithLogger(log.StandardLogger()))
	if err != nil {
		return err
	}

	if codes, err := reader.RequestSystemCode(); err != nil {
		log.Warnf("Request system code failed: %v", err)
	} else {
		for _, code := range codes {
			fmt.Printf(">> System %04X (%s)\n", code, felica.SystemCodeName(code))
		}
	}

	if !felica.FormatOf(card.Type).Known() {
		fmt.Printf(">> No record layout for %s.\n", card.Type)
		return nil
	}

	balance, err := reader.ReadBalance()
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	fmt.Printf("\n>> Balance: ¥%d\n", balance)

	history, err := reader.ReadHistory(cfg.FeliCa.MaxHistory)
	if err != nil {
		log.Warnf("Reading history stopped: %v", err)
	}
	for i, tr := range history {
		fmt.Printf("\n[Transaction #%d]\n%s\n", i+1, tr.Describe())
	}

	if !cfg.FeliCa.MutualAuthenticate {
		return nil
	}
	master := cfg.FeliCa.MasterKey
	if master == nil {
		master = promptKey("FeliCa master key")
	}
	if master == nil {
		return nil
	}
	cardKey, err := keyderiv.DeriveCardKey(master, card.IDm[:])
	if err != nil {
		return err
	}
	auth, err := keyderiv.NewAuthContext(cardKey[:], 0)
	if err != nil {
		return err
	}
	if err := reader.MutualAuthenticate(auth); err != nil {
		return fmt.Errorf("mutual authentication: %w", err)
	}
	fmt.Println("\n>> Mutual authentication succeeded")
	return nil
}

// =========================================================================
// Emulation
// =========================================================================

// runEmulate answers hex encoded validator commands read from stdin, one per line.
func runEmulate(ctx context.Context, cfg *config.Config) error {
	d := emulator.NewDispatcher(nil, emulator.WithLogger(log.StandardLogger()))
	d.Reset(cfg.Emulator.Balance, cfg.Emulator.Trips)

	link := emulator.NewLineLink(os.Stdin, os.Stdout)
	defer link.Close()

	listener := emulator.NewListener(d, link)
	listener.Timeout = cfg.Emulator.Timeout

	err := listener.Run(ctx)

	balance, trips := d.TicketInfo()
	log.WithFields(log.Fields{"balance": balance, "trips": trips}).Info("ticket state")
	return err
}

// promptKey asks for a 16-byte hex key without echo. It returns nil when stdin is not a
// terminal or the answer is empty.
func promptKey(label string) []byte {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	fmt.Printf("%s (32 hex chars, empty to skip): ", label)
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		log.Warnf("Reading key failed: %v", err)
		return nil
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil
	}
	key, err := config.ParseKey(text)
	if err != nil {
		log.Warnf("Ignoring key: %v", err)
		return nil
	}
	return key
}
