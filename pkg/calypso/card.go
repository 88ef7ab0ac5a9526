package calypso

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gregLibert/transit-card/pkg/transit"
)

// CardType identifies the transit operator behind a Calypso card.
type CardType int

const (
	Unknown CardType = iota
	Navigo
	LyonTCL
	MarseilleRTM
	ToulouseTisseo
	BordeauxTBM
	NiceLignesAzur
	StrasbourgCTS
	RennesSTAR
	LilleTranspole
	NantesTAN
	GrenobleTAG
	MontpellierTAM
	NancySTAN
	RouenTCAR
	ToulonRMTT
	OrleansTAO
	AngersIRIGO
	DijonDivia
	BrestBibus
	ReimsCitura
	MOBIB
	MOBIBAntwerp
	MOBIBGhent
	MOBIBLiege
	MOBIBCharleroi
	VivaViagem
	Viva
	Andante
	Andante24
	AthensATHENA
	Thessaloniki
	RomeMetrebus
	MilanATM
	TurinGTT
	FlorenceATAF
	NaplesANM
	BolognaTPER
	GenoaAMT
	TunisTranstu
	Sfax
	Sousse
	BarcelonaTMB
	MadridConsorcio
	ValenciaEMT
	SevilleTussam
	SwissPass
	GenevaTPG
	LausanneTL
	AmsterdamGVB
	RotterdamRET
	PragueDPP
	BrnoDPMB
	WarsawZTM
	KrakowMPK
	BucharestSTB
	ClujCTP
	IstanbulIstanbulkart
	AnkaraAnkarakart
	CasablancaTramway
	RabatSaleTramway
	AlgiersMetro
	OranTramway
	Beirut
	LondonOysterTrial
	MunichMVV
	FrankfurtRMV
	ViennaWienerLinien
	CopenhagenDOT
	StockholmSL
	DubaiNol
	QatarKarwa
	SaoPauloBilhete
	BuenosAiresSUBE
	BogotaTuLlave
	Interoperable
	Generic
)

var cardNames = map[CardType]string{
	Navigo: "Navigo (Paris)",
	LyonTCL: "TCL (Lyon)",
	MarseilleRTM: "RTM (Marseille)",
	ToulouseTisseo: "Tisseo (Toulouse)",
	BordeauxTBM: "TBM (Bordeaux)",
	NiceLignesAzur: "Lignes d'Azur (Nice)",
	StrasbourgCTS: "CTS (Strasbourg)",
	RennesSTAR: "STAR (Rennes)",
	LilleTranspole: "Transpole (Lille)",
	NantesTAN: "TAN (Nantes)",
	GrenobleTAG: "TAG (Grenoble)",
	MontpellierTAM: "TAM (Montpellier)",
	NancySTAN: "STAN (Nancy)",
	RouenTCAR: "TCAR (Rouen)",
	ToulonRMTT: "RMTT (Toulon)",
	OrleansTAO: "TAO (Orléans)",
	AngersIRIGO: "IRIGO (Angers)",
	DijonDivia: "Divia (Dijon)",
	BrestBibus: "Bibus (Brest)",
	ReimsCitura: "Citura (Reims)",
	MOBIB: "MOBIB (Brussels)",
	MOBIBAntwerp: "MOBIB (Antwerp)",
	MOBIBGhent: "MOBIB (Ghent)",
	MOBIBLiege: "MOBIB (Liège)",
	MOBIBCharleroi: "MOBIB (Charleroi)",
	VivaViagem: "Viva Viagem (Lisbon)",
	Viva: "Viva (Lisbon)",
	Andante: "Andante (Porto)",
	Andante24: "Andante 24 (Porto)",
	AthensATHENA: "ATH.ENA (Athens)",
	Thessaloniki: "Thessaloniki Transit",
	RomeMetrebus: "Metrebus (Rome)",
	MilanATM: "ATM (Milan)",
	TurinGTT: "GTT (Turin)",
	FlorenceATAF: "ATAF (Florence)",
	NaplesANM: "ANM (Naples)",
	BolognaTPER: "TPER (Bologna)",
	GenoaAMT: "AMT (Genoa)",
	TunisTranstu: "Transtu (Tunis)",
	Sfax: "Sfax Transit",
	Sousse: "Sousse Transit",
	BarcelonaTMB: "TMB (Barcelona)",
	MadridConsorcio: "Madrid Regional",
	ValenciaEMT: "EMT (Valencia)",
	SevilleTussam: "Tussam (Seville)",
	SwissPass: "SwissPass",
	GenevaTPG: "TPG (Geneva)",
	LausanneTL: "TL (Lausanne)",
	AmsterdamGVB: "GVB (Amsterdam)",
	RotterdamRET: "RET (Rotterdam)",
	PragueDPP: "DPP (Prague)",
	BrnoDPMB: "DPMB (Brno)",
	WarsawZTM: "ZTM (Warsaw)",
	KrakowMPK: "MPK (Kraków)",
	BucharestSTB: "STB (Bucharest)",
	ClujCTP: "CTP (Cluj-Napoca)",
	IstanbulIstanbulkart: "Istanbulkart",
	AnkaraAnkarakart: "Ankarakart",
	CasablancaTramway: "Casablanca Tramway",
	RabatSaleTramway: "Rabat-Salé Tramway",
	AlgiersMetro: "Algiers Metro",
	OranTramway: "Oran Tramway",
	Beirut: "Beirut Transit",
	LondonOysterTrial: "Oyster Trial (London)",
	MunichMVV: "MVV (Munich)",
	FrankfurtRMV: "RMV (Frankfurt)",
	ViennaWienerLinien: "Wiener Linien (Vienna)",
	CopenhagenDOT: "DOT (Copenhagen)",
	StockholmSL: "SL (Stockholm)",
	DubaiNol: "Nol (Dubai)",
	QatarKarwa: "Karwa (Qatar)",
	SaoPauloBilhete: "Bilhete (São Paulo)",
	BuenosAiresSUBE: "SUBE (Buenos Aires)",
	BogotaTuLlave: "TuLlave (Bogotá)",
	Interoperable: "Calypso Interoperable",
	Generic: "Generic Calypso",
}

func (t CardType) String() string {
	if name, ok := cardNames[t]; ok {
		return name
	}
	return "Unknown Calypso"
}

// Revision is the Calypso product revision.
type Revision int

const (
	Rev1 Revision = iota + 1
	Rev2
	Rev3
	Rev3Light
)

func (r Revision) String() string {
	switch r {
	case Rev1:
		return "Rev1"
	case Rev2:
		return "Rev2"
	case Rev3:
		return "Rev3"
	case Rev3Light:
		return "Rev3 Light"
	default:
		return fmt.Sprintf("Revision(%d)", int(r))
	}
}

// Security is the cipher family a card uses for its secure session.
type Security int

const (
	SecurityNone Security = iota
	SecurityDES
	Security3DES
	SecurityAES128
)

func (s Security) String() string {
	switch s {
	case SecurityNone:
		return "None"
	case SecurityDES:
		return "DES"
	case Security3DES:
		return "3DES"
	case SecurityAES128:
		return "AES-128"
	default:
		return fmt.Sprintf("Security(%d)", int(s))
	}
}

// Card is a detected Calypso card. Identity fields do not change after detection;
// Authenticated follows the secure session.
type Card struct {
	UID           []byte
	ATR           []byte
	CardNumber    uint32
	Type          CardType
	Revision      Revision
	Security      Security
	Authenticated bool
}

// ATR prefixes, most specific first.
var atrSignatures = []struct {
	prefix []byte
	typ    CardType
}{
	{[]byte{0x3B, 0x8F, 0x80, 0x01}, Navigo},
	{[]byte{0x3B, 0x88, 0x80, 0x01}, MOBIB},
	{[]byte{0x3B, 0x8E}, VivaViagem},
	{[]byte{0x3B}, Generic},
}

// Identify maps an ATR to a card type. ATRs shorter than 4 bytes are Unknown.
func Identify(atr []byte) CardType {
	if len(atr) < 4 {
		return Unknown
	}
	for _, sig := range atrSignatures {
		if bytes.HasPrefix(atr, sig.prefix) {
			return sig.typ
		}
	}
	return Unknown
}

// CardSource gives access to the activation data of the card in the field.
type CardSource interface {
	ATR() ([]byte, error)
	UID() ([]byte, error)
}

// DetectCard identifies the card presented by src.
// A missing UID is tolerated; a missing or unrecognized ATR is not.
func DetectCard(src CardSource) (*Card, error) {
	if src == nil {
		return nil, transit.InvalidArgument("nil card source")
	}

	atr, err := src.ATR()
	if err != nil {
		return nil, &transit.TransportError{Op: "read ATR", Err: err}
	}
	if len(atr) == 0 {
		return nil, transit.ErrNoCard
	}

	typ := Identify(atr)
	if typ == Unknown {
		return nil, fmt.Errorf("%w: ATR %X is not a Calypso signature", transit.ErrNoCard, atr)
	}

	card := &Card{
		ATR:      append([]byte(nil), atr...),
		Type:     typ,
		Revision: Rev2,
		Security: Security3DES,
	}

	if uid, err := src.UID(); err == nil && (len(uid) == 4 || len(uid) == 8) {
		card.UID = append([]byte(nil), uid...)
		for _, b := range uid[len(uid)-4:] {
			card.CardNumber = card.CardNumber<<8 | uint32(b)
		}
	}

	return card, nil
}

// Diversifier returns the 8-byte key diversifier: the UID right-aligned and zero padded.
func (c *Card) Diversifier() ([8]byte, error) {
	var d [8]byte
	if len(c.UID) == 0 || len(c.UID) > 8 {
		return d, transit.InvalidArgument("card UID length %d", len(c.UID))
	}
	copy(d[8-len(c.UID):], c.UID)
	return d, nil
}

// Describe reports the card identity and its security properties.
func (c *Card) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== CALYPSO SECURITY ANALYSIS ===\n")
	fmt.Fprintf(&sb, "Card Type: %s\n", c.Type)
	fmt.Fprintf(&sb, "ATR: %X\n", c.ATR)
	if len(c.UID) > 0 {
		fmt.Fprintf(&sb, "UID: %X (Card #%d)\n", c.UID, c.CardNumber)
	}
	fmt.Fprintf(&sb, "Revision: %s\n", c.Revision)
	fmt.Fprintf(&sb, "Security: %s\n", c.Security)
	fmt.Fprintf(&sb, "Record Format: %s\n", FormatOf(c.Type))
	sb.WriteString("Features:\n")
	sb.WriteString("    - Secure sessions\n")
	sb.WriteString("    - Diversified keys\n")
	sb.WriteString("    - Session MACs\n")
	sb.WriteString("    - Access control lists\n")
	sb.WriteString("Known Weaknesses:\n")
	if c.Revision == Rev1 || c.Security == SecurityDES {
		sb.WriteString("    - Rev1 single DES is deprecated\n")
	}
	sb.WriteString("    - Legacy session key repeats 8 bytes of key material")
	return sb.String()
}
