package calypso

import (
	"fmt"
	"strings"

	"github.com/gregLibert/transit-card/pkg/bits"
	"github.com/gregLibert/transit-card/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// FCI is the File Control Information returned by SELECT APPLICATION, wrapped in tag '6F'.
type FCI struct {
	DFName              []byte                 `tlv:"84" fmt:"ascii"`
	ProprietaryTemplate FCIProprietaryTemplate `tlv:"A5"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// FCIProprietaryTemplate holds tag 'A5'.
type FCIProprietaryTemplate struct {
	IssuerDiscretionaryData *FCIDiscretionaryData `tlv:"BF0C"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// FCIDiscretionaryData holds tag 'BF0C'. Calypso cards put their startup information in 'C7'.
type FCIDiscretionaryData struct {
	StartupInfo []byte `tlv:"C7"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// StartupInfo is the decoded 'C7' block.
type StartupInfo struct {
	BufferSize      byte
	Platform        byte
	AppType         byte
	AppSubtype      byte
	SoftwareIssuer  byte
	SoftwareVersion byte
	SoftwareRev     byte
}

// ParseFCI interprets the data of a SELECT APPLICATION response.
func ParseFCI(data []byte) (*FCI, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data cannot be parsed")
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("BER-TLV decode failed: %w", err)
	}

	processingPackets := packets
	if len(packets) > 0 && strings.EqualFold(packets[0].Tag, "6F") {
		processingPackets = packets[0].TLVs
	}

	fci := &FCI{}
	if err := tlv.UnmarshalFromPackets(processingPackets, fci); err != nil {
		return nil, fmt.Errorf("failed to map structure: %w", err)
	}
	return fci, nil
}

// EncodeFCI builds the '6F' template a card returns for the given application.
func EncodeFCI(fci *FCI) ([]byte, error) {
	inner, err := tlv.MarshalToPackets(fci)
	if err != nil {
		return nil, err
	}
	return bertlv.Encode([]bertlv.TLV{{Tag: "6F", TLVs: inner}})
}

// Startup decodes the startup information, if present and complete.
func (f *FCI) Startup() (StartupInfo, bool) {
	d := f.ProprietaryTemplate.IssuerDiscretionaryData
	if d == nil || len(d.StartupInfo) < 7 {
		return StartupInfo{}, false
	}
	s := d.StartupInfo
	return StartupInfo{
		BufferSize:      s[0],
		Platform:        s[1],
		AppType:         s[2],
		AppSubtype:      s[3],
		SoftwareIssuer:  s[4],
		SoftwareVersion: s[5],
		SoftwareRev:     s[6],
	}, true
}

// Revision infers the product revision from the application type byte.
func (s StartupInfo) Revision() Revision {
	switch {
	case s.AppType == 0x00 || s.AppType == 0xFF:
		return Rev1
	case bits.IsSet(s.AppType, 8):
		return Rev3
	case s.AppType >= 0x20:
		return Rev3Light
	default:
		return Rev2
	}
}

// Describe generates a report of the FCI content.
func (f *FCI) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== CALYPSO FCI TEMPLATE ===")

	tlv.WriteStructFields(&sb, "FCI", f)
	tlv.WriteStructFields(&sb, "Proprietary", f.ProprietaryTemplate)

	if d := f.ProprietaryTemplate.IssuerDiscretionaryData; d != nil {
		tlv.WriteStructFields(&sb, "Discretionary", d)
	}
	if s, ok := f.Startup(); ok {
		fmt.Fprintf(&sb, "\n    - Startup.Revision: %s", s.Revision())
	}

	return strings.TrimRight(sb.String(), "\n")
}
