/*
Package iso7816 implements the ISO/IEC 7816-4 APDU layer used by the Calypso reader and the
ticket emulator.

It provides Command and Response structures in both directions (build and parse), Status
Word (SW) analysis, SELECT and READ RECORD builders, and a tracing Client that is itself a
transmitter.

# Fundamentals

The communication with a smart card is strictly synchronous:
 1. The Host sends a Command APDU (Header + Optional Body).
 2. The Card processes it and returns a Response APDU (Optional Body + Trailer SW1/SW2).

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Success (OK).
  - 0x61XX: Success, but response data is still available (XX bytes).
  - 0x6CXX: Error, wrong length expectation (XX is the correct length).
  - Other: Various error conditions.

The Client follows 61XX with GET RESPONSE on its own and, when RetryWrongLength is set,
re-sends a 6CXX command with the advertised Le. Every leg lands in the Trace.

# Usage Example: Reading a Calypso record

	client := iso7816.NewClient(conn)
	cla := iso7816.Class{Raw: 0x94, IsProprietary: true}

	trace, err := client.Send(iso7816.ReadRecord(cla, 0x09, 1, 29))
	if err != nil {
	    log.Fatal(err)
	}

	if last := trace.Last(); last.Response.Status.IsSuccess() {
	    fmt.Printf("Contract #1: %X\n", last.Response.Data)
	}

	fmt.Println(trace.Describe())
*/
package iso7816
