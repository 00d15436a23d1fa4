package compose

import (
	"strings"

	"github.com/ConnorBritain/pidgeon/internal/hl7"
)

// headerSegmentCode is the message header, composed by a dedicated path. Its
// first two fields are the delimiter characters themselves and the rest is
// administrative metadata, so routing it through the resolver chain would
// risk the separators being treated as data.
const headerSegmentCode = "MSH"

// composeHeader renders the MSH line. Layout, by position:
//
//	1  field separator (the character itself)
//	2  encoding characters
//	3  sending application    4  sending facility
//	5  receiving application  6  receiving facility
//	7  message timestamp      8  security (empty)
//	9  message type           10 control ID
//	11 processing ID          12 version
func (c *Composer) composeHeader(gc *genContext) string {
	d := gc.opts.Delimiters
	sep := string(d.Field)

	fields := []string{
		"MSH",
		d.EncodingCharacters(),
		gc.opts.SendingApplication,
		gc.opts.SendingFacility,
		gc.opts.ReceivingApplication,
		gc.opts.ReceivingFacility,
		hl7.FormatTimestamp(gc.now),
		"", // MSH-8 security
		hl7.MessageType(gc.messageType, d),
		controlID(gc),
		gc.opts.ProcessingID,
		gc.opts.Version,
	}
	return strings.Join(fields, sep)
}

// controlID produces MSH-10 from the composition's RNG, so the whole message
// is reproducible from its seed. Every genContext carries an RNG.
func controlID(gc *genContext) string {
	b := make([]byte, 12)
	for i := range b {
		b[i] = byte('0' + gc.rng.Intn(10))
	}
	return string(b)
}
