// Package tsadetect detects an RFC 3161 timestamp token embedded in a
// CMS SignerInfo's unsigned attributes and reads its genTime. Per
// spec.md §4.6/§9 this is detection only: the TSA's own signature over
// the token is never cryptographically verified, since establishing
// trust in a timestamping authority is out of scope.
package tsadetect

import (
	"encoding/asn1"
	"time"

	"github.com/digitorus/timestamp"
	"github.com/veridoc/pdfverify/internal/cms"
	"github.com/veridoc/pdfverify/internal/errs"
)

// Detected is the result of scanning a SignerInfo's unsigned attributes
// for a signatureTimeStampToken.
type Detected struct {
	Present bool
	GenTime time.Time
}

// ScanSignerInfo inspects a CMS SignerInfo's unsigned attributes for
// OID 1.2.840.113549.1.9.16.2.14 and, if present, parses the nested
// TSTInfo for its genTime. A malformed token is reported via
// errs.TimestampParseError but never aborts the caller's pipeline — the
// orchestrator decides whether to downgrade to local-clock.
func ScanSignerInfo(unsignedAttrs map[string]asn1.RawValue) (Detected, error) {
	raw, ok := unsignedAttrs[cms.OIDSignatureTimeStampToken.String()]
	if !ok {
		return Detected{}, nil
	}

	ts, err := timestamp.Parse(raw.Bytes)
	if err != nil {
		return Detected{}, errs.Wrap(errs.TimestampParseError, "failed to parse embedded RFC 3161 token", err)
	}

	return Detected{Present: true, GenTime: ts.Time.UTC()}, nil
}
