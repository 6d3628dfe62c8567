// Package signingtime extracts a signature's signing time from the
// several places a PDF signature can carry one, and reconciles them
// into a single answer per spec.md §4.5. A malformed date in any one
// source is never a fatal error — the extractor falls through to the
// next source instead.
package signingtime

import (
	"encoding/asn1"
	"strings"
	"time"
)

// pdfDateLayouts are tried in order; PDF producers vary in how much of
// the optional tail they emit.
var pdfDateLayouts = []string{
	"D:20060102150405Z07'00'",
	"D:20060102150405Z0700",
	"D:20060102150405Z07",
	"D:20060102150405-0700",
	"D:20060102150405",
	"D:200601021504",
	"D:2006010215",
	"D:20060102",
}

// ParsePDFDate parses the /M entry's "D:YYYYMMDDHHmmSS+HH'mm'" format.
// Missing timezone information defaults to UTC, per spec.md §4.5. It
// returns (zero Time, false) rather than an error on malformed input, so
// callers can fall through to the next signing-time source.
func ParsePDFDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	// Fold the quoted "+HH'mm'" offset into "+HHmm" so any minute value
	// matches the Z0700 layout below.
	raw = strings.TrimSuffix(raw, "'")
	raw = strings.Replace(raw, "'", "", 1)

	for _, layout := range pdfDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			// A layout with no zone designator parses as UTC already;
			// one with +HH'mm'/Z keeps its original offset, which the
			// caller needs to report signing_timezone faithfully.
			return t, true
		}
	}

	// Some producers write a bare "Z" with no quoted offset fields at all.
	if strings.HasSuffix(raw, "Z") {
		if t, err := time.Parse("D:20060102150405Z", raw); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// Source identifies where a signing time came from, matching
// SignatureReport.timestamp_source's vocabulary for the non-TSA cases.
type Source int

const (
	SourceNone Source = iota
	SourcePDFField
	SourceCMSSigningTime
	SourceTSA
)

// OIDSigningTime is the CMS signingTime attribute, 1.2.840.113549.1.9.5.
var OIDSigningTime = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}

// ParseCMSSigningTime decodes the DER-encoded value of a signed
// signingTime attribute (UTCTime or GeneralizedTime, per RFC 5652),
// either bare or still wrapped in the attribute's SET of values as
// cms.SignerInfo.SignedAttrs stores it.
func ParseCMSSigningTime(der asn1.RawValue) (time.Time, bool) {
	var t time.Time
	var err error
	switch der.Tag {
	case asn1.TagSet:
		_, err = asn1.Unmarshal(der.Bytes, &t)
	case asn1.TagUTCTime:
		_, err = asn1.Unmarshal(der.FullBytes, &t)
	case asn1.TagGeneralizedTime:
		var gt time.Time
		_, err = asn1.UnmarshalWithParams(der.FullBytes, &gt, "generalized")
		t = gt
	default:
		// Attempt both; asn1.Unmarshal dispatches on the actual tag of
		// der.FullBytes regardless of what we ask for.
		_, err = asn1.Unmarshal(der.FullBytes, &t)
	}
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Result is the reconciled signing time plus which source produced it.
type Result struct {
	Time   time.Time
	Source Source
	Warnings []string
}

// Reconcile applies spec.md §4.5's priority order: the PDF field's own
// /M entry wins first, since it is the value most implementations mean
// when they talk about a signature's signing time and the only one that
// carries its original timezone offset; failing that, the CMS
// signingTime signed attribute; failing that, a detected TSA genTime.
func Reconcile(pdfM string, cmsSigningTime *time.Time, tsaGenTime *time.Time) Result {
	var res Result

	if t, ok := ParsePDFDate(pdfM); ok {
		res.Time = t
		res.Source = SourcePDFField
		return res
	}

	if cmsSigningTime != nil {
		res.Time = *cmsSigningTime
		res.Source = SourceCMSSigningTime
		return res
	}

	if tsaGenTime != nil {
		res.Time = *tsaGenTime
		res.Source = SourceTSA
		return res
	}

	res.Source = SourceNone
	return res
}
