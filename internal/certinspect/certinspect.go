// Package certinspect reads descriptive attributes out of X.509
// certificates: subject/issuer RDNs (including attributes
// crypto/x509.Name does not expose, like UID), key size, and validity
// window classification. It never makes a trust decision — no chain
// building, no revocation check, no root-store lookup.
package certinspect

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/veridoc/pdfverify/internal/errs"
)

// RDN attribute OIDs, spec.md §4.3.
var (
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidLocality           = asn1.ObjectIdentifier{2, 5, 4, 7}
	oidStateOrProvince    = asn1.ObjectIdentifier{2, 5, 4, 8}
	oidCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	oidSerialNumber       = asn1.ObjectIdentifier{2, 5, 4, 5}
	oidUserID             = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}
)

// Identity is the flattened set of RDN attributes this engine reports
// for a subject or issuer Name.
type Identity struct {
	CommonName      string
	Organization    string
	Locality        string
	StateOrProvince string
	Country         string
	SerialNumber    string
	UserID          string
}

// ParseCertificate parses a DER-encoded certificate, wrapping failures
// in the closed error taxonomy.
func ParseCertificate(der []byte) (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, errs.Wrap(errs.CertParseError, "parsing certificate", err)
	}
	return cert, nil
}

// SubjectIdentity walks the certificate's raw subject RDN sequence
// directly (rather than crypto/x509.Certificate.Subject, a pkix.Name
// that drops UID and collapses repeated attributes) so every attribute
// spec.md §4.3 names is available, including ones crypto/x509 doesn't
// surface.
func SubjectIdentity(cert *x509.Certificate) Identity {
	return identityFromRawRDN(cert.RawSubject)
}

// IssuerIdentity is the issuer-side equivalent of SubjectIdentity.
func IssuerIdentity(cert *x509.Certificate) Identity {
	return identityFromRawRDN(cert.RawIssuer)
}

func identityFromRawRDN(raw []byte) Identity {
	var id Identity

	var rdnSeq pkix.RDNSequence
	if _, err := asn1.Unmarshal(raw, &rdnSeq); err != nil {
		return id
	}

	for _, rdn := range rdnSeq {
		for _, atv := range rdn {
			value := decodeAttributeValue(atv.Value)
			switch {
			case atv.Type.Equal(oidCommonName):
				id.CommonName = value
			case atv.Type.Equal(oidOrganization):
				id.Organization = value
			case atv.Type.Equal(oidLocality):
				id.Locality = value
			case atv.Type.Equal(oidStateOrProvince):
				id.StateOrProvince = value
			case atv.Type.Equal(oidCountry):
				id.Country = value
			case atv.Type.Equal(oidSerialNumber):
				id.SerialNumber = value
			case atv.Type.Equal(oidUserID):
				id.UserID = value
			}
		}
	}
	return id
}

// decodeAttributeValue coerces a decoded RDN attribute value (already
// unmarshaled into a Go type by encoding/asn1 as PrintableString,
// UTF8String or a []byte for BMPString) into UTF-8 text.
func decodeAttributeValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return decodeBMPString(val)
	case asn1.RawValue:
		switch val.Tag {
		case asn1.TagBMPString:
			return decodeBMPString(val.Bytes)
		default:
			return string(val.Bytes)
		}
	default:
		return fmt.Sprintf("%v", val)
	}
}

// decodeBMPString converts a big-endian UCS-2/UTF-16 BMPString value
// into UTF-8. Used for older certificates that encode RDN attributes as
// BMPString instead of UTF8String or PrintableString.
func decodeBMPString(raw []byte) string {
	if len(raw)%2 != 0 {
		return string(raw)
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	runes := utf16.Decode(units)
	buf := make([]byte, 0, len(runes)*utf8.UTFMax)
	for _, r := range runes {
		var tmp [utf8.UTFMax]byte
		n := utf8.EncodeRune(tmp[:], r)
		buf = append(buf, tmp[:n]...)
	}
	return string(buf)
}

// KeySizeBits returns the modulus/curve size of the certificate's
// public key, or 0 if it is neither RSA nor ECDSA.
func KeySizeBits(cert *x509.Certificate) int {
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return pub.N.BitLen()
	case *ecdsa.PublicKey:
		return pub.Params().BitSize
	default:
		return 0
	}
}

// IsSelfSigned reports whether the certificate's subject and issuer RDN
// sequences are byte-identical, the same descriptive check spec.md §4.3
// and the original implementation both use — not a signature check.
func IsSelfSigned(cert *x509.Certificate) bool {
	return bytesEqual(cert.RawSubject, cert.RawIssuer)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ExpirationStatus classifies a certificate's validity window at a
// given reference time, per spec.md §4.3/§8. The not_valid_before <=
// 1975-01-01 branch is a defensive rule carried over unchanged from the
// source this spec was distilled from (spec.md §9 leaves its intent
// unclear but does not remove it).
type ExpirationStatus struct {
	Expired         bool
	Status          string // "valid" | "expiring_soon" | "expired"
	DaysUntilExpiry int
}

var epoch1975 = time.Date(1975, time.January, 1, 0, 0, 0, 0, time.UTC)

func ClassifyExpiration(cert *x509.Certificate, now time.Time, expiringSoonDays int) ExpirationStatus {
	if expiringSoonDays <= 0 {
		expiringSoonDays = 30
	}

	if !cert.NotBefore.After(epoch1975) {
		return ExpirationStatus{Expired: true, Status: "expired", DaysUntilExpiry: daysUntil(cert.NotAfter, now)}
	}

	days := daysUntil(cert.NotAfter, now)
	switch {
	case days < 0:
		return ExpirationStatus{Expired: true, Status: "expired", DaysUntilExpiry: days}
	case days < expiringSoonDays:
		return ExpirationStatus{Expired: false, Status: "expiring_soon", DaysUntilExpiry: days}
	default:
		return ExpirationStatus{Expired: false, Status: "valid", DaysUntilExpiry: days}
	}
}

func daysUntil(t, now time.Time) int {
	d := t.Sub(now)
	return int(d.Hours() / 24)
}

// ValidAtSigningTime reports whether signingTime falls within the
// certificate's validity window. When signingTime is nil the engine
// cannot check this and defaults to true, per spec.md §4.3 ("cannot
// verify" defaults to valid rather than invalid).
func ValidAtSigningTime(cert *x509.Certificate, signingTime *time.Time) bool {
	if signingTime == nil {
		return true
	}
	return !signingTime.Before(cert.NotBefore) && !signingTime.After(cert.NotAfter)
}
