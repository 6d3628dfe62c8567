// Package cms parses the CMS/PKCS#7 SignedData blob embedded in a PDF
// signature field's /Contents entry and exposes the pieces the rest of
// the engine needs: the signer's certificate material, its digest and
// signature algorithms, and its signed/unsigned attribute sets.
//
// Decoding itself is delegated to github.com/digitorus/pkcs7, the same
// library the teacher uses. What that library does not do — and what
// spec.md calls out explicitly — is re-derive the DER encoding of the
// signed attributes as a SET OF for digesting (RFC 5652 §5.4): the
// wire encoding uses an implicit [0] context tag, but the hash must be
// taken over the SET OF encoding instead. EncodeSignedAttributesForDigest
// does that re-tagging manually.
package cms

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/digitorus/pkcs7"
	"github.com/veridoc/pdfverify/internal/errs"
)

// Well-known OIDs used throughout the engine.
var (
	OIDContentType            = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	OIDMessageDigest          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	OIDSigningTime            = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
	OIDSignatureTimeStampToken = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14}

	OIDSignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
)

// Digest OID table, spec.md §4.4.
var (
	OIDSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	OIDSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	OIDSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	OIDSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
)

// SignerInfo is the single signer record this engine cares about (PDF
// signature fields carry exactly one signer per spec.md §2).
type SignerInfo struct {
	inner *pkcs7.PKCS7

	IssuerRawName []byte
	SerialNumber  *big.Int

	DigestAlgorithm            asn1.ObjectIdentifier
	DigestEncryptionAlgorithm  asn1.ObjectIdentifier
	EncryptedDigest            []byte

	SignedAttrs   map[string]asn1.RawValue
	UnsignedAttrs map[string]asn1.RawValue

	// rawSignedAttrs holds the original attribute list in wire order, needed
	// to re-derive the SET OF encoding for digesting.
	rawSignedAttrs []pkcs7.Attribute
}

// SignedData is the parsed ContentInfo/SignedData structure of one
// signature field's /Contents.
type SignedData struct {
	inner *pkcs7.PKCS7

	Certificates []*x509.Certificate
	Signer       *SignerInfo

	// Content is the data the signature was computed over. For a
	// detached signature it starts empty; the caller must set it to the
	// bytes read from the PDF's ByteRange before verifying.
	Content []byte
}

// Parse decodes a DER-encoded ContentInfo and requires it to be
// SignedData with at least one SignerInfo; only the first SignerInfo is
// used, per spec.md §2/§7.
func Parse(der []byte) (*SignedData, error) {
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, errs.Wrap(errs.NotSignedData, "failed to parse CMS ContentInfo", err)
	}

	if len(p7.Signers) == 0 {
		return nil, errs.New(errs.NoSignerInfo, "SignedData carries no SignerInfo entries")
	}

	s := p7.Signers[0]

	sd := &SignedData{
		inner:        p7,
		Certificates: p7.Certificates,
		Content:      p7.Content,
	}

	si := &SignerInfo{
		inner:                     p7,
		IssuerRawName:             append([]byte(nil), s.IssuerAndSerialNumber.IssuerName.FullBytes...),
		SerialNumber:              s.IssuerAndSerialNumber.SerialNumber,
		DigestAlgorithm:           s.DigestAlgorithm.Algorithm,
		DigestEncryptionAlgorithm: s.DigestEncryptionAlgorithm.Algorithm,
		EncryptedDigest:           s.EncryptedDigest,
		SignedAttrs:               make(map[string]asn1.RawValue),
		UnsignedAttrs:             make(map[string]asn1.RawValue),
		rawSignedAttrs:            s.AuthenticatedAttributes,
	}

	for _, attr := range s.AuthenticatedAttributes {
		si.SignedAttrs[attr.Type.String()] = attr.Value
	}
	for _, attr := range s.UnauthenticatedAttributes {
		si.UnsignedAttrs[attr.Type.String()] = attr.Value
	}

	sd.Signer = si
	return sd, nil
}

// SetContent overrides the (detached) signed content, e.g. after the
// PDF Object Reader has resolved the ByteRange spans.
func (sd *SignedData) SetContent(content []byte) {
	sd.Content = content
	sd.inner.Content = content
}

// SigningCertificate returns the certificate matching this SignerInfo's
// IssuerAndSerialNumber, searching the certificates bundled in the CMS
// blob. Returns nil if no match is found.
func (sd *SignedData) SigningCertificate() *x509.Certificate {
	for _, cert := range sd.Certificates {
		if cert.SerialNumber.Cmp(sd.Signer.SerialNumber) != 0 {
			continue
		}
		if bytesEqual(cert.RawIssuer, sd.Signer.IssuerRawName) {
			return cert
		}
	}
	return nil
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

// HasSignedAttrs reports whether this SignerInfo carries any signed
// (authenticated) attributes at all. Some CMS profiles sign the content
// digest directly with no attribute set.
func (s *SignerInfo) HasSignedAttrs() bool {
	return len(s.rawSignedAttrs) > 0
}

// EncodeSignedAttributesForDigest re-derives the DER bytes that must be
// hashed to verify the signature, per RFC 5652 §5.4: the wire encoding
// tags the signed attribute set as an implicit context-specific [0], but
// the value actually digested is the SET OF encoding of the same
// attributes (tag 0x31), sorted into their original wire order.
//
// Each attribute's FullBytes already contains its own
// SEQUENCE { type OID, values SET } encoding as it appeared on the wire
// (asn1.RawValue preserves this when pkcs7 parsed it), so this just
// re-tags the outer wrapper.
func (s *SignerInfo) EncodeSignedAttributesForDigest() ([]byte, error) {
	if len(s.rawSignedAttrs) == 0 {
		return nil, fmt.Errorf("signer info has no signed attributes")
	}

	var body []byte
	for _, attr := range s.rawSignedAttrs {
		encoded, err := asn1.Marshal(attr)
		if err != nil {
			return nil, fmt.Errorf("re-encoding signed attribute %s: %w", attr.Type, err)
		}
		body = append(body, encoded...)
	}

	return wrapAsSetOf(body), nil
}

// wrapAsSetOf prepends a SET OF (universal, constructed, tag 17 = 0x31)
// tag and DER length to an already-concatenated sequence of elements.
func wrapAsSetOf(body []byte) []byte {
	header := []byte{0x31}
	header = append(header, encodeDERLength(len(body))...)
	return append(header, body...)
}

func encodeDERLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte(n & 0xff)}, b...)
		n >>= 8
	}
	return append([]byte{0x80 | byte(len(b))}, b...)
}

// DigestAlgorithmName maps the closed digest-OID table of spec.md §4.4
// to a human-readable name; returns "" for anything outside that table.
func DigestAlgorithmName(oid asn1.ObjectIdentifier) string {
	switch {
	case oid.Equal(OIDSHA1):
		return "SHA1"
	case oid.Equal(OIDSHA256):
		return "SHA256"
	case oid.Equal(OIDSHA384):
		return "SHA384"
	case oid.Equal(OIDSHA512):
		return "SHA512"
	default:
		return ""
	}
}
