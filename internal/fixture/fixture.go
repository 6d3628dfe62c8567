// Package fixture builds small, synthetic signed PDFs for engine tests.
// It does not reuse the teacher's PDF writer (sign/pdfsignature.go's
// xref rewriting and incremental-update machinery exists to build
// production signatures, which is out of scope here); instead it
// hand-assembles a minimal single-revision PDF with one /Sig field and
// reuses only the teacher's CMS construction sequence —
// pkcs7.NewSignedData / SetDigestAlgorithm / AddSignerChain / Detach /
// Finish — to produce the embedded signature bytes.
package fixture

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/digitorus/pkcs7"
	"github.com/mattetti/filebuffer"
)

// contentsPlaceholderBytes reserves room for the /Contents hex string.
// 8000 bytes of DER comfortably fits a SHA-256/RSA-2048 or ECDSA-P384
// SignedData blob with a two-certificate chain; any unused tail stays
// zero and is ignored by callers because DER length prefixes are
// self-describing.
const contentsPlaceholderBytes = 8000

// Options describes the signature a fixture PDF should carry.
type Options struct {
	FieldName       string
	Leaf            *x509.Certificate
	Key             crypto.Signer
	Chain           []*x509.Certificate // intermediate(s) then root, leaf excluded
	DigestAlgorithm asn1.ObjectIdentifier
	EntryM          string // raw /M value; empty omits the entry
	// Timestamp, when non-nil, attaches a self-issued RFC 3161-shaped
	// token (signed by Leaf/Key acting as a toy TSA) as an unsigned
	// attribute, with the given genTime.
	Timestamp *time.Time
	// Tamper, when true, flips one byte inside the signed content
	// region after signing, producing a fixture whose integrity check
	// must fail.
	Tamper bool
}

// oidSHA256 is used when Options.DigestAlgorithm is left zero.
var oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}

// Build assembles a one-page, one-field signed PDF and returns its
// bytes, ready to feed to pdfverify.Verify.
func Build(t *testing.T, opts Options) []byte {
	if opts.FieldName == "" {
		opts.FieldName = "Signature1"
	}
	if len(opts.DigestAlgorithm) == 0 {
		opts.DigestAlgorithm = oidSHA256
	}

	doc, contentsStart, contentsHexLen, byteRangeStart, byteRangeFieldLen := buildPlaceholderPDF(opts)

	gapStart := int64(contentsStart - 1) // the '<' before the hex digits
	gapEnd := int64(contentsStart + contentsHexLen + 1)
	fileLen := int64(len(doc))

	byteRange := [4]int64{0, gapStart, gapEnd, fileLen - gapEnd}
	writeByteRange(doc, byteRangeStart, byteRangeFieldLen, byteRange)

	signContent := append(append([]byte{}, doc[0:byteRange[0]+byteRange[1]]...), doc[byteRange[2]:byteRange[2]+byteRange[3]]...)

	der := sign(t, opts, signContent)
	if opts.Tamper {
		// Flip a byte well inside the first signed region, after the
		// signature has already been computed over the original bytes.
		doc[10] ^= 0xFF
	}

	writeContents(doc, contentsStart, contentsHexLen, der)

	return doc
}

func sign(t *testing.T, opts Options, signContent []byte) []byte {
	signedData, err := pkcs7.NewSignedData(signContent)
	if err != nil {
		t.Fatalf("fixture: new signed data: %v", err)
	}
	signedData.SetDigestAlgorithm(opts.DigestAlgorithm)

	if err := signedData.AddSignerChain(opts.Leaf, opts.Key, opts.Chain, pkcs7.SignerInfoConfig{}); err != nil {
		t.Fatalf("fixture: add signer chain: %v", err)
	}
	signedData.Detach()

	if opts.Timestamp != nil {
		inner := signedData.GetSignedData()
		token := buildTimestampToken(t, opts, inner.SignerInfos[0].EncryptedDigest)
		attr := pkcs7.Attribute{
			Type:  asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14},
			Value: asn1.RawValue{FullBytes: token},
		}
		if err := inner.SignerInfos[0].SetUnauthenticatedAttributes([]pkcs7.Attribute{attr}); err != nil {
			t.Fatalf("fixture: set unauthenticated attributes: %v", err)
		}
	}

	der, err := signedData.Finish()
	if err != nil {
		t.Fatalf("fixture: finish: %v", err)
	}
	return der
}

// messageImprint and tstInfo mirror the RFC 3161 TSTInfo structure
// closely enough to produce something github.com/digitorus/timestamp
// can parse back out; fixtures only need to exercise detection, not
// real TSA trust.
type messageImprint struct {
	HashAlgorithm pkix.AlgorithmIdentifier
	HashedMessage []byte
}

type tstInfo struct {
	Version        int
	Policy         asn1.ObjectIdentifier
	MessageImprint messageImprint
	SerialNumber   *big.Int
	GenTime        time.Time `asn1:"generalized"`
}

var oidTSTInfoContentType = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 1, 4}

func buildTimestampToken(t *testing.T, opts Options, encryptedDigest []byte) []byte {
	h := crypto.SHA256.New()
	h.Write(encryptedDigest)
	imprint := h.Sum(nil)

	info := tstInfo{
		Version: 1,
		Policy:  asn1.ObjectIdentifier{1, 2, 3, 4, 5},
		MessageImprint: messageImprint{
			HashAlgorithm: pkix.AlgorithmIdentifier{Algorithm: oidSHA256},
			HashedMessage: imprint,
		},
		SerialNumber: big.NewInt(1),
		GenTime:      opts.Timestamp.UTC(),
	}

	infoDER, err := asn1.Marshal(info)
	if err != nil {
		t.Fatalf("fixture: marshal TSTInfo: %v", err)
	}

	signedData, err := pkcs7.NewSignedData(infoDER)
	if err != nil {
		t.Fatalf("fixture: new timestamp signed data: %v", err)
	}
	signedData.SetDigestAlgorithm(oidSHA256)
	signedData.SetContentType(oidTSTInfoContentType)

	if err := signedData.AddSignerChain(opts.Leaf, opts.Key, opts.Chain, pkcs7.SignerInfoConfig{}); err != nil {
		t.Fatalf("fixture: timestamp add signer chain: %v", err)
	}
	// Encapsulated, not detached: timestamp.Parse needs the TSTInfo
	// bytes to be present inside the CMS content itself.

	der, err := signedData.Finish()
	if err != nil {
		t.Fatalf("fixture: timestamp finish: %v", err)
	}
	return der
}

// buildPlaceholderPDF writes the full PDF byte stream with a
// fixed-width zeroed ByteRange and a zero-filled /Contents hex string,
// returning enough offsets to patch both in afterward. It writes through
// a filebuffer.Buffer, the same in-memory output sink the teacher's
// signer uses as context.OutputBuffer, rather than a bare bytes.Buffer.
func buildPlaceholderPDF(opts Options) (doc []byte, contentsStart, contentsHexLen, byteRangeStart, byteRangeFieldLen int) {
	buf := filebuffer.New([]byte{})
	offsets := make([]int, 0, 8)

	write := func(s string) {
		if _, err := buf.Write([]byte(s)); err != nil {
			panic(fmt.Sprintf("fixture: write: %v", err))
		}
	}

	write("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets = append(offsets, buf.Buff.Len()) // object 1
	write("1 0 obj\n<< /Type /Catalog /Pages 2 0 R /AcroForm 4 0 R >>\nendobj\n")

	offsets = append(offsets, buf.Buff.Len()) // object 2
	write("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets = append(offsets, buf.Buff.Len()) // object 3
	write("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [5 0 R] >>\nendobj\n")

	offsets = append(offsets, buf.Buff.Len()) // object 4
	write("4 0 obj\n<< /Fields [5 0 R] /SigFlags 3 >>\nendobj\n")

	offsets = append(offsets, buf.Buff.Len()) // object 5
	write(fmt.Sprintf("5 0 obj\n<< /FT /Sig /Type /Annot /Subtype /Widget /Rect [0 0 0 0] /P 3 0 R /T %s /V 6 0 R >>\nendobj\n", pdfNameString(opts.FieldName)))

	offsets = append(offsets, buf.Buff.Len()) // object 6
	write("6 0 obj\n<< /Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached\n")

	byteRangeFieldLen = len("[0000000000 0000000000 0000000000 0000000000]")
	write(" /ByteRange [")
	byteRangeStart = buf.Buff.Len() - 1 // position of the opening '['
	write("0000000000 0000000000 0000000000 0000000000]")

	write("\n /Contents<")
	contentsStart = buf.Buff.Len()
	contentsHexLen = contentsPlaceholderBytes * 2
	write(strings.Repeat("0", contentsHexLen))
	write(">\n")

	if opts.EntryM != "" {
		write(fmt.Sprintf(" /M (%s)\n", opts.EntryM))
	}
	write(">>\nendobj\n")

	xrefOffset := buf.Buff.Len()
	write("xref\n")
	write(fmt.Sprintf("0 %d\n", len(offsets)+1))
	write("0000000000 65535 f \n")
	for _, off := range offsets {
		write(fmt.Sprintf("%010d 00000 n \n", off))
	}
	write("trailer\n")
	write(fmt.Sprintf("<< /Size %d /Root 1 0 R >>\n", len(offsets)+1))
	write(fmt.Sprintf("startxref\n%d\n%%%%EOF", xrefOffset))

	return buf.Buff.Bytes(), contentsStart, contentsHexLen, byteRangeStart, byteRangeFieldLen
}

func pdfNameString(s string) string {
	return "(" + s + ")"
}

// writeByteRange overwrites the placeholder ByteRange array in place,
// padding each number with trailing spaces so the bracketed field keeps
// its original length and every other byte offset in the document stays
// valid.
func writeByteRange(doc []byte, start, fieldLen int, br [4]int64) {
	rendered := fmt.Sprintf("[%d %d %d %d]", br[0], br[1], br[2], br[3])
	if len(rendered) > fieldLen {
		panic("fixture: rendered ByteRange longer than reserved placeholder")
	}
	padded := rendered + string(bytes.Repeat([]byte(" "), fieldLen-len(rendered)))
	copy(doc[start:start+fieldLen], padded)
}

// writeContents hex-encodes der into the placeholder /Contents region,
// leaving any unused trailing bytes as zeros.
func writeContents(doc []byte, start, hexLen int, der []byte) {
	encoded := make([]byte, hex.EncodedLen(len(der)))
	hex.Encode(encoded, der)
	if len(encoded) > hexLen {
		panic("fixture: signature larger than reserved placeholder; raise contentsPlaceholderBytes")
	}
	copy(doc[start:start+hexLen], encoded)
	for i := start + len(encoded); i < start+hexLen; i++ {
		doc[i] = '0'
	}
}

// NewSerial returns a fresh random serial number, used by callers that
// need to mint additional test certificates alongside a fixture.
func NewSerial() *big.Int {
	n, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	return n
}
