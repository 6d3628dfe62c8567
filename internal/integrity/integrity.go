// Package integrity checks that the bytes a signature actually covers
// (its ByteRange) match what the CMS SignerInfo's messageDigest
// attribute claims, and that the ByteRange itself accounts for the
// whole file modulo the /Contents placeholder gap. The orchestrator
// derives intact and document_unchanged from the digest comparison; the
// ByteRange coverage check is structural and only records a formatting
// error.
package integrity

import (
	"bytes"
	"crypto"
	"encoding/asn1"
	"fmt"
	"io"

	"github.com/veridoc/pdfverify/internal/cms"
)

// ReadByteRange reads the signed content spans out of the full PDF
// buffer, concatenating each [offset, length) pair in order. It mirrors
// the teacher's ByteRangeReader but works directly against an in-memory
// buffer rather than an io.ReaderAt, since the engine already holds the
// whole file.
func ReadByteRange(pdfBytes []byte, byteRange [4]int64) ([]byte, error) {
	size := int64(len(pdfBytes))
	var parts []io.Reader
	var total int64

	for i := 0; i < 4; i += 2 {
		offset := byteRange[i]
		length := byteRange[i+1]
		if offset < 0 || length < 0 || offset+length > size {
			return nil, fmt.Errorf("byte range [%d, %d) exceeds document size %d", offset, offset+length, size)
		}
		parts = append(parts, bytes.NewReader(pdfBytes[offset:offset+length]))
		total += length
	}

	content := make([]byte, total)
	if _, err := io.ReadFull(io.MultiReader(parts...), content); err != nil {
		return nil, fmt.Errorf("reading signed byte ranges: %w", err)
	}
	return content, nil
}

// CoversWholeFile reports whether the ByteRange's gap (the region
// excluded to make room for /Contents) exactly matches the length of
// the hex/literal string in contentsHexLen, and whether the range extends
// to the end of the file: no bytes were appended or left out.
func CoversWholeFile(pdfSize int64, byteRange [4]int64, contentsHexLen int) bool {
	gapStart := byteRange[0] + byteRange[1]
	gapEnd := byteRange[2]
	rangeEnd := byteRange[2] + byteRange[3]

	if byteRange[0] != 0 {
		return false
	}
	if rangeEnd != pdfSize {
		return false
	}
	// The excluded gap must span exactly the /Contents string; callers
	// include the surrounding "<" ">" delimiters in contentsHexLen.
	return gapEnd-gapStart == int64(contentsHexLen)
}

// MessageDigestMatches compares the CMS messageDigest signed attribute
// against a freshly computed hash of the signed content, using the
// SignerInfo's own digest algorithm. If the SignerInfo carries no
// signed attributes at all, there is nothing to compare here — the
// signature itself is verified directly over the content elsewhere — so
// this returns true.
func MessageDigestMatches(signer *cms.SignerInfo, hash crypto.Hash, content []byte) (bool, string) {
	if !signer.HasSignedAttrs() {
		return true, ""
	}

	raw, ok := signer.SignedAttrs[cms.OIDMessageDigest.String()]
	if !ok {
		return false, "signed attributes present but messageDigest attribute missing"
	}

	var claimed []byte
	if _, err := asn1.Unmarshal(raw.Bytes, &claimed); err != nil {
		return false, "malformed messageDigest attribute: " + err.Error()
	}

	h := hash.New()
	h.Write(content)
	actual := h.Sum(nil)

	if !bytes.Equal(actual, claimed) {
		return false, "content digest does not match messageDigest attribute"
	}
	return true, ""
}
