// Package cryptoverify checks the asymmetric signature in a CMS
// SignerInfo against the signer's public key, over the closed digest
// algorithm set spec.md §4.4 defines. It never panics: unsupported
// digests and key types are reported as ordinary (bool, message)
// results, not errors that would abort the field.
package cryptoverify

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/veridoc/pdfverify/internal/cms"
)

// ecdsaSignature is the DER SEQUENCE{r, s} wire format ECDSA signatures
// use, same layout crypto/x509 parses internally for certificate
// signatures.
type ecdsaSignature struct {
	R, S *big.Int
}

// HashForOID maps the closed digest OID table to a crypto.Hash,
// reporting ok=false for anything outside that table (UnsupportedDigest
// in the orchestrator).
func HashForOID(oid asn1.ObjectIdentifier) (crypto.Hash, bool) {
	switch {
	case oid.Equal(cms.OIDSHA1):
		return crypto.SHA1, true
	case oid.Equal(cms.OIDSHA256):
		return crypto.SHA256, true
	case oid.Equal(cms.OIDSHA384):
		return crypto.SHA384, true
	case oid.Equal(cms.OIDSHA512):
		return crypto.SHA512, true
	default:
		return 0, false
	}
}

func sum(h crypto.Hash, data []byte) []byte {
	switch h {
	case crypto.SHA1:
		s := sha1.Sum(data)
		return s[:]
	case crypto.SHA256:
		s := sha256.Sum256(data)
		return s[:]
	case crypto.SHA384:
		s := sha512.Sum384(data)
		return s[:]
	case crypto.SHA512:
		s := sha512.Sum512(data)
		return s[:]
	default:
		return nil
	}
}

// Verify checks signedBytes (either the re-encoded SET OF signed
// attributes, or the raw content when there are no signed attributes)
// against signature using cert's public key and digest algorithm. It
// returns (true, "") on success, or (false, message) with a message
// suitable for SignatureReport.cryptographic_message otherwise. It never
// returns a Go error: every failure mode is represented in the bool/
// string pair, matching spec.md §4.4/§4.7.
func Verify(cert *x509.Certificate, digestOID asn1.ObjectIdentifier, signedBytes, signature []byte) (bool, string) {
	hash, ok := HashForOID(digestOID)
	if !ok {
		return false, fmt.Sprintf("unsupported digest algorithm %s", digestOID.String())
	}

	digest := sum(hash, signedBytes)

	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(pub, hash, digest, signature); err != nil {
			return false, "RSA signature verification failed: " + err.Error()
		}
		return true, ""

	case *ecdsa.PublicKey:
		var sig ecdsaSignature
		if _, err := asn1.Unmarshal(signature, &sig); err != nil {
			return false, "malformed ECDSA signature encoding: " + err.Error()
		}
		if !ecdsa.Verify(pub, digest, sig.R, sig.S) {
			return false, "ECDSA signature verification failed"
		}
		return true, ""

	default:
		return false, fmt.Sprintf("unsupported public key type %T", pub)
	}
}
