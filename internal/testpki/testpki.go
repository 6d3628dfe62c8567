// Package testpki builds small, throwaway RSA/ECDSA certificate chains
// for engine tests. It is adapted from the teacher's own test helper of
// the same name, trimmed of the OCSP/CRL mock-server plumbing that only
// revocation tests needed — this engine never performs revocation
// checks.
package testpki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"testing"
	"time"
)

// KeyProfile selects the key algorithm and size used throughout a chain.
type KeyProfile string

const (
	RSA2048   KeyProfile = "RSA_2048"
	RSA3072   KeyProfile = "RSA_3072"
	RSA4096   KeyProfile = "RSA_4096"
	ECDSAP256 KeyProfile = "ECDSA_P256"
	ECDSAP384 KeyProfile = "ECDSA_P384"
	ECDSAP521 KeyProfile = "ECDSA_P521"
)

// Config controls the shape of the chain NewWithConfig builds.
type Config struct {
	Profile         KeyProfile
	IntermediateCAs int
	NotBefore       time.Time
	NotAfter        time.Time
}

// PKI is a small root (+ optional intermediates) certificate hierarchy.
type PKI struct {
	T                 *testing.T
	Profile           KeyProfile
	RootKey           crypto.Signer
	RootCert          *x509.Certificate
	IntermediateKeys  []crypto.Signer
	IntermediateCerts []*x509.Certificate
}

// New creates a root CA with one intermediate using ECDSA P-384, the
// teacher's own default profile.
func New(t *testing.T) *PKI {
	return NewWithConfig(t, Config{
		Profile:         ECDSAP384,
		IntermediateCAs: 1,
		NotBefore:       time.Now().Add(-1 * time.Hour),
		NotAfter:        time.Now().Add(24 * time.Hour),
	})
}

// NewWithConfig builds a chain to the given specification.
func NewWithConfig(t *testing.T, cfg Config) *PKI {
	if cfg.NotBefore.IsZero() {
		cfg.NotBefore = time.Now().Add(-1 * time.Hour)
	}
	if cfg.NotAfter.IsZero() {
		cfg.NotAfter = time.Now().Add(24 * time.Hour)
	}

	rootKey := GenerateKey(t, cfg.Profile)
	rootTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "pdfverify Test Root CA",
			Organization: []string{"pdfverify Test Org"},
		},
		NotBefore:             cfg.NotBefore,
		NotAfter:              cfg.NotAfter,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SubjectKeyId:          []byte{1, 2, 3, 4},
	}

	rootDER, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, rootKey.Public(), rootKey)
	if err != nil {
		fail(t, "failed to create root cert: %v", err)
	}
	rootCert, err := x509.ParseCertificate(rootDER)
	if err != nil {
		fail(t, "failed to parse root cert: %v", err)
	}

	var intKeys []crypto.Signer
	var intCerts []*x509.Certificate
	parentKey, parentCert := rootKey, rootCert

	for i := 0; i < cfg.IntermediateCAs; i++ {
		key := GenerateKey(t, cfg.Profile)
		template := &x509.Certificate{
			SerialNumber: big.NewInt(int64(i + 2)),
			Subject: pkix.Name{
				CommonName:   fmt.Sprintf("pdfverify Test Intermediate CA %d", i+1),
				Organization: []string{"pdfverify Test Org"},
			},
			NotBefore:             cfg.NotBefore,
			NotAfter:              cfg.NotAfter,
			KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
			BasicConstraintsValid: true,
			IsCA:                  true,
			MaxPathLen:            0,
			SubjectKeyId:          []byte{5, 6, 7, 8, byte(i)},
			AuthorityKeyId:        parentCert.SubjectKeyId,
		}

		der, err := x509.CreateCertificate(rand.Reader, template, parentCert, key.Public(), parentKey)
		if err != nil {
			fail(t, "failed to create intermediate cert %d: %v", i, err)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			fail(t, "failed to parse intermediate cert %d: %v", i, err)
		}

		intKeys = append(intKeys, key)
		intCerts = append(intCerts, cert)
		parentKey, parentCert = key, cert
	}

	return &PKI{
		T:                 t,
		Profile:           cfg.Profile,
		RootKey:           rootKey,
		RootCert:          rootCert,
		IntermediateKeys:  intKeys,
		IntermediateCerts: intCerts,
	}
}

// IssueLeaf issues a leaf signing certificate under the chain's deepest
// intermediate (or the root, if there are no intermediates), valid from
// one hour ago to one hour from now.
func (p *PKI) IssueLeaf(commonName string) (crypto.Signer, *x509.Certificate) {
	return p.IssueLeafWithValidity(commonName, time.Now().Add(-1*time.Hour), time.Now().Add(1*time.Hour))
}

// IssueLeafWithValidity is IssueLeaf with an explicit validity window,
// for tests exercising expired or not-yet-valid certificates.
func (p *PKI) IssueLeafWithValidity(commonName string, notBefore, notAfter time.Time) (crypto.Signer, *x509.Certificate) {
	priv := GenerateKey(p.T, p.Profile)

	serial, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"pdfverify Test Org"},
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,
		KeyUsage:  x509.KeyUsageDigitalSignature,
	}

	issuerCert, issuerKey := p.RootCert, p.RootKey
	if n := len(p.IntermediateCerts); n > 0 {
		issuerCert, issuerKey = p.IntermediateCerts[n-1], p.IntermediateKeys[n-1]
	}

	der, err := x509.CreateCertificate(rand.Reader, template, issuerCert, priv.Public(), issuerKey)
	if err != nil {
		fail(p.T, "failed to issue leaf cert: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		fail(p.T, "failed to parse leaf cert: %v", err)
	}
	return priv, cert
}

// Chain returns the leaf's issuing chain, intermediate-first then root.
func (p *PKI) Chain() []*x509.Certificate {
	var chain []*x509.Certificate
	for i := len(p.IntermediateCerts) - 1; i >= 0; i-- {
		chain = append(chain, p.IntermediateCerts[i])
	}
	return append(chain, p.RootCert)
}

func fail(t *testing.T, format string, args ...interface{}) {
	if t != nil {
		t.Fatalf(format, args...)
	} else {
		panic(fmt.Sprintf(format, args...))
	}
}

// GenerateKey creates a private key for the given profile.
func GenerateKey(t *testing.T, profile KeyProfile) crypto.Signer {
	switch profile {
	case RSA2048:
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			fail(t, "failed to generate RSA 2048 key: %v", err)
		}
		return k
	case RSA3072:
		k, err := rsa.GenerateKey(rand.Reader, 3072)
		if err != nil {
			fail(t, "failed to generate RSA 3072 key: %v", err)
		}
		return k
	case RSA4096:
		k, err := rsa.GenerateKey(rand.Reader, 4096)
		if err != nil {
			fail(t, "failed to generate RSA 4096 key: %v", err)
		}
		return k
	case ECDSAP256:
		k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			fail(t, "failed to generate P-256 key: %v", err)
		}
		return k
	case ECDSAP384:
		k, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
		if err != nil {
			fail(t, "failed to generate P-384 key: %v", err)
		}
		return k
	case ECDSAP521:
		k, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
		if err != nil {
			fail(t, "failed to generate P-521 key: %v", err)
		}
		return k
	default:
		fail(t, "unknown key profile: %s", profile)
		return nil
	}
}
