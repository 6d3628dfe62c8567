package cryptoverify

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/veridoc/pdfverify/internal/cms"
)

func TestVerify_RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}

	content := []byte("signed attributes DER goes here")
	digest := sha256.Sum256(content)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ok, msg := Verify(cert, cms.OIDSHA256, content, sig)
	if !ok {
		t.Fatalf("expected valid RSA signature, got message: %s", msg)
	}

	tampered := append([]byte{}, content...)
	tampered[0] ^= 0xFF
	ok, _ = Verify(cert, cms.OIDSHA256, tampered, sig)
	if ok {
		t.Fatalf("expected signature verification to fail over tampered content")
	}
}

func TestVerify_ECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}

	content := []byte("signed attributes DER goes here")
	digest := sha256.Sum256(content)
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig, err := asn1.Marshal(ecdsaSignature{R: r, S: s})
	if err != nil {
		t.Fatalf("marshal signature: %v", err)
	}

	ok, msg := Verify(cert, cms.OIDSHA256, content, sig)
	if !ok {
		t.Fatalf("expected valid ECDSA signature, got message: %s", msg)
	}
}

func TestVerify_UnsupportedDigest(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, _ := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	cert, _ := x509.ParseCertificate(der)

	unknownDigest := asn1.ObjectIdentifier{1, 2, 3, 4, 5}
	ok, msg := Verify(cert, unknownDigest, []byte("x"), []byte("y"))
	if ok {
		t.Fatalf("expected unsupported digest to fail")
	}
	if msg == "" {
		t.Fatalf("expected a descriptive message for unsupported digest")
	}
}
