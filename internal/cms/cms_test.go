package cms

import (
	"testing"

	"github.com/digitorus/pkcs7"
	"github.com/veridoc/pdfverify/internal/testpki"
)

func signedDataDER(t *testing.T, content []byte) ([]byte, *testpki.PKI) {
	pki := testpki.New(t)
	key, leaf := pki.IssueLeaf("Test Signer")

	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		t.Fatalf("new signed data: %v", err)
	}
	sd.SetDigestAlgorithm(OIDSHA256)
	if err := sd.AddSignerChain(leaf, key, pki.Chain(), pkcs7.SignerInfoConfig{}); err != nil {
		t.Fatalf("add signer chain: %v", err)
	}
	sd.Detach()

	der, err := sd.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return der, pki
}

func TestParse(t *testing.T) {
	content := []byte("the signed byte range content")
	der, _ := signedDataDER(t, content)

	sd, err := Parse(der)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if sd.Signer == nil {
		t.Fatalf("expected a SignerInfo")
	}
	if len(sd.Certificates) == 0 {
		t.Errorf("expected bundled certificates")
	}
	if !sd.Signer.DigestAlgorithm.Equal(OIDSHA256) {
		t.Errorf("digest algorithm = %v, want SHA-256", sd.Signer.DigestAlgorithm)
	}
	if !sd.Signer.HasSignedAttrs() {
		t.Errorf("expected signed attributes to be present (pkcs7 always adds contentType/messageDigest)")
	}
}

func TestParse_NotSignedData(t *testing.T) {
	if _, err := Parse([]byte("not a CMS structure")); err == nil {
		t.Fatalf("expected an error for garbage input")
	}
}

func TestSigningCertificate(t *testing.T) {
	content := []byte("more content")
	der, pki := signedDataDER(t, content)

	sd, err := Parse(der)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	cert := sd.SigningCertificate()
	if cert == nil {
		t.Fatalf("expected to find the signing certificate among the bundled set")
	}
	_, leaf := pki.IssueLeaf("unused")
	if cert.SerialNumber.Cmp(leaf.SerialNumber) == 0 {
		t.Fatalf("matched the wrong certificate (compared against a freshly issued unrelated leaf)")
	}
}

func TestEncodeSignedAttributesForDigest(t *testing.T) {
	content := []byte("digest me")
	der, _ := signedDataDER(t, content)

	sd, err := Parse(der)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	encoded, err := sd.Signer.EncodeSignedAttributesForDigest()
	if err != nil {
		t.Fatalf("EncodeSignedAttributesForDigest: %v", err)
	}
	if len(encoded) == 0 {
		t.Fatalf("expected non-empty encoding")
	}
	if encoded[0] != 0x31 {
		t.Errorf("expected a SET OF tag (0x31), got 0x%02x", encoded[0])
	}

	// messageDigest attribute should be present; internal/integrity's own
	// tests cover unwrapping and comparing its value against sha256(content).
	if _, ok := sd.Signer.SignedAttrs[OIDMessageDigest.String()]; !ok {
		t.Fatalf("expected a messageDigest attribute")
	}
}

func TestDigestAlgorithmName(t *testing.T) {
	cases := []struct {
		oid  []int
		want string
	}{
		{[]int{1, 3, 14, 3, 2, 26}, "SHA1"},
		{[]int{2, 16, 840, 1, 101, 3, 4, 2, 1}, "SHA256"},
		{[]int{2, 16, 840, 1, 101, 3, 4, 2, 2}, "SHA384"},
		{[]int{2, 16, 840, 1, 101, 3, 4, 2, 3}, "SHA512"},
		{[]int{1, 2, 3}, ""},
	}
	for _, tc := range cases {
		got := DigestAlgorithmName(tc.oid)
		if got != tc.want {
			t.Errorf("DigestAlgorithmName(%v) = %q, want %q", tc.oid, got, tc.want)
		}
	}
}
