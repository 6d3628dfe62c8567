package integrity

import (
	"crypto"
	"testing"

	"github.com/digitorus/pkcs7"
	"github.com/veridoc/pdfverify/internal/cms"
	"github.com/veridoc/pdfverify/internal/testpki"
)

func TestReadByteRange(t *testing.T) {
	doc := []byte("0123456789ABCDEFGHIJ")
	// covers "01234" and "FGHIJ"
	content, err := ReadByteRange(doc, [4]int64{0, 5, 15, 5})
	if err != nil {
		t.Fatalf("ReadByteRange returned error: %v", err)
	}
	if string(content) != "01234FGHIJ" {
		t.Errorf("content = %q, want %q", content, "01234FGHIJ")
	}
}

func TestReadByteRange_OutOfBounds(t *testing.T) {
	doc := []byte("short")
	if _, err := ReadByteRange(doc, [4]int64{0, 3, 100, 5}); err == nil {
		t.Fatalf("expected an error for an out-of-bounds byte range")
	}
}

func TestCoversWholeFile(t *testing.T) {
	cases := []struct {
		name           string
		pdfSize        int64
		byteRange      [4]int64
		contentsHexLen int
		want           bool
	}{
		{"exact fit", 100, [4]int64{0, 40, 60, 40}, 20, true},
		{"gap larger than contents", 100, [4]int64{0, 40, 70, 30}, 20, false},
		{"nonzero start", 100, [4]int64{1, 39, 60, 40}, 20, false},
		{"does not reach end of file", 100, [4]int64{0, 40, 60, 30}, 20, false},
		{"gap too small for contents", 100, [4]int64{0, 40, 45, 55}, 20, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CoversWholeFile(tc.pdfSize, tc.byteRange, tc.contentsHexLen)
			if got != tc.want {
				t.Errorf("CoversWholeFile() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMessageDigestMatches(t *testing.T) {
	content := []byte("the exact bytes covered by the byte range")

	pki := testpki.New(t)
	key, leaf := pki.IssueLeaf("Test Signer")

	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		t.Fatalf("new signed data: %v", err)
	}
	sd.SetDigestAlgorithm(cms.OIDSHA256)
	if err := sd.AddSignerChain(leaf, key, pki.Chain(), pkcs7.SignerInfoConfig{}); err != nil {
		t.Fatalf("add signer chain: %v", err)
	}
	sd.Detach()
	der, err := sd.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	parsed, err := cms.Parse(der)
	if err != nil {
		t.Fatalf("cms.Parse: %v", err)
	}

	ok, msg := MessageDigestMatches(parsed.Signer, crypto.SHA256, content)
	if !ok {
		t.Fatalf("expected message digest to match, got: %s", msg)
	}

	tampered := append([]byte{}, content...)
	tampered[0] ^= 0xFF
	ok, msg = MessageDigestMatches(parsed.Signer, crypto.SHA256, tampered)
	if ok {
		t.Fatalf("expected message digest mismatch to be detected")
	}
	if msg == "" {
		t.Errorf("expected a descriptive mismatch message")
	}
}

