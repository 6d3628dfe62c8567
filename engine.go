// Package pdfverify is a PDF signature verification engine: given a
// buffered PDF document, it locates every signature field, parses the
// embedded CMS/PKCS#7 envelope, recomputes and checks the digest over
// the signed byte range, inspects the signer/issuer certificate chain
// descriptively, extracts signing time, detects (but does not verify)
// RFC 3161 timestamp tokens, and classifies each signature's validity.
//
// It makes no trust decisions: there is no root-store lookup, no
// revocation check, and no PDF rendering. Building signatures is out of
// scope — see the sibling cmd/pdfverify CLI for a thin external
// boundary around Verify.
package pdfverify

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/veridoc/pdfverify/internal/certinspect"
	"github.com/veridoc/pdfverify/internal/cms"
	"github.com/veridoc/pdfverify/internal/cryptoverify"
	"github.com/veridoc/pdfverify/internal/errs"
	"github.com/veridoc/pdfverify/internal/integrity"
	"github.com/veridoc/pdfverify/internal/pdfobj"
	"github.com/veridoc/pdfverify/internal/signingtime"
	"github.com/veridoc/pdfverify/internal/tsadetect"
	"github.com/veridoc/pdfverify/report"
)

// Options controls orchestrator behavior that does not change the
// closed semantics of spec's verification pipeline — only ancillary
// policy such as logging and the expiring_soon window.
type Options struct {
	// ExpiringSoonDays is how many days before not_valid_after a
	// still-valid certificate is classified as "expiring_soon". Zero
	// means the default of 30.
	ExpiringSoonDays int
	// Logger receives per-field diagnostic lines. A nil Logger discards
	// them, matching the engine's default of silent operation.
	Logger *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard, "", 0)
}

// verificationEKUs are the named Extended Key Usages the advisory EKU
// check treats as suitable for PDF signing: Email Protection and Client
// Authentication. Document Signing (RFC 9336) is matched separately
// through docSigningEKU.
var verificationEKUs = []x509.ExtKeyUsage{
	x509.ExtKeyUsageEmailProtection,
	x509.ExtKeyUsageClientAuth,
}

// Verify is the engine's single entry point: it parses pdfBytes and
// returns one SignatureReport per signature field found, using now as
// the reference clock for expiry classification. now is explicit so
// that temporal assertions stay reproducible in tests. A document whose
// structure cannot be parsed yields a result with count 0 and no
// signatures.
func Verify(pdfBytes []byte, now time.Time) (*report.Result, error) {
	return VerifyWithOptions(pdfBytes, now, Options{})
}

// VerifyWithOptions is Verify with explicit ancillary policy.
func VerifyWithOptions(pdfBytes []byte, now time.Time, opts Options) (*report.Result, error) {
	logger := opts.logger()

	result := &report.Result{Signatures: []report.Signature{}}

	// MalformedPdf never escapes: the document simply has no reports.
	reader, err := pdfobj.Open(pdfBytes)
	if err != nil {
		logger.Printf("document not readable: %v", err)
		return result, nil
	}

	fields, readFailures, err := reader.Fields()
	if err != nil {
		logger.Printf("document not readable: %v", err)
		return result, nil
	}

	for _, rf := range readFailures {
		sig := report.New(rf.Name)
		sig.AddFormattingError(fmt.Sprintf("failed to read signature field: %v", rf.Err))
		result.Signatures = append(result.Signatures, *sig)
	}

	for name, field := range fields {
		sig := processField(name, field, pdfBytes, now, opts, logger)
		result.Signatures = append(result.Signatures, *sig)
	}

	result.Count = len(result.Signatures)
	return result, nil
}

// processField drives one signature field through the orchestrator
// state machine:
//
//	START -> READ_FIELD -> PARSE_CMS -> PARSE_CERT -> EXTRACT_TIME
//	      -> CHECK_EXPIRY -> CHECK_INTEGRITY -> CHECK_CRYPTO
//	      -> CHAIN_INFO -> CHECK_TSA -> DONE
//
// Only a PARSE_CMS failure (the field is not SignedData, or carries no
// SignerInfo — READ_FIELD failures are filtered out by the caller
// before this is reached) is fatal to the field; every later step
// records its failure into structure_validation and continues with
// zero values for whatever it could not determine.
func processField(name string, field *pdfobj.SignatureField, pdfBytes []byte, now time.Time, opts Options, logger *log.Logger) *report.Signature {
	sig := report.New(name)
	sig.ByteRange = formatByteRange(field.ByteRange)

	// PARSE_CMS
	signedData, err := cms.Parse(field.Contents)
	if err != nil {
		if e, ok := err.(*errs.Error); ok && e.Fatal() {
			sig.AddFormattingError(e.Error())
			return sig
		}
		sig.AddFormattingError(err.Error())
		return sig
	}

	// READ_FIELD already resolved the ByteRange; read the signed content.
	content, err := integrity.ReadByteRange(pdfBytes, field.ByteRange)
	if err != nil {
		sig.AddFormattingError(fmt.Sprintf("failed to read ByteRange: %v", err))
	} else {
		signedData.SetContent(content)
	}

	if !integrity.CoversWholeFile(int64(len(pdfBytes)), field.ByteRange, len(field.Contents)*2+2) {
		sig.AddFormattingError("ByteRange does not account for the whole document around /Contents")
	}

	// PARSE_CERT
	cert := signedData.SigningCertificate()
	if cert == nil && len(signedData.Certificates) > 0 {
		cert = signedData.Certificates[0]
	}
	if cert == nil {
		sig.AddFormattingError("no signer certificate found in CMS payload")
	} else {
		populateSignerAndIssuer(sig, cert)
		sig.KeySize = certinspect.KeySizeBits(cert)
		sig.HashAlgorithm = hashAlgorithmName(cert)
		sig.IsSelfSigned = certinspect.IsSelfSigned(cert)
		sig.ValidFrom = cert.NotBefore.UTC().Format(time.RFC3339)
		sig.ValidUntil = cert.NotAfter.UTC().Format(time.RFC3339)
	}

	// EXTRACT_TIME
	var cmsSigningTime *time.Time
	if raw, ok := signedData.Signer.SignedAttrs[oidSigningTimeKey]; ok {
		if t, ok := signingtime.ParseCMSSigningTime(raw); ok {
			cmsSigningTime = &t
		}
	}

	tsaDetected, tsErr := tsadetect.ScanSignerInfo(signedData.Signer.UnsignedAttrs)
	if tsErr != nil {
		sig.AddFormattingError(tsErr.Error())
	}

	var tsaGenTime *time.Time
	if tsaDetected.Present {
		t := tsaDetected.GenTime
		tsaGenTime = &t
	}

	reconciled := signingtime.Reconcile(field.EntryM, cmsSigningTime, tsaGenTime)
	if reconciled.Source != signingtime.SourceNone {
		sig.SigningTime = reconciled.Time.UTC().Format(time.RFC3339)
		sig.SigningTimezone = formatOffset(reconciled.Time)
	}

	// CHECK_EXPIRY
	if cert != nil {
		classification := certinspect.ClassifyExpiration(cert, now, opts.ExpiringSoonDays)
		sig.IsExpired = classification.Expired
		sig.ExpirationStatus = classification.Status
		days := classification.DaysUntilExpiry
		sig.DaysUntilExpiry = &days

		var signingTimePtr *time.Time
		if reconciled.Source != signingtime.SourceNone {
			t := reconciled.Time
			signingTimePtr = &t
		}
		sig.IsValid = certinspect.ValidAtSigningTime(cert, signingTimePtr)
	}

	// CHECK_INTEGRITY
	if cert != nil && err == nil {
		var digestOK bool
		var digestMsg string
		if signedData.Signer.HasSignedAttrs() {
			hash, hok := cryptoverify.HashForOID(signedData.Signer.DigestAlgorithm)
			if !hok {
				digestOK, digestMsg = false, "unsupported digest algorithm"
			} else {
				digestOK, digestMsg = integrity.MessageDigestMatches(signedData.Signer, hash, signedData.Content)
			}
		} else {
			// No signed attributes means messageDigest was never asserted;
			// the only integrity check this profile offers is whether the
			// signature itself verifies over the content directly.
			digestOK, digestMsg = cryptoverify.Verify(cert, signedData.Signer.DigestAlgorithm, signedData.Content, signedData.Signer.EncryptedDigest)
		}
		sig.Intact = digestOK
		sig.DocumentUnchanged = digestOK
		if !digestOK {
			sig.AddFormattingError(digestMsg)
		}
	}

	// CHECK_CRYPTO
	if cert != nil {
		var signedBytes []byte
		if signedData.Signer.HasSignedAttrs() {
			signedBytes, err = signedData.Signer.EncodeSignedAttributesForDigest()
			if err != nil {
				sig.CryptographicSignatureValid = false
				sig.CryptographicMessage = "failed to re-encode signed attributes: " + err.Error()
			}
		} else {
			signedBytes = signedData.Content
		}

		if signedBytes != nil {
			ok, msg := cryptoverify.Verify(cert, signedData.Signer.DigestAlgorithm, signedBytes, signedData.Signer.EncryptedDigest)
			sig.CryptographicSignatureValid = ok
			sig.CryptographicMessage = msg
			if !ok {
				logger.Printf("field %q: cryptographic verification failed: %s", name, msg)
			}
		}
	} else {
		sig.CryptographicMessage = "no signer certificate available"
	}

	// CHAIN_INFO — descriptive only, never a trust decision.
	if cert != nil {
		sig.CertificateChain = buildChainInfo(cert, signedData.Certificates)
		checkEKU(sig, cert)
	}

	// CHECK_TSA
	sig.HasTimestamp = tsaDetected.Present
	if tsaDetected.Present {
		sig.TimestampSource = "TSA"
		sig.TimestampInfo = &report.TimestampInfo{Timestamp: tsaDetected.GenTime.UTC().Format(time.RFC3339)}
	} else {
		sig.TimestampSource = "local-clock"
		sig.AddWarning("no RFC 3161 timestamp token found; signing time relies on the local clock")
	}

	return sig
}

// oidSigningTimeKey is the map key cms.SignerInfo.SignedAttrs uses for
// the signingTime attribute.
var oidSigningTimeKey = cms.OIDSigningTime.String()

func formatByteRange(br [4]int64) string {
	return fmt.Sprintf("[%d, %d, %d, %d]", br[0], br[1], br[2], br[3])
}

func formatOffset(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s%02d:%02d", sign, offset/3600, (offset%3600)/60)
}

func hashAlgorithmName(cert *x509.Certificate) string {
	switch cert.SignatureAlgorithm {
	case x509.SHA1WithRSA, x509.ECDSAWithSHA1:
		return "SHA1"
	case x509.SHA256WithRSA, x509.ECDSAWithSHA256, x509.SHA256WithRSAPSS:
		return "SHA256"
	case x509.SHA384WithRSA, x509.ECDSAWithSHA384, x509.SHA384WithRSAPSS:
		return "SHA384"
	case x509.SHA512WithRSA, x509.ECDSAWithSHA512, x509.SHA512WithRSAPSS:
		return "SHA512"
	default:
		switch cert.PublicKeyAlgorithm {
		case x509.RSA:
			return "RSA"
		case x509.ECDSA:
			return "ECDSA"
		default:
			return "unknown"
		}
	}
}

func populateSignerAndIssuer(sig *report.Signature, cert *x509.Certificate) {
	subject := certinspect.SubjectIdentity(cert)
	issuer := certinspect.IssuerIdentity(cert)

	sig.Signer = report.Signer{
		CommonName:      subject.CommonName,
		UserID:          subject.UserID,
		Country:         subject.Country,
		StateOrProvince: subject.StateOrProvince,
		City:            subject.Locality,
		Organization:    subject.Organization,
	}
	sig.Issuer = report.Issuer{
		CommonName:   issuer.CommonName,
		Organization: issuer.Organization,
		Country:      issuer.Country,
	}
}

func buildChainInfo(leaf *x509.Certificate, certs []*x509.Certificate) []report.ChainEntry {
	chain := []report.ChainEntry{describeCert(leaf)}

	issuer := findIssuer(leaf, certs)
	seen := map[string]bool{string(leaf.Raw): true}
	for issuer != nil && !seen[string(issuer.Raw)] {
		chain = append(chain, describeCert(issuer))
		seen[string(issuer.Raw)] = true
		if certinspect.IsSelfSigned(issuer) {
			break
		}
		issuer = findIssuer(issuer, certs)
	}
	return chain
}

func describeCert(cert *x509.Certificate) report.ChainEntry {
	return report.ChainEntry{
		Subject:      certinspect.SubjectIdentity(cert).CommonName,
		Issuer:       certinspect.IssuerIdentity(cert).CommonName,
		IsSelfSigned: certinspect.IsSelfSigned(cert),
		KeySize:      certinspect.KeySizeBits(cert),
	}
}

func findIssuer(cert *x509.Certificate, certs []*x509.Certificate) *x509.Certificate {
	for _, candidate := range certs {
		if candidate == cert {
			continue
		}
		if bytesEqual(candidate.RawSubject, cert.RawIssuer) {
			return candidate
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

// checkEKU appends a non-blocking advisory warning when the signer
// certificate's Extended Key Usage does not look like it was meant for
// document signing. This never rejects a signature — it is descriptive,
// like the rest of chain info.
func checkEKU(sig *report.Signature, cert *x509.Certificate) {
	if len(cert.ExtKeyUsage) == 0 && len(cert.UnknownExtKeyUsage) == 0 {
		sig.AddWarning("signer certificate has no Extended Key Usage extension")
		return
	}

	for _, eku := range cert.ExtKeyUsage {
		for _, allowed := range verificationEKUs {
			if eku == allowed {
				return
			}
		}
	}
	for _, unknown := range cert.UnknownExtKeyUsage {
		if unknown.Equal(docSigningEKU) {
			return
		}
	}

	sig.AddWarning("signer certificate does not have a Document Signing, Email Protection, or Client Authentication Extended Key Usage")
}

// docSigningEKU is the Document Signing EKU (1.3.6.1.5.5.7.3.36, RFC
// 9336), expressed as a raw OID since crypto/x509.ExtKeyUsage has no
// named constant for it — certificates that encode it end up in
// cert.UnknownExtKeyUsage instead of cert.ExtKeyUsage.
var docSigningEKU = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 36}
