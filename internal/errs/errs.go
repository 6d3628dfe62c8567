// Package errs defines the closed taxonomy of errors the verification
// engine raises internally. None of these propagate out of a completed
// Verify call; the orchestrator folds them into a report's
// formatting_errors instead.
package errs

import "fmt"

// Kind identifies which pipeline step failed.
type Kind int

const (
	// MalformedPdf means the PDF header or cross-reference structure
	// could not be parsed at all. Fatal to the whole document.
	MalformedPdf Kind = iota
	// NotSignedData means the outer ContentInfo is not PKCS#7 SignedData.
	// Fatal to the field being processed.
	NotSignedData
	// NoSignerInfo means the SignedData carried zero SignerInfo entries.
	// Fatal to the field being processed.
	NoSignerInfo
	// UnsupportedDigest means the digest algorithm OID is outside the
	// closed set the Crypto Verifier supports.
	UnsupportedDigest
	// UnsupportedKey means the public key family is neither RSA nor ECDSA.
	UnsupportedKey
	// SignatureInvalid means the asymmetric signature did not verify.
	SignatureInvalid
	// IntegrityFailed means the ByteRange or messageDigest check failed.
	IntegrityFailed
	// CertParseError means the signer or issuer certificate could not be parsed.
	CertParseError
	// TimestampParseError means the embedded RFC 3161 token could not be parsed.
	TimestampParseError
)

func (k Kind) String() string {
	switch k {
	case MalformedPdf:
		return "MalformedPdf"
	case NotSignedData:
		return "NotSignedData"
	case NoSignerInfo:
		return "NoSignerInfo"
	case UnsupportedDigest:
		return "UnsupportedDigest"
	case UnsupportedKey:
		return "UnsupportedKey"
	case SignatureInvalid:
		return "SignatureInvalid"
	case IntegrityFailed:
		return "IntegrityFailed"
	case CertParseError:
		return "CertParseError"
	case TimestampParseError:
		return "TimestampParseError"
	default:
		return "Unknown"
	}
}

// maxMessageLen truncates every recorded error message to 200 characters,
// per spec.
const maxMessageLen = 200

// Error is the engine's internal error type. It always carries a Kind so
// the orchestrator can decide whether a field's processing is fatal
// (MalformedPdf, NotSignedData, NoSignerInfo) or merely recorded.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: truncate(msg)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: truncate(msg), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return truncate(fmt.Sprintf("%s: %v", e.Msg, e.Err))
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether this error kind terminates the current field's
// processing entirely (spec §7: only READ_FIELD / PARSE_CMS failures are
// fatal to the field).
func (e *Error) Fatal() bool {
	switch e.Kind {
	case MalformedPdf, NotSignedData, NoSignerInfo:
		return true
	default:
		return false
	}
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	return s[:maxMessageLen]
}
