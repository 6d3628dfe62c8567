// Package pdfobj is the PDF Object Reader component: it parses just
// enough of a PDF's cross-reference structure to locate the AcroForm
// field dictionary and read the indirect objects belonging to signature
// fields. It never mutates the PDF.
package pdfobj

import (
	"bytes"
	"fmt"

	pdflib "github.com/digitorus/pdf"
	"github.com/veridoc/pdfverify/internal/errs"
)

// SignatureField is a /Sig dictionary found under /Root/AcroForm/Fields,
// named by the fully-qualified concatenation of /T entries from root to
// leaf (spec.md §9: a deliberate correction over leaf-only naming).
type SignatureField struct {
	Name      string
	ByteRange [4]int64
	Contents  []byte
	EntryM    string // raw /M text, e.g. "D:20240115103000+07'00'"
	EntryName string
	EntryReason string
	SubFilter string
}

// Reader exposes signature fields from an already-buffered PDF.
type Reader struct {
	data []byte
	rdr  *pdflib.Reader
}

// Open validates the PDF header and parses the cross-reference table
// (classical or xref stream). It returns errs.MalformedPdf when neither
// is parseable.
func Open(data []byte) (*Reader, error) {
	if len(data) < 5 || !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, errs.New(errs.MalformedPdf, "missing %PDF- header")
	}

	rdr, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errs.Wrap(errs.MalformedPdf, "failed to parse cross-reference structure", err)
	}

	root := rdr.Trailer().Key("Root")
	if root.IsNull() {
		return nil, errs.New(errs.MalformedPdf, "trailer has no /Root")
	}

	return &Reader{data: data, rdr: rdr}, nil
}

// RawBytes returns the full buffered PDF content.
func (r *Reader) RawBytes() []byte {
	return r.data
}

// ReadError is a per-field failure encountered while reading a /Sig
// dictionary (e.g. a malformed ByteRange). Per spec, a read failure
// terminates processing for that field only — other fields still
// proceed — so Fields reports these alongside the fields that parsed
// cleanly instead of aborting the whole walk.
type ReadError struct {
	Name string
	Err  error
}

// Fields walks /Root/AcroForm/Fields (recursively through /Kids) and
// returns every signature field keyed by its fully-qualified name, plus
// any per-field read failures.
func (r *Reader) Fields() (map[string]*SignatureField, []ReadError, error) {
	out := make(map[string]*SignatureField)
	var failures []ReadError

	acroForm := r.rdr.Trailer().Key("Root").Key("AcroForm")
	if acroForm.IsNull() {
		return out, nil, nil
	}

	fields := acroForm.Key("Fields")
	if fields.IsNull() {
		return out, nil, nil
	}

	r.walk(fields, "", "", out, &failures)
	return out, failures, nil
}

func (r *Reader) walk(arr pdflib.Value, namePrefix, inheritedFT string, out map[string]*SignatureField, failures *[]ReadError) {
	if arr.Kind() != pdflib.Array {
		return
	}

	for i := 0; i < arr.Len(); i++ {
		field := arr.Index(i)

		name := namePrefix
		if t := field.Key("T").Text(); t != "" {
			if name != "" {
				name = name + "." + t
			} else {
				name = t
			}
		}

		ft := field.Key("FT").Name()
		if ft == "" {
			ft = inheritedFT
		}

		if ft == "Sig" {
			v := field.Key("V")
			if !v.IsNull() {
				sf, err := buildSignatureField(name, v)
				if err != nil {
					*failures = append(*failures, ReadError{Name: name, Err: err})
				} else if sf != nil {
					out[sf.Name] = sf
				}
			}
		}

		if kids := field.Key("Kids"); !kids.IsNull() {
			r.walk(kids, name, ft, out, failures)
		}
	}
}

func buildSignatureField(name string, v pdflib.Value) (*SignatureField, error) {
	contents := v.Key("Contents")
	if contents.IsNull() {
		return nil, nil
	}

	sf := &SignatureField{
		Name:        name,
		Contents:    []byte(contents.RawString()),
		EntryM:      v.Key("M").Text(),
		EntryName:   v.Key("Name").Text(),
		EntryReason: v.Key("Reason").Text(),
		SubFilter:   v.Key("SubFilter").Name(),
	}

	br := v.Key("ByteRange")
	if br.IsNull() || br.Len() != 4 {
		return nil, errs.New(errs.MalformedPdf, fmt.Sprintf("signature field %q has malformed ByteRange", name))
	}
	for i := 0; i < 4; i++ {
		sf.ByteRange[i] = br.Index(i).Int64()
	}

	return sf, nil
}
