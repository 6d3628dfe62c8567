package signingtime

import (
	"testing"
	"time"
)

func TestParsePDFDate(t *testing.T) {
	cases := []struct {
		raw      string
		wantYear int
		wantOK   bool
	}{
		{"D:20240115103000+07'00'", 2024, true},
		{"D:20240115103000Z", 2024, true},
		{"D:20240115103000", 2024, true},
		{"D:20240115", 2024, true},
		{"", 0, false},
		{"not a date", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParsePDFDate(tc.raw)
		if ok != tc.wantOK {
			t.Errorf("ParsePDFDate(%q) ok = %v, want %v", tc.raw, ok, tc.wantOK)
			continue
		}
		if ok && got.Year() != tc.wantYear {
			t.Errorf("ParsePDFDate(%q) year = %d, want %d", tc.raw, got.Year(), tc.wantYear)
		}
	}
}

func TestParsePDFDate_PreservesOffset(t *testing.T) {
	got, ok := ParsePDFDate("D:20240115103000+07'00'")
	if !ok {
		t.Fatalf("expected successful parse")
	}
	_, offset := got.Zone()
	if offset != 7*3600 {
		t.Errorf("offset = %d seconds, want %d", offset, 7*3600)
	}
}

func TestReconcile_PriorityOrder(t *testing.T) {
	pdfTime := "D:20240101000000Z"
	cmsTime := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	tsaTime := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// The PDF field wins over everything when present.
	res := Reconcile(pdfTime, &cmsTime, &tsaTime)
	if res.Source != SourcePDFField {
		t.Errorf("expected PDF field source to win, got %v / %v", res.Source, res.Time)
	}

	// CMS signingTime wins over the TSA when there is no PDF field.
	res = Reconcile("", &cmsTime, &tsaTime)
	if res.Source != SourceCMSSigningTime || !res.Time.Equal(cmsTime) {
		t.Errorf("expected CMS signingTime source to win, got %v / %v", res.Source, res.Time)
	}

	// The TSA is the last resort.
	res = Reconcile("", nil, &tsaTime)
	if res.Source != SourceTSA || !res.Time.Equal(tsaTime) {
		t.Errorf("expected TSA source, got %v / %v", res.Source, res.Time)
	}

	// Nothing present at all.
	res = Reconcile("", nil, nil)
	if res.Source != SourceNone {
		t.Errorf("expected SourceNone, got %v", res.Source)
	}
}
