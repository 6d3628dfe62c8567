package certinspect

import (
	"crypto/x509"
	"testing"
	"time"
)

func fakeCert(notBefore, notAfter time.Time) *x509.Certificate {
	return &x509.Certificate{NotBefore: notBefore, NotAfter: notAfter}
}

func TestClassifyExpiration(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		notBefore  time.Time
		notAfter   time.Time
		wantStatus string
		wantExpired bool
	}{
		{
			name:       "valid",
			notBefore:  now.Add(-24 * time.Hour),
			notAfter:   now.Add(365 * 24 * time.Hour),
			wantStatus: "valid",
		},
		{
			name:       "expiring soon",
			notBefore:  now.Add(-24 * time.Hour),
			notAfter:   now.Add(10 * 24 * time.Hour),
			wantStatus: "expiring_soon",
		},
		{
			name:        "expired",
			notBefore:   now.Add(-365 * 24 * time.Hour),
			notAfter:    now.Add(-24 * time.Hour),
			wantStatus:  "expired",
			wantExpired: true,
		},
		{
			name:        "defensive pre-1975 epoch",
			notBefore:   time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			notAfter:    now.Add(365 * 24 * time.Hour),
			wantStatus:  "expired",
			wantExpired: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cert := fakeCert(tc.notBefore, tc.notAfter)
			got := ClassifyExpiration(cert, now, 30)
			if got.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tc.wantStatus)
			}
			if got.Expired != tc.wantExpired {
				t.Errorf("expired = %v, want %v", got.Expired, tc.wantExpired)
			}
		})
	}
}

func TestValidAtSigningTime(t *testing.T) {
	cert := fakeCert(
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
	)

	if !ValidAtSigningTime(cert, nil) {
		t.Errorf("nil signing time should default to valid")
	}

	inside := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if !ValidAtSigningTime(cert, &inside) {
		t.Errorf("signing time inside validity window should be valid")
	}

	outside := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if ValidAtSigningTime(cert, &outside) {
		t.Errorf("signing time outside validity window should be invalid")
	}
}
