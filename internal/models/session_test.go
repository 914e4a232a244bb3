package models

import (
	"testing"
	"time"
)

func TestTransferSession_StateAt(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		expiresAt  time.Time
		downloaded bool
		expected   SessionState
	}{
		{"fresh", now.Add(time.Hour), false, StateActive},
		{"downloaded", now.Add(time.Hour), true, StateDownloaded},
		{"expired", now.Add(-time.Second), false, StateExpired},
		{"expired after download", now.Add(-time.Second), true, StateExpired},
		{"expires exactly now", now, false, StateActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &TransferSession{ExpirationDate: tt.expiresAt, Downloaded: tt.downloaded}
			if got := s.StateAt(now); got != tt.expected {
				t.Errorf("StateAt() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	got := ObjectKey("AB12CD", "report.pdf")
	if got != "transfers/AB12CD/report.pdf.encrypted" {
		t.Errorf("unexpected key %q", got)
	}
}
