package moonpay

import (
	"errors"
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"data":{"id":"ext_1","status":"completed"}}`)
	now := time.Unix(1_700_000_000, 0)
	valid := Sign(body, "whsec", now)

	tests := []struct {
		name   string
		header string
		body   []byte
		now    time.Time
		want   error
	}{
		{"valid", valid, body, now, nil},
		{"valid within tolerance", valid, body, now.Add(4 * time.Minute), nil},
		{"missing", "", body, now, ErrMissingSignature},
		{"garbage", "nonsense", body, now, ErrInvalidSignature},
		{"tampered body", valid, []byte(`{"data":{"id":"ext_1","status":"failed"}}`), now, ErrInvalidSignature},
		{"wrong secret", Sign(body, "other", now), body, now, ErrInvalidSignature},
		{"stale", valid, body, now.Add(10 * time.Minute), ErrStaleSignature},
		{"bad timestamp", "t=abc,s=00", body, now, ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.header, tt.body, "whsec", tt.now)
			if !errors.Is(err, tt.want) {
				t.Errorf("VerifySignature() = %v, want %v", err, tt.want)
			}
		})
	}
}
