package moonpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureHeader    = "Moonpay-Signature-V2"
	SignatureTolerance = 5 * time.Minute
)

var (
	ErrMissingSignature = errors.New("moonpay: missing webhook signature")
	ErrInvalidSignature = errors.New("moonpay: invalid webhook signature")
	ErrStaleSignature   = errors.New("moonpay: webhook signature timestamp outside tolerance")
)

// Sign returns the header value for body signed at ts. It mirrors what the
// processor sends and is used by tests and local tooling.
func Sign(body []byte, secret string, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",s=" + computeSignature(t, body, secret)
}

// VerifySignature checks a "t=<unix>,s=<hex>" header against body.
func VerifySignature(header string, body []byte, secret string, now time.Time) error {
	if header == "" {
		return ErrMissingSignature
	}

	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "s":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if d := now.Sub(time.Unix(unix, 0)); d > SignatureTolerance || d < -SignatureTolerance {
		return ErrStaleSignature
	}

	expected := computeSignature(ts, body, secret)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sig))) {
		return ErrInvalidSignature
	}
	return nil
}

func computeSignature(ts string, body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(ts))
	h.Write([]byte("."))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
