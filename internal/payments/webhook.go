package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fefe/internal/domain"
)

// Event is an asynchronous provider notification.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object EventObject `json:"object"`
	} `json:"data"`
}

// EventObject carries the intent embedded in the event payload.
type EventObject struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// DefaultTolerance bounds how old a signed webhook timestamp may be.
const DefaultTolerance = 5 * time.Minute

// VerifyAndParse checks the signature header against the raw payload before
// trusting any of it. The header carries "t=<unix>,v1=<hex hmac>" where the
// HMAC-SHA256 input is "<t>.<payload>". Any failure is domain.ErrUnauthorized:
// a forged webhook must not be mistaken for a failed payment.
func VerifyAndParse(payload []byte, sigHeader, secret string, tolerance time.Duration) (*Event, error) {
	ts, sigs, err := parseSigHeader(sigHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if tolerance > 0 {
		at := time.Unix(ts, 0)
		if d := time.Since(at); d > tolerance || d < -tolerance {
			return nil, fmt.Errorf("%w: webhook timestamp outside tolerance", domain.ErrUnauthorized)
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	ok := false
	for _, s := range sigs {
		if raw, err := hex.DecodeString(s); err == nil && hmac.Equal(raw, expected) {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: webhook signature mismatch", domain.ErrUnauthorized)
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: malformed event payload", domain.ErrValidation)
	}
	return &ev, nil
}

func parseSigHeader(h string) (ts int64, sigs []string, err error) {
	if h == "" {
		return 0, nil, fmt.Errorf("missing signature header")
	}
	for _, part := range strings.Split(h, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("bad timestamp")
			}
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("incomplete signature header")
	}
	return ts, sigs, nil
}

// Sign produces a valid signature header for a payload. Used by tests and the
// local webhook replay tool.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
