package payments

import (
	"errors"
	"testing"
	"time"

	"fefe/internal/domain"
)

const secret = "whsec_unit"

func TestVerifyAndParse_ValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","status":"succeeded"}}}`)
	sig := Sign(payload, secret, time.Now())

	ev, err := VerifyAndParse(payload, sig, secret, DefaultTolerance)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventIntentSucceeded || ev.Data.Object.ID != "pi_1" {
		t.Fatalf("parsed event %+v", ev)
	}
}

func TestVerifyAndParse_Rejections(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)

	cases := map[string]string{
		"missing header": "",
		"garbage header": "not-a-signature",
		"wrong secret":   Sign(payload, "other", time.Now()),
		"stale":          Sign(payload, secret, time.Now().Add(-time.Hour)),
		"future":         Sign(payload, secret, time.Now().Add(time.Hour)),
	}
	for name, sig := range cases {
		if _, err := VerifyAndParse(payload, sig, secret, DefaultTolerance); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("%s: err = %v, want ErrUnauthorized", name, err)
		}
	}

	// Tampering after signing invalidates the signature.
	sig := Sign(payload, secret, time.Now())
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = 'x'
	if _, err := VerifyAndParse(tampered, sig, secret, DefaultTolerance); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("tampered payload: err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyAndParse_MalformedJSON(t *testing.T) {
	payload := []byte(`{"id":`)
	sig := Sign(payload, secret, time.Now())
	if _, err := VerifyAndParse(payload, sig, secret, DefaultTolerance); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
