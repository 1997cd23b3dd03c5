package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fefe/internal/domain"
)

func TestClient_CreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("auth header = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("amount") != "9640" || r.PostForm.Get("currency") != "usd" {
			t.Errorf("form = %v", r.PostForm)
		}
		if r.PostForm.Get("metadata[order_id]") != "o-1" {
			t.Errorf("metadata missing: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret","status":"requires_payment_method","amount":9640,"currency":"usd"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_123")
	in, err := c.CreateIntent(context.Background(), 9640, "usd", map[string]string{"order_id": "o-1"})
	if err != nil {
		t.Fatal(err)
	}
	if in.ID != "pi_1" || in.ClientSecret != "pi_1_secret" {
		t.Fatalf("intent = %+v", in)
	}
}

func TestClient_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_123")
	_, err := c.RetrieveIntent(context.Background(), "pi_1")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestClient_RejectionCarriesProviderMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test_123")
	_, err := c.Refund(context.Background(), "pi_1", 0)
	if err == nil || errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want terminal provider rejection", err)
	}
}

func TestClient_TransportFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, "sk_test_123")
	_, err := c.CreateIntent(context.Background(), 100, "usd", nil)
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}
