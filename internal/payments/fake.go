package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"fefe/internal/domain"
)

// FakeProvider is an in-memory Provider for tests and for running without
// provider credentials. Intents start in "requires_payment_method"; tests
// flip them with SetIntentStatus.
type FakeProvider struct {
	mu      sync.Mutex
	intents map[string]*Intent
	refunds map[string]*Refund

	// FailNext makes the next call return ErrProviderUnavailable.
	FailNext bool
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		intents: make(map[string]*Intent),
		refunds: make(map[string]*Refund),
	}
}

func (f *FakeProvider) failing() bool {
	if f.FailNext {
		f.FailNext = false
		return true
	}
	return false
}

func (f *FakeProvider) CreateIntent(_ context.Context, amountMinor int64, currency string, _ map[string]string) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing() {
		return nil, fmt.Errorf("%w: fake transport failure", domain.ErrProviderUnavailable)
	}
	id := "pi_" + uuid.NewString()
	in := &Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		Amount:       amountMinor,
		Currency:     currency,
	}
	f.intents[id] = in
	cp := *in
	return &cp, nil
}

func (f *FakeProvider) RetrieveIntent(_ context.Context, id string) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing() {
		return nil, fmt.Errorf("%w: fake transport failure", domain.ErrProviderUnavailable)
	}
	in, ok := f.intents[id]
	if !ok {
		return nil, fmt.Errorf("intent %s: %w", id, domain.ErrNotFound)
	}
	cp := *in
	return &cp, nil
}

func (f *FakeProvider) Refund(_ context.Context, intentID string, amountMinor int64) (*Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing() {
		return nil, fmt.Errorf("%w: fake transport failure", domain.ErrProviderUnavailable)
	}
	in, ok := f.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("intent %s: %w", intentID, domain.ErrNotFound)
	}
	amt := amountMinor
	if amt <= 0 {
		amt = in.Amount
	}
	rf := &Refund{ID: "re_" + uuid.NewString(), Amount: amt, Status: "succeeded"}
	f.refunds[rf.ID] = rf
	cp := *rf
	return &cp, nil
}

// SetIntentStatus simulates the cardholder completing (or failing) payment.
func (f *FakeProvider) SetIntentStatus(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in, ok := f.intents[id]; ok {
		in.Status = status
	}
}
