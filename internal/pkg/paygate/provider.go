package paygate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Provider names accepted by the synchronous purchase flow.
const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"
)

// ChargeRequest is a standardized synchronous charge request
type ChargeRequest struct {
	UserID      uuid.UUID
	AmountCents int64
	Currency    string
	Description string
}

// ChargeResult is a standardized charge outcome. ProviderPaymentID is the
// provider-assigned id used for payment deduplication.
type ChargeResult struct {
	ProviderPaymentID string
	Status            string
	Raw               json.RawMessage
}

// Provider defines the interface synchronous payment gateways must implement.
// Unlike the Gkash webhook path, these providers confirm the charge inside
// the request.
type Provider interface {
	// Charge performs a synchronous charge and returns the provider's record
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// Name returns the provider identifier
	Name() string
}

// Registry holds the configured providers keyed by payment method
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported payment method: %s", name)
	}
	return p, nil
}

// MockProvider simulates a synchronous gateway. Real Stripe/PayPal clients
// satisfy the same interface; the mock always approves and fabricates a
// provider payment id in the gateway's id format.
type MockProvider struct {
	name string
	now  func() time.Time
}

// NewMockProvider creates a mock gateway with the given name
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name, now: time.Now}
}

func (p *MockProvider) Name() string {
	return p.name
}

func (p *MockProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("%s charge error: amount must be positive", p.name)
	}

	paymentID := fmt.Sprintf("%s_%d_%s", p.name, p.now().UnixMilli(), uuid.New().String()[:8])

	raw, err := json.Marshal(map[string]interface{}{
		"payment_id": paymentID,
		"amount":     float64(req.AmountCents) / 100,
		"currency":   req.Currency,
		"status":     "completed",
	})
	if err != nil {
		return nil, fmt.Errorf("%s charge error: %w", p.name, err)
	}

	return &ChargeResult{
		ProviderPaymentID: paymentID,
		Status:            "completed",
		Raw:               raw,
	}, nil
}
