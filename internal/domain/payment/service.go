package payment

import (
	"context"
	"errors"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/reelworks/reelworks-api/internal/domain/credit"
	"github.com/reelworks/reelworks-api/internal/pkg/gkash"
	"github.com/reelworks/reelworks-api/internal/pkg/paygate"
)

// Recorder is the persistence surface the service needs
type Recorder interface {
	RecordPurchase(ctx context.Context, p *Payment) (*credit.LedgerEntry, error)
	GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Payment, int, error)
}

// Service handles payment reconciliation and purchases
type Service struct {
	repo         Recorder
	providers    *paygate.Registry
	signatureKey string
}

// NewService creates a new payment service
func NewService(repo Recorder, providers *paygate.Registry, signatureKey string) *Service {
	return &Service{
		repo:         repo,
		providers:    providers,
		signatureKey: signatureKey,
	}
}

// ReconcileResult reports what a webhook callback did
type ReconcileResult struct {
	Payment      *Payment
	CreditsAdded int64
	AlreadySeen  bool
}

// ReconcileGkashCallback processes a server-to-server payment
// notification. Only a bad signature is an error the caller should
// reject; every other outcome is reported through the result or a
// sentinel the handler acknowledges, because the gateway retries
// anything that is not a 2xx and the condition will not heal.
func (s *Service) ReconcileGkashCallback(ctx context.Context, form url.Values) (*ReconcileResult, error) {
	event, err := gkash.ParseCallbackForm(form)
	if err != nil {
		log.Warn().Err(err).Msg("Malformed payment callback")
		return nil, ErrInvalidSignature
	}

	if !event.Verify(s.signatureKey) {
		log.Warn().
			Str("poid", event.POID).
			Str("cartid", event.CartID).
			Msg("Payment callback signature mismatch")
		return nil, ErrInvalidSignature
	}

	if !event.IsPaid() {
		log.Info().
			Str("poid", event.POID).
			Str("status", event.Status).
			Msg("Ignoring non-paid payment status")
		return nil, ErrNotPaid
	}

	// replayed notification for a payment already granted
	if existing, err := s.repo.GetByProviderPaymentID(ctx, event.POID); err == nil {
		log.Info().Str("poid", event.POID).Msg("Payment already recorded, acknowledging replay")
		return &ReconcileResult{Payment: existing, AlreadySeen: true}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	userID, err := gkash.UserIDFromCartID(event.CartID)
	if err != nil {
		log.Warn().Err(err).Str("cartid", event.CartID).Msg("Cannot resolve user from cart id")
		return nil, ErrUnknownUser
	}

	cents, err := event.AmountCents()
	if err != nil {
		log.Warn().Err(err).Str("amount", event.Amount).Msg("Cannot parse callback amount")
		return nil, ErrUnknownPackage
	}

	pkg, ok := credit.PackageByAmount(cents)
	if !ok {
		log.Warn().Int64("amount_cents", cents).Str("poid", event.POID).Msg("No package matches paid amount")
		return nil, ErrUnknownPackage
	}

	p := &Payment{
		UserID:            userID,
		Provider:          "gkash",
		ProviderPaymentID: event.POID,
		PackageID:         pkg.ID,
		Credits:           pkg.Credits,
		AmountCents:       cents,
		Currency:          event.Currency,
		Details:           RawDetails(event.RawDetails()),
	}

	entry, err := s.repo.RecordPurchase(ctx, p)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			// lost the race against a concurrent delivery of the same POID
			existing, getErr := s.repo.GetByProviderPaymentID(ctx, event.POID)
			if getErr != nil {
				return nil, getErr
			}
			return &ReconcileResult{Payment: existing, AlreadySeen: true}, nil
		}
		if errors.Is(err, credit.ErrUserNotFound) {
			log.Warn().Str("user_id", userID.String()).Str("poid", event.POID).Msg("Paid user does not exist")
			return nil, ErrUnknownUser
		}
		return nil, err
	}

	log.Info().
		Str("poid", event.POID).
		Str("user_id", userID.String()).
		Str("package", pkg.ID).
		Int64("credits", pkg.Credits).
		Int64("balance_after", entry.BalanceAfter).
		Msg("Payment reconciled")

	return &ReconcileResult{Payment: p, CreditsAdded: pkg.Credits}, nil
}

// VerifyReturn validates the browser return redirect. It only decides
// where to send the user; credits are granted by the server callback.
func (s *Service) VerifyReturn(form url.Values) (paid bool, err error) {
	event, parseErr := gkash.ParseCallbackForm(form)
	if parseErr != nil {
		return false, ErrInvalidSignature
	}
	if !event.Verify(s.signatureKey) {
		return false, ErrInvalidSignature
	}
	return event.IsPaid(), nil
}

// PurchaseResult is returned from a synchronous purchase
type PurchaseResult struct {
	Payment      *Payment
	CreditsAdded int64
	Balance      int64
}

// PurchasePackage charges a package price through the named provider
// and grants the credits in the same flow
func (s *Service) PurchasePackage(ctx context.Context, userID uuid.UUID, packageID, providerName string) (*PurchaseResult, error) {
	pkg, ok := credit.PackageByID(packageID)
	if !ok {
		return nil, ErrUnknownPackage
	}

	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	result, err := provider.Charge(ctx, paygate.ChargeRequest{
		UserID:      userID,
		AmountCents: pkg.PriceCents,
		Currency:    "USD",
		Description: "credit package: " + pkg.ID,
	})
	if err != nil {
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("package", pkg.ID).
			Str("provider", providerName).
			Msg("Charge declined")
		return nil, ErrChargeDeclined
	}

	p := &Payment{
		UserID:            userID,
		Provider:          provider.Name(),
		ProviderPaymentID: result.ProviderPaymentID,
		PackageID:         pkg.ID,
		Credits:           pkg.Credits,
		AmountCents:       pkg.PriceCents,
		Currency:          "USD",
		Details:           RawDetails(result.Raw),
	}

	entry, err := s.repo.RecordPurchase(ctx, p)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("package", pkg.ID).
		Str("provider", provider.Name()).
		Int64("balance_after", entry.BalanceAfter).
		Msg("Package purchased")

	return &PurchaseResult{
		Payment:      p,
		CreditsAdded: pkg.Credits,
		Balance:      entry.BalanceAfter,
	}, nil
}

// History returns a page of the user's payments
func (s *Service) History(ctx context.Context, userID uuid.UUID, page, perPage int) ([]Payment, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.repo.ListByUser(ctx, userID, perPage, (page-1)*perPage)
}
