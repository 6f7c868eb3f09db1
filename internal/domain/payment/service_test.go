package payment

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/uuid"

	"github.com/reelworks/reelworks-api/internal/domain/credit"
	"github.com/reelworks/reelworks-api/internal/pkg/gkash"
	"github.com/reelworks/reelworks-api/internal/pkg/paygate"
)

const testKey = "test-signature-key"

type fakeRecorder struct {
	byPOID  map[string]*Payment
	balance int64
	userErr bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{byPOID: map[string]*Payment{}}
}

func (f *fakeRecorder) RecordPurchase(ctx context.Context, p *Payment) (*credit.LedgerEntry, error) {
	if f.userErr {
		return nil, credit.ErrUserNotFound
	}
	if _, ok := f.byPOID[p.ProviderPaymentID]; ok {
		return nil, ErrDuplicate
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.byPOID[p.ProviderPaymentID] = p
	f.balance += p.Credits
	return &credit.LedgerEntry{
		UserID:       p.UserID,
		Type:         credit.EntryPurchase,
		Amount:       p.Credits,
		BalanceAfter: f.balance,
	}, nil
}

func (f *fakeRecorder) GetByProviderPaymentID(ctx context.Context, poid string) (*Payment, error) {
	if p, ok := f.byPOID[poid]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRecorder) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Payment, int, error) {
	var out []Payment
	for _, p := range f.byPOID {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func signedCallback(t *testing.T, userID uuid.UUID, poid, amount, status string) url.Values {
	t.Helper()

	cartID := "reelworks__" + userID.String()
	cents, err := gkash.ParseAmountCents(amount)
	if err != nil {
		t.Fatalf("parse amount %q: %v", amount, err)
	}

	base := gkash.BuildSignatureBase(testKey, "M102", poid, cartID, cents, "MYR", status)

	form := url.Values{}
	form.Set("CID", "M102")
	form.Set("POID", poid)
	form.Set("status", status)
	form.Set("cartid", cartID)
	form.Set("currency", "MYR")
	form.Set("amount", amount)
	form.Set("signature", gkash.Sign(base))
	return form
}

func TestReconcileGrantsPackage(t *testing.T) {
	repo := newFakeRecorder()
	svc := NewService(repo, paygate.NewRegistry(), testKey)
	userID := uuid.New()

	form := signedCallback(t, userID, "PO-1001", "9.99", gkash.StatusPaid)

	result, err := svc.ReconcileGkashCallback(context.Background(), form)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.AlreadySeen {
		t.Error("first delivery flagged as replay")
	}
	if result.CreditsAdded != 10 {
		t.Errorf("credits added = %d, want 10", result.CreditsAdded)
	}
	if result.Payment.UserID != userID {
		t.Errorf("payment user = %s, want %s", result.Payment.UserID, userID)
	}
	if result.Payment.PackageID != "starter" {
		t.Errorf("package = %q, want starter", result.Payment.PackageID)
	}
	if result.Payment.AmountCents != 999 {
		t.Errorf("amount = %d, want 999", result.Payment.AmountCents)
	}
}

func TestReconcileRejectsBadSignature(t *testing.T) {
	repo := newFakeRecorder()
	svc := NewService(repo, paygate.NewRegistry(), testKey)

	form := signedCallback(t, uuid.New(), "PO-1002", "9.99", gkash.StatusPaid)
	form.Set("signature", "deadbeef")

	_, err := svc.ReconcileGkashCallback(context.Background(), form)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if len(repo.byPOID) != 0 {
		t.Error("payment recorded despite bad signature")
	}
}

func TestReconcileTamperedAmount(t *testing.T) {
	repo := newFakeRecorder()
	svc := NewService(repo, paygate.NewRegistry(), testKey)

	// signature computed over 9.99, amount swapped to 79.99
	form := signedCallback(t, uuid.New(), "PO-1003", "9.99", gkash.StatusPaid)
	form.Set("amount", "79.99")

	_, err := svc.ReconcileGkashCallback(context.Background(), form)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestReconcileIgnoresUnpaidStatus(t *testing.T) {
	repo := newFakeRecorder()
	svc := NewService(repo, paygate.NewRegistry(), testKey)

	form := signedCallback(t, uuid.New(), "PO-1004", "9.99", "11 - Pending")

	_, err := svc.ReconcileGkashCallback(context.Background(), form)
	if !errors.Is(err, ErrNotPaid) {
		t.Fatalf("err = %v, want ErrNotPaid", err)
	}
	if len(repo.byPOID) != 0 {
		t.Error("payment recorded for unpaid status")
	}
}

func TestReconcileReplayIsIdempotent(t *testing.T) {
	repo := newFakeRecorder()
	svc := NewService(repo, paygate.NewRegistry(), testKey)
	userID := uuid.New()

	form := signedCallback(t, userID, "PO-1005", "39.99", gkash.StatusPaid)

	first, err := svc.ReconcileGkashCallback(context.Background(), form)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if first.CreditsAdded != 50 {
		t.Errorf("credits added = %d, want 50", first.CreditsAdded)
	}

	second, err := svc.ReconcileGkashCallback(context.Background(), form)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.AlreadySeen {
		t.Error("replay not flagged")
	}
	if repo.balance != 50 {
		t.Errorf("balance = %d after replay, want 50", repo.balance)
	}
}

func TestReconcileUnknownAmount(t *testing.T) {
	repo := newFakeRecorder()
	svc := NewService(repo, paygate.NewRegistry(), testKey)

	form := signedCallback(t, uuid.New(), "PO-1006", "12.34", gkash.StatusPaid)

	_, err := svc.ReconcileGkashCallback(context.Background(), form)
	if !errors.Is(err, ErrUnknownPackage) {
		t.Fatalf("err = %v, want ErrUnknownPackage", err)
	}
}

func TestReconcileMalformedCartID(t *testing.T) {
	repo := newFakeRecorder()
	svc := NewService(repo, paygate.NewRegistry(), testKey)

	// sign over the malformed cart id so only the cart id check fires
	cartID := "no-separator-here"
	base := gkash.BuildSignatureBase(testKey, "M102", "PO-1007", cartID, 999, "MYR", gkash.StatusPaid)
	form := url.Values{}
	form.Set("CID", "M102")
	form.Set("POID", "PO-1007")
	form.Set("status", gkash.StatusPaid)
	form.Set("cartid", cartID)
	form.Set("currency", "MYR")
	form.Set("amount", "9.99")
	form.Set("signature", gkash.Sign(base))

	_, err := svc.ReconcileGkashCallback(context.Background(), form)
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("err = %v, want ErrUnknownUser", err)
	}
}

func TestVerifyReturn(t *testing.T) {
	svc := NewService(newFakeRecorder(), paygate.NewRegistry(), testKey)

	paidForm := signedCallback(t, uuid.New(), "PO-1008", "9.99", gkash.StatusPaid)
	paid, err := svc.VerifyReturn(paidForm)
	if err != nil {
		t.Fatalf("verify paid return: %v", err)
	}
	if !paid {
		t.Error("paid return reported unpaid")
	}

	failedForm := signedCallback(t, uuid.New(), "PO-1009", "9.99", "66 - Failed")
	paid, err = svc.VerifyReturn(failedForm)
	if err != nil {
		t.Fatalf("verify failed return: %v", err)
	}
	if paid {
		t.Error("failed return reported paid")
	}

	badForm := signedCallback(t, uuid.New(), "PO-1010", "9.99", gkash.StatusPaid)
	badForm.Set("signature", "forged")
	if _, err := svc.VerifyReturn(badForm); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("forged return err = %v, want ErrInvalidSignature", err)
	}
}

func TestPurchasePackage(t *testing.T) {
	repo := newFakeRecorder()
	registry := paygate.NewRegistry()
	registry.Register(paygate.NewMockProvider(paygate.ProviderStripe))
	svc := NewService(repo, registry, testKey)
	userID := uuid.New()

	result, err := svc.PurchasePackage(context.Background(), userID, "bulk", paygate.ProviderStripe)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if result.CreditsAdded != 100 {
		t.Errorf("credits added = %d, want 100", result.CreditsAdded)
	}
	if result.Balance != 100 {
		t.Errorf("balance = %d, want 100", result.Balance)
	}
	if result.Payment.Provider != paygate.ProviderStripe {
		t.Errorf("provider = %q, want stripe", result.Payment.Provider)
	}
	if result.Payment.AmountCents != 7999 {
		t.Errorf("amount = %d, want 7999", result.Payment.AmountCents)
	}
}

func TestPurchaseUnknownPackage(t *testing.T) {
	svc := NewService(newFakeRecorder(), paygate.NewRegistry(), testKey)

	_, err := svc.PurchasePackage(context.Background(), uuid.New(), "mega", paygate.ProviderStripe)
	if !errors.Is(err, ErrUnknownPackage) {
		t.Fatalf("err = %v, want ErrUnknownPackage", err)
	}
}

func TestPurchaseUnknownProvider(t *testing.T) {
	svc := NewService(newFakeRecorder(), paygate.NewRegistry(), testKey)

	_, err := svc.PurchasePackage(context.Background(), uuid.New(), "starter", "bitcoin")
	if err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestPurchaseIDsAreUnique(t *testing.T) {
	repo := newFakeRecorder()
	registry := paygate.NewRegistry()
	registry.Register(paygate.NewMockProvider(paygate.ProviderPayPal))
	svc := NewService(repo, registry, testKey)
	userID := uuid.New()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		result, err := svc.PurchasePackage(context.Background(), userID, "starter", paygate.ProviderPayPal)
		if err != nil {
			t.Fatalf("purchase %d: %v", i, err)
		}
		poid := result.Payment.ProviderPaymentID
		if seen[poid] {
			t.Fatalf("duplicate provider payment id %q", poid)
		}
		seen[poid] = true
	}

	if repo.balance != 50 {
		t.Errorf("balance = %d after 5 starter purchases, want 50", repo.balance)
	}
}
