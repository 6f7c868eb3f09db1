package gkash

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
)

const testKey = "test-signature-key"

func signedEvent(t *testing.T, amount, status string) url.Values {
	t.Helper()

	cents, err := ParseAmountCents(amount)
	if err != nil {
		t.Fatalf("bad test amount: %v", err)
	}

	form := url.Values{}
	form.Set("CID", "M102-U888")
	form.Set("POID", "PO-20250828-001")
	form.Set("status", status)
	form.Set("cartid", "credits__"+uuid.Nil.String())
	form.Set("currency", "MYR")
	form.Set("amount", amount)
	form.Set("signature", Sign(BuildSignatureBase(
		testKey, form.Get("CID"), form.Get("POID"), form.Get("cartid"), cents, "MYR", status,
	)))
	return form
}

func TestParseCallbackForm_RequiredFields(t *testing.T) {
	form := signedEvent(t, "39.99", StatusPaid)

	ev, err := ParseCallbackForm(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.POID != "PO-20250828-001" || ev.Amount != "39.99" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	form.Del("POID")
	if _, err := ParseCallbackForm(form); err == nil {
		t.Fatal("expected error for missing POID")
	}
}

func TestVerify_AcceptsValidSignature(t *testing.T) {
	ev, err := ParseCallbackForm(signedEvent(t, "39.99", StatusPaid))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !ev.Verify(testKey) {
		t.Fatal("expected valid signature to verify")
	}
	if ev.Verify("wrong-key") {
		t.Fatal("expected verification with wrong key to fail")
	}
	if !ev.IsPaid() {
		t.Fatal("expected paid status")
	}
}

func TestVerify_AcceptsOverpreciseAmount(t *testing.T) {
	// signature computed over 3999 cents, amount sent with a trailing zero
	form := signedEvent(t, "39.99", StatusPaid)
	form.Set("amount", "39.990")

	ev, err := ParseCallbackForm(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ev.Verify(testKey) {
		t.Fatal("expected rounded amount to verify")
	}
}

func TestVerify_RejectsTamperedAmount(t *testing.T) {
	form := signedEvent(t, "9.99", StatusPaid)
	form.Set("amount", "0.99")

	ev, err := ParseCallbackForm(form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Verify(testKey) {
		t.Fatal("expected tampered amount to invalidate signature")
	}
}

func TestUserIDFromCartID(t *testing.T) {
	want := uuid.New()

	got, err := UserIDFromCartID("credits__" + want.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	if _, err := UserIDFromCartID("no-delimiter"); err == nil {
		t.Fatal("expected error for cart id without delimiter")
	}
	if _, err := UserIDFromCartID("credits__not-a-uuid"); err == nil {
		t.Fatal("expected error for non-uuid account id")
	}
}

func TestParseAmountCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"9.99", 999, false},
		{"39.99", 3999, false},
		{"79.99", 7999, false},
		{"10", 1000, false},
		{"0.05", 5, false},
		{"9.9", 990, false},
		{"39.990", 3999, false},
		{"39.994", 3999, false},
		{"39.995", 4000, false},
		{"9.999", 1000, false},
		{"", 0, true},
		{"-1.00", 0, true},
		{"abc", 0, true},
		{"9.9x", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseAmountCents(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAmountCents(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmountCents(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAmountCents(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
