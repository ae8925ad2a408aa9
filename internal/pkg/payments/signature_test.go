package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)
	secret := "whsec_test"

	tests := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{name: "valid", signature: signPayload(payload, secret), secret: secret, want: true},
		{name: "valid uppercase hex", signature: "" + upper(signPayload(payload, secret)), secret: secret, want: true},
		{name: "wrong secret", signature: signPayload(payload, "other"), secret: secret, want: false},
		{name: "tampered payload signature", signature: signPayload([]byte(`{}`), secret), secret: secret, want: false},
		{name: "empty signature", signature: "", secret: secret, want: false},
		{name: "empty secret", signature: signPayload(payload, secret), secret: "", want: false},
		{name: "not hex", signature: "zzzz", secret: secret, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyWebhookSignature(payload, tt.signature, tt.secret); got != tt.want {
				t.Fatalf("VerifyWebhookSignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func TestClassifyEventType(t *testing.T) {
	tests := []struct {
		in   string
		want eventKind
	}{
		{in: "checkout.completed", want: eventKindSucceeded},
		{in: "payment.succeeded", want: eventKindSucceeded},
		{in: "Payment.Succeeded", want: eventKindSucceeded},
		{in: "payment.failed", want: eventKindFailed},
		{in: "customer.updated", want: eventKindIgnored},
		{in: "", want: eventKindIgnored},
	}

	for _, tt := range tests {
		if got := classifyEventType(tt.in); got != tt.want {
			t.Fatalf("classifyEventType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseGatewayEvent(t *testing.T) {
	ev, err := ParseGatewayEvent([]byte(`{
		"id": "evt_42",
		"type": "payment.succeeded",
		"data": {"object": {"id": "pi_9", "amount": 12900, "currency": "gbp", "metadata": {"user_id": "7"}}}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID != "evt_42" || ev.IntentRef() != "pi_9" {
		t.Fatalf("unexpected event fields: %+v", ev)
	}
	userID, err := ev.OwnerUserID()
	if err != nil || userID != 7 {
		t.Fatalf("OwnerUserID() = %d, %v", userID, err)
	}

	if _, err := ParseGatewayEvent([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if _, err := ParseGatewayEvent([]byte(`{"id":"evt_1"}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
}
