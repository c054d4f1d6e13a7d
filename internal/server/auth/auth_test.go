package auth

import (
	"errors"
	"testing"
)

func TestDeviceToken_RoundTrip(t *testing.T) {
	svc := New(&Config{SharedSecret: "super-secret"})

	token, err := svc.IssueToken("device-a")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	deviceID, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if deviceID != "device-a" {
		t.Fatalf("got device id %q, want device-a", deviceID)
	}
}

func TestVerify_RejectsTamperedHMAC(t *testing.T) {
	svc := New(&Config{SharedSecret: "super-secret"})
	token, _ := svc.IssueToken("device-a")

	tampered := token[:len(token)-1] + "0"
	if tampered == token {
		tampered = token[:len(token)-1] + "1"
	}

	if _, err := svc.Verify(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	issuer := New(&Config{SharedSecret: "secret-a"})
	verifier := New(&Config{SharedSecret: "secret-b"})

	token, _ := issuer.IssueToken("device-a")
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected token minted under a different secret to be rejected")
	}
}

func TestVerify_RejectsMissingColon(t *testing.T) {
	svc := New(&Config{SharedSecret: "secret"})
	if _, err := svc.Verify("not-a-valid-token"); !errors.Is(err, ErrInvalidTokenFormat) {
		t.Fatalf("got %v, want ErrInvalidTokenFormat", err)
	}
}

func TestVerify_RejectsEmptyDeviceID(t *testing.T) {
	svc := New(&Config{SharedSecret: "secret"})
	if _, err := svc.Verify(":abc123"); !errors.Is(err, ErrEmptyDeviceID) {
		t.Fatalf("got %v, want ErrEmptyDeviceID", err)
	}
}

func TestVerify_OnlyAcceptsDocumentedConstruction(t *testing.T) {
	// P6: accepts exactly the tokens produced by NewDeviceToken.
	svc := New(&Config{SharedSecret: "secret"})
	want := NewDeviceToken("device-z", "secret")
	got, err := svc.Verify(want)
	if err != nil || got != "device-z" {
		t.Fatalf("Verify(%q) = (%q, %v), want (device-z, nil)", want, got, err)
	}

	forged := "device-z:0000000000000000000000000000000000000000000000000000000000000000"
	if _, err := svc.Verify(forged); err == nil {
		t.Fatal("expected forged token to be rejected")
	}
}
