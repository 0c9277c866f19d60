package authproto_test

import (
	"testing"
	"time"

	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/authproto"
	"github.com/tomjoyce1/filevault/pkg/keybundle"
)

func TestCanonicalRequestFormat(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := authproto.CanonicalRequest("alice", ts, "POST", "/api/fs/upload", `{"a":1}`)
	want := `alice|2026-01-02T03:04:05Z|POST|/api/fs/upload|{"a":1}`
	if got != want {
		t.Errorf("CanonicalRequest() = %q, want %q", got, want)
	}
}

func fullVerification(t *testing.T, username, method, path, body string, ts time.Time, kb *keybundle.KeyBundle, now time.Time) error {
	t.Helper()
	headers, err := authproto.BuildHeaders(username, ts, method, path, body, kb.Signer.Classical, kb.Signer.PostQuantum)
	if err != nil {
		t.Fatalf("BuildHeaders failed: %v", err)
	}

	v := authproto.NewVerification()
	parsed, err := v.ParseHeaders(headers[authproto.HeaderUsername], headers[authproto.HeaderTimestamp], headers[authproto.HeaderSignature])
	if err != nil {
		return err
	}
	if err := v.CheckFreshness(parsed, now); err != nil {
		return err
	}

	pubJSON, _ := kb.ToPublicJSON()
	pub, err := keybundle.ImportPublicBundle(pubJSON)
	if err != nil {
		t.Fatalf("ImportPublicBundle failed: %v", err)
	}
	if err := v.VerifySignatures(parsed, method, path, body, pub); err != nil {
		return err
	}
	if err := v.Authorize(); err != nil {
		return err
	}
	if v.State() != authproto.StateAuthorized {
		t.Errorf("final state = %v, want Authorized", v.State())
	}
	return nil
}

func TestVerificationHappyPath(t *testing.T) {
	kb, _ := keybundle.GenerateKeyBundle()
	now := time.Now()
	err := fullVerification(t, "alice", "POST", "/api/fs/upload", `{"a":1}`, now, kb, now)
	if err != nil {
		t.Fatalf("verification failed: %v", err)
	}
}

func TestVerificationRejectsExpiredTimestamp(t *testing.T) {
	kb, _ := keybundle.GenerateKeyBundle()
	signedAt := time.Now().Add(-5 * time.Minute)
	err := fullVerification(t, "alice", "POST", "/api/fs/upload", `{}`, signedAt, kb, time.Now())
	var authErr *verrors.AuthError
	if !verrors.As(err, &authErr) || authErr.Kind != verrors.AuthExpired {
		t.Errorf("expected AuthExpired, got %v", err)
	}
}

func TestCheckFreshnessRejectsExactBoundary(t *testing.T) {
	v := authproto.NewVerification()
	parsed, err := v.ParseHeaders("alice", time.Now().Format(time.RFC3339), "YQ==||Yg==")
	if err != nil {
		t.Fatalf("ParseHeaders failed: %v", err)
	}
	now := parsed.Timestamp.Add(60 * time.Second)
	err = v.CheckFreshness(parsed, now)
	var authErr *verrors.AuthError
	if !verrors.As(err, &authErr) || authErr.Kind != verrors.AuthExpired {
		t.Errorf("expected AuthExpired at exact 60s skew, got %v", err)
	}
}

func TestVerificationRejectsTamperedBody(t *testing.T) {
	kb, _ := keybundle.GenerateKeyBundle()
	now := time.Now()
	headers, _ := authproto.BuildHeaders("alice", now, "POST", "/api/fs/upload", `{"a":1}`, kb.Signer.Classical, kb.Signer.PostQuantum)

	v := authproto.NewVerification()
	parsed, err := v.ParseHeaders(headers[authproto.HeaderUsername], headers[authproto.HeaderTimestamp], headers[authproto.HeaderSignature])
	if err != nil {
		t.Fatalf("ParseHeaders failed: %v", err)
	}
	if err := v.CheckFreshness(parsed, now); err != nil {
		t.Fatalf("CheckFreshness failed: %v", err)
	}

	pubJSON, _ := kb.ToPublicJSON()
	pub, _ := keybundle.ImportPublicBundle(pubJSON)

	err = v.VerifySignatures(parsed, "POST", "/api/fs/upload", `{"a":2}`, pub)
	var authErr *verrors.AuthError
	if !verrors.As(err, &authErr) || authErr.Kind != verrors.AuthSignatureInvalid {
		t.Errorf("expected AuthSignatureInvalid for tampered body, got %v", err)
	}
}

func TestParseHeadersRejectsMissing(t *testing.T) {
	v := authproto.NewVerification()
	_, err := v.ParseHeaders("", "123", "a||b")
	var authErr *verrors.AuthError
	if !verrors.As(err, &authErr) || authErr.Kind != verrors.AuthMissing {
		t.Errorf("expected AuthMissing, got %v", err)
	}
}

func TestParseHeadersRejectsMalformedSignature(t *testing.T) {
	v := authproto.NewVerification()
	_, err := v.ParseHeaders("alice", time.Now().Format(time.RFC3339), "only-one-part")
	var authErr *verrors.AuthError
	if !verrors.As(err, &authErr) || authErr.Kind != verrors.AuthMalformed {
		t.Errorf("expected AuthMalformed, got %v", err)
	}
}

func TestStateMachineRejectsOutOfOrderCalls(t *testing.T) {
	kb, _ := keybundle.GenerateKeyBundle()
	now := time.Now()
	headers, _ := authproto.BuildHeaders("alice", now, "POST", "/x", "{}", kb.Signer.Classical, kb.Signer.PostQuantum)

	v := authproto.NewVerification()
	parsed, _ := v.ParseHeaders(headers[authproto.HeaderUsername], headers[authproto.HeaderTimestamp], headers[authproto.HeaderSignature])

	pubJSON, _ := kb.ToPublicJSON()
	pub, _ := keybundle.ImportPublicBundle(pubJSON)

	// Skipping CheckFreshness must not allow VerifySignatures to proceed.
	if err := v.VerifySignatures(parsed, "POST", "/x", "{}", pub); err == nil {
		t.Error("VerifySignatures should fail when called out of order")
	}
}
