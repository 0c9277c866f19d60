// Package authproto implements the hybrid dual-signature request
// authentication scheme (C8): the canonical request string, the header
// encoding of both signatures, and the server-side verification state
// machine.
package authproto

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tomjoyce1/filevault/internal/constants"
	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/keybundle"
	"github.com/tomjoyce1/filevault/pkg/primitives"
	"github.com/tomjoyce1/filevault/pkg/signer"
)

// Header names carried on every mutating request.
const (
	HeaderUsername  = "X-Username"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"

	sigSeparator = "||"
)

// CanonicalRequest builds the string both signatures are computed over:
//
//	"{username}|{timestamp_iso8601Z}|{METHOD}|{path}|{body_string}"
func CanonicalRequest(username string, timestamp time.Time, method, path, body string) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", username, timestamp.UTC().Format(time.RFC3339), method, path, body)
}

// BuildHeaders signs the canonical request with both halves of the caller's
// hybrid signer and returns the three header values to attach.
func BuildHeaders(username string, timestamp time.Time, method, path, body string, classical *signer.ClassicalKeyPair, postQuantum *signer.PostQuantumKeyPair) (map[string]string, error) {
	canonical := []byte(CanonicalRequest(username, timestamp, method, path, body))

	preSig, err := classical.Sign(canonical)
	if err != nil {
		return nil, err
	}
	postSig, err := postQuantum.Sign(canonical)
	if err != nil {
		return nil, err
	}

	sigHeader := primitives.Base64Encode(preSig) + sigSeparator + primitives.Base64Encode(postSig)
	return map[string]string{
		HeaderUsername:  username,
		HeaderTimestamp: timestamp.UTC().Format(time.RFC3339),
		HeaderSignature: sigHeader,
	}, nil
}

// RequestState models the server-side verification pipeline. Each state
// transition is forward-only; any failure short-circuits the caller back to
// a 400/401 response without granting partial trust.
type RequestState int32

const (
	StateReceived RequestState = iota
	StateParsed
	StateFreshEnough
	StateVerified
	StateAuthorized
)

func (s RequestState) String() string {
	switch s {
	case StateReceived:
		return "Received"
	case StateParsed:
		return "Parsed"
	case StateFreshEnough:
		return "FreshEnough"
	case StateVerified:
		return "Verified"
	case StateAuthorized:
		return "Authorized"
	default:
		return "Unknown"
	}
}

// Verification tracks one request's progress through the state machine.
// It is not safe for concurrent use by multiple goroutines — one
// Verification is created per inbound request.
type Verification struct {
	state atomic.Int32
	Username string
}

// NewVerification starts a fresh verification in the Received state.
func NewVerification() *Verification {
	v := &Verification{}
	v.state.Store(int32(StateReceived))
	return v
}

// State returns the current state.
func (v *Verification) State() RequestState {
	return RequestState(v.state.Load())
}

func (v *Verification) advance(to RequestState) {
	v.state.Store(int32(to))
}

// ParsedRequest holds the header values after ParseHeaders succeeds.
type ParsedRequest struct {
	Username  string
	Timestamp time.Time
	PreSig    []byte
	PostSig   []byte
}

// ParseHeaders extracts and validates the three headers' syntax (not their
// cryptographic validity). Any malformed or missing header returns
// AuthError(Malformed) or AuthError(Missing) and leaves v in StateReceived.
func (v *Verification) ParseHeaders(username, timestampHeader, signatureHeader string) (*ParsedRequest, error) {
	if username == "" || timestampHeader == "" || signatureHeader == "" {
		return nil, verrors.NewAuthError(verrors.AuthMissing, nil)
	}

	timestamp, err := time.Parse(time.RFC3339, timestampHeader)
	if err != nil {
		return nil, verrors.NewAuthError(verrors.AuthMalformed, err)
	}
	timestamp = timestamp.UTC()

	parts := strings.Split(signatureHeader, sigSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, verrors.NewAuthError(verrors.AuthMalformed, nil)
	}
	preSig, err := primitives.Base64Decode(parts[0])
	if err != nil {
		return nil, verrors.NewAuthError(verrors.AuthMalformed, err)
	}
	postSig, err := primitives.Base64Decode(parts[1])
	if err != nil {
		return nil, verrors.NewAuthError(verrors.AuthMalformed, err)
	}

	v.Username = username
	v.advance(StateParsed)
	return &ParsedRequest{
		Username:  username,
		Timestamp: timestamp,
		PreSig:    preSig,
		PostSig:   postSig,
	}, nil
}

// CheckFreshness rejects requests whose signed timestamp is
// ReplayWindowSeconds or more away from now. Must be called after ParseHeaders.
func (v *Verification) CheckFreshness(parsed *ParsedRequest, now time.Time) error {
	if v.State() != StateParsed {
		return verrors.NewAuthError(verrors.AuthMalformed, nil)
	}
	skew := now.UTC().Sub(parsed.Timestamp)
	if skew < 0 {
		skew = -skew
	}
	if skew >= constants.ReplayWindowSeconds*time.Second {
		return verrors.NewAuthError(verrors.AuthExpired, nil)
	}
	v.advance(StateFreshEnough)
	return nil
}

// VerifySignatures recomputes the canonical request and checks both
// signatures against the claimed user's public bundle. Must be called
// after CheckFreshness.
func (v *Verification) VerifySignatures(parsed *ParsedRequest, method, path, body string, public *keybundle.PublicBundle) error {
	if v.State() != StateFreshEnough {
		return verrors.NewAuthError(verrors.AuthMalformed, nil)
	}

	classicalPub, err := public.ClassicalSigningPublicKey()
	if err != nil {
		return verrors.NewAuthError(verrors.AuthSignatureInvalid, err)
	}
	pqPub, err := public.PQSigningPublicKey()
	if err != nil {
		return verrors.NewAuthError(verrors.AuthSignatureInvalid, err)
	}

	canonical := []byte(CanonicalRequest(parsed.Username, parsed.Timestamp, method, path, body))
	if !signer.VerifyClassical(classicalPub, canonical, parsed.PreSig) {
		return verrors.NewAuthError(verrors.AuthSignatureInvalid, nil)
	}
	if !signer.VerifyPostQuantum(pqPub, canonical, parsed.PostSig) {
		return verrors.NewAuthError(verrors.AuthSignatureInvalid, nil)
	}

	v.advance(StateVerified)
	return nil
}

// Authorize marks the request as fully authorized for the given user after
// VerifySignatures has succeeded.
func (v *Verification) Authorize() error {
	if v.State() != StateVerified {
		return verrors.NewAuthError(verrors.AuthMalformed, nil)
	}
	v.advance(StateAuthorized)
	return nil
}
