// Package permit2 is a token-approval authorization core: allowance-based
// delegated spending with per-(owner, token, spender) state and expiration,
// one-time signature-based transfers, and the nonce disciplines protecting
// both against replay. Value movement is delegated to a Ledger collaborator;
// the core never holds custody of funds.
package permit2

import "fmt"

// Class groups errors by how a caller should react to them.
type Class string

const (
	// ClassExpiry errors are recoverable by obtaining a fresh permit or
	// allowance. Never retried automatically.
	ClassExpiry Class = "expiry"
	// ClassReplay errors signal a stale client or a genuine replay attempt.
	ClassReplay Class = "replay"
	// ClassAuthorization errors are fatal; no partial trust.
	ClassAuthorization Class = "authorization"
	// ClassCapacity errors are fatal to the request but leave stored state
	// untouched.
	ClassCapacity Class = "capacity"
	// ClassShape errors indicate a malformed or tampered message.
	ClassShape Class = "shape"
	// ClassTransfer errors come from the ledger collaborator.
	ClassTransfer Class = "transfer"
)

// AuthError is an authorization failure with a stable code and a taxonomy
// class. The package-level sentinels below are the only instances; detail
// is attached by wrapping, never by mutating a sentinel.
type AuthError struct {
	Code  string
	Class Class
}

func (e *AuthError) Error() string {
	return e.Code
}

var (
	ErrAllowanceExpired = &AuthError{Code: "allowance_expired", Class: ClassExpiry}
	ErrSignatureExpired = &AuthError{Code: "signature_expired", Class: ClassExpiry}

	ErrNonceAlreadyUsed = &AuthError{Code: "nonce_already_used", Class: ClassReplay}
	ErrInvalidNonce     = &AuthError{Code: "invalid_nonce", Class: ClassReplay}

	ErrInvalidSignature         = &AuthError{Code: "invalid_signature", Class: ClassAuthorization}
	ErrInvalidSigner            = &AuthError{Code: "invalid_signer", Class: ClassAuthorization}
	ErrInvalidSignatureLength   = &AuthError{Code: "invalid_signature_length", Class: ClassAuthorization}
	ErrInvalidContractSignature = &AuthError{Code: "invalid_contract_signature", Class: ClassAuthorization}

	ErrInsufficientAllowance = &AuthError{Code: "insufficient_allowance", Class: ClassCapacity}
	ErrInvalidAmount         = &AuthError{Code: "invalid_amount", Class: ClassCapacity}
	ErrInvalidExpiration     = &AuthError{Code: "invalid_expiration", Class: ClassCapacity}
	ErrExcessiveInvalidation = &AuthError{Code: "excessive_invalidation", Class: ClassCapacity}

	ErrLengthMismatch      = &AuthError{Code: "length_mismatch", Class: ClassShape}
	ErrInvalidWitness      = &AuthError{Code: "invalid_witness", Class: ClassShape}
	ErrInvalidTypehashStub = &AuthError{Code: "invalid_typehash_stub", Class: ClassShape}

	ErrTransferFailed = &AuthError{Code: "transfer_failed", Class: ClassTransfer}
)

// errDetail wraps a sentinel with formatted context, keeping errors.Is
// identity intact.
func errDetail(base *AuthError, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{base}, args...)...)
}
