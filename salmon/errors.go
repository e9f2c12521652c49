package salmon

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic handling with errors.Is.
var (
	// ErrSignatureVerification indicates the envelope signature does not
	// verify against the sender's public key. The payload must not be
	// trusted.
	ErrSignatureVerification = errors.New("signature verification failed")

	// ErrDecryptionFailed indicates the encrypted payload or its wrapped
	// key could not be decrypted.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// MalformedEnvelopeError reports an envelope that is structurally unusable:
// missing fields, bad base64, or undecodable framing.
type MalformedEnvelopeError struct {
	Reason string
}

func (e MalformedEnvelopeError) Error() string {
	if e.Reason == "" {
		return "malformed envelope"
	}
	return fmt.Sprintf("malformed envelope: %s", e.Reason)
}

// Is enables errors.Is matching on MalformedEnvelopeError.
func (e MalformedEnvelopeError) Is(target error) bool {
	_, ok := target.(MalformedEnvelopeError)
	if ok {
		return true
	}
	_, ok = target.(*MalformedEnvelopeError)
	return ok
}

// ErrMalformedEnvelope is the sentinel error for unparsable envelopes.
var ErrMalformedEnvelope = MalformedEnvelopeError{}
