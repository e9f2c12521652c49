// Package salmon builds and opens magic envelopes: signed, optionally
// encrypted containers transporting one serialized entity between pods.
//
// The signature covers the base64url payload together with the payload type,
// encoding and algorithm identifiers, so an opened envelope is processed
// strictly as decode, verify over the (possibly still encrypted) payload,
// decrypt, deserialize.
package salmon

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/wisteria-social/federation"
	"github.com/wisteria-social/federation/xmlwire"
)

const (
	// PayloadType identifies the inner serialization of the payload.
	PayloadType = "application/xml"
	// Encoding identifies the payload transfer encoding.
	Encoding = "base64url"
	// Algorithm identifies the signature scheme.
	Algorithm = "RSA-SHA256"
	// Cipher identifies the symmetric cipher of encrypted envelopes.
	Cipher = "AES-256-GCM"
)

var b64 = base64.RawURLEncoding

// Envelope is the signed container for one serialized entity. It is built
// once at send time and parsed once at receive time; fields are never
// mutated in between.
type Envelope struct {
	AuthorID    string `json:"author_id"`
	PayloadType string `json:"payload_type"`
	Encoding    string `json:"encoding"`
	Algorithm   string `json:"algorithm"`
	Signature   string `json:"signature"`
	Data        string `json:"data"`
	WrappedKey  string `json:"wrapped_key,omitempty"`
	Cipher      string `json:"cipher,omitempty"`
}

// Encrypted reports whether the payload is ciphertext carrying a wrapped key.
func (env *Envelope) Encrypted() bool { return env.WrappedKey != "" }

// Bytes returns the wire form of the envelope.
func (env *Envelope) Bytes() ([]byte, error) {
	return json.Marshal(env)
}

// Build serializes the entity and wraps it in a signed public envelope.
func Build(entity *federation.Entity, authorID string, priv *rsa.PrivateKey) (*Envelope, error) {
	payload, err := xmlwire.Marshal(entity)
	if err != nil {
		return nil, err
	}
	return assemble(payload, authorID, priv, "")
}

// BuildEncrypted serializes the entity, encrypts it with a fresh random
// symmetric key, wraps that key for the recipient and signs the resulting
// ciphertext.
func BuildEncrypted(entity *federation.Entity, authorID string, priv *rsa.PrivateKey, recipient *rsa.PublicKey) (*Envelope, error) {
	payload, err := xmlwire.Marshal(entity)
	if err != nil {
		return nil, err
	}

	key, err := newSymmetricKey()
	if err != nil {
		return nil, err
	}
	ciphertext, err := aesEncrypt(key, payload)
	if err != nil {
		return nil, err
	}
	wrapped, err := wrapKey(recipient, key)
	if err != nil {
		return nil, err
	}

	env, err := assemble(ciphertext, authorID, priv, b64.EncodeToString(wrapped))
	if err != nil {
		return nil, err
	}
	return env, nil
}

func assemble(payload []byte, authorID string, priv *rsa.PrivateKey, wrappedKey string) (*Envelope, error) {
	env := &Envelope{
		AuthorID:    authorID,
		PayloadType: PayloadType,
		Encoding:    Encoding,
		Algorithm:   Algorithm,
		Data:        b64.EncodeToString(payload),
		WrappedKey:  wrappedKey,
	}
	if wrappedKey != "" {
		env.Cipher = Cipher
	}

	digest := sha256.Sum256([]byte(env.signingInput()))
	signature, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return nil, err
	}
	env.Signature = b64.EncodeToString(signature)
	return env, nil
}

// signingInput is the canonical concatenation the signature covers.
func (env *Envelope) signingInput() string {
	return strings.Join([]string{
		env.Data,
		b64.EncodeToString([]byte(env.PayloadType)),
		b64.EncodeToString([]byte(env.Encoding)),
		b64.EncodeToString([]byte(env.Algorithm)),
	}, ".")
}

// Parse decodes the envelope structure without trusting it. Only structural
// checks happen here; nothing about the payload is believed until Verify
// passes.
func Parse(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, MalformedEnvelopeError{Reason: err.Error()}
	}

	switch {
	case env.AuthorID == "":
		return nil, MalformedEnvelopeError{Reason: "missing author_id"}
	case env.Signature == "":
		return nil, MalformedEnvelopeError{Reason: "missing signature"}
	case env.Data == "":
		return nil, MalformedEnvelopeError{Reason: "missing data"}
	case env.PayloadType != PayloadType:
		return nil, MalformedEnvelopeError{Reason: "unsupported payload type " + env.PayloadType}
	case env.Encoding != Encoding:
		return nil, MalformedEnvelopeError{Reason: "unsupported encoding " + env.Encoding}
	case env.Algorithm != Algorithm:
		return nil, MalformedEnvelopeError{Reason: "unsupported algorithm " + env.Algorithm}
	}
	if env.Encrypted() && env.Cipher != Cipher {
		return nil, MalformedEnvelopeError{Reason: "unsupported cipher " + env.Cipher}
	}

	if _, err := b64.DecodeString(env.Data); err != nil {
		return nil, MalformedEnvelopeError{Reason: "data is not base64url"}
	}
	if _, err := b64.DecodeString(env.Signature); err != nil {
		return nil, MalformedEnvelopeError{Reason: "signature is not base64url"}
	}
	if env.WrappedKey != "" {
		if _, err := b64.DecodeString(env.WrappedKey); err != nil {
			return nil, MalformedEnvelopeError{Reason: "wrapped_key is not base64url"}
		}
	}

	return &env, nil
}

// Verify checks the signature against the sender's public key. It covers the
// payload exactly as carried, ciphertext included.
func (env *Envelope) Verify(pub *rsa.PublicKey) error {
	signature, err := b64.DecodeString(env.Signature)
	if err != nil {
		return MalformedEnvelopeError{Reason: "signature is not base64url"}
	}
	digest := sha256.Sum256([]byte(env.signingInput()))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature); err != nil {
		return ErrSignatureVerification
	}
	return nil
}

// Open verifies the envelope, decrypts it when necessary and deserializes
// the inner payload into an entity. recipient may be nil for public
// envelopes; for encrypted ones a missing or wrong recipient key yields
// ErrDecryptionFailed.
func (env *Envelope) Open(reg *federation.Registry, pub *rsa.PublicKey, recipient *rsa.PrivateKey) (*federation.Entity, error) {
	if err := env.Verify(pub); err != nil {
		return nil, err
	}

	payload, err := b64.DecodeString(env.Data)
	if err != nil {
		return nil, MalformedEnvelopeError{Reason: "data is not base64url"}
	}

	if env.Encrypted() {
		if recipient == nil {
			return nil, ErrDecryptionFailed
		}
		wrapped, err := b64.DecodeString(env.WrappedKey)
		if err != nil {
			return nil, MalformedEnvelopeError{Reason: "wrapped_key is not base64url"}
		}
		key, err := unwrapKey(recipient, wrapped)
		if err != nil {
			return nil, err
		}
		payload, err = aesDecrypt(key, payload)
		if err != nil {
			return nil, err
		}
	}

	return xmlwire.Unmarshal(reg, payload)
}
