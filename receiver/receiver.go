// Package receiver is the inbound pipeline: parse envelope, resolve crypto
// material through host callbacks, verify, decrypt private payloads,
// deserialize, dispatch. Receivers hold no mutable state and are safe for
// concurrent use, provided the callbacks are.
package receiver

import (
	"context"
	"crypto/rsa"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wisteria-social/federation"
	"github.com/wisteria-social/federation/salmon"
)

var tracer = otel.Tracer("receiver")

// Callbacks is the capability set the host supplies. FetchPublicKey and
// SaveEntity are always required; FetchPrivateKey only for private
// reception. A fetch returning (nil, nil) means the key is unknown.
type Callbacks struct {
	FetchPublicKey  func(ctx context.Context, authorID string) (*rsa.PublicKey, error)
	FetchPrivateKey func(ctx context.Context, recipientID string) (*rsa.PrivateKey, error)
	SaveEntity      func(ctx context.Context, entity *federation.Entity) error
}

// PublicReceiver handles plaintext broadcast envelopes.
type PublicReceiver struct {
	registry  *federation.Registry
	callbacks Callbacks
}

// NewPublic returns a receiver for public envelopes.
func NewPublic(registry *federation.Registry, callbacks Callbacks) *PublicReceiver {
	return &PublicReceiver{registry: registry, callbacks: callbacks}
}

// Receive runs the full public pipeline on one raw envelope. Any failure
// aborts the whole operation; no partial entity ever reaches the host.
func (r *PublicReceiver) Receive(ctx context.Context, raw []byte) error {
	ctx, span := tracer.Start(ctx, "Receiver.Public.Receive")
	defer span.End()

	entity, err := receive(ctx, r.registry, r.callbacks, raw, "")
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.String("entity", entity.String()))
	if err := r.callbacks.SaveEntity(ctx, entity); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "save entity")
	}
	return nil
}

// PrivateReceiver handles encrypted point-to-point envelopes. It resolves
// the recipient's private key through the callbacks before the verified
// payload can be decrypted.
type PrivateReceiver struct {
	registry  *federation.Registry
	callbacks Callbacks
}

// NewPrivate returns a receiver for encrypted envelopes.
func NewPrivate(registry *federation.Registry, callbacks Callbacks) *PrivateReceiver {
	return &PrivateReceiver{registry: registry, callbacks: callbacks}
}

// Receive runs the full private pipeline on one raw envelope addressed to
// recipientID.
func (r *PrivateReceiver) Receive(ctx context.Context, raw []byte, recipientID string) error {
	ctx, span := tracer.Start(ctx, "Receiver.Private.Receive")
	defer span.End()

	if r.callbacks.FetchPrivateKey == nil {
		err := errors.New("private receiver requires a FetchPrivateKey callback")
		span.RecordError(err)
		return err
	}

	entity, err := receive(ctx, r.registry, r.callbacks, raw, recipientID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.String("entity", entity.String()))
	if err := r.callbacks.SaveEntity(ctx, entity); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "save entity")
	}
	return nil
}

func receive(ctx context.Context, reg *federation.Registry, cb Callbacks, raw []byte, recipientID string) (*federation.Entity, error) {
	env, err := salmon.Parse(raw)
	if err != nil {
		return nil, err
	}

	pub, err := cb.FetchPublicKey(ctx, env.AuthorID)
	if err != nil {
		return nil, errors.Wrap(err, "fetch public key")
	}
	if pub == nil {
		return nil, SenderKeyNotFoundError{AuthorID: env.AuthorID}
	}

	var priv *rsa.PrivateKey
	if recipientID != "" {
		priv, err = cb.FetchPrivateKey(ctx, recipientID)
		if err != nil {
			return nil, errors.Wrap(err, "fetch private key")
		}
		if priv == nil {
			return nil, RecipientKeyNotFoundError{RecipientID: recipientID}
		}
	}

	return env.Open(reg, pub, priv)
}
