package usecase

import (
	"context"

	pkgerrors "github.com/pkg/errors"

	"github.com/wisteria-social/federation"
	"github.com/wisteria-social/federation/salmon"
)

// DeliveryUsecase is the outbound mirror of reception: it builds signed
// envelopes for local authors, encrypted when addressed to a single
// recipient. Actual transport stays with the caller.
type DeliveryUsecase struct {
	registry *federation.Registry
	persons  PersonRepository
}

func NewDeliveryUsecase(registry *federation.Registry, persons PersonRepository) *DeliveryUsecase {
	return &DeliveryUsecase{registry: registry, persons: persons}
}

// BuildPublic constructs the entity and wraps it in a signed broadcast
// envelope for the given local author.
func (uc *DeliveryUsecase) BuildPublic(ctx context.Context, typeName string, fields map[string]any, authorID string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Delivery.Usecase.BuildPublic")
	defer span.End()

	entity, err := uc.registry.New(typeName, fields)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	priv, err := uc.persons.PrivateKey(ctx, authorID)
	if err != nil {
		span.RecordError(err)
		return nil, pkgerrors.Wrap(err, "author private key")
	}

	env, err := salmon.Build(entity, authorID, priv)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return env.Bytes()
}

// BuildPrivate constructs the entity and wraps it in an envelope encrypted
// for recipientID, resolving the recipient's public key first.
func (uc *DeliveryUsecase) BuildPrivate(ctx context.Context, typeName string, fields map[string]any, authorID, recipientID string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Delivery.Usecase.BuildPrivate")
	defer span.End()

	entity, err := uc.registry.New(typeName, fields)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	priv, err := uc.persons.PrivateKey(ctx, authorID)
	if err != nil {
		span.RecordError(err)
		return nil, pkgerrors.Wrap(err, "author private key")
	}

	pub, err := uc.persons.PublicKey(ctx, recipientID)
	if err != nil {
		span.RecordError(err)
		return nil, pkgerrors.Wrap(err, "recipient public key")
	}

	env, err := salmon.BuildEncrypted(entity, authorID, priv, pub)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return env.Bytes()
}
