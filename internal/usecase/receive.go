package usecase

import (
	"context"
	"crypto/rsa"
	"errors"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wisteria-social/federation"
	"github.com/wisteria-social/federation/internal/domain"
	"github.com/wisteria-social/federation/jsonwire"
	"github.com/wisteria-social/federation/receiver"
)

var tracer = otel.Tracer("usecase")

// ReceiveUsecase runs inbound envelopes through the federation receiver and
// persists what comes out. Duplicate envelopes are dropped before any
// cryptographic work happens.
type ReceiveUsecase struct {
	registry *federation.Registry
	persons  PersonRepository
	entities EntityRepository
	dedup    DedupRepository
	signal   SignalPublisher
}

func NewReceiveUsecase(
	registry *federation.Registry,
	persons PersonRepository,
	entities EntityRepository,
	dedup DedupRepository,
	signal SignalPublisher,
) *ReceiveUsecase {
	return &ReceiveUsecase{
		registry: registry,
		persons:  persons,
		entities: entities,
		dedup:    dedup,
		signal:   signal,
	}
}

// ReceivePublic processes one broadcast envelope.
func (uc *ReceiveUsecase) ReceivePublic(ctx context.Context, raw []byte) error {
	ctx, span := tracer.Start(ctx, "Receive.Usecase.ReceivePublic")
	defer span.End()

	if err := uc.checkDuplicate(ctx, raw); err != nil {
		span.RecordError(err)
		return err
	}

	rec := receiver.NewPublic(uc.registry, uc.callbacks(false))
	if err := rec.Receive(ctx, raw); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// ReceivePrivate processes one encrypted envelope addressed to a local user.
func (uc *ReceiveUsecase) ReceivePrivate(ctx context.Context, raw []byte, recipientID string) error {
	ctx, span := tracer.Start(ctx, "Receive.Usecase.ReceivePrivate")
	defer span.End()
	span.SetAttributes(attribute.String("recipient", recipientID))

	if err := uc.checkDuplicate(ctx, raw); err != nil {
		span.RecordError(err)
		return err
	}

	rec := receiver.NewPrivate(uc.registry, uc.callbacks(true))
	if err := rec.Receive(ctx, raw, recipientID); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Recent lists the latest accepted entities.
func (uc *ReceiveUsecase) Recent(ctx context.Context, limit int) ([]domain.ReceivedEntity, error) {
	return uc.entities.Recent(ctx, limit)
}

func (uc *ReceiveUsecase) checkDuplicate(ctx context.Context, raw []byte) error {
	digest := strconv.FormatUint(xxh3.Hash(raw), 16)
	fresh, err := uc.dedup.MarkSeen(ctx, digest)
	if err != nil {
		return pkgerrors.Wrap(err, "dedup check")
	}
	if !fresh {
		return domain.DuplicateError{Digest: digest}
	}
	return nil
}

// callbacks bridges the federation receiver to the pod's repositories.
func (uc *ReceiveUsecase) callbacks(private bool) receiver.Callbacks {
	return receiver.Callbacks{
		FetchPublicKey: func(ctx context.Context, authorID string) (*rsa.PublicKey, error) {
			key, err := uc.persons.PublicKey(ctx, authorID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil
			}
			return key, err
		},
		FetchPrivateKey: func(ctx context.Context, recipientID string) (*rsa.PrivateKey, error) {
			key, err := uc.persons.PrivateKey(ctx, recipientID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil
			}
			return key, err
		},
		SaveEntity: func(ctx context.Context, entity *federation.Entity) error {
			return uc.store(ctx, entity, private)
		},
	}
}

func (uc *ReceiveUsecase) store(ctx context.Context, entity *federation.Entity, private bool) error {
	body, err := jsonwire.Marshal(entity)
	if err != nil {
		return pkgerrors.Wrap(err, "serialize entity")
	}

	received := domain.ReceivedEntity{
		EntityType: entity.TypeName(),
		Author:     authorOf(entity),
		Body:       string(body),
		Private:    private,
		ReceivedAt: time.Now(),
	}
	if guid, ok := entity.Lookup("guid"); ok {
		received.GUID = guid.Str()
	}

	saved, err := uc.entities.Save(ctx, received)
	if err != nil {
		return pkgerrors.Wrap(err, "save entity")
	}

	if uc.signal != nil {
		event := domain.Event{
			Channel:    domain.ChannelEntities,
			EntityType: saved.EntityType,
			Identity:   entity.String(),
			Body:       saved.Body,
		}
		if err := uc.signal.Publish(ctx, domain.ChannelEntities, event); err != nil {
			return pkgerrors.Wrap(err, "publish signal")
		}
	}
	return nil
}

func authorOf(entity *federation.Entity) string {
	if v, ok := entity.Lookup("author"); ok {
		return v.Str()
	}
	return ""
}
