package usecase

import (
	"context"
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/wisteria-social/federation/internal/domain"
	"github.com/wisteria-social/federation/internal/keys"
)

// PersonUsecase manages local accounts and remote contact resolution.
type PersonUsecase struct {
	config  domain.Config
	persons PersonRepository
}

func NewPersonUsecase(config domain.Config, persons PersonRepository) *PersonUsecase {
	return &PersonUsecase{config: config, persons: persons}
}

// RegisterLocal creates a local account with a fresh RSA key pair.
func (uc *PersonUsecase) RegisterLocal(ctx context.Context, guid, username string) (domain.Person, error) {
	ctx, span := tracer.Start(ctx, "Person.Usecase.RegisterLocal")
	defer span.End()

	if uc.config.Registration == "close" {
		err := fmt.Errorf("registration is closed")
		span.RecordError(err)
		return domain.Person{}, err
	}

	priv, err := keys.Generate()
	if err != nil {
		span.RecordError(err)
		return domain.Person{}, pkgerrors.Wrap(err, "generate key pair")
	}
	pubPEM, err := keys.EncodePublic(&priv.PublicKey)
	if err != nil {
		span.RecordError(err)
		return domain.Person{}, pkgerrors.Wrap(err, "encode public key")
	}

	person := domain.Person{
		GUID:          guid,
		DiasporaID:    fmt.Sprintf("%s@%s", username, uc.config.FQDN),
		Pod:           uc.config.FQDN,
		URL:           fmt.Sprintf("https://%s/people/%s", uc.config.FQDN, guid),
		PublicKeyPEM:  pubPEM,
		PrivateKeyPEM: keys.EncodePrivate(priv),
	}

	if err := uc.persons.Register(ctx, person); err != nil {
		span.RecordError(err)
		return domain.Person{}, err
	}
	return person, nil
}

// Resolve looks a person up, consulting remote pods for unknown contacts.
func (uc *PersonUsecase) Resolve(ctx context.Context, diasporaID string) (domain.Person, error) {
	return uc.persons.Get(ctx, diasporaID)
}

// ResolveGUID looks a local user up by guid.
func (uc *PersonUsecase) ResolveGUID(ctx context.Context, guid string) (domain.Person, error) {
	return uc.persons.GetByGUID(ctx, guid)
}
