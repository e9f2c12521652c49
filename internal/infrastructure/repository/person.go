package repository

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wisteria-social/federation/client"
	"github.com/wisteria-social/federation/internal/domain"
	"github.com/wisteria-social/federation/internal/infrastructure/database/models"
	"github.com/wisteria-social/federation/internal/keys"
)

const personCacheTTL = 600 // seconds

type PersonRepository struct {
	db     *gorm.DB
	mc     *memcache.Client
	client *client.Client
}

func NewPersonRepository(db *gorm.DB, mc *memcache.Client, cl *client.Client) *PersonRepository {
	return &PersonRepository{db: db, mc: mc, client: cl}
}

// Get returns the person with the given diaspora ID, resolving unknown
// remote contacts through their pod and caching what comes back.
func (r *PersonRepository) Get(ctx context.Context, diasporaID string) (domain.Person, error) {

	if cached, ok := r.fromCache(diasporaID); ok {
		return cached, nil
	}

	var person models.Person
	err := r.db.WithContext(ctx).First(&person, "diaspora_id = ?", diasporaID).Error
	if err == nil {
		found := fromModel(person)
		r.toCache(found)
		return found, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Person{}, err
	}

	remote, err := r.client.FetchPerson(ctx, diasporaID)
	if err != nil {
		return domain.Person{}, domain.NotFoundError{Resource: diasporaID}
	}

	fetched := models.Person{
		GUID:       remote.GUID,
		DiasporaID: remote.DiasporaID,
		Pod:        remote.Pod,
		URL:        remote.URL,
		PublicKey:  remote.PublicKey,
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "diaspora_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"guid", "pod", "url", "public_key"}),
	}).Create(&fetched).Error; err != nil {
		return domain.Person{}, err
	}

	found := fromModel(fetched)
	r.toCache(found)
	return found, nil
}

// GetByGUID returns a locally known person by guid. Remote resolution is
// not possible here, guids do not carry a pod name.
func (r *PersonRepository) GetByGUID(ctx context.Context, guid string) (domain.Person, error) {
	var person models.Person
	err := r.db.WithContext(ctx).First(&person, "guid = ?", guid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Person{}, domain.NotFoundError{Resource: guid}
	}
	if err != nil {
		return domain.Person{}, err
	}
	return fromModel(person), nil
}

// Register stores a person. Registering an already-known diaspora ID is a
// DuplicateError.
func (r *PersonRepository) Register(ctx context.Context, person domain.Person) error {
	model := models.Person{
		GUID:       person.GUID,
		DiasporaID: person.DiasporaID,
		Pod:        person.Pod,
		URL:        person.URL,
		PublicKey:  person.PublicKeyPEM,
		PrivateKey: person.PrivateKeyPEM,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "diaspora_id"}},
		DoNothing: true,
	}).Create(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.DuplicateError{Digest: person.DiasporaID}
	}

	r.mc.Delete(cacheKey(person.DiasporaID))
	return nil
}

// PublicKey resolves and parses the person's public key.
func (r *PersonRepository) PublicKey(ctx context.Context, diasporaID string) (*rsa.PublicKey, error) {
	person, err := r.Get(ctx, diasporaID)
	if err != nil {
		return nil, err
	}
	return keys.ParsePublic(person.PublicKeyPEM)
}

// PrivateKey returns the private key of a local user. Remote contacts yield
// ErrNotFound.
func (r *PersonRepository) PrivateKey(ctx context.Context, diasporaID string) (*rsa.PrivateKey, error) {
	person, err := r.Get(ctx, diasporaID)
	if err != nil {
		return nil, err
	}
	if !person.Local() {
		return nil, domain.NotFoundError{Resource: "private key for " + diasporaID}
	}
	return keys.ParsePrivate(person.PrivateKeyPEM)
}

func cacheKey(diasporaID string) string {
	return "person:" + diasporaID
}

func (r *PersonRepository) fromCache(diasporaID string) (domain.Person, bool) {
	if r.mc == nil {
		return domain.Person{}, false
	}
	item, err := r.mc.Get(cacheKey(diasporaID))
	if err != nil {
		return domain.Person{}, false
	}
	var person cachedPerson
	if err := json.Unmarshal(item.Value, &person); err != nil {
		return domain.Person{}, false
	}
	return domain.Person(person), true
}

func (r *PersonRepository) toCache(person domain.Person) {
	if r.mc == nil {
		return
	}
	value, err := json.Marshal(cachedPerson(person))
	if err != nil {
		return
	}
	r.mc.Set(&memcache.Item{
		Key:        cacheKey(person.DiasporaID),
		Value:      value,
		Expiration: personCacheTTL,
	})
}

// cachedPerson keeps the private key in the cache payload, unlike the
// json tags on domain.Person which hide it from API responses.
type cachedPerson struct {
	GUID          string `json:"guid"`
	DiasporaID    string `json:"diaspora_id"`
	Pod           string `json:"pod"`
	URL           string `json:"url"`
	PublicKeyPEM  string `json:"public_key"`
	PrivateKeyPEM string `json:"private_key,omitempty"`
}

func fromModel(model models.Person) domain.Person {
	return domain.Person{
		GUID:          model.GUID,
		DiasporaID:    model.DiasporaID,
		Pod:           model.Pod,
		URL:           model.URL,
		PublicKeyPEM:  model.PublicKey,
		PrivateKeyPEM: model.PrivateKey,
	}
}
