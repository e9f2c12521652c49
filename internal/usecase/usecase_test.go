package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"

	"github.com/wisteria-social/federation"
	"github.com/wisteria-social/federation/internal/domain"
	"github.com/wisteria-social/federation/receiver"
)

var (
	keyOnce  sync.Once
	aliceKey *rsa.PrivateKey
	bobKey   *rsa.PrivateKey
)

func testKeys(t *testing.T) (alice, bob *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		aliceKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		bobKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return aliceKey, bobKey
}

type mockPersons struct {
	public  map[string]*rsa.PublicKey
	private map[string]*rsa.PrivateKey
}

func (m *mockPersons) Get(ctx context.Context, id string) (domain.Person, error) {
	if _, ok := m.public[id]; !ok {
		return domain.Person{}, domain.NotFoundError{Resource: id}
	}
	return domain.Person{DiasporaID: id}, nil
}

func (m *mockPersons) GetByGUID(ctx context.Context, guid string) (domain.Person, error) {
	return domain.Person{}, domain.NotFoundError{Resource: guid}
}

func (m *mockPersons) Register(ctx context.Context, person domain.Person) error {
	return nil
}

func (m *mockPersons) PublicKey(ctx context.Context, id string) (*rsa.PublicKey, error) {
	key, ok := m.public[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: id}
	}
	return key, nil
}

func (m *mockPersons) PrivateKey(ctx context.Context, id string) (*rsa.PrivateKey, error) {
	key, ok := m.private[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: id}
	}
	return key, nil
}

type mockEntities struct {
	saved []domain.ReceivedEntity
	err   error
}

func (m *mockEntities) Save(ctx context.Context, r domain.ReceivedEntity) (domain.ReceivedEntity, error) {
	if m.err != nil {
		return domain.ReceivedEntity{}, m.err
	}
	r.ID = int64(len(m.saved) + 1)
	m.saved = append(m.saved, r)
	return r, nil
}

func (m *mockEntities) Recent(ctx context.Context, limit int) ([]domain.ReceivedEntity, error) {
	if limit > len(m.saved) {
		limit = len(m.saved)
	}
	return m.saved[:limit], nil
}

type mockDedup struct {
	seen map[string]bool
	err  error
}

func (m *mockDedup) MarkSeen(ctx context.Context, digest string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[digest] {
		return false, nil
	}
	m.seen[digest] = true
	return true, nil
}

type mockSignal struct {
	events []domain.Event
}

func (m *mockSignal) Publish(ctx context.Context, channel string, event domain.Event) error {
	m.events = append(m.events, event)
	return nil
}

func newFixture(t *testing.T) (*ReceiveUsecase, *DeliveryUsecase, *mockEntities, *mockSignal) {
	t.Helper()
	alice, bob := testKeys(t)

	persons := &mockPersons{
		public: map[string]*rsa.PublicKey{
			"alice@remote.example": &alice.PublicKey,
			"bob@local.example":    &bob.PublicKey,
		},
		private: map[string]*rsa.PrivateKey{
			"alice@remote.example": alice,
			"bob@local.example":    bob,
		},
	}
	entities := &mockEntities{}
	signal := &mockSignal{}

	reg := federation.Social()
	receiveUC := NewReceiveUsecase(reg, persons, entities, &mockDedup{}, signal)
	deliveryUC := NewDeliveryUsecase(reg, persons)
	return receiveUC, deliveryUC, entities, signal
}

func commentFields() map[string]any {
	return map[string]any{
		"guid":        "comment000000001",
		"parent_guid": "post000000000001",
		"author":      "alice@remote.example",
		"text":        "well said",
		"created_at":  "2026-08-29T10:00:00Z",
	}
}

func TestReceivePublicRoundTrip(t *testing.T) {
	receiveUC, deliveryUC, entities, signal := newFixture(t)
	ctx := context.Background()

	raw, err := deliveryUC.BuildPublic(ctx, "Comment", commentFields(), "alice@remote.example")
	if err != nil {
		t.Fatalf("build public: %v", err)
	}

	if err := receiveUC.ReceivePublic(ctx, raw); err != nil {
		t.Fatalf("receive public: %v", err)
	}

	if len(entities.saved) != 1 {
		t.Fatalf("expected 1 saved entity, got %d", len(entities.saved))
	}
	saved := entities.saved[0]
	if saved.EntityType != "Comment" {
		t.Errorf("entity type: %s", saved.EntityType)
	}
	if saved.GUID != "comment000000001" {
		t.Errorf("guid: %s", saved.GUID)
	}
	if saved.Author != "alice@remote.example" {
		t.Errorf("author: %s", saved.Author)
	}
	if saved.Private {
		t.Errorf("broadcast entity stored as private")
	}

	if len(signal.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(signal.events))
	}
	if signal.events[0].Identity != "Comment:comment000000001" {
		t.Errorf("event identity: %s", signal.events[0].Identity)
	}
}

func TestReceivePrivateRoundTrip(t *testing.T) {
	receiveUC, deliveryUC, entities, _ := newFixture(t)
	ctx := context.Background()

	raw, err := deliveryUC.BuildPrivate(ctx, "Comment", commentFields(), "alice@remote.example", "bob@local.example")
	if err != nil {
		t.Fatalf("build private: %v", err)
	}

	if err := receiveUC.ReceivePrivate(ctx, raw, "bob@local.example"); err != nil {
		t.Fatalf("receive private: %v", err)
	}

	if len(entities.saved) != 1 {
		t.Fatalf("expected 1 saved entity, got %d", len(entities.saved))
	}
	if !entities.saved[0].Private {
		t.Errorf("encrypted entity stored as public")
	}
}

func TestReceiveDuplicateDropped(t *testing.T) {
	receiveUC, deliveryUC, entities, _ := newFixture(t)
	ctx := context.Background()

	raw, err := deliveryUC.BuildPublic(ctx, "Comment", commentFields(), "alice@remote.example")
	if err != nil {
		t.Fatalf("build public: %v", err)
	}

	if err := receiveUC.ReceivePublic(ctx, raw); err != nil {
		t.Fatalf("first receive: %v", err)
	}
	err = receiveUC.ReceivePublic(ctx, raw)
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if len(entities.saved) != 1 {
		t.Fatalf("duplicate was saved, have %d entities", len(entities.saved))
	}
}

func TestReceiveUnknownSender(t *testing.T) {
	receiveUC, _, entities, _ := newFixture(t)
	ctx := context.Background()

	fields := commentFields()
	fields["author"] = "stranger@elsewhere.example"
	stranger, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	reg := federation.Social()
	strangers := &mockPersons{
		public:  map[string]*rsa.PublicKey{"stranger@elsewhere.example": &stranger.PublicKey},
		private: map[string]*rsa.PrivateKey{"stranger@elsewhere.example": stranger},
	}
	raw, err := NewDeliveryUsecase(reg, strangers).BuildPublic(ctx, "Comment", fields, "stranger@elsewhere.example")
	if err != nil {
		t.Fatalf("build public: %v", err)
	}

	err = receiveUC.ReceivePublic(ctx, raw)
	if !errors.Is(err, receiver.ErrSenderKeyNotFound) {
		t.Fatalf("expected ErrSenderKeyNotFound, got %v", err)
	}
	if len(entities.saved) != 0 {
		t.Fatalf("entity from unknown sender was saved")
	}
}

func TestBuildPublicRejectsInvalidEntity(t *testing.T) {
	_, deliveryUC, _, _ := newFixture(t)

	fields := commentFields()
	delete(fields, "text")
	_, err := deliveryUC.BuildPublic(context.Background(), "Comment", fields, "alice@remote.example")
	if !errors.Is(err, federation.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestBuildPrivateUnknownRecipient(t *testing.T) {
	_, deliveryUC, _, _ := newFixture(t)

	_, err := deliveryUC.BuildPrivate(context.Background(), "Comment", commentFields(), "alice@remote.example", "nobody@nowhere.example")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecentDelegates(t *testing.T) {
	receiveUC, deliveryUC, _, _ := newFixture(t)
	ctx := context.Background()

	raw, err := deliveryUC.BuildPublic(ctx, "Comment", commentFields(), "alice@remote.example")
	if err != nil {
		t.Fatalf("build public: %v", err)
	}
	if err := receiveUC.ReceivePublic(ctx, raw); err != nil {
		t.Fatalf("receive public: %v", err)
	}

	recent, err := receiveUC.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 recent entity, got %d", len(recent))
	}
}
