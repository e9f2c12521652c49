package domain

import "time"

// Person is a federated identity known to this pod: a local user holding a
// private key, or a remote contact for which only the public key is known.
type Person struct {
	GUID       string `json:"guid"`
	DiasporaID string `json:"diaspora_id"`
	Pod        string `json:"pod"`
	URL        string `json:"url"`
	// PublicKeyPEM is the PKIX public key, PEM encoded.
	PublicKeyPEM string `json:"public_key"`
	// PrivateKeyPEM is set for local users only and never leaves the pod.
	PrivateKeyPEM string `json:"-"`
}

// Local reports whether the pod holds the person's private key.
func (p Person) Local() bool { return p.PrivateKeyPEM != "" }

// ReceivedEntity is the persisted record of one entity accepted by the
// receive pipeline.
type ReceivedEntity struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entity_type"`
	GUID       string    `json:"guid,omitempty"`
	Author     string    `json:"author"`
	// Body is the JSON wire form of the entity.
	Body       string    `json:"body"`
	Private    bool      `json:"private"`
	ReceivedAt time.Time `json:"received_at"`
}

// Event is the realtime notification published when an entity is accepted.
type Event struct {
	Channel    string `json:"channel"`
	EntityType string `json:"entity_type"`
	Identity   string `json:"identity"`
	Body       string `json:"body"`
}
