// Package client talks to other pods over HTTP: it fetches person records
// so their public keys can verify inbound envelopes, and posts envelopes to
// remote reception endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	defaultTimeout = 10 * time.Second
)

// Person is the wire form served by GET /people/{diaspora_id}.
type Person struct {
	GUID       string `json:"guid"`
	DiasporaID string `json:"diaspora_id"`
	Pod        string `json:"pod"`
	URL        string `json:"url"`
	PublicKey  string `json:"public_key"`
}

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
}

func New(fqdn string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		userAgent: "wisteria (https://" + fqdn + "/)",
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// FetchPerson resolves a diaspora ID against the pod named in its domain
// part. Results are cached for a few minutes.
func (c *Client) FetchPerson(ctx context.Context, diasporaID string) (Person, error) {

	cacheKey := "person:" + diasporaID
	x, found := c.cache.Get(cacheKey)
	if found {
		return x.(Person), nil
	}

	pod, err := podOf(diasporaID)
	if err != nil {
		return Person{}, err
	}

	endpoint := "https://" + pod + "/people/" + url.PathEscape(diasporaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Person{}, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Person{}, fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Person{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var person Person
	err = json.NewDecoder(resp.Body).Decode(&person)
	if err != nil {
		return Person{}, fmt.Errorf("failed to decode response: %v", err)
	}
	if person.Pod == "" {
		person.Pod = pod
	}

	c.cache.Set(cacheKey, person, cache.DefaultExpiration)

	return person, nil
}

// DeliverPublic posts a broadcast envelope to a remote pod.
func (c *Client) DeliverPublic(ctx context.Context, pod string, envelope []byte) error {
	return c.deliver(ctx, "https://"+pod+"/receive/public", envelope)
}

// DeliverPrivate posts an encrypted envelope to a recipient's pod inbox.
func (c *Client) DeliverPrivate(ctx context.Context, pod string, recipientGUID string, envelope []byte) error {
	return c.deliver(ctx, "https://"+pod+"/receive/users/"+url.PathEscape(recipientGUID), envelope)
}

func (c *Client) deliver(ctx context.Context, endpoint string, envelope []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(envelope))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/magic-envelope+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

func podOf(diasporaID string) (string, error) {
	_, pod, ok := strings.Cut(diasporaID, "@")
	if !ok || pod == "" {
		return "", fmt.Errorf("invalid diaspora id: %s", diasporaID)
	}
	return pod, nil
}
