// Package credentials defines the credential shapes used by the integration
// nodes and the resolver contract the platform's credential store fulfils.
// Credentials are resolved once per run, before the execution loop starts,
// never per item.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/wehubfusion/Talos/pkg/rest"
)

// Jenkins holds the credential fields for a Jenkins CI server.
type Jenkins struct {
	Username string `json:"username"`
	APIKey   string `json:"apiKey"`
	BaseURL  string `json:"baseUrl"`
}

// BambooHR holds the credential fields for a BambooHR company account.
type BambooHR struct {
	Subdomain string `json:"subdomain"`
	APIKey    string `json:"apiKey"`
}

// Resolver supplies decrypted credential payloads by type and name.
// Implementations are provided by the platform's credential store.
type Resolver interface {
	Resolve(ctx context.Context, credentialType, name string) (json.RawMessage, error)
}

// Static is an in-memory Resolver used by tests and standalone runs.
type Static struct {
	mu    sync.RWMutex
	creds map[string]json.RawMessage
}

// NewStatic creates an empty static resolver.
func NewStatic() *Static {
	return &Static{creds: make(map[string]json.RawMessage)}
}

// Add stores a credential under type and name.
func (s *Static) Add(credentialType, name string, cred any) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[credentialType+"/"+name] = data
	return nil
}

// Resolve implements Resolver.
func (s *Static) Resolve(_ context.Context, credentialType, name string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.creds[credentialType+"/"+name]
	if !ok {
		return nil, fmt.Errorf("credential %q of type %q not found", name, credentialType)
	}
	return data, nil
}

// Decode unmarshals a resolved credential payload into a typed shape.
func Decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode credential: %w", err)
	}
	return nil
}

// Test verifies the Jenkins credential with a basic-auth request against
// the instance's XML API root.
func (c Jenkins) Test(ctx context.Context, opts ...rest.Option) error {
	adapter := rest.NewAdapter(c.BaseURL, &rest.BasicAuth{Username: c.Username, Password: c.APIKey}, opts...)
	_, err := adapter.Do(ctx, rest.Request{Method: http.MethodGet, Endpoint: "/api/xml"})
	return err
}

// BaseURL returns the BambooHR API gateway root for the account subdomain.
func (c BambooHR) BaseURL() string {
	return fmt.Sprintf("https://api.bamboohr.com/api/gateway.php/%s/v1", c.Subdomain)
}

// Test verifies the BambooHR credential by listing the employee directory.
// BambooHR basic auth takes the API key as username and any string as
// password.
func (c BambooHR) Test(ctx context.Context, opts ...rest.Option) error {
	adapter := rest.NewAdapter(c.BaseURL(), &rest.BasicAuth{Username: c.APIKey, Password: "x"}, opts...)
	_, err := adapter.Do(ctx, rest.Request{
		Method:   http.MethodGet,
		Endpoint: "/employees/directory",
		Headers:  map[string]string{"Accept": "application/json"},
	})
	return err
}
