package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver(t *testing.T) {
	resolver := NewStatic()
	require.NoError(t, resolver.Add("jenkinsApi", "default", Jenkins{
		Username: "admin",
		APIKey:   "key",
		BaseURL:  "http://jenkins.local",
	}))

	raw, err := resolver.Resolve(context.Background(), "jenkinsApi", "default")
	require.NoError(t, err)

	var cred Jenkins
	require.NoError(t, Decode(raw, &cred))
	assert.Equal(t, "admin", cred.Username)
	assert.Equal(t, "http://jenkins.local", cred.BaseURL)

	_, err = resolver.Resolve(context.Background(), "jenkinsApi", "missing")
	assert.Error(t, err)
}

func TestJenkinsCredentialTest(t *testing.T) {
	var gotPath string
	var authed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		user, pass, ok := r.BasicAuth()
		authed = ok && user == "admin" && pass == "key"
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cred := Jenkins{Username: "admin", APIKey: "key", BaseURL: srv.URL}
	require.NoError(t, cred.Test(context.Background()))
	assert.Equal(t, "/api/xml", gotPath)
	assert.True(t, authed)
}

func TestJenkinsCredentialTestRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cred := Jenkins{Username: "admin", APIKey: "wrong", BaseURL: srv.URL}
	assert.Error(t, cred.Test(context.Background()))
}

func TestBambooHRBaseURL(t *testing.T) {
	cred := BambooHR{Subdomain: "acme", APIKey: "key"}
	assert.Equal(t, "https://api.bamboohr.com/api/gateway.php/acme/v1", cred.BaseURL())
}
