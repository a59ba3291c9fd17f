// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-15
// Last Modified: 2026-10-15

package github

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return key, pemBytes
}

func TestAppTokenSource(t *testing.T) {
	key, _ := generateKey(t)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	src := &appTokenSource{appID: 42, key: key, now: func() time.Time { return now }}

	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, now.Add(8*time.Minute), tok.Expiry)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(tok.AccessToken, claims, func(*jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Issuer)
	assert.Equal(t, now.Add(-time.Minute).Unix(), claims.IssuedAt.Unix())
}

func TestNewAppClientRejectsBadKey(t *testing.T) {
	_, err := NewAppClient(context.Background(), 1, []byte("not a key"))
	assert.Error(t, err)
}

func TestAppClientInstallationFlow(t *testing.T) {
	key, pemBytes := generateKey(t)
	var tokenCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/app/installations/5/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		atomic.AddInt32(&tokenCalls, 1)

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return &key.PublicKey, nil
		})
		if !assert.NoError(t, err) || !assert.Equal(t, "42", claims.Issuer) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"token":"ghs_installation","expires_at":%q}`, time.Now().Add(time.Hour).UTC().Format(time.RFC3339))
	})
	mux.HandleFunc("/repos/acme/core/issues/3/labels", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ghs_installation", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[{"name":"port:develop"}]`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	app, err := NewAppClient(context.Background(), 42, pemBytes, WithBaseURL(server.URL))
	require.NoError(t, err)

	tok, status, err := app.CreateInstallationToken(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "ghs_installation", tok)
	assert.Equal(t, http.StatusCreated, status)

	client, err := app.InstallationClient(context.Background(), 5)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		labels, err := client.ListLabels(context.Background(), "acme", "core", 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"port:develop"}, labels)
	}

	// One token for the explicit call, one reused across both API calls.
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenCalls))
}

func TestCreateInstallationTokenReportsStatus(t *testing.T) {
	_, pemBytes := generateKey(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/app/installations/5/access_tokens", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"forbidden"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	app, err := NewAppClient(context.Background(), 42, pemBytes, WithBaseURL(server.URL))
	require.NoError(t, err)

	_, status, err := app.CreateInstallationToken(context.Background(), 5)
	assert.Error(t, err)
	assert.Equal(t, http.StatusForbidden, status)
}
