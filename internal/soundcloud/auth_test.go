package soundcloud

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func newTestTokenManager(t *testing.T, handler http.HandlerFunc) *TokenManager {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	m := NewTokenManager("cid", "secret", "http://localhost:5000/", "refresh-1", zap.NewNop())
	m.conf.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/authorize",
		TokenURL: srv.URL + "/oauth/token",
	}
	return m
}

func TestTokenExchangesOnFirstUse(t *testing.T) {
	var calls atomic.Int32
	m := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "refresh-1", r.FormValue("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "acc-1", "refresh_token": "refresh-2", "expires_in": 3600, "token_type": "Bearer"}`)
	})

	tok, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", tok)

	// Still valid: no second exchange.
	tok, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", tok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRefreshForcesNewToken(t *testing.T) {
	var calls atomic.Int32
	m := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token": "acc-%d", "refresh_token": "refresh-%d", "expires_in": 3600, "token_type": "Bearer"}`, n, n+1)
	})

	first, err := m.Token(context.Background())
	require.NoError(t, err)

	second, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRefreshTokenRotation(t *testing.T) {
	var sent []string
	m := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		sent = append(sent, r.FormValue("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		// Rotation on the first exchange, omitted on the second.
		if len(sent) == 1 {
			fmt.Fprint(w, `{"access_token": "acc-1", "refresh_token": "refresh-2", "expires_in": 3600, "token_type": "Bearer"}`)
		} else {
			fmt.Fprint(w, `{"access_token": "acc-2", "expires_in": 3600, "token_type": "Bearer"}`)
		}
	})

	_, err := m.Refresh(context.Background())
	require.NoError(t, err)
	_, err = m.Refresh(context.Background())
	require.NoError(t, err)
	_, err = m.Refresh(context.Background())
	require.NoError(t, err)

	// The rotated token is used from the second exchange on, and survives a
	// response that omits refresh_token.
	assert.Equal(t, []string{"refresh-1", "refresh-2", "refresh-2"}, sent)
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	m := NewTokenManager("cid", "secret", "http://localhost:5000/", "", zap.NewNop())
	_, err := m.Token(context.Background())
	assert.Error(t, err)
}
