package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetChangedRealms(t *testing.T) {
	var gotSince string
	var gotToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSince = r.URL.Query().Get("since")
		gotToken = r.Header.Get("X-Service-Token")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"realms": []MirroredRealm{
				{
					ID:        "aaaaaaaa-0000-0000-0000-000000000001",
					Reference: "realm-pubkey-1",
					Name:      "Example DAO",
					OwnerID:   "bbbbbbbb-0000-0000-0000-000000000002",
					IsActive:  true,
				},
			},
		})
	}))
	defer srv.Close()

	w := NewRealmSyncWorker(nil, srv.URL, "/api/v1/public/realms", "secret-token")
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	realms, err := w.GetChangedRealms(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, realms, 1)
	assert.Equal(t, "realm-pubkey-1", realms[0].Reference)
	assert.Equal(t, "bbbbbbbb-0000-0000-0000-000000000002", realms[0].OwnerID)
	assert.Equal(t, "2026-01-02T03:04:05Z", gotSince)
	assert.Equal(t, "secret-token", gotToken)
}

func TestGetChangedRealmsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	w := NewRealmSyncWorker(nil, srv.URL, "/api/v1/public/realms", "bad-token")
	_, err := w.GetChangedRealms(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
