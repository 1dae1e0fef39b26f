package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/pttstar/internal/domain"
)

func TestReportActivityPostsJSON(t *testing.T) {
	got := make(chan domain.Activity, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/activity", r.URL.Path)
		var a domain.Activity
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		got <- a
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewClient(srv.URL+"/", time.Second).ReportActivity(context.Background(), domain.Activity{Callsign: "N0CALL", Talkgroup: "91"})
	require.NoError(t, err)
	a := <-got
	assert.Equal(t, "N0CALL", a.Callsign)
	assert.Equal(t, "91", a.Talkgroup)
	assert.False(t, a.At.IsZero(), "timestamp filled in")
}

func TestReportActivityRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).ReportActivity(context.Background(), domain.Activity{})
	assert.ErrorIs(t, err, ErrRejected)
}
