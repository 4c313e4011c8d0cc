package grimoire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/trustfang/pkg/events"
)

const (
	testUsername = "analyst"
	testPassword = "secret"

	testAccessToken    = "access-token-1"
	testRefreshToken   = "refresh-token-1"
	refreshedToken     = "access-token-2"
	testEventsCategory = "commit"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// tokenHandler serves the token endpoints with canned responses.
func tokenHandler(t *testing.T) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token/":
			var creds map[string]string

			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))

			if creds["username"] != testUsername || creds["password"] != testPassword {
				w.WriteHeader(http.StatusUnauthorized)

				return
			}

			writeJSON(t, w, tokenPair{Access: testAccessToken, Refresh: testRefreshToken})
		case "/token/refresh/":
			writeJSON(t, w, tokenPair{Access: refreshedToken})
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()

	c, err := NewClient(serverURL, testUsername, testPassword, opts...)
	require.NoError(t, err)

	return c
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient("/not/absolute", testUsername, testPassword)

	require.Error(t, err)
}

func TestClient_Connect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(tokenHandler(t))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, testAccessToken, c.accessToken)
	assert.Equal(t, testRefreshToken, c.refreshToken)
}

func TestClient_ConnectBadCredentials(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(tokenHandler(t))
	defer srv.Close()

	c, err := NewClient(srv.URL, testUsername, "wrong")
	require.NoError(t, err)

	require.ErrorIs(t, c.Connect(context.Background()), ErrAuthFailed)
}

func TestClient_GetRequiresConnect(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://localhost:1")

	_, err := c.Get(context.Background(), "events/")

	require.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_GetSendsBearerToken(t *testing.T) {
	t.Parallel()

	var gotAuth string

	mux := http.NewServeMux()
	mux.Handle("/token/", tokenHandler(t))
	mux.HandleFunc("/ping/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		fmt.Fprint(w, `{"ok":true}`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Connect(context.Background()))

	body, err := c.Get(context.Background(), "ping/")

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "Bearer "+testAccessToken, gotAuth)
}

func TestClient_RefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.Handle("/token/", tokenHandler(t))
	mux.Handle("/token/refresh/", tokenHandler(t))
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+refreshedToken {
			w.WriteHeader(http.StatusForbidden)

			return
		}

		fmt.Fprint(w, `{"fresh":true}`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Connect(context.Background()))

	body, err := c.Get(context.Background(), "data/")

	require.NoError(t, err)
	assert.JSONEq(t, `{"fresh":true}`, string(body))
	assert.Equal(t, refreshedToken, c.accessToken)
}

func TestClient_ForbiddenAfterRefresh(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.Handle("/token/", tokenHandler(t))
	mux.Handle("/token/refresh/", tokenHandler(t))
	mux.HandleFunc("/data/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Connect(context.Background()))

	_, err := c.Get(context.Background(), "data/")

	require.ErrorIs(t, err, ErrForbidden)
}

func TestClient_ServerErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var hits int

	mux := http.NewServeMux()
	mux.Handle("/token/", tokenHandler(t))
	mux.HandleFunc("/data/", func(w http.ResponseWriter, _ *http.Request) {
		hits++

		w.WriteHeader(http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Connect(context.Background()))

	_, err := c.Get(context.Background(), "data/")

	require.Error(t, err)
	assert.Equal(t, 1, hits)
}

func TestClient_FetchEventsPagination(t *testing.T) {
	t.Parallel()

	const pageSize = 2

	allEvents := []events.Envelope{
		{Type: events.EventTypeCommit, Data: events.CommitData{Author: "A <a@x.com>", Message: "one"}},
		{Type: events.EventTypeCommit, Data: events.CommitData{Author: "B <b@y.com>", Message: "two"}},
		{Type: events.EventTypeCommit, Data: events.CommitData{Author: "C <c@z.com>", Message: "three"}},
	}

	mux := http.NewServeMux()
	mux.Handle("/token/", tokenHandler(t))
	mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testEventsCategory, r.URL.Query().Get("category"))
		assert.Equal(t, strconv.Itoa(pageSize), r.URL.Query().Get("limit"))

		offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
		require.NoError(t, err)

		end := min(offset+pageSize, len(allEvents))
		if offset > len(allEvents) {
			offset = len(allEvents)
		}

		writeJSON(t, w, allEvents[offset:end])
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithPageSize(pageSize))
	require.NoError(t, c.Connect(context.Background()))

	var received []events.Envelope

	err := c.FetchEvents(context.Background(), testEventsCategory, func(batch []events.Envelope) error {
		received = append(received, batch...)

		return nil
	})

	require.NoError(t, err)
	require.Len(t, received, len(allEvents))
	assert.Equal(t, "one", received[0].Data.Message)
	assert.Equal(t, "three", received[2].Data.Message)
}

func TestClient_FetchEventsEmptyStream(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.Handle("/token/", tokenHandler(t))
	mux.HandleFunc("/events/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "[]")
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Connect(context.Background()))

	calls := 0

	err := c.FetchEvents(context.Background(), testEventsCategory, func([]events.Envelope) error {
		calls++

		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestClient_FetchEventsHandlerError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.Handle("/token/", tokenHandler(t))
	mux.HandleFunc("/events/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"type":"org.grimoirelab.events.git.commit","data":{"Author":"A <a@x.com>","message":"m"}}]`)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Connect(context.Background()))

	wantErr := fmt.Errorf("handler stop")

	err := c.FetchEvents(context.Background(), testEventsCategory, func([]events.Envelope) error {
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
}

func TestClient_TrailingSlashHandling(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://example.com/api")

	assert.True(t, strings.HasSuffix(c.baseURL.Path, "/"))
}
