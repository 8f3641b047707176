package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lanshare/lanshare/internal/store"
	"github.com/lanshare/lanshare/internal/token"
)

// testEnv bundles the collaborators most server tests need.
type testEnv struct {
	cfg   Config
	auth  *token.Authority
	files *store.FileStore
	hub   *Hub
	api   *API
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := *NewConfig()
	cfg.StorageDir = t.TempDir()

	auth := token.NewAuthority(cfg.TrustedPrefixes)
	files, err := store.New(cfg.StorageDir)
	require.NoError(t, err)

	hub := NewHub(nil)
	return &testEnv{
		cfg:   cfg,
		auth:  auth,
		files: files,
		hub:   hub,
		api:   NewAPI(cfg, auth, files, hub, nil),
	}
}

// newSession registers a connectionless client so registry and auth handling
// can be exercised without a network.
func (e *testEnv) newSession(addr string) *Client {
	c := NewClient(nil, e.hub, addr, e.auth, e.files, e.cfg)
	e.hub.Register(c)
	return c
}

// receivePayload decodes the next payload queued for the client, failing the
// test if nothing arrives in time.
func receivePayload(t *testing.T, c *Client) map[string]any {
	t.Helper()

	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg map[string]any
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

// requireNoPayload asserts that nothing is queued for the client.
func requireNoPayload(t *testing.T, c *Client) {
	t.Helper()

	select {
	case raw, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected payload: %s", raw)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

// buildMultipart assembles an upload form with the given token and named file
// parts.
func buildMultipart(t *testing.T, tok, fileField string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if tok != "" {
		require.NoError(t, w.WriteField("token", tok))
	}
	for name, data := range files {
		fw, err := w.CreateFormFile(fileField, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decodeJSONBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
