package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/agentbridge/banking"
	"github.com/room4-2/agentbridge/functions"
	"github.com/room4-2/agentbridge/messages"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDial_SendsTokenSubprotocol(t *testing.T) {
	gotProtocols := make(chan []string, 1)
	upgrader := websocket.Upgrader{Subprotocols: []string{"token"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProtocols <- websocket.Subprotocols(r)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Welcome"}`))
	}))
	defer srv.Close()

	conn, err := Dial(context.Background(), wsURL(srv), "secret-key")
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, []string{"token", "secret-key"}, <-gotProtocols)
	assert.Equal(t, "token", conn.Subprotocol())

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Welcome"}`, string(data))
}

func TestDial_ReportsRejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), wsURL(srv), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "invalid credentials")
}

func testRegistry(t *testing.T) *functions.Registry {
	t.Helper()
	reg, err := functions.NewRegistry(banking.Functions(banking.NewLedger(banking.DemoAccounts()))...)
	require.NoError(t, err)
	return reg
}

func TestDefaultSettings(t *testing.T) {
	data, err := LoadSettings("", testRegistry(t))
	require.NoError(t, err)

	var s map[string]any
	require.NoError(t, messages.Decode(data, &s))
	assert.Equal(t, "Settings", s["type"])

	audio := s["audio"].(map[string]any)
	assert.Equal(t, map[string]any{"encoding": "mulaw", "sample_rate": float64(8000)}, audio["input"])
	assert.Equal(t, "none", audio["output"].(map[string]any)["container"])

	think := s["agent"].(map[string]any)["think"].(map[string]any)
	fns := think["functions"].([]any)
	require.Len(t, fns, 6)
	first := fns[0].(map[string]any)
	assert.Equal(t, "get_account_info", first["name"])
	assert.Equal(t, "object", first["parameters"].(map[string]any)["type"])
	assert.Equal(t, BankingPrompt, think["prompt"])
}

func TestLoadSettings_File(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "config.json")
	raw := `{"type":"Settings","agent":{"greeting":"hi"}}`
	require.NoError(t, os.WriteFile(good, []byte(raw), 0o600))
	data, err := LoadSettings(good, testRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, raw, string(data))

	wrong := filepath.Join(dir, "wrong.json")
	require.NoError(t, os.WriteFile(wrong, []byte(`{"type":"Welcome"}`), 0o600))
	_, err = LoadSettings(wrong, testRegistry(t))
	assert.ErrorContains(t, err, `type is "Welcome"`)

	_, err = LoadSettings(filepath.Join(dir, "missing.json"), testRegistry(t))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
