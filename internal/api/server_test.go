package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/config"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/cover"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/effects"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/geom"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"
)

type testEnv struct {
	srv    *httptest.Server
	viewer *scene.Token
	target *scene.Token
}

// setupServer builds a server over a walled scene: viewer and target
// separated by a sight-blocking wall.
func setupServer(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := effects.NewStatusStore(db)
	require.NoError(t, err)

	sc := scene.New("test", geom.Grid{Type: geom.SquareGrid, Size: 10})
	viewer := scene.NewToken("viewer", geom.Rect{X: 0, Y: 0, W: 10, H: 10}, 0, 10)
	target := scene.NewToken("target", geom.Rect{X: 50, Y: 0, W: 10, H: 10}, 0, 10)
	sc.AddToken(viewer)
	sc.AddToken(target)
	sc.AddWall(scene.NewWall(30, -50, 30, 50))

	local := &effects.LocalDispatcher{Scene: sc, Store: store}
	server := NewServer(sc, config.Defaults(), effects.NewManager(local), local)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: ts, viewer: viewer, target: target}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestTargetCoverEndpoint(t *testing.T) {
	env := setupServer(t)
	base := env.srv.URL + "/api/cover/" + env.viewer.ID + "/" + env.target.ID

	t.Run("wall grants high cover", func(t *testing.T) {
		var out map[string]string
		code := getJSON(t, base+"?algorithm=center-center", &out)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, map[string]string{"cover": "high"}, out)
	})

	t.Run("query flag overrides walls off", func(t *testing.T) {
		var out map[string]string
		code := getJSON(t, base+"?algorithm=center-center&walls=false", &out)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "none", out["cover"])
	})

	t.Run("unknown algorithm is a bad request", func(t *testing.T) {
		var out map[string]string
		code := getJSON(t, base+"?algorithm=psychic", &out)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.NotEmpty(t, out["error"])
	})

	t.Run("area strategy without collaborator is unprocessable", func(t *testing.T) {
		var out map[string]string
		code := getJSON(t, base+"?algorithm=area-2d", &out)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	})
}

func TestCoverCalculationsEndpoint(t *testing.T) {
	env := setupServer(t)

	var out map[string]string
	code := getJSON(t, env.srv.URL+"/api/cover/"+env.viewer.ID+"?algorithm=center-center", &out)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{env.target.ID: "high"}, out)
}

func TestEffectsEndpoints(t *testing.T) {
	env := setupServer(t)
	url := env.srv.URL + "/api/effects/" + env.target.ID

	resp, err := http.Post(url, "application/json", strings.NewReader(`{"category":"medium"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var active []string
	getJSON(t, url, &active)
	assert.Equal(t, []string{"medium"}, active)

	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getJSON(t, url, &active)
	assert.Empty(t, active)
}

func TestEnableCoverRejectsBadBody(t *testing.T) {
	env := setupServer(t)
	url := env.srv.URL + "/api/effects/" + env.target.ID

	resp, err := http.Post(url, "application/json", strings.NewReader(`{"category":"granite"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(url, "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestActionChannel drives the websocket endpoint through the remote
// dispatcher, the same path a privilege-limited peer uses.
func TestActionChannel(t *testing.T) {
	env := setupServer(t)
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/actions"

	remote, err := effects.DialRemote(wsURL)
	require.NoError(t, err)
	defer remote.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, remote.Apply(ctx, env.target.ID, cover.High))

	var active []string
	getJSON(t, env.srv.URL+"/api/effects/"+env.target.ID, &active)
	assert.Equal(t, []string{"high"}, active)

	require.NoError(t, remote.Remove(ctx, env.target.ID, cover.High))
	getJSON(t, env.srv.URL+"/api/effects/"+env.target.ID, &active)
	assert.Empty(t, active)

	// Invalid categories are rejected by the server-side re-validation.
	err = remote.Apply(ctx, env.target.ID, cover.Category(42))
	assert.Error(t, err)
}
