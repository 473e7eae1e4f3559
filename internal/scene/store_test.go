package scene

import (
	"database/sql"
	"image"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/geom"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	require.NoError(t, err)
	return store
}

func TestSceneRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	s := New("courtyard", geom.Grid{Type: geom.HexRowsGrid, Size: 10})
	wall := NewWall(0, 0, 0, 50)
	wall.Blocking[Light] = true
	s.AddWall(wall)

	alpha := image.NewAlpha(image.Rect(0, 0, 2, 2))
	alpha.Pix = []uint8{0, 255, 128, 64}
	tile := NewTile(10, 10, 20, 20, 15)
	tile.Alpha = alpha
	s.AddTile(tile)

	tok := NewToken("guard", geom.Rect{X: 20, Y: 20, W: 10, H: 10}, 0, 10)
	tok.Prone = true
	s.AddToken(tok)
	poly := &Token{
		ID:   "poly-token",
		Name: "blob",
		Shape: geom.PolygonShape{Points: geom.Polygon{
			{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 10},
		}},
		BottomZ: 0, TopZ: 5, Defeated: true,
	}
	s.AddToken(poly)

	require.NoError(t, store.SaveScene(s))

	loaded, err := store.LoadScene(s.ID)
	require.NoError(t, err)

	assert.Equal(t, s.Name, loaded.Name)
	assert.Equal(t, s.Grid, loaded.Grid)

	walls := loaded.Walls()
	require.Len(t, walls, 1)
	if diff := cmp.Diff(wall, walls[0]); diff != "" {
		t.Errorf("wall mismatch (-want +got):\n%s", diff)
	}

	tiles := loaded.Tiles()
	require.Len(t, tiles, 1)
	assert.Equal(t, tile.Elevation, tiles[0].Elevation)
	require.NotNil(t, tiles[0].Alpha)
	assert.Equal(t, alpha.Pix, tiles[0].Alpha.Pix)

	require.Len(t, loaded.Tokens(), 2)
	got := loaded.Token(tok.ID)
	require.NotNil(t, got)
	assert.True(t, got.Prone)
	assert.Equal(t, tok.Shape, got.Shape)

	gotPoly := loaded.Token("poly-token")
	require.NotNil(t, gotPoly)
	assert.True(t, gotPoly.Defeated)
	assert.Equal(t, poly.Shape, gotPoly.Shape)
}

func TestSaveSceneReplaces(t *testing.T) {
	store := setupTestStore(t)

	s := New("arena", geom.Grid{Type: geom.SquareGrid, Size: 10})
	s.AddWall(NewWall(0, 0, 10, 0))
	require.NoError(t, store.SaveScene(s))

	s.AddWall(NewWall(0, 0, 0, 10))
	require.NoError(t, store.SaveScene(s))

	loaded, err := store.LoadScene(s.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Walls(), 2)

	scenes, err := store.ListScenes()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{s.ID: "arena"}, scenes)
}

func TestLoadSceneMissing(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.LoadScene("nope")
	assert.Error(t, err)
}
