package scene

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/geom"
)

// Store persists scenes (walls, tiles, tokens) in sqlite.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database and bootstraps the schema.
func NewStore(db *sql.DB) (*Store, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scenes (
			scene_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			grid_type INTEGER NOT NULL,
			grid_size REAL NOT NULL,
			created_at_ns INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS walls (
			wall_id TEXT PRIMARY KEY,
			scene_id TEXT NOT NULL,
			x0 REAL, y0 REAL, x1 REAL, y1 REAL,
			bottom_z REAL, top_z REAL,
			blocks_sight INTEGER NOT NULL,
			blocks_move INTEGER NOT NULL,
			blocks_light INTEGER NOT NULL,
			blocks_sound INTEGER NOT NULL,
			FOREIGN KEY(scene_id) REFERENCES scenes(scene_id)
		);
		CREATE TABLE IF NOT EXISTS tiles (
			tile_id TEXT PRIMARY KEY,
			scene_id TEXT NOT NULL,
			x REAL, y REAL, w REAL, h REAL,
			elevation REAL,
			alpha_w INTEGER,
			alpha_h INTEGER,
			alpha_pix BLOB,
			FOREIGN KEY(scene_id) REFERENCES scenes(scene_id)
		);
		CREATE TABLE IF NOT EXISTS tokens (
			token_id TEXT PRIMARY KEY,
			scene_id TEXT NOT NULL,
			name TEXT NOT NULL,
			shape_json TEXT NOT NULL,
			bottom_z REAL, top_z REAL,
			defeated INTEGER NOT NULL,
			prone INTEGER NOT NULL,
			FOREIGN KEY(scene_id) REFERENCES scenes(scene_id)
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create scene schema: %w", err)
	}
	return &Store{db: db}, nil
}

// shapeRecord is the JSON wire form of a footprint shape.
type shapeRecord struct {
	Type   string       `json:"type"` // "rect" or "polygon"
	X      float64      `json:"x,omitempty"`
	Y      float64      `json:"y,omitempty"`
	W      float64      `json:"w,omitempty"`
	H      float64      `json:"h,omitempty"`
	Points geom.Polygon `json:"points,omitempty"`
}

func encodeShape(s geom.Shape) ([]byte, error) {
	switch v := s.(type) {
	case geom.Rect:
		return json.Marshal(shapeRecord{Type: "rect", X: v.X, Y: v.Y, W: v.W, H: v.H})
	case geom.PolygonShape:
		return json.Marshal(shapeRecord{Type: "polygon", Points: v.Points})
	default:
		return nil, fmt.Errorf("unknown shape type %T", s)
	}
}

func decodeShape(data []byte) (geom.Shape, error) {
	var rec shapeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode shape: %w", err)
	}
	switch rec.Type {
	case "rect":
		return geom.Rect{X: rec.X, Y: rec.Y, W: rec.W, H: rec.H}, nil
	case "polygon":
		return geom.PolygonShape{Points: rec.Points}, nil
	default:
		return nil, fmt.Errorf("unknown shape type %q", rec.Type)
	}
}

// SaveScene writes the scene and all of its contents, replacing any prior
// rows for the same scene ID.
func (st *Store) SaveScene(s *Scene) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	tx, err := st.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin scene save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"walls", "tiles", "tokens", "scenes"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE scene_id = ?", s.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	_, err = tx.Exec(
		`INSERT INTO scenes (scene_id, name, grid_type, grid_size, created_at_ns) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Name, int(s.Grid.Type), s.Grid.Size, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert scene: %w", err)
	}

	for _, w := range s.Walls() {
		_, err = tx.Exec(
			`INSERT INTO walls (wall_id, scene_id, x0, y0, x1, y1, bottom_z, top_z,
				blocks_sight, blocks_move, blocks_light, blocks_sound)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.ID, s.ID, w.X0, w.Y0, w.X1, w.Y1, w.BottomZ, w.TopZ,
			boolInt(w.Blocking[Sight]), boolInt(w.Blocking[Move]),
			boolInt(w.Blocking[Light]), boolInt(w.Blocking[Sound]))
		if err != nil {
			return fmt.Errorf("failed to insert wall %s: %w", w.ID, err)
		}
	}

	for _, t := range s.Tiles() {
		var aw, ah int
		var pix []byte
		if t.Alpha != nil {
			aw = t.Alpha.Bounds().Dx()
			ah = t.Alpha.Bounds().Dy()
			pix = t.Alpha.Pix
		}
		_, err = tx.Exec(
			`INSERT INTO tiles (tile_id, scene_id, x, y, w, h, elevation, alpha_w, alpha_h, alpha_pix)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, s.ID, t.X, t.Y, t.W, t.H, t.Elevation, aw, ah, pix)
		if err != nil {
			return fmt.Errorf("failed to insert tile %s: %w", t.ID, err)
		}
	}

	for _, tok := range s.Tokens() {
		shape, err := encodeShape(tok.Shape)
		if err != nil {
			return fmt.Errorf("failed to encode token %s shape: %w", tok.ID, err)
		}
		_, err = tx.Exec(
			`INSERT INTO tokens (token_id, scene_id, name, shape_json, bottom_z, top_z, defeated, prone)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			tok.ID, s.ID, tok.Name, string(shape), tok.BottomZ, tok.TopZ,
			boolInt(tok.Defeated), boolInt(tok.Prone))
		if err != nil {
			return fmt.Errorf("failed to insert token %s: %w", tok.ID, err)
		}
	}

	return tx.Commit()
}

// LoadScene reads a scene and its contents by ID.
func (st *Store) LoadScene(sceneID string) (*Scene, error) {
	var name string
	var gridType int
	var gridSize float64
	err := st.db.QueryRow(
		`SELECT name, grid_type, grid_size FROM scenes WHERE scene_id = ?`, sceneID).
		Scan(&name, &gridType, &gridSize)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scene %s not found", sceneID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scene %s: %w", sceneID, err)
	}

	s := New(name, geom.Grid{Type: geom.GridType(gridType), Size: gridSize})
	s.ID = sceneID

	if err := st.loadWalls(s); err != nil {
		return nil, err
	}
	if err := st.loadTiles(s); err != nil {
		return nil, err
	}
	if err := st.loadTokens(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (st *Store) loadWalls(s *Scene) error {
	rows, err := st.db.Query(
		`SELECT wall_id, x0, y0, x1, y1, bottom_z, top_z,
			blocks_sight, blocks_move, blocks_light, blocks_sound
		 FROM walls WHERE scene_id = ?`, s.ID)
	if err != nil {
		return fmt.Errorf("failed to load walls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		w := &Wall{}
		var bs, bm, bl, bo int
		if err := rows.Scan(&w.ID, &w.X0, &w.Y0, &w.X1, &w.Y1, &w.BottomZ, &w.TopZ,
			&bs, &bm, &bl, &bo); err != nil {
			return fmt.Errorf("failed to scan wall: %w", err)
		}
		w.Blocking[Sight] = bs != 0
		w.Blocking[Move] = bm != 0
		w.Blocking[Light] = bl != 0
		w.Blocking[Sound] = bo != 0
		s.AddWall(w)
	}
	return rows.Err()
}

func (st *Store) loadTiles(s *Scene) error {
	rows, err := st.db.Query(
		`SELECT tile_id, x, y, w, h, elevation, alpha_w, alpha_h, alpha_pix
		 FROM tiles WHERE scene_id = ?`, s.ID)
	if err != nil {
		return fmt.Errorf("failed to load tiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t := &Tile{}
		var aw, ah int
		var pix []byte
		if err := rows.Scan(&t.ID, &t.X, &t.Y, &t.W, &t.H, &t.Elevation, &aw, &ah, &pix); err != nil {
			return fmt.Errorf("failed to scan tile: %w", err)
		}
		if aw > 0 && ah > 0 && len(pix) == aw*ah {
			alpha := image.NewAlpha(image.Rect(0, 0, aw, ah))
			copy(alpha.Pix, pix)
			t.Alpha = alpha
		}
		s.AddTile(t)
	}
	return rows.Err()
}

func (st *Store) loadTokens(s *Scene) error {
	rows, err := st.db.Query(
		`SELECT token_id, name, shape_json, bottom_z, top_z, defeated, prone
		 FROM tokens WHERE scene_id = ?`, s.ID)
	if err != nil {
		return fmt.Errorf("failed to load tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		tok := &Token{}
		var shape string
		var defeated, prone int
		if err := rows.Scan(&tok.ID, &tok.Name, &shape, &tok.BottomZ, &tok.TopZ, &defeated, &prone); err != nil {
			return fmt.Errorf("failed to scan token: %w", err)
		}
		tok.Shape, err = decodeShape([]byte(shape))
		if err != nil {
			return fmt.Errorf("failed to decode token %s: %w", tok.ID, err)
		}
		tok.Defeated = defeated != 0
		tok.Prone = prone != 0
		s.AddToken(tok)
	}
	return rows.Err()
}

// ListScenes returns the IDs and names of all stored scenes.
func (st *Store) ListScenes() (map[string]string, error) {
	rows, err := st.db.Query(`SELECT scene_id, name FROM scenes`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan scene row: %w", err)
		}
		out[id] = name
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
