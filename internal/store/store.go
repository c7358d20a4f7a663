// Package store persists the chopper's per-(sub-tile, area type)
// polygon buckets, the global polygon-id counter, and finished tile
// meshes in a modernc.org/sqlite database, mirroring the teacher's
// internal/mbtiles sqlite-backed tile store.
package store

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	_ "modernc.org/sqlite"

	"github.com/tgconstruct/tgconstruct/internal/chopper"
	"github.com/tgconstruct/tgconstruct/internal/contour"
	"github.com/tgconstruct/tgconstruct/internal/geod"
	"github.com/tgconstruct/tgconstruct/internal/landclass"
	"github.com/tgconstruct/tgconstruct/internal/polygon"
	"github.com/tgconstruct/tgconstruct/internal/tgerr"
)

// TileStore owns the sqlite schema backing bucket persistence, the
// polygon-id counter checkpoint, and finished tile meshes.
type TileStore struct {
	db   *sql.DB
	path string
}

// Open creates path if it doesn't exist and initializes the schema.
func Open(path string) (*TileStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &TileStore{db: db, path: path}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS buckets (
			sub_tile TEXT NOT NULL,
			area_type TEXT NOT NULL,
			polygon_blob BLOB NOT NULL,
			PRIMARY KEY (sub_tile, area_type)
		);

		CREATE TABLE IF NOT EXISTS counter (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			value INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS mesh_nodes (
			tile_id TEXT NOT NULL,
			node_id INTEGER NOT NULL,
			lon REAL NOT NULL,
			lat REAL NOT NULL,
			elev REAL NOT NULL,
			PRIMARY KEY (tile_id, node_id)
		);

		CREATE TABLE IF NOT EXISTS mesh_polygons (
			tile_id TEXT NOT NULL,
			area_type TEXT NOT NULL,
			poly_index INTEGER NOT NULL,
			material TEXT NOT NULL,
			triangle_blob BLOB NOT NULL,
			normal_blob BLOB NOT NULL,
			texcoord_blob BLOB NOT NULL,
			PRIMARY KEY (tile_id, area_type, poly_index)
		);
	`
	_, err := db.Exec(schema)
	return err
}

// DB exposes the underlying database handle for ad hoc inspection
// queries (tooling, tests); mutating it outside SaveBucket/SaveMesh's
// schema is the caller's responsibility.
func (s *TileStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *TileStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// SaveBucket persists one chopper bucket, replacing any prior save for
// the same (sub-tile, area type) key.
func (s *TileStore) SaveBucket(b *chopper.Bucket) error {
	blob, err := encodeBucket(b)
	if err != nil {
		return fmt.Errorf("store: encode bucket: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO buckets (sub_tile, area_type, polygon_blob) VALUES (?, ?, ?)",
		b.SubTile.String(), b.AreaType, blob,
	)
	if err != nil {
		return fmt.Errorf("store: save bucket %s/%s: %w", b.SubTile, b.AreaType, err)
	}
	return nil
}

// LoadBucket reads back a previously saved bucket, or (nil, false) if
// nothing was ever saved under that key.
func (s *TileStore) LoadBucket(sub chopper.SubTileID, areaType string) (*chopper.Bucket, bool, error) {
	var blob []byte
	err := s.db.QueryRow(
		"SELECT polygon_blob FROM buckets WHERE sub_tile = ? AND area_type = ?",
		sub.String(), areaType,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: load bucket %s/%s: %w", sub, areaType, err)
	}

	polys, err := decodeBucket(blob)
	if err != nil {
		return nil, false, fmt.Errorf("store: decode bucket %s/%s: %w", sub, areaType, err)
	}
	return &chopper.Bucket{SubTile: sub, AreaType: areaType, Polygons: polys}, true, nil
}

// CheckpointCounter persists the polygon-id counter's current value
// (spec §9 "global counters for polygon ids"), for restoration across a
// process restart.
func (s *TileStore) CheckpointCounter(value int64) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO counter (id, value) VALUES (0, ?)", value)
	if err != nil {
		return fmt.Errorf("store: checkpoint counter: %w", err)
	}
	return nil
}

// RestoreCounter reads back the last checkpointed counter value, or
// (0, false) if none was ever saved.
func (s *TileStore) RestoreCounter() (int64, bool, error) {
	var value int64
	err := s.db.QueryRow("SELECT value FROM counter WHERE id = 0").Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("store: restore counter: %w", err)
	}
	return value, true, nil
}

// SaveMesh serializes a finished tile mesh: the shared node table, and
// per-area-type polygon bundles each carrying its triangle index list,
// per-face normals, and per-triangle-vertex texture coordinates, as
// little-endian IEEE-754 float blobs (spec §6).
func (s *TileStore) SaveMesh(tileID string, mesh *landclass.TileMesh, texcoords map[landclass.AreaType][][3]landclass.TexCoord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: save mesh: begin: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.Exec("DELETE FROM mesh_nodes WHERE tile_id = ?", tileID); err != nil {
		return fmt.Errorf("store: save mesh: clear nodes: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM mesh_polygons WHERE tile_id = ?", tileID); err != nil {
		return fmt.Errorf("store: save mesh: clear polygons: %w", err)
	}

	nodeStmt, err := tx.Prepare("INSERT INTO mesh_nodes (tile_id, node_id, lon, lat, elev) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("store: save mesh: prepare node insert: %w", err)
	}
	defer nodeStmt.Close()

	for _, id := range mesh.NodeSet.All() {
		g := mesh.NodeSet.Lookup(id)
		if _, err := nodeStmt.Exec(tileID, id, g.Lon, g.Lat, g.Elev); err != nil {
			return fmt.Errorf("store: save mesh: insert node %d: %w", id, err)
		}
	}

	polyStmt, err := tx.Prepare(
		"INSERT INTO mesh_polygons (tile_id, area_type, poly_index, material, triangle_blob, normal_blob, texcoord_blob) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("store: save mesh: prepare polygon insert: %w", err)
	}
	defer polyStmt.Close()

	for _, at := range landclass.PriorityOrder {
		polys := mesh.Polygons[at]
		uvs := texcoords[at]
		uvOffset := 0
		for i, p := range polys {
			if p.Tri == nil {
				continue
			}
			triBlob := encodeTriangleIndices(p.Tri.Triangles)
			normBlob := encodeNormals(p.Tri.Triangles)

			n := len(p.Tri.Triangles)
			if uvOffset+n > len(uvs) {
				return &tgerr.Invariant{
					What: "store: save mesh: texture coordinate count desynced from triangle count",
					Detail: fmt.Sprintf("%s polygon %d needs triangles [%d:%d), texcoords has %d",
						at, i, uvOffset, uvOffset+n, len(uvs)),
				}
			}
			uvBlob := encodeTexCoords(uvs[uvOffset : uvOffset+n])
			uvOffset += n

			if _, err := polyStmt.Exec(tileID, string(at), i, p.Material, triBlob, normBlob, uvBlob); err != nil {
				return fmt.Errorf("store: save mesh: insert polygon %s/%d: %w", at, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: save mesh: commit: %w", err)
	}
	return nil
}

func encodeTriangleIndices(tris []polygon.Triangle) []byte {
	buf := make([]byte, 0, len(tris)*12)
	for _, t := range tris {
		buf = appendInt32(buf, int32(t.A))
		buf = appendInt32(buf, int32(t.B))
		buf = appendInt32(buf, int32(t.C))
	}
	return buf
}

func encodeNormals(tris []polygon.Triangle) []byte {
	buf := make([]byte, 0, len(tris)*24)
	for _, t := range tris {
		buf = appendFloat64(buf, t.Normal[0])
		buf = appendFloat64(buf, t.Normal[1])
		buf = appendFloat64(buf, t.Normal[2])
	}
	return buf
}

func encodeTexCoords(uvs [][3]landclass.TexCoord) []byte {
	buf := make([]byte, 0, len(uvs)*48)
	for _, tri := range uvs {
		for _, uv := range tri {
			buf = appendFloat64(buf, uv.U)
			buf = appendFloat64(buf, uv.V)
		}
	}
	return buf
}

func appendInt32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

func appendFloat64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

// encodeBucket serializes a bucket's polygons: a polygon count, then one
// [material length, material bytes, polygon id, contour count,
// per-contour hole flag and point count, per-point lon/lat/elev] record
// per polygon.
func encodeBucket(b *chopper.Bucket) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, int32(len(b.Polygons))); err != nil {
		return nil, err
	}
	for _, p := range b.Polygons {
		if err := writePolygon(&buf, p); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writePolygon(buf *bytes.Buffer, p polygon.Polygon) error {
	matBytes := []byte(p.Material)
	if err := binary.Write(buf, binary.LittleEndian, int32(len(matBytes))); err != nil {
		return err
	}
	if _, err := buf.Write(matBytes); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(p.ID)); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(len(p.Contours))); err != nil {
		return err
	}
	for _, c := range p.Contours {
		hole := int32(0)
		if c.Hole {
			hole = 1
		}
		if err := binary.Write(buf, binary.LittleEndian, hole); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, int32(len(c.Pts))); err != nil {
			return err
		}
		for _, pt := range c.Pts {
			if err := binary.Write(buf, binary.LittleEndian, [3]float64{pt.Lon, pt.Lat, pt.Elev}); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeBucket(blob []byte) ([]polygon.Polygon, error) {
	r := bytes.NewReader(blob)
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	out := make([]polygon.Polygon, 0, count)
	for i := int32(0); i < count; i++ {
		p, err := readPolygon(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func readPolygon(r *bytes.Reader) (polygon.Polygon, error) {
	var matLen int32
	if err := binary.Read(r, binary.LittleEndian, &matLen); err != nil {
		return polygon.Polygon{}, err
	}
	matBytes := make([]byte, matLen)
	if _, err := io.ReadFull(r, matBytes); err != nil {
		return polygon.Polygon{}, err
	}

	var id int32
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return polygon.Polygon{}, err
	}

	var contourCount int32
	if err := binary.Read(r, binary.LittleEndian, &contourCount); err != nil {
		return polygon.Polygon{}, err
	}

	contours := make([]contour.Contour, 0, contourCount)
	for i := int32(0); i < contourCount; i++ {
		var hole int32
		if err := binary.Read(r, binary.LittleEndian, &hole); err != nil {
			return polygon.Polygon{}, err
		}
		var ptCount int32
		if err := binary.Read(r, binary.LittleEndian, &ptCount); err != nil {
			return polygon.Polygon{}, err
		}
		pts := make([]geod.Geod, ptCount)
		for j := int32(0); j < ptCount; j++ {
			var xyz [3]float64
			if err := binary.Read(r, binary.LittleEndian, &xyz); err != nil {
				return polygon.Polygon{}, err
			}
			pts[j] = geod.Geod{Lon: xyz[0], Lat: xyz[1], Elev: xyz[2]}
		}
		contours = append(contours, contour.New(pts, hole != 0))
	}

	return polygon.Polygon{
		Contours: contours,
		Material: string(matBytes),
		ID:       int(id),
	}, nil
}
