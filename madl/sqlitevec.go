package madl

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Register the sqlite-vec extension with the mattn/go-sqlite3 driver.
	vec.Auto()
}

// VecIndex implements Index on a local SQLite database with the
// sqlite-vec extension providing cosine distance.
type VecIndex struct {
	db *sql.DB
}

// NewVecIndex opens (or creates) the index database at the given path.
func NewVecIndex(path string) (*VecIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open madl index database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS madl_methods (
			id        INTEGER PRIMARY KEY,
			payload   TEXT NOT NULL,
			embedding BLOB NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create madl schema: %w", err)
	}

	return &VecIndex{db: db}, nil
}

// Close closes the underlying database.
func (x *VecIndex) Close() error {
	return x.db.Close()
}

// Search returns the methods closest to the vector, best first.
// Cosine distance from sqlite-vec is converted to similarity (1 - d)
// and candidates below minScore are dropped.
func (x *VecIndex) Search(ctx context.Context, vector []float32, topK int, minScore float64) ([]ReusableMethod, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	query := `
		SELECT payload, vec_distance_cosine(embedding, ?) AS distance
		FROM madl_methods
		ORDER BY distance ASC
		LIMIT ?
	`

	rows, err := x.db.QueryContext(ctx, query, encodeVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("madl index search failed: %w", err)
	}
	defer rows.Close()

	var methods []ReusableMethod
	for rows.Next() {
		var payload string
		var distance float64
		if err := rows.Scan(&payload, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan madl row: %w", err)
		}

		similarity := 1.0 - distance
		if similarity < minScore {
			continue
		}

		var method ReusableMethod
		if err := json.Unmarshal([]byte(payload), &method); err != nil {
			return nil, fmt.Errorf("failed to decode madl payload: %w", err)
		}
		method.Score = similarity
		methods = append(methods, method)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating madl results: %w", err)
	}

	return methods, nil
}

// Upsert stores a method under the given point ID, replacing any
// previous payload at that ID.
func (x *VecIndex) Upsert(ctx context.Context, id int64, vector []float32, method *ReusableMethod) error {
	payload, err := json.Marshal(method)
	if err != nil {
		return fmt.Errorf("failed to encode madl payload: %w", err)
	}

	_, err = x.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO madl_methods (id, payload, embedding) VALUES (?, ?, ?)`,
		id, string(payload), encodeVector(vector))
	if err != nil {
		return fmt.Errorf("madl upsert failed: %w", err)
	}

	return nil
}

// encodeVector encodes a float32 slice as the little-endian blob format
// sqlite-vec expects.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
