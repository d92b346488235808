// Package store is the embedded SQLite persistence layer for
// extractions, embedding vectors and suggested connections. One store
// per case directory, single process, single writer.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/casekit/workbench/internal/types"
)

// ErrNotInitialized means the database file or schema is missing
var ErrNotInitialized = errors.New("workbench store not initialized")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS extractions (
    id TEXT PRIMARY KEY,
    evidence_id TEXT NOT NULL,
    segment_index INTEGER,
    extraction_type TEXT NOT NULL,
    content TEXT NOT NULL,
    speaker TEXT,
    speaker_role TEXT,
    start_time REAL,
    end_time REAL,
    confidence REAL DEFAULT 1.0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS embeddings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    extraction_id TEXT NOT NULL REFERENCES extractions(id) ON DELETE CASCADE,
    vector BLOB NOT NULL,
    model TEXT DEFAULT 'nomic-embed-text',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS suggested_connections (
    id TEXT PRIMARY KEY,
    extraction_a_id TEXT NOT NULL REFERENCES extractions(id) ON DELETE CASCADE,
    extraction_b_id TEXT NOT NULL REFERENCES extractions(id) ON DELETE CASCADE,
    connection_type TEXT NOT NULL,
    confidence REAL NOT NULL,
    reasoning TEXT NOT NULL,
    evidence_snippets TEXT,
    severity TEXT,
    status TEXT DEFAULT 'pending',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_extractions_evidence ON extractions(evidence_id);
CREATE INDEX IF NOT EXISTS idx_extractions_type ON extractions(extraction_type);
CREATE INDEX IF NOT EXISTS idx_embeddings_extraction ON embeddings(extraction_id);
CREATE INDEX IF NOT EXISTS idx_connections_status ON suggested_connections(status);
CREATE INDEX IF NOT EXISTS idx_connections_type ON suggested_connections(connection_type);
`

// Store wraps the SQLite connection for one case's workbench database
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the workbench database at dbPath, creating the file and
// schema if needed. Cascading deletes require foreign_keys on for
// every connection.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// OpenExisting opens the database only if it already holds a schema,
// returning ErrNotInitialized otherwise. Analysis stages use this so a
// missing init fails fast instead of silently working on empty tables.
func OpenExisting(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, ErrNotInitialized
	}
	s, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	ok, err := s.initialized()
	if err != nil {
		s.Close()
		return nil, err
	}
	if !ok {
		s.Close()
		return nil, ErrNotInitialized
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}

func (s *Store) initialized() (bool, error) {
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='extractions'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const extractionCols = `id, evidence_id, segment_index, extraction_type, content,
	speaker, speaker_role, start_time, end_time, confidence, created_at`

// AddExtraction inserts a single extraction
func (s *Store) AddExtraction(e types.Extraction) error {
	_, err := s.db.Exec(
		`INSERT INTO extractions (`+extractionCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EvidenceID, nullInt(e.SegmentIndex), string(e.Type), e.Content,
		nullStr(e.Speaker), nullStr(e.SpeakerRole), nullFloat(e.StartTime),
		nullFloat(e.EndTime), e.Confidence, e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert extraction: %w", err)
	}
	return nil
}

// AddExtractions inserts a batch of extractions in one transaction
func (s *Store) AddExtractions(extractions []types.Extraction) error {
	if len(extractions) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO extractions (` + extractionCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range extractions {
		if _, err := stmt.Exec(
			e.ID, e.EvidenceID, nullInt(e.SegmentIndex), string(e.Type), e.Content,
			nullStr(e.Speaker), nullStr(e.SpeakerRole), nullFloat(e.StartTime),
			nullFloat(e.EndTime), e.Confidence, e.CreatedAt.Format(time.RFC3339),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert extraction %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// GetExtraction fetches a single extraction, nil if absent
func (s *Store) GetExtraction(id string) (*types.Extraction, error) {
	row := s.db.QueryRow(`SELECT `+extractionCols+` FROM extractions WHERE id = ?`, id)
	e, err := scanExtraction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ExtractionFilter narrows GetExtractions; zero values mean no filter
type ExtractionFilter struct {
	EvidenceID string
	Type       types.ExtractionType
	Limit      int
}

// GetExtractions returns extractions newest-first, optionally filtered
func (s *Store) GetExtractions(f ExtractionFilter) ([]types.Extraction, error) {
	query := `SELECT ` + extractionCols + ` FROM extractions WHERE 1=1`
	var args []any

	if f.EvidenceID != "" {
		query += " AND evidence_id = ?"
		args = append(args, f.EvidenceID)
	}
	if f.Type != "" {
		query += " AND extraction_type = ?"
		args = append(args, string(f.Type))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	defer rows.Close()

	var out []types.Extraction
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// ExtractionCount returns the total number of extractions
func (s *Store) ExtractionCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM extractions").Scan(&n)
	return n, err
}

// DeleteExtractionsForEvidence removes all extractions for one
// evidence item. Embeddings and connections referencing them go with
// them via cascade.
func (s *Store) DeleteExtractionsForEvidence(evidenceID string) (int, error) {
	res, err := s.db.Exec("DELETE FROM extractions WHERE evidence_id = ?", evidenceID)
	if err != nil {
		return 0, fmt.Errorf("delete extractions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExtraction(r rowScanner) (*types.Extraction, error) {
	var (
		e         types.Extraction
		segIdx    sql.NullInt64
		extType   string
		speaker   sql.NullString
		role      sql.NullString
		start     sql.NullFloat64
		end       sql.NullFloat64
		createdAt string
	)
	if err := r.Scan(&e.ID, &e.EvidenceID, &segIdx, &extType, &e.Content,
		&speaker, &role, &start, &end, &e.Confidence, &createdAt); err != nil {
		return nil, err
	}

	t, err := types.ParseExtractionType(extType)
	if err != nil {
		return nil, fmt.Errorf("extraction %s: %w", e.ID, err)
	}
	e.Type = t

	if segIdx.Valid {
		v := int(segIdx.Int64)
		e.SegmentIndex = &v
	}
	e.Speaker = speaker.String
	e.SpeakerRole = role.String
	if start.Valid {
		v := start.Float64
		e.StartTime = &v
	}
	if end.Valid {
		v := end.Float64
		e.EndTime = &v
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

// AddEmbedding stores one packed vector for an extraction
func (s *Store) AddEmbedding(extractionID string, vector []byte, model string) error {
	_, err := s.db.Exec(
		"INSERT INTO embeddings (extraction_id, vector, model) VALUES (?, ?, ?)",
		extractionID, vector, model,
	)
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	return nil
}

// EmbeddingRecord pairs an extraction id with its packed vector
type EmbeddingRecord struct {
	ExtractionID string
	Vector       []byte
}

// AddEmbeddings stores a batch of vectors in one transaction
func (s *Store) AddEmbeddings(records []EmbeddingRecord, model string) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(
		"INSERT INTO embeddings (extraction_id, vector, model) VALUES (?, ?, ?)",
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.ExtractionID, rec.Vector, model); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert embedding for %s: %w", rec.ExtractionID, err)
		}
	}
	return tx.Commit()
}

// GetEmbedding returns the packed vector for an extraction, nil if absent
func (s *Store) GetEmbedding(extractionID string) ([]byte, error) {
	var vec []byte
	err := s.db.QueryRow(
		"SELECT vector FROM embeddings WHERE extraction_id = ?", extractionID,
	).Scan(&vec)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// AllEmbeddings returns every stored (extraction id, vector) pair
func (s *Store) AllEmbeddings() ([]EmbeddingRecord, error) {
	rows, err := s.db.Query("SELECT extraction_id, vector FROM embeddings")
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var out []EmbeddingRecord
	for rows.Next() {
		var rec EmbeddingRecord
		if err := rows.Scan(&rec.ExtractionID, &rec.Vector); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EmbeddingCount returns the total number of embeddings
func (s *Store) EmbeddingCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&n)
	return n, err
}

// HasEmbedding checks by extraction id alone; the generating model is
// deliberately ignored, so switching embedding models mid-case does
// not trigger re-embedding.
func (s *Store) HasEmbedding(extractionID string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM embeddings WHERE extraction_id = ?", extractionID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const connectionCols = `id, extraction_a_id, extraction_b_id, connection_type,
	confidence, reasoning, evidence_snippets, severity, status, created_at`

// AddConnection inserts a single suggested connection
func (s *Store) AddConnection(c types.SuggestedConnection) error {
	snippets, err := json.Marshal(c.EvidenceSnippets)
	if err != nil {
		return fmt.Errorf("marshal snippets: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO suggested_connections (`+connectionCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ExtractionAID, c.ExtractionBID, string(c.Type), c.Confidence,
		c.Reasoning, string(snippets), nullStr(string(c.Severity)),
		string(c.Status), c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	return nil
}

// AddConnections inserts a batch of connections in one transaction
func (s *Store) AddConnections(connections []types.SuggestedConnection) error {
	if len(connections) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO suggested_connections (` + connectionCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range connections {
		snippets, err := json.Marshal(c.EvidenceSnippets)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal snippets: %w", err)
		}
		if _, err := stmt.Exec(
			c.ID, c.ExtractionAID, c.ExtractionBID, string(c.Type), c.Confidence,
			c.Reasoning, string(snippets), nullStr(string(c.Severity)),
			string(c.Status), c.CreatedAt.Format(time.RFC3339),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert connection %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetConnection fetches a single connection, nil if absent
func (s *Store) GetConnection(id string) (*types.SuggestedConnection, error) {
	row := s.db.QueryRow(`SELECT `+connectionCols+` FROM suggested_connections WHERE id = ?`, id)
	c, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ConnectionFilter narrows GetConnections; zero values mean no filter
type ConnectionFilter struct {
	Type   types.ConnectionType
	Status types.ConnectionStatus
	Limit  int
}

// GetConnections returns connections ordered by confidence descending,
// then newest-first, so the most actionable findings come up first.
func (s *Store) GetConnections(f ConnectionFilter) ([]types.SuggestedConnection, error) {
	query := `SELECT ` + connectionCols + ` FROM suggested_connections WHERE 1=1`
	var args []any

	if f.Type != "" {
		query += " AND connection_type = ?"
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY confidence DESC, created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	var out []types.SuggestedConnection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ConnectionCount counts connections matching the filter
func (s *Store) ConnectionCount(f ConnectionFilter) (int, error) {
	query := "SELECT COUNT(*) FROM suggested_connections WHERE 1=1"
	var args []any
	if f.Type != "" {
		query += " AND connection_type = ?"
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	var n int
	err := s.db.QueryRow(query, args...).Scan(&n)
	return n, err
}

// UpdateConnectionStatus records a reviewer's confirm/reject decision
func (s *Store) UpdateConnectionStatus(id string, status types.ConnectionStatus) (bool, error) {
	res, err := s.db.Exec(
		"UPDATE suggested_connections SET status = ? WHERE id = ?",
		string(status), id,
	)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteConnectionsByType removes every connection of one type. Each
// detection pass calls this before inserting its new findings.
func (s *Store) DeleteConnectionsByType(t types.ConnectionType) (int, error) {
	res, err := s.db.Exec(
		"DELETE FROM suggested_connections WHERE connection_type = ?", string(t),
	)
	if err != nil {
		return 0, fmt.Errorf("delete connections: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanConnection(r rowScanner) (*types.SuggestedConnection, error) {
	var (
		c         types.SuggestedConnection
		connType  string
		snippets  sql.NullString
		severity  sql.NullString
		status    string
		createdAt string
	)
	if err := r.Scan(&c.ID, &c.ExtractionAID, &c.ExtractionBID, &connType,
		&c.Confidence, &c.Reasoning, &snippets, &severity, &status, &createdAt); err != nil {
		return nil, err
	}

	t, err := types.ParseConnectionType(connType)
	if err != nil {
		return nil, fmt.Errorf("connection %s: %w", c.ID, err)
	}
	c.Type = t

	st, err := types.ParseConnectionStatus(status)
	if err != nil {
		return nil, fmt.Errorf("connection %s: %w", c.ID, err)
	}
	c.Status = st

	if severity.Valid && severity.String != "" {
		sv, err := types.ParseSeverity(severity.String)
		if err != nil {
			return nil, fmt.Errorf("connection %s: %w", c.ID, err)
		}
		c.Severity = sv
	}
	if snippets.Valid && snippets.String != "" {
		if err := json.Unmarshal([]byte(snippets.String), &c.EvidenceSnippets); err != nil {
			return nil, fmt.Errorf("connection %s: parse snippets: %w", c.ID, err)
		}
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// Stats summarizes the workbench contents for a status display
type Stats struct {
	Extractions         int
	Embeddings          int
	ConnectionsTotal    int
	ConnectionsByType   map[types.ConnectionType]int
	ConnectionsByStatus map[types.ConnectionStatus]int
}

// GetStats returns total counts partitioned by connection type and status
func (s *Store) GetStats() (*Stats, error) {
	st := &Stats{
		ConnectionsByType:   make(map[types.ConnectionType]int),
		ConnectionsByStatus: make(map[types.ConnectionStatus]int),
	}
	var err error
	if st.Extractions, err = s.ExtractionCount(); err != nil {
		return nil, err
	}
	if st.Embeddings, err = s.EmbeddingCount(); err != nil {
		return nil, err
	}
	if st.ConnectionsTotal, err = s.ConnectionCount(ConnectionFilter{}); err != nil {
		return nil, err
	}
	for _, t := range types.ConnectionTypes {
		n, err := s.ConnectionCount(ConnectionFilter{Type: t})
		if err != nil {
			return nil, err
		}
		st.ConnectionsByType[t] = n
	}
	for _, status := range types.ConnectionStatuses {
		n, err := s.ConnectionCount(ConnectionFilter{Status: status})
		if err != nil {
			return nil, err
		}
		st.ConnectionsByStatus[status] = n
	}
	return st, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// SQLite CURRENT_TIMESTAMP format, used when a row was inserted
	// without an explicit created_at
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
