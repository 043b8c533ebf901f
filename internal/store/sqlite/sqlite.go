package sqlite

// Package sqlite is the persistent VectorStore implementation, backed by a
// single SQLite database file (modernc.org/sqlite, no CGO).
//
// Layout per collection:
//   - structured collections: one table with filterable ts/service/level
//   - enriched collections: one table carrying the enriched fields plus a
//     BLOB-encoded float32 vector, and an FTS5 shadow table over content
//     and summary for BM25-ranked keyword queries
//
// Vector queries run the shared filter WHERE clause in SQL, then score the
// surviving rows by cosine similarity in Go. Keyword queries rank with the
// FTS5 bm25() function. Both paths build their filters from the same
// clause builder, so filter semantics cannot drift apart.

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/opslens/opslens-rag/internal/models"
	"github.com/opslens/opslens-rag/internal/store"
)

// Store is a SQLite-backed VectorStore.
type Store struct {
	db *sql.DB

	mu   sync.RWMutex
	dims map[string]int // collection -> vector dim (0 = none)
}

var _ store.VectorStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the meta
// migrations. A path of ":memory:" yields an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", store.ErrUnavailable, path, err)
	}
	// A single writer connection sidesteps SQLITE_BUSY under concurrent
	// batch writes; reads still interleave via WAL.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pragma: %v", store.ErrUnavailable, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, dims: make(map[string]int)}
	if err := s.loadRegistry(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) loadRegistry() error {
	rows, err := s.db.Query(`SELECT name, vector_dim FROM collections`)
	if err != nil {
		return fmt.Errorf("load collection registry: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var dim int
		if err := rows.Scan(&name, &dim); err != nil {
			return fmt.Errorf("scan collection registry: %w", err)
		}
		s.dims[name] = dim
	}
	return rows.Err()
}

// EnsureCollection idempotently creates the collection's tables and records
// it in the registry.
func (s *Store) EnsureCollection(ctx context.Context, schema store.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := "entry"
	var ddl string
	if schema.VectorDim > 0 || len(schema.FullText) > 0 {
		kind = "embedding"
		ddl = fmt.Sprintf(embeddingTableDDL,
			schema.Name,
			schema.Name+"_ts_idx",
			schema.Name+"_svc_idx",
			ftsName(schema.Name),
		)
	} else {
		ddl = fmt.Sprintf(entryTableDDL,
			schema.Name,
			schema.Name+"_ts_idx",
			schema.Name+"_svc_idx",
		)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure collection %s: %w", schema.Name, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, kind, vector_dim) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		schema.Name, kind, schema.VectorDim); err != nil {
		return fmt.Errorf("register collection %s: %w", schema.Name, err)
	}
	s.dims[schema.Name] = schema.VectorDim
	return nil
}

func (s *Store) collectionDim(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dim, ok := s.dims[name]
	return dim, ok
}

// InsertEntryBatch appends structured entries in one transaction.
func (s *Store) InsertEntryBatch(ctx context.Context, name string, entries []models.LogEntry) error {
	if _, ok := s.collectionDim(name); !ok {
		return store.ErrUnknownCollection
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entry batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %q (id, ts, service_name, host_ip, host_name, log_level, message,
		                 component, thread_id, request_id, error_code, duration_ms, tags, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, name))
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		tags, _ := json.Marshal(e.Tags)
		meta, _ := json.Marshal(e.Metadata)
		var dur interface{}
		if e.DurationMS != nil {
			dur = *e.DurationMS
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Timestamp.UTC().UnixNano(), e.ServiceName, e.HostIP, e.HostName,
			string(e.Level), e.Message, e.Component, e.ThreadID, e.RequestID,
			e.ErrorCode, dur, string(tags), string(meta)); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// InsertEmbeddingBatch appends enriched records and their FTS rows in one
// transaction.
func (s *Store) InsertEmbeddingBatch(ctx context.Context, name string, batch []store.EmbeddingWithVector) error {
	dim, ok := s.collectionDim(name)
	if !ok {
		return store.ErrUnknownCollection
	}
	if len(batch) == 0 {
		return nil
	}
	for i := range batch {
		if batch[i].Vector != nil && dim > 0 && len(batch[i].Vector) != dim {
			return store.ErrDimensionMismatch
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin embedding batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %q (id, log_entry_id, ts, service_name, host_ip, log_level,
		                 content, summary, category, severity_score, degraded, vector)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, name))
	if err != nil {
		return fmt.Errorf("prepare embedding insert: %w", err)
	}
	defer stmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %q (record_id, content, summary) VALUES (?, ?, ?)`, ftsName(name)))
	if err != nil {
		return fmt.Errorf("prepare fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for i := range batch {
		r := &batch[i].Record
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.LogEntryID, r.Timestamp.UTC().UnixNano(), r.ServiceName, r.HostIP,
			string(r.Level), r.Content, r.Summary, string(r.Category), r.SeverityScore,
			boolToInt(r.Degraded), encodeVector(batch[i].Vector)); err != nil {
			return fmt.Errorf("insert embedding %s: %w", r.ID, err)
		}
		if _, err := ftsStmt.ExecContext(ctx, r.ID, r.Content, r.Summary); err != nil {
			return fmt.Errorf("insert fts row %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// VectorQuery filters in SQL, scores by cosine similarity in Go.
func (s *Store) VectorQuery(ctx context.Context, name string, vector []float32, filters store.Filters, limit int) ([]store.ScoredRecord, error) {
	dim, ok := s.collectionDim(name)
	if !ok {
		return nil, store.ErrUnknownCollection
	}
	if limit <= 0 {
		return nil, nil
	}
	if dim > 0 && len(vector) != dim {
		return nil, store.ErrDimensionMismatch
	}

	where, args := filterClause(filters, "")
	query := fmt.Sprintf(`SELECT id, log_entry_id, ts, service_name, host_ip, log_level,
		content, summary, category, severity_score, degraded, vector
		FROM %q WHERE vector IS NOT NULL%s`, name, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector query %s: %w", name, err)
	}
	defer rows.Close()

	var hits []store.ScoredRecord
	for rows.Next() {
		rec, blob, err := scanEmbedding(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, store.ScoredRecord{
			Record: rec,
			Score:  cosineSimilarity(vector, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector query %s: %w", name, err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.Timestamp.After(hits[j].Record.Timestamp)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// KeywordQuery ranks with FTS5 BM25; best match first.
func (s *Store) KeywordQuery(ctx context.Context, name string, text string, filters store.Filters, limit int) ([]store.ScoredRecord, error) {
	if _, ok := s.collectionDim(name); !ok {
		return nil, store.ErrUnknownCollection
	}
	if limit <= 0 {
		return nil, nil
	}
	match := ftsMatchExpr(text)
	if match == "" {
		return nil, nil
	}

	where, args := filterClause(filters, "e.")
	query := fmt.Sprintf(`SELECT e.id, e.log_entry_id, e.ts, e.service_name, e.host_ip,
		e.log_level, e.content, e.summary, e.category, e.severity_score, e.degraded,
		e.vector, -bm25(%[1]q) AS relevance
		FROM %[1]q JOIN %[2]q e ON e.id = %[1]q.record_id
		WHERE %[1]q MATCH ?%[3]s
		ORDER BY bm25(%[1]q) LIMIT ?`, ftsName(name), name, where)

	qargs := append([]interface{}{match}, args...)
	qargs = append(qargs, limit)

	rows, err := s.db.QueryContext(ctx, query, qargs...)
	if err != nil {
		return nil, fmt.Errorf("keyword query %s: %w", name, err)
	}
	defer rows.Close()

	var hits []store.ScoredRecord
	for rows.Next() {
		var relevance float64
		rec, _, err := scanEmbeddingWith(rows, &relevance)
		if err != nil {
			return nil, err
		}
		hits = append(hits, store.ScoredRecord{Record: rec, Score: relevance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keyword query %s: %w", name, err)
	}
	return hits, nil
}

// Count returns the number of rows in a collection.
func (s *Store) Count(ctx context.Context, name string) (int64, error) {
	if _, ok := s.collectionDim(name); !ok {
		return 0, store.ErrUnknownCollection
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection is alive; failure maps to ErrUnavailable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func ftsName(collection string) string { return collection + "_fts" }

// filterClause renders store.Filters as an AND-chained SQL suffix. prefix
// qualifies column names when the query joins tables.
func filterClause(f store.Filters, prefix string) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}
	if f.ServiceName != "" {
		sb.WriteString(" AND " + prefix + "service_name = ?")
		args = append(args, f.ServiceName)
	}
	if f.Level != "" {
		sb.WriteString(" AND " + prefix + "log_level = ?")
		args = append(args, string(f.Level))
	}
	if !f.From.IsZero() {
		sb.WriteString(" AND " + prefix + "ts >= ?")
		args = append(args, f.From.UTC().UnixNano())
	}
	if !f.To.IsZero() {
		sb.WriteString(" AND " + prefix + "ts <= ?")
		args = append(args, f.To.UTC().UnixNano())
	}
	return sb.String(), args
}

// ftsMatchExpr turns free text into a quoted OR query so user punctuation
// cannot break FTS5 match syntax.
func ftsMatchExpr(text string) string {
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f != "" {
			terms = append(terms, `"`+f+`"`)
		}
	}
	return strings.Join(terms, " OR ")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEmbedding(rows rowScanner) (models.EmbeddingRecord, []byte, error) {
	return scanEmbeddingWith(rows)
}

func scanEmbeddingWith(rows rowScanner, extra ...interface{}) (models.EmbeddingRecord, []byte, error) {
	var (
		rec      models.EmbeddingRecord
		ts       int64
		level    string
		category string
		degraded int
		blob     []byte
	)
	dest := []interface{}{
		&rec.ID, &rec.LogEntryID, &ts, &rec.ServiceName, &rec.HostIP, &level,
		&rec.Content, &rec.Summary, &category, &rec.SeverityScore, &degraded, &blob,
	}
	dest = append(dest, extra...)
	if err := rows.Scan(dest...); err != nil {
		return rec, nil, fmt.Errorf("scan embedding row: %w", err)
	}
	rec.Timestamp = time.Unix(0, ts).UTC()
	rec.Level = models.LogLevel(level)
	rec.Category = models.Category(category)
	rec.Degraded = degraded != 0
	return rec, blob, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// encodeVector packs float32s little-endian; nil stays nil (no vector).
func encodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
