package memstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// LocalStore is a SQLite-backed Store for development and tests. It mirrors
// the managed backend's semantics: resources with strategies, namespaced
// records, append-only events. Retrieval is term-overlap ranking rather than
// semantic search.
type LocalStore struct {
	db *sql.DB
}

// OpenLocal creates/opens the local memory database at path.
func OpenLocal(path string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create memory db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single shared connection avoids writer lock contention under SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &LocalStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *LocalStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *LocalStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS resources (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			event_expiry_days INTEGER NOT NULL DEFAULT 90,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS strategies (
			resource_id TEXT NOT NULL,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			namespace_template TEXT NOT NULL,
			PRIMARY KEY (resource_id, type)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			resource_id TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			resource_id TEXT NOT NULL,
			namespace TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_namespace ON records(resource_id, namespace);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init local memory schema: %w", err)
		}
	}
	return nil
}

func (s *LocalStore) GetResource(ctx context.Context, id string) (Resource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, status FROM resources WHERE id = ?`, id)

	var resource Resource
	var status string
	if err := row.Scan(&resource.ID, &resource.Name, &status); err != nil {
		if err == sql.ErrNoRows {
			return Resource{}, ErrResourceNotFound
		}
		return Resource{}, fmt.Errorf("get resource %s: %w", id, err)
	}
	resource.Status = Status(status)

	strategies, err := s.GetStrategies(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	resource.Strategies = strategies
	return resource, nil
}

func (s *LocalStore) ListResources(ctx context.Context) ([]Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, status FROM resources ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []Resource
	for rows.Next() {
		var r Resource
		var status string
		if err := rows.Scan(&r.ID, &r.Name, &status); err != nil {
			return nil, err
		}
		r.Status = Status(status)
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func (s *LocalStore) CreateResourceAndWait(ctx context.Context, in CreateInput) (Resource, error) {
	// Ids carry the resource name so name-by-id discovery works, matching
	// the managed backend's id shape.
	id := fmt.Sprintf("%s-%s", in.Name, strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	now := time.Now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Resource{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO resources (id, name, description, status, event_expiry_days, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, in.Name, in.Description, string(StatusActive), in.EventExpiryDays, now); err != nil {
		return Resource{}, fmt.Errorf("create resource %s: %w", in.Name, err)
	}

	for _, strategy := range in.Strategies {
		if len(strategy.Namespaces) == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO strategies (resource_id, type, name, description, namespace_template)
			 VALUES (?, ?, ?, ?, ?)`,
			id, string(strategy.Type), strategy.Name, strategy.Description, strategy.Namespaces[0]); err != nil {
			return Resource{}, fmt.Errorf("create strategy %s: %w", strategy.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Resource{}, err
	}
	return s.GetResource(ctx, id)
}

func (s *LocalStore) GetStrategies(ctx context.Context, id string) ([]Strategy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, name, description, namespace_template FROM strategies
		 WHERE resource_id = ? ORDER BY type`, id)
	if err != nil {
		return nil, fmt.Errorf("get strategies for %s: %w", id, err)
	}
	defer rows.Close()

	var strategies []Strategy
	for rows.Next() {
		var st Strategy
		var typ, namespace string
		if err := rows.Scan(&typ, &st.Name, &st.Description, &namespace); err != nil {
			return nil, err
		}
		st.Type = StrategyType(typ)
		st.Namespaces = []string{namespace}
		strategies = append(strategies, st)
	}
	return strategies, rows.Err()
}

func (s *LocalStore) Retrieve(ctx context.Context, in RetrieveInput) ([]Record, error) {
	if _, err := s.GetResource(ctx, in.MemoryID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT content, created_at FROM records
		 WHERE resource_id = ? AND namespace = ?
		 ORDER BY created_at DESC LIMIT 200`,
		in.MemoryID, in.Namespace)
	if err != nil {
		return nil, fmt.Errorf("retrieve %s/%s: %w", in.MemoryID, in.Namespace, err)
	}
	defer rows.Close()

	type candidate struct {
		text      string
		score     int
		createdAt int64
	}
	terms := queryTerms(in.Query)

	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.text, &c.createdAt); err != nil {
			return nil, err
		}
		c.score = termOverlap(c.text, terms)
		if len(terms) == 0 || c.score > 0 {
			candidates = append(candidates, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].createdAt > candidates[j].createdAt
	})

	topK := in.TopK
	if topK <= 0 {
		topK = 3
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	records := make([]Record, 0, len(candidates))
	for _, c := range candidates {
		records = append(records, Record{Text: c.text})
	}
	return records, nil
}

func (s *LocalStore) AppendEvent(ctx context.Context, in EventInput) error {
	strategies, err := s.GetStrategies(ctx, in.MemoryID)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, msg := range in.Messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, resource_id, actor_id, session_id, role, content, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), in.MemoryID, in.ActorID, in.SessionID, msg.Role, msg.Text, now+int64(i)); err != nil {
			return fmt.Errorf("append event to %s: %w", in.MemoryID, err)
		}

		// The managed service extracts records from events asynchronously;
		// locally each message lands verbatim in every strategy namespace.
		for _, strategy := range strategies {
			if len(strategy.Namespaces) == 0 {
				continue
			}
			namespace := strings.ReplaceAll(strategy.Namespaces[0], "{actorId}", in.ActorID)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO records (resource_id, namespace, content, created_at)
				 VALUES (?, ?, ?, ?)`,
				in.MemoryID, namespace, msg.Text, now+int64(i)); err != nil {
				return fmt.Errorf("append record to %s: %w", namespace, err)
			}
		}
	}

	return tx.Commit()
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

func termOverlap(text string, terms []string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			score++
		}
	}
	return score
}
