// Copyright © 2024 Meroxa, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite provides a sink that writes records into a local SQLite
// database. A checkpoint commits the state together with all rows emitted
// before it, so the database never contains a state that is ahead of its
// rows.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	sdk "github.com/fivetran/fivetran-connector-sdk-sub004"
	"github.com/goccy/go-json"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	stateTable = "_connector_state"
	// keyColumn is the primary key of tables without a declared primary
	// key, it holds the JSON encoded record.
	keyColumn = "_key"
)

// Sink is an sdk.Sink backed by a SQLite database.
type Sink struct {
	m    sync.Mutex
	db   *sql.DB
	path string

	tables  map[string]sdk.Table
	columns map[string]map[string]bool
	tx      *sql.Tx
}

var _ sdk.Sink = (*Sink)(nil)

// Open opens (or creates) the database at path. The descriptors in tables
// decide the primary keys and column types of the destination tables,
// tables that are not described are keyed by the whole record.
func Open(ctx context.Context, path string, tables ...sdk.Table) (*Sink, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// a single connection keeps the open transaction and in-memory
	// databases consistent
	db.SetMaxOpenConns(1)

	s := &Sink{
		db:      db,
		path:    path,
		tables:  make(map[string]sdk.Table, len(tables)),
		columns: make(map[string]map[string]bool),
	}
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			_ = db.Close()
			return nil, err
		}
		s.tables[t.Name] = t
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+quote(stateTable)+` (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		state TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Sink) Path() string {
	return s.path
}

// Emit upserts rec into the table. The table is created on first use and
// columns that don't exist yet are added.
func (s *Sink) Emit(ctx context.Context, tableName string, rec sdk.Record) error {
	s.m.Lock()
	defer s.m.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}

	t, ok := s.tables[tableName]
	if !ok {
		t = sdk.Table{Name: tableName}
	}
	row := rec
	if len(t.PrimaryKey) == 0 {
		key, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to derive key of record: %w", err)
		}
		row = rec.Clone()
		row[keyColumn] = string(key)
	} else {
		for _, col := range t.PrimaryKey {
			if v, ok := rec[col]; !ok || v == nil {
				return fmt.Errorf("table %q: record is missing primary key column %q", tableName, col)
			}
		}
	}

	if err := s.ensureTable(ctx, tx, t, row); err != nil {
		return err
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	query, args := upsertQuery(t, cols, row)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert record into %q: %w", tableName, err)
	}
	return nil
}

// Persist stores the state and commits it together with all rows emitted
// since the last checkpoint.
func (s *Sink) Persist(ctx context.Context, state sdk.State) error {
	s.m.Lock()
	defer s.m.Unlock()

	b, err := sdk.MarshalState(state)
	if err != nil {
		return err
	}
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO `+quote(stateTable)+` (id, state, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		string(b), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store state: %w", err)
	}
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// LoadState returns the last committed state, or an empty state if nothing
// was persisted yet.
func (s *Sink) LoadState(ctx context.Context) (sdk.State, error) {
	s.m.Lock()
	defer s.m.Unlock()

	var raw string
	err := s.conn().QueryRowContext(ctx, `SELECT state FROM `+quote(stateTable)+` WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return sdk.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return sdk.UnmarshalState([]byte(raw))
}

// ResetState deletes the persisted state, the next sync starts from scratch.
// Rows that were already synced are kept.
func (s *Sink) ResetState(ctx context.Context) error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.tx != nil {
		return errors.New("can't reset state while a sync is writing")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+quote(stateTable)); err != nil {
		return fmt.Errorf("failed to reset state: %w", err)
	}
	return nil
}

// Rows returns all rows of a table, ordered by primary key. Rows emitted
// after the last checkpoint are included.
func (s *Sink) Rows(ctx context.Context, tableName string) ([]sdk.Record, error) {
	s.m.Lock()
	defer s.m.Unlock()

	t, ok := s.tables[tableName]
	if !ok {
		t = sdk.Table{Name: tableName}
	}
	order := keyColumn
	if len(t.PrimaryKey) > 0 {
		order = joinQuoted(t.PrimaryKey)
	}

	rows, err := s.conn().QueryContext(ctx, `SELECT * FROM `+quote(tableName)+` ORDER BY `+order)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", tableName, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []sdk.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(sdk.Record, len(cols))
		for i, col := range cols {
			if col == keyColumn || vals[i] == nil {
				continue
			}
			rec[col] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of rows in a table. A table that was not created
// yet has no rows.
func (s *Sink) Count(ctx context.Context, tableName string) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	var n int
	err := s.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, tableName).Scan(&n)
	if err != nil || n == 0 {
		return 0, err
	}
	err = s.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quote(tableName)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows of %q: %w", tableName, err)
	}
	return n, nil
}

// Close discards rows emitted after the last checkpoint and closes the
// database.
func (s *Sink) Close() error {
	s.m.Lock()
	defer s.m.Unlock()

	var err error
	if s.tx != nil {
		err = s.tx.Rollback()
		s.tx = nil
	}
	return multierr.Append(err, s.db.Close())
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the open transaction, if any. The database only has a single
// connection, queries outside of the transaction would block until the next
// checkpoint.
func (s *Sink) conn() queryer {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *Sink) begin(ctx context.Context) (*sql.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

// ensureTable creates the table if needed and adds missing columns of row.
func (s *Sink) ensureTable(ctx context.Context, tx *sql.Tx, t sdk.Table, row sdk.Record) error {
	existing, ok := s.columns[t.Name]
	if !ok {
		var err error
		existing, err = s.loadColumns(ctx, tx, t.Name)
		if err != nil {
			return err
		}
	}

	if len(existing) == 0 {
		if err := createTable(ctx, tx, t, row); err != nil {
			return err
		}
		existing = make(map[string]bool, len(row))
		for col := range row {
			existing[col] = true
		}
		for col := range t.Columns {
			existing[col] = true
		}
		s.columns[t.Name] = existing
		return nil
	}
	s.columns[t.Name] = existing

	var missing []string
	for col := range row {
		if !existing[col] {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	for _, col := range missing {
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, quote(t.Name), quote(col), columnType(t, col, row[col]))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %q to %q: %w", col, t.Name, err)
		}
		existing[col] = true
	}
	return nil
}

func (s *Sink) loadColumns(ctx context.Context, tx *sql.Tx, tableName string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %q: %w", tableName, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func createTable(ctx context.Context, tx *sql.Tx, t sdk.Table, row sdk.Record) error {
	names := make(map[string]bool, len(row)+len(t.Columns))
	for col := range row {
		names[col] = true
	}
	for col := range t.Columns {
		names[col] = true
	}
	cols := make([]string, 0, len(names))
	for col := range names {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	defs := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		defs = append(defs, strings.TrimSpace(quote(col)+" "+columnType(t, col, row[col])))
	}
	pk := t.PrimaryKey
	if len(pk) == 0 {
		pk = []string{keyColumn}
	}
	defs = append(defs, "PRIMARY KEY ("+joinQuoted(pk)+")")

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quote(t.Name), strings.Join(defs, ",\n\t"))
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %q: %w", t.Name, err)
	}
	return nil
}

func upsertQuery(t sdk.Table, cols []string, row sdk.Record) (string, []any) {
	pk := t.PrimaryKey
	if len(pk) == 0 {
		pk = []string{keyColumn}
	}
	isKey := make(map[string]bool, len(pk))
	for _, col := range pk {
		isKey[col] = true
	}

	args := make([]any, len(cols))
	placeholders := make([]string, len(cols))
	var updates []string
	for i, col := range cols {
		args[i] = row[col]
		placeholders[i] = "?"
		if !isKey[col] {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", quote(col), quote(col)))
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO ",
		quote(t.Name), joinQuoted(cols), strings.Join(placeholders, ", "), joinQuoted(pk))
	if len(updates) == 0 {
		return query + "NOTHING", args
	}
	return query + "UPDATE SET " + strings.Join(updates, ", "), args
}

// columnType returns the declared SQLite type of a column, based on the
// type hint of the table or the value. An empty type has no affinity.
func columnType(t sdk.Table, col string, v any) string {
	switch t.Columns[col] {
	case sdk.ColumnTypeString, sdk.ColumnTypeTimestamp, sdk.ColumnTypeJSON:
		return "TEXT"
	case sdk.ColumnTypeInt, sdk.ColumnTypeBool:
		return "INTEGER"
	case sdk.ColumnTypeFloat:
		return "REAL"
	case sdk.ColumnTypeBinary:
		return "BLOB"
	}
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, bool:
		return "INTEGER"
	case float32, float64:
		return "REAL"
	case []byte:
		return "BLOB"
	case string:
		return "TEXT"
	default:
		return ""
	}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func joinQuoted(idents []string) string {
	out := make([]string, len(idents))
	for i, ident := range idents {
		out[i] = quote(ident)
	}
	return strings.Join(out, ", ")
}
