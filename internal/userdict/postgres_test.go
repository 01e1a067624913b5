package userdict

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---------------------------------------------------------------------------
// Test helpers: mock DB types
// ---------------------------------------------------------------------------

// mockRows implements pgx.Rows for testing.
type mockRows struct {
	data    [][]any
	idx     int
	err     error
	closed  bool
	scanErr error
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		case *bool:
			*d = v.(bool)
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

type execCall struct {
	sql  string
	args []any
}

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryFunc func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execErr   error
	execs     []execCall
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.execs = append(m.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, m.execErr
}

// ---------------------------------------------------------------------------
// PostgresStore tests
// ---------------------------------------------------------------------------

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	if err := NewPostgresStore(db).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0].sql, "CREATE TABLE IF NOT EXISTS user_words") {
		t.Errorf("Migrate executed %v", db.execs)
	}

	db.execErr = errors.New("denied")
	if err := NewPostgresStore(db).Migrate(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestPostgresStore_Ping(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	if err := NewPostgresStore(db).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if len(db.execs) != 1 || db.execs[0].sql != "SELECT 1" {
		t.Errorf("Ping executed %v", db.execs)
	}
	db.execErr = errors.New("connection reset")
	if err := NewPostgresStore(db).Ping(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestPostgresStore_Load(t *testing.T) {
	t.Parallel()

	rows := &mockRows{data: [][]any{
		{"gopher", int64(3), true},
		{"the", int64(120), false},
		{"zed", int64(0), true},
	}}
	db := &mockDB{queryFunc: func(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
		if !strings.Contains(sql, "FROM user_words") {
			t.Errorf("unexpected query %q", sql)
		}
		return rows, nil
	}}

	d, err := NewPostgresStore(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(d.Words, []string{"gopher", "zed"}) {
		t.Errorf("Words = %v", d.Words)
	}
	if d.Frequencies["gopher"] != 3 || d.Frequencies["the"] != 120 || len(d.Frequencies) != 2 {
		t.Errorf("Frequencies = %v", d.Frequencies)
	}
	if !rows.closed {
		t.Error("rows not closed")
	}
}

func TestPostgresStore_LoadErrors(t *testing.T) {
	t.Parallel()

	queryErr := &mockDB{queryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
		return nil, errors.New("down")
	}}
	if _, err := NewPostgresStore(queryErr).Load(context.Background()); err == nil {
		t.Error("query error not propagated")
	}

	scanErr := &mockDB{queryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
		return &mockRows{data: [][]any{{"x", int64(1), false}}, scanErr: errors.New("bad")}, nil
	}}
	if _, err := NewPostgresStore(scanErr).Load(context.Background()); err == nil {
		t.Error("scan error not propagated")
	}
}

func TestPostgresStore_Save(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	d := &UserDictionary{Words: []string{"gopher"}, Frequencies: map[string]int{"gopher": 2, "the": 101}}
	if err := NewPostgresStore(db).Save(context.Background(), d); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(db.execs) != 1 {
		t.Fatalf("Save issued %d statements, want 1", len(db.execs))
	}
	call := db.execs[0]
	if !strings.Contains(call.sql, "ON CONFLICT (word)") {
		t.Errorf("Save is not an upsert: %s", call.sql)
	}
	words := call.args[0].([]string)
	freqs := call.args[1].([]int64)
	custom := call.args[2].([]bool)
	got := map[string]string{}
	for i, w := range words {
		got[w] = fmt.Sprintf("%d/%v", freqs[i], custom[i])
	}
	want := map[string]string{"gopher": "2/true", "the": "101/false"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("rows = %v, want %v", got, want)
	}

	empty := &mockDB{}
	if err := NewPostgresStore(empty).Save(context.Background(), New()); err != nil || len(empty.execs) != 0 {
		t.Errorf("empty save: err=%v execs=%d", err, len(empty.execs))
	}
}
