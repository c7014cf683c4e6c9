package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

type Note struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Body  string `json:"body"`
}

const (
	noteDefault int32 = iota
	noteGetByID
	noteGetByOwner
	noteGetAll
)

const noteSchema = `CREATE TABLE IF NOT EXISTS note (
  id TEXT PRIMARY KEY,
  owner TEXT NOT NULL,
  body TEXT NOT NULL
)`

func noteTable() *Table {
	return &Table{
		Struct:           Note{},
		Schema:           noteSchema,
		PrimaryKeyField:  "id",
		PrimaryQueryName: noteGetByID,
		InsertQuery:      `INSERT INTO note (id, owner, body) VALUES (:id, :owner, :body) RETURNING *`,
		Queries: []*Query{
			{
				Name:         noteGetByID,
				CacheKey:     "id=%v",
				Query:        "select * from note where id=:id",
				InsertAction: CacheSet,
				SelectAction: CacheSet,
			},
			{
				Name:                    noteGetByOwner,
				CacheKey:                "owner=%v",
				CachePrimaryQueryStored: noteGetByID,
				Query:                   "select * from note where owner=:owner order by rowid",
				InsertAction:            CacheRPush,
				SelectAction:            CacheRPush,
			},
			{
				Name:  noteGetAll,
				Query: "select * from note order by rowid",
			},
		},
	}
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	sqlx.BindDriver("sqlite", sqlx.QUESTION)
	conn, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "storage.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	if err := Initialize(context.Background(), conn, noteTable()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return conn
}

func newTestStorage(t *testing.T, conn *sqlx.DB, rdb *redis.Client) Storage {
	t.Helper()

	s, err := New(&Config{
		ReadOnlyDbConn:  conn,
		WriteOnlyDbConn: conn,
		Redis:           rdb,
		Tables:          []*Table{noteTable()},
		ServiceName:     "test",
		DefaultTTL:      60,
		Debugger:        true,
	})
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	return s
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestInitializeIsIdempotent(t *testing.T) {
	conn := newTestDB(t)

	for i := 0; i < 2; i++ {
		if err := Initialize(context.Background(), conn, noteTable()); err != nil {
			t.Fatalf("initialize run %d: %v", i, err)
		}
	}
}

func TestInsertAndSelectWithoutCache(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, newTestDB(t), nil)

	n := &Note{ID: "n-1", Owner: "alice", Body: "call back"}
	if err := s.Insert(ctx, n); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got := &Note{ID: "n-1"}
	if err := s.Select(ctx, got, noteGetByID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if *got != *n {
		t.Fatalf("expected %+v, got %+v", *n, *got)
	}

	var all []Note
	if err := s.SelectAll(ctx, &Note{}, &all, noteGetAll); err != nil {
		t.Fatalf("select all: %v", err)
	}
	if len(all) != 1 || all[0] != *n {
		t.Fatalf("expected [%+v], got %+v", *n, all)
	}
}

func TestSelectMissingRow(t *testing.T) {
	s := newTestStorage(t, newTestDB(t), nil)

	err := s.Select(context.Background(), &Note{ID: "nope"}, noteGetByID)
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestSelectAllEmptyReturnsEmptySlice(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := newTestStorage(t, newTestDB(t), rdb)

	for _, name := range []int32{noteGetAll, noteGetByOwner} {
		var all []Note
		if err := s.SelectAll(context.Background(), &Note{Owner: "nobody"}, &all, name); err != nil {
			t.Fatalf("query %d: select all: %v", name, err)
		}
		if all == nil || len(all) != 0 {
			t.Fatalf("query %d: expected empty non-nil slice, got %#v", name, all)
		}
	}
}

func TestInsertRejectsDuplicatePrimaryKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, newTestDB(t), nil)

	if err := s.Insert(ctx, &Note{ID: "dup", Owner: "a", Body: "1"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.Insert(ctx, &Note{ID: "dup", Owner: "a", Body: "2"}); err == nil {
		t.Fatal("expected error for duplicate primary key")
	}
}

func TestCachedListFollowsInserts(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	conn := newTestDB(t)
	s := newTestStorage(t, conn, rdb)

	listKey := "service:test|Note|owner=alice"

	// inserting before the list is cached must not create a partial list
	if err := s.Insert(ctx, &Note{ID: "a-1", Owner: "alice", Body: "one"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if mr.Exists(listKey) {
		t.Fatalf("expected %s to stay uncached after insert", listKey)
	}

	var notes []Note
	if err := s.SelectAll(ctx, &Note{Owner: "alice"}, &notes, noteGetByOwner); err != nil {
		t.Fatalf("select all: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}

	ids, err := mr.List(listKey)
	if err != nil {
		t.Fatalf("list %s: %v", listKey, err)
	}
	if strings.Join(ids, ",") != "a-1" {
		t.Fatalf("expected cached ids [a-1], got %v", ids)
	}

	if err := s.Insert(ctx, &Note{ID: "a-2", Owner: "alice", Body: "two"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	ids, _ = mr.List(listKey)
	if strings.Join(ids, ",") != "a-1,a-2" {
		t.Fatalf("expected cached ids [a-1 a-2], got %v", ids)
	}

	// rows come from the per-id cache now; removing them from the db must not change the answer
	if _, err := conn.ExecContext(ctx, "DELETE FROM note"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	notes = nil
	if err := s.SelectAll(ctx, &Note{Owner: "alice"}, &notes, noteGetByOwner); err != nil {
		t.Fatalf("select all: %v", err)
	}
	if len(notes) != 2 || notes[0].ID != "a-1" || notes[1].ID != "a-2" {
		t.Fatalf("expected cached notes a-1, a-2 in order, got %+v", notes)
	}
	if notes[1].Body != "two" {
		t.Fatalf("expected body two, got %q", notes[1].Body)
	}
}

func TestCachedListDropsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	s := newTestStorage(t, newTestDB(t), rdb)

	listKey := "service:test|Note|owner=alice"

	if err := s.Insert(ctx, &Note{ID: "a-1", Owner: "alice", Body: "one"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var notes []Note
	if err := s.SelectAll(ctx, &Note{Owner: "alice"}, &notes, noteGetByOwner); err != nil {
		t.Fatalf("select all: %v", err)
	}

	// what an append racing a rebuild leaves behind
	if err := rdb.RPush(ctx, listKey, "a-1").Err(); err != nil {
		t.Fatalf("rpush: %v", err)
	}

	notes = nil
	if err := s.SelectAll(ctx, &Note{Owner: "alice"}, &notes, noteGetByOwner); err != nil {
		t.Fatalf("select all: %v", err)
	}
	if len(notes) != 1 || notes[0].ID != "a-1" {
		t.Fatalf("expected a single a-1, got %+v", notes)
	}
}

func TestListRebuildIsDroppedWhenAnInsertLands(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := newTestStorage(t, newTestDB(t), rdb).(*storage)

	listKey := "service:test|Note|owner=alice"

	loaded, err := s.cache.loadList(ctx, listKey, 60, func() ([]interface{}, error) {
		// an insert commits and appends between the db read and the write
		if err := s.cache.appendList(ctx, listKey, "a-2", 60); err != nil {
			return nil, err
		}
		return []interface{}{"a-1"}, nil
	})
	if !loaded {
		t.Fatal("expected load to run")
	}
	if !errors.Is(err, redis.TxFailedErr) {
		t.Fatalf("expected redis.TxFailedErr, got %v", err)
	}
	if mr.Exists(listKey) {
		t.Fatalf("expected %s to stay uncached", listKey)
	}

	loaded, err = s.cache.loadList(ctx, listKey, 60, func() ([]interface{}, error) {
		return []interface{}{"a-1", "a-2"}, nil
	})
	if !loaded || err != nil {
		t.Fatalf("expected list to be stored, loaded=%v err=%v", loaded, err)
	}
	ids, _ := mr.List(listKey)
	if strings.Join(ids, ",") != "a-1,a-2" {
		t.Fatalf("expected cached ids [a-1 a-2], got %v", ids)
	}
	if ttl := mr.TTL(listKey); ttl <= 0 {
		t.Fatalf("expected a ttl on %s, got %v", listKey, ttl)
	}
}

func TestCachedListExactUnderConcurrentInsertAndSelect(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := newTestStorage(t, newTestDB(t), rdb)

	listKey := "service:test|Note|owner=alice"
	const n = 40

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return s.Insert(gctx, &Note{ID: fmt.Sprintf("c-%d", i), Owner: "alice", Body: "x"})
		})
		g.Go(func() error {
			var notes []Note
			return s.SelectAll(gctx, &Note{Owner: "alice"}, &notes, noteGetByOwner)
		})
		if i%10 == 5 {
			// as if the list expired mid-run
			mr.Del(listKey)
		}
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent insert and select: %v", err)
	}

	var notes []Note
	if err := s.SelectAll(ctx, &Note{Owner: "alice"}, &notes, noteGetByOwner); err != nil {
		t.Fatalf("select all: %v", err)
	}
	if len(notes) != n {
		t.Fatalf("expected %d notes, got %d", n, len(notes))
	}
	seen := map[string]bool{}
	for _, note := range notes {
		if seen[note.ID] {
			t.Fatalf("note %s listed twice", note.ID)
		}
		seen[note.ID] = true
	}
}

func TestCacheErrorsFallBackToDB(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := newTestStorage(t, newTestDB(t), rdb)

	if err := s.Insert(ctx, &Note{ID: "a-1", Owner: "alice", Body: "one"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// wrong types make every cache read fail with WRONGTYPE
	mr.Del("service:test|Note|id=a-1")
	if _, err := mr.Lpush("service:test|Note|id=a-1", "junk"); err != nil {
		t.Fatalf("lpush: %v", err)
	}
	if err := mr.Set("service:test|Note|owner=alice", "junk"); err != nil {
		t.Fatalf("set: %v", err)
	}

	got := &Note{ID: "a-1"}
	if err := s.Select(ctx, got, noteGetByID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Body != "one" {
		t.Fatalf("expected body one, got %q", got.Body)
	}

	var notes []Note
	if err := s.SelectAll(ctx, &Note{Owner: "alice"}, &notes, noteGetByOwner); err != nil {
		t.Fatalf("select all: %v", err)
	}
	if len(notes) != 1 || notes[0].ID != "a-1" {
		t.Fatalf("expected [a-1], got %+v", notes)
	}
}

func TestSelectReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	conn := newTestDB(t)
	s := newTestStorage(t, conn, rdb)

	if _, err := conn.ExecContext(ctx, "INSERT INTO note (id, owner, body) VALUES ('x-1', 'bob', 'direct')"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	key := "service:test|Note|id=x-1"
	if mr.Exists(key) {
		t.Fatalf("expected %s to be uncached", key)
	}

	got := &Note{ID: "x-1"}
	if err := s.Select(ctx, got, noteGetByID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Body != "direct" {
		t.Fatalf("expected body direct, got %q", got.Body)
	}
	if !mr.Exists(key) {
		t.Fatalf("expected %s to be cached after select", key)
	}
	if ttl := mr.TTL(key); ttl <= 0 {
		t.Fatalf("expected a ttl on %s, got %v", key, ttl)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	conn := newTestDB(t)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: "serviceName",
		},
		{
			name:    "missing struct",
			mutate:  func(c *Config) { c.Tables[0].Struct = nil },
			wantErr: "Struct must be set",
		},
		{
			name:    "insert without returning",
			mutate:  func(c *Config) { c.Tables[0].InsertQuery = "INSERT INTO note (id) VALUES (:id)" },
			wantErr: "returning *",
		},
		{
			name:    "unknown primary query",
			mutate:  func(c *Config) { c.Tables[0].PrimaryQueryName = 99 },
			wantErr: "PrimaryQueryName",
		},
		{
			name:    "unknown primary key field",
			mutate:  func(c *Config) { c.Tables[0].PrimaryKeyField = "note_id" },
			wantErr: "PrimaryKeyField",
		},
		{
			name:    "list without primary query stored",
			mutate:  func(c *Config) { c.Tables[0].Queries[1].CachePrimaryQueryStored = 0 },
			wantErr: "CachePrimaryQueryStored",
		},
		{
			name:    "list pointing at a non primary query",
			mutate:  func(c *Config) { c.Tables[0].Queries[1].CachePrimaryQueryStored = noteGetAll },
			wantErr: "CachePrimaryQueryStored",
		},
		{
			name:    "bad cache key",
			mutate:  func(c *Config) { c.Tables[0].Queries[0].CacheKey = "id:%v" },
			wantErr: "invalid CacheKey",
		},
		{
			name:    "mixed data structures",
			mutate:  func(c *Config) { c.Tables[0].Queries[0].InsertAction = CacheRPush },
			wantErr: "same datastructure",
		},
		{
			name:    "duplicate query names",
			mutate:  func(c *Config) { c.Tables[0].Queries[2].Name = noteGetByID },
			wantErr: "duplicate query name",
		},
		{
			name:    "query the db cannot plan",
			mutate:  func(c *Config) { c.Tables[0].Queries[0].Query = "select * from missing_table where id=:id" },
			wantErr: "error in query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := &Config{
				ReadOnlyDbConn:  conn,
				WriteOnlyDbConn: conn,
				Tables:          []*Table{noteTable()},
				ServiceName:     "test",
			}
			tt.mutate(conf)

			_, err := New(conf)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestQueryKeyName(t *testing.T) {
	q := &Query{Name: 1, CacheKey: "owner=%v|status=%v", Query: "select 1", SelectAction: CacheSet}
	if err := q.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	q.parseFullCacheKey("svc", "Note")

	got := q.getKeyName(map[string]interface{}{"owner": "alice", "status": "open"})
	want := "service:svc|Note|owner=alice|status=open"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
