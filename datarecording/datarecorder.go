// Package datarecording persists simulation results into SQLite so runs can
// be compared and plotted offline.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Table names used for run results.
const (
	RunsTable      = "runs"
	IntervalsTable = "intervals"
)

// A RunRecord summarizes one completed simulation run.
type RunRecord struct {
	RunID    string
	Policy   string
	Workload string
	Seed     int64
	NumSets  int
	NumWays  int

	Accesses   uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Bypasses   uint64
	Loads      uint64
	RFOs       uint64
	Prefetches uint64
	Writebacks uint64
	HitRate    float64
}

// An IntervalRecord is one heartbeat snapshot taken during a run. Counts are
// cumulative at the time of the snapshot.
type IntervalRecord struct {
	RunID    string
	Interval int

	Accesses   uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Bypasses   uint64
	Loads      uint64
	RFOs       uint64
	Prefetches uint64
	Writebacks uint64
}

// A Recorder stores flat structs into named tables.
type Recorder interface {
	// CreateTable creates a table whose columns are the fields of the
	// sample entry.
	CreateTable(tableName string, sampleEntry any)

	// Insert buffers one entry for a table that already exists.
	Insert(tableName string, entry any)

	// ListTables returns the names of all created tables.
	ListTables() []string

	// Flush writes all buffered entries to the database.
	Flush()
}

type table struct {
	structType reflect.Type
	pending    []any
}

// SQLiteRecorder is a Recorder backed by a SQLite database file. Buffered
// entries are flushed in batches and at process exit.
type SQLiteRecorder struct {
	db *sql.DB

	path      string
	tables    map[string]*table
	batchSize int
	pending   int
}

// NewRecorder creates a recorder writing to path + ".sqlite3". An empty path
// generates a unique one. Creation fails if the file already exists.
func NewRecorder(path string) *SQLiteRecorder {
	if path == "" {
		path = "rriplab_run_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Recording results to: %s\n", filename)

	r := &SQLiteRecorder{
		db:        db,
		path:      path,
		tables:    make(map[string]*table),
		batchSize: 100000,
	}

	atexit.Register(func() { r.Flush() })

	return r
}

// NewRecorderWithDB creates a recorder on an existing database connection.
func NewRecorderWithDB(db *sql.DB) *SQLiteRecorder {
	r := &SQLiteRecorder{
		db:        db,
		tables:    make(map[string]*table),
		batchSize: 100000,
	}

	atexit.Register(func() { r.Flush() })

	return r
}

// DB exposes the underlying connection, mainly for tests and readers.
func (r *SQLiteRecorder) DB() *sql.DB {
	return r.db
}

// CreateTable creates a table with one column per field of the sample entry.
// Only flat structs of scalar fields are storable.
func (r *SQLiteRecorder) CreateTable(tableName string, sampleEntry any) {
	structType := reflect.TypeOf(sampleEntry)
	mustBeFlatStruct(structType)

	columns := strings.Join(structs.Names(sampleEntry), ",\n\t")
	r.mustExecute(
		"CREATE TABLE " + tableName + " (\n\t" + columns + "\n);")

	r.tables[tableName] = &table{structType: structType}
}

// Insert buffers one entry. The entry must have the type the table was
// created with.
func (r *SQLiteRecorder) Insert(tableName string, entry any) {
	t, ok := r.tables[tableName]
	if !ok {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Sprintf("entry type %T does not match table %s",
			entry, tableName))
	}

	t.pending = append(t.pending, entry)

	r.pending++
	if r.pending >= r.batchSize {
		r.Flush()
	}
}

// ListTables returns the names of all created tables.
func (r *SQLiteRecorder) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	return names
}

// Flush writes all buffered entries in one transaction.
func (r *SQLiteRecorder) Flush() {
	if r.pending == 0 {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	for tableName, t := range r.tables {
		if len(t.pending) == 0 {
			continue
		}

		r.flushTable(tableName, t)
	}

	r.pending = 0
}

func (r *SQLiteRecorder) flushTable(tableName string, t *table) {
	placeholders := strings.TrimSuffix(
		strings.Repeat("?, ", t.structType.NumField()), ", ")

	stmt, err := r.db.Prepare(
		"INSERT INTO " + tableName + " VALUES (" + placeholders + ")")
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for _, entry := range t.pending {
		v := reflect.ValueOf(entry)

		values := make([]any, 0, v.NumField())
		for i := 0; i < v.NumField(); i++ {
			values = append(values, v.Field(i).Interface())
		}

		if _, err := stmt.Exec(values...); err != nil {
			panic(err)
		}
	}

	t.pending = nil
}

func (r *SQLiteRecorder) mustExecute(query string) {
	if _, err := r.db.Exec(query); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}
}

func mustBeFlatStruct(structType reflect.Type) {
	if structType.Kind() != reflect.Struct {
		panic("sample entry must be a struct")
	}

	for i := 0; i < structType.NumField(); i++ {
		switch structType.Field(i).Type.Kind() {
		case reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16,
			reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16,
			reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64,
			reflect.String:
		default:
			panic(fmt.Sprintf("field %s has an unstorable type",
				structType.Field(i).Name))
		}
	}
}
