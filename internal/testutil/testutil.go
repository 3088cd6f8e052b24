package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"booklibrary/internal/platform/sqlite"
)

// BooksSchema mirrors the table produced by the catalog import.
const BooksSchema = `
CREATE TABLE books (
	Acc_No      INTEGER PRIMARY KEY,
	ISBN        TEXT,
	Title       TEXT NOT NULL,
	Author      TEXT,
	description TEXT,
	Acc_Date    TEXT,
	Price       REAL
)`

// TimestampBooksSchema is BooksSchema with Acc_Date declared TIMESTAMP, the
// way a pandas to_sql export declares datetime columns.
const TimestampBooksSchema = `
CREATE TABLE books (
	Acc_No      INTEGER PRIMARY KEY,
	ISBN        TEXT,
	Title       TEXT NOT NULL,
	Author      TEXT,
	description TEXT,
	Acc_Date    TIMESTAMP,
	Price       REAL
)`

// BookRow is one fixture row. A nil Description is stored as NULL.
type BookRow struct {
	ISBN        string
	Title       string
	Author      string
	Description *string
	AccDate     string
	Price       float64
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// TestBooks is a small catalog covering hyphenated and plain ISBNs, a NULL
// description and a date tie.
var TestBooks = []BookRow{
	{ISBN: "978-0-13-110362-7", Title: "The C Programming Language", Author: "Kernighan", Description: Str("K&R"), AccDate: "2021-03-01", Price: 45.5},
	{ISBN: "9780262033848", Title: "Introduction to Algorithms", Author: "Cormen", Description: Str("CLRS"), AccDate: "2023-07-15", Price: 99},
	{ISBN: "0-201-63361-2", Title: "Design Patterns", Author: "Gamma", Description: nil, AccDate: "2024-01-10", Price: 52},
	{ISBN: "978-1-59327-584-6", Title: "The Linux Command Line", Author: "Shotts", Description: Str("Shell basics"), AccDate: "2023-07-15", Price: 39.95},
	{ISBN: "978-0134190440", Title: "The Go Programming Language", Author: "Donovan", Description: Str("gopl"), AccDate: "2022-11-30", Price: 41},
}

// NewBooksDB writes a fresh SQLite file containing rows and returns its path.
func NewBooksDB(t testing.TB, rows ...BookRow) string {
	t.Helper()
	return NewBooksDBWithSchema(t, BooksSchema, rows...)
}

// NewBooksDBWithSchema is NewBooksDB with a custom CREATE TABLE statement.
func NewBooksDBWithSchema(t testing.TB, schema string, rows ...BookRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.sqlite3")

	p, err := sqlite.Open(context.Background(), sqlite.Config{Path: path, ReadWrite: true, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("create fixture db: %v", err)
	}
	defer p.Close()

	if _, err := p.DB().Exec(schema); err != nil {
		t.Fatalf("create books table: %v", err)
	}
	for _, r := range rows {
		_, err := p.DB().Exec(
			`INSERT INTO books (ISBN, Title, Author, description, Acc_Date, Price) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ISBN, r.Title, r.Author, r.Description, r.AccDate, r.Price,
		)
		if err != nil {
			t.Fatalf("insert fixture %q: %v", r.ISBN, err)
		}
	}
	return path
}

// OpenBooksDB seeds a database and opens it read-only the way the API does.
func OpenBooksDB(t testing.TB, rows ...BookRow) *sqlite.Provider {
	t.Helper()
	return OpenBooksDBWithSchema(t, BooksSchema, rows...)
}

func OpenBooksDBWithSchema(t testing.TB, schema string, rows ...BookRow) *sqlite.Provider {
	t.Helper()
	path := NewBooksDBWithSchema(t, schema, rows...)
	p, err := sqlite.Open(context.Background(), sqlite.Config{Path: path})
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// NewRequest creates a new HTTP request for testing
func NewRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	if bodyBytes != nil {
		r := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
		return r
	}
	return httptest.NewRequest(method, path, nil)
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]interface{}
	Raw    []byte
}

// RecordHTTPResponse records the HTTP response
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]interface{}
	if len(bodyBytes) > 0 {
		_ = json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(&bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
		Raw:    bodyBytes,
	}
}

// ErrorCode extracts error.code from an error response body.
func (r RecordResponse) ErrorCode() string {
	e, ok := r.Body["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}
