package book

import (
	"context"

	"github.com/jmoiron/sqlx"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	// ListLatest returns up to limit described books, newest acquisition first.
	ListLatest(ctx context.Context, limit int) ([]Record, error)
	// GetByISBN returns the row whose stored ISBN, with separators removed,
	// equals isbn. isbn must already be normalized.
	GetByISBN(ctx context.Context, isbn string) (Record, error)
}

// ConnProvider hands out one connection per call. Release must be called
// for every successful Acquire.
type ConnProvider interface {
	Acquire(ctx context.Context) (*sqlx.Conn, error)
	Release(conn *sqlx.Conn)
}
