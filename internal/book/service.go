package book

import (
	"context"
)

// Service provides book-related business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListLatest returns the newest described books wrapped in an envelope.
// limit must already be within [MinListLimit, MaxListLimit].
func (s *Service) ListLatest(ctx context.Context, limit int) (ListResult, error) {
	records, err := s.repo.ListLatest(ctx, limit)
	if err != nil {
		return ListResult{}, err
	}
	return NewListResult(records), nil
}

// GetByISBN normalizes raw and looks it up. Both lookup routes go through here.
func (s *Service) GetByISBN(ctx context.Context, raw string) (Record, error) {
	isbn := NormalizeISBN(raw)
	if isbn == "" {
		return Record{}, ErrEmptyISBN
	}
	return s.repo.GetByISBN(ctx, isbn)
}
