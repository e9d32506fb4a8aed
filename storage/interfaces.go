package storage

import (
	"context"

	"ali-crawler/models"
)

// DetailWriter is the interface any product detail sink must satisfy.
type DetailWriter interface {
	WriteDetails(ctx context.Context, details []models.ProductDetail) error
	Close() error
}

// ReviewWriter is the interface any review sink must satisfy.
type ReviewWriter interface {
	WriteReviews(ctx context.Context, reviews []models.Review) error
	Close() error
}

// DetailReader reads back stored product details.
type DetailReader interface {
	FetchDetails(ctx context.Context) ([]models.ProductDetail, error)
}
