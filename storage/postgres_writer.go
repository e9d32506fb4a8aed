package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"ali-crawler/models"
	"ali-crawler/services"
)

const batchSize = 50

// PostgresWriter persists product details and reviews to PostgreSQL.
type PostgresWriter struct {
	db      *sql.DB
	cleaner *services.Cleaner
}

var (
	_ DetailWriter = (*PostgresWriter)(nil)
	_ DetailReader = (*PostgresWriter)(nil)
	_ ReviewWriter = (*PostgresWriter)(nil)
)

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, cleaner *services.Cleaner) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db, cleaner: cleaner}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS product_details (
			id             SERIAL PRIMARY KEY,
			product_id     TEXT          NOT NULL,
			url            TEXT          UNIQUE NOT NULL,
			title          TEXT          NOT NULL DEFAULT '',
			price_current  NUMERIC(12,2) NOT NULL DEFAULT 0,
			price_original NUMERIC(12,2) NOT NULL DEFAULT 0,
			discount       TEXT          NOT NULL DEFAULT '',
			sold           NUMERIC,
			rating         NUMERIC(4,2),
			reviews_count  NUMERIC,
			delivery       TEXT          NOT NULL DEFAULT '',
			specifications TEXT,
			created_at     TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS product_reviews (
			id                  SERIAL PRIMARY KEY,
			product_id          TEXT        NOT NULL,
			rating              INTEGER     NOT NULL DEFAULT 0,
			eval_date           TEXT        NOT NULL DEFAULT '',
			feedback_translated TEXT        NOT NULL DEFAULT '',
			feedback            TEXT        NOT NULL DEFAULT '',
			labels              JSONB       NOT NULL DEFAULT '[]',
			buyer_name          TEXT        NOT NULL DEFAULT '',
			buyer_country       TEXT        NOT NULL DEFAULT '',
			upvotes             INTEGER     NOT NULL DEFAULT 0,
			downvotes           INTEGER     NOT NULL DEFAULT 0,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_product_details_product_id ON product_details(product_id);
		CREATE INDEX IF NOT EXISTS idx_product_details_rating     ON product_details(rating);
		CREATE INDEX IF NOT EXISTS idx_product_reviews_product_id ON product_reviews(product_id);
		CREATE INDEX IF NOT EXISTS idx_product_reviews_country    ON product_reviews(buyer_country);
	`)
	return err
}

// WriteDetails replaces the stored product details with the given ones.
// Details sharing a URL are stored once. An empty slice clears the table.
func (pw *PostgresWriter) WriteDetails(ctx context.Context, details []models.ProductDetail) error {
	return pw.replace(ctx, "product_details", len(details), func(tx *sql.Tx, start, end int) error {
		return pw.insertDetails(ctx, tx, details[start:end])
	})
}

// WriteReviews replaces the stored reviews with the given ones. An empty
// slice clears the table.
func (pw *PostgresWriter) WriteReviews(ctx context.Context, reviews []models.Review) error {
	return pw.replace(ctx, "product_reviews", len(reviews), func(tx *sql.Tx, start, end int) error {
		return pw.insertReviews(ctx, tx, reviews[start:end])
	})
}

// replace clears table and inserts n records in batches inside one transaction.
func (pw *PostgresWriter) replace(ctx context.Context, table string, n int, insert func(tx *sql.Tx, start, end int) error) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("postgres: clear %s: %w", table, err)
	}

	for i := 0; i < n; i += batchSize {
		end := i + batchSize
		if end > n {
			end = n
		}
		if err := insert(tx, i, end); err != nil {
			return fmt.Errorf("postgres: insert %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit %s: %w", table, err)
	}
	return nil
}

func (pw *PostgresWriter) insertDetails(ctx context.Context, tx *sql.Tx, batch []models.ProductDetail) error {
	const cols = 11
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, d := range batch {
		valueStrings = append(valueStrings, placeholders(idx*cols, cols))
		valueArgs = append(valueArgs,
			d.ID, d.URL, pw.cleaner.NormaliseText(d.Title),
			pw.cleaner.ParsePrice(d.PriceCurrent), pw.cleaner.ParsePrice(d.PriceOriginal),
			d.Discount, d.Sold, d.Rating, d.ReviewsCount, d.Delivery, d.Specifications)
	}

	query := fmt.Sprintf(`
		INSERT INTO product_details (product_id, url, title, price_current, price_original,
			discount, sold, rating, reviews_count, delivery, specifications)
		VALUES %s
		ON CONFLICT (url) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

func (pw *PostgresWriter) insertReviews(ctx context.Context, tx *sql.Tx, batch []models.Review) error {
	const cols = 10
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, r := range batch {
		labels := r.Labels
		if labels == nil {
			labels = []models.ReviewLabel{}
		}
		labelsJSON, err := json.Marshal(labels)
		if err != nil {
			return fmt.Errorf("encode labels: %w", err)
		}
		valueStrings = append(valueStrings, placeholders(idx*cols, cols))
		valueArgs = append(valueArgs,
			r.ProductID, r.Rating, r.Date, r.FeedbackTranslated, r.Feedback,
			string(labelsJSON), r.Name, r.Country, r.Upvotes, r.Downvotes)
	}

	query := fmt.Sprintf(`
		INSERT INTO product_reviews (product_id, rating, eval_date, feedback_translated, feedback,
			labels, buyer_name, buyer_country, upvotes, downvotes)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// FetchDetails retrieves all stored product details ordered by rating.
func (pw *PostgresWriter) FetchDetails(ctx context.Context) ([]models.ProductDetail, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT product_id, url, title, discount, sold, rating, reviews_count, delivery, specifications,
			price_current, price_original
		FROM product_details
		ORDER BY rating DESC NULLS LAST, id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query details: %w", err)
	}
	defer rows.Close()

	var details []models.ProductDetail
	for rows.Next() {
		var (
			d                 models.ProductDetail
			sold, rating, cnt sql.NullFloat64
			specs             sql.NullString
			current, orig     float64
		)
		if err := rows.Scan(&d.ID, &d.URL, &d.Title, &d.Discount, &sold, &rating, &cnt,
			&d.Delivery, &specs, &current, &orig); err != nil {
			return nil, fmt.Errorf("postgres: scan detail: %w", err)
		}
		d.Sold = nullFloat(sold)
		d.Rating = nullFloat(rating)
		d.ReviewsCount = nullFloat(cnt)
		if specs.Valid {
			d.Specifications = &specs.String
		}
		d.PriceCurrent = formatPrice(current)
		d.PriceOriginal = formatPrice(orig)
		details = append(details, d)
	}
	return details, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func formatPrice(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// placeholders renders "($base+1,...,$base+n)".
func placeholders(base, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", base+i+1)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Ping checks the database connection.
func (pw *PostgresWriter) Ping(ctx context.Context) error {
	return pw.db.PingContext(ctx)
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
