package sink

// postgres.go is a Postgres-backed record sink. Each batch runs in one
// transaction with a savepoint per record, so a bad row fails alone instead
// of poisoning the batch. Failures echo the record's row index in the
// response, which lets the pipeline attribute errors exactly.

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nexcrm/importer/internal/importer"
)

// DBTX is the subset of pgx operations the sink needs.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

const insertContactSQL = `
INSERT INTO contacts (name, email, company, phone, status, tags, lifetime_value, subscribed, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (email) DO UPDATE SET
	name = EXCLUDED.name,
	company = EXCLUDED.company,
	phone = EXCLUDED.phone,
	status = EXCLUDED.status,
	tags = EXCLUDED.tags,
	lifetime_value = EXCLUDED.lifetime_value,
	subscribed = EXCLUDED.subscribed,
	notes = EXCLUDED.notes,
	updated_at = now()
`

// PostgresSink persists batches into the contacts table.
type PostgresSink struct {
	db DBTX
}

// NewPostgresSink creates a sink over a pgx pool or transaction.
func NewPostgresSink(db DBTX) *PostgresSink {
	return &PostgresSink{db: db}
}

// SubmitBatch implements importer.Sink.
func (s *PostgresSink) SubmitBatch(ctx context.Context, records []importer.ValidatedRecord) (importer.BatchResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return importer.BatchResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var result importer.BatchResult

	for i, rec := range records {
		savepoint := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return importer.BatchResult{}, fmt.Errorf("create savepoint: %w", err)
		}

		_, err := tx.Exec(ctx, insertContactSQL,
			field(rec, "name"),
			field(rec, "email"),
			field(rec, "company"),
			field(rec, "phone"),
			field(rec, "status"),
			tags(rec),
			field(rec, "lifetime_value"),
			field(rec, "subscribed"),
			field(rec, "notes"),
		)
		if err != nil {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				return importer.BatchResult{}, fmt.Errorf("rollback savepoint: %w", rbErr)
			}
			result.Failed++
			result.Errors = append(result.Errors, importer.BatchError{
				Row:     rec.RowIndex,
				Message: fmt.Sprintf("insert: %v", err),
			})
			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
			return importer.BatchResult{}, fmt.Errorf("release savepoint: %w", err)
		}
		result.Successful++
	}

	if err := tx.Commit(ctx); err != nil {
		return importer.BatchResult{}, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// field returns a typed field value or nil so absent optionals insert NULL.
func field(rec importer.ValidatedRecord, key string) any {
	v, ok := rec.Fields[key]
	if !ok {
		return nil
	}
	return v
}

// tags returns the tags list typed for the text[] column.
func tags(rec importer.ValidatedRecord) any {
	v, ok := rec.Fields["tags"]
	if !ok {
		return nil
	}
	if list, ok := v.([]string); ok {
		return list
	}
	return nil
}
