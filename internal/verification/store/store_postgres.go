package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"trustgate/internal/verification/models"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
	txcontext "trustgate/pkg/platform/tx"
)

const (
	documentsTable   = "verification_documents"
	generationsTable = "verification_account_generations"

	// pgUniqueViolation is the SQLSTATE for unique_violation.
	pgUniqueViolation = "23505"
)

var documentColumns = []string{
	"id",
	"seq",
	"owner_account_id",
	"category",
	"evidence_ref",
	"status",
	"submitted_at",
	"reviewed_at",
	"reviewer_id",
	"review_note",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// bumpGeneration advances the owner's generation for every row the named
// CTE wrote. Appended to the write itself so both commit or neither does.
func bumpGeneration(cte string) string {
	return `, bumped AS (
		INSERT INTO ` + generationsTable + ` (account_id, generation)
		SELECT owner_account_id, 1 FROM ` + cte + `
		ON CONFLICT (account_id) DO UPDATE
		SET generation = ` + generationsTable + `.generation + 1
	)`
}

// PostgresStore persists verification documents in PostgreSQL.
// The partial unique index on (owner_account_id, category) WHERE status = 'PENDING'
// enforces a single pending submission per category; reviews are a
// conditional UPDATE so concurrent reviewers race on the row, not in Go.
// Both writes advance the owner's row in verification_account_generations
// in the same statement.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed document store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return sentinel.ErrInvalidState
	}
	query, args, err := psql.Insert(documentsTable).
		Columns("id", "owner_account_id", "category", "evidence_ref", "status", "submitted_at", "review_note").
		Values(uuid.UUID(doc.ID), uuid.UUID(doc.OwnerAccountID), string(doc.Category), doc.EvidenceRef,
			string(doc.Status), doc.SubmittedAt, doc.ReviewNote).
		Suffix("RETURNING seq, owner_account_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert document: %w", err)
	}
	query = "WITH inserted AS (" + query + ")" + bumpGeneration("inserted") + " SELECT seq FROM inserted"

	var seq int64
	if err := s.querier(ctx).QueryRowContext(ctx, query, args...).Scan(&seq); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert document: %w", err)
	}
	doc.Seq = seq
	return nil
}

// Generation returns the account's write counter, zero before its first write.
func (s *PostgresStore) Generation(ctx context.Context, accountID id.AccountID) (uint64, error) {
	query, args, err := psql.Select("generation").
		From(generationsTable).
		Where(sq.Eq{"account_id": uuid.UUID(accountID)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build read generation: %w", err)
	}
	var gen int64
	err = s.querier(ctx).QueryRowContext(ctx, query, args...).Scan(&gen)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return uint64(gen), nil
}

func (s *PostgresStore) FindByID(ctx context.Context, documentID id.DocumentID) (*models.Document, error) {
	query, args, err := psql.Select(documentColumns...).
		From(documentsTable).
		Where(sq.Eq{"id": uuid.UUID(documentID)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find document: %w", err)
	}
	doc, err := scanDocument(s.querier(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

// LatestForAccount reads the latest document per category in one statement,
// so the resulting state is a single snapshot.
func (s *PostgresStore) LatestForAccount(ctx context.Context, accountID id.AccountID) (*models.AccountState, error) {
	query, args, err := psql.Select(documentColumns...).
		Options("DISTINCT ON (category)").
		From(documentsTable).
		Where(sq.Eq{"owner_account_id": uuid.UUID(accountID)}).
		OrderBy("category", "submitted_at DESC", "seq DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build latest documents: %w", err)
	}
	docs, err := s.queryDocuments(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("latest documents: %w", err)
	}
	return models.NewAccountState(accountID, docs), nil
}

func (s *PostgresStore) ListPending(ctx context.Context, category *models.Category) ([]*models.Document, error) {
	q := psql.Select(documentColumns...).
		From(documentsTable).
		Where(sq.Eq{"status": string(models.StatusPending)}).
		OrderBy("submitted_at ASC", "seq ASC")
	if category != nil {
		q = q.Where(sq.Eq{"category": string(*category)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending documents: %w", err)
	}
	docs, err := s.queryDocuments(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pending documents: %w", err)
	}
	return docs, nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID id.AccountID, category *models.Category) ([]*models.Document, error) {
	q := psql.Select(documentColumns...).
		From(documentsTable).
		Where(sq.Eq{"owner_account_id": uuid.UUID(accountID)}).
		OrderBy("submitted_at DESC", "seq DESC")
	if category != nil {
		q = q.Where(sq.Eq{"category": string(*category)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build account documents: %w", err)
	}
	docs, err := s.queryDocuments(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("account documents: %w", err)
	}
	return docs, nil
}

// CompleteReview is a compare-and-swap on status. When no row matches, a
// follow-up lookup tells a missing document apart from one that was already reviewed.
func (s *PostgresStore) CompleteReview(ctx context.Context, documentID id.DocumentID, decision models.Decision, reviewerID id.AccountID, note string, at time.Time) (*models.Document, error) {
	query, args, err := psql.Update(documentsTable).
		Set("status", string(decision.Status())).
		Set("reviewed_at", at).
		Set("reviewer_id", uuid.UUID(reviewerID)).
		Set("review_note", note).
		Where(sq.Eq{"id": uuid.UUID(documentID), "status": string(models.StatusPending)}).
		Suffix("RETURNING " + strings.Join(documentColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build review update: %w", err)
	}
	query = "WITH reviewed AS (" + query + ")" + bumpGeneration("reviewed") +
		" SELECT " + strings.Join(documentColumns, ", ") + " FROM reviewed"

	q := s.querier(ctx)
	doc, err := scanDocument(q.QueryRowContext(ctx, query, args...))
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("review document: %w", err)
	}

	var status string
	err = q.QueryRowContext(ctx, "SELECT status FROM "+documentsTable+" WHERE id = $1", uuid.UUID(documentID)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up document: %w", err)
	}
	return nil, sentinel.ErrInvalidState
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		docID      uuid.UUID
		ownerID    uuid.UUID
		category   string
		status     string
		reviewedAt sql.NullTime
		reviewerID uuid.NullUUID
		note       sql.NullString
		doc        models.Document
	)
	if err := row.Scan(&docID, &doc.Seq, &ownerID, &category, &doc.EvidenceRef, &status,
		&doc.SubmittedAt, &reviewedAt, &reviewerID, &note); err != nil {
		return nil, err
	}
	doc.ID = id.DocumentID(docID)
	doc.OwnerAccountID = id.AccountID(ownerID)
	doc.Category = models.Category(category)
	doc.Status = models.Status(status)
	doc.SubmittedAt = doc.SubmittedAt.UTC()
	if reviewedAt.Valid {
		t := reviewedAt.Time.UTC()
		doc.ReviewedAt = &t
	}
	if reviewerID.Valid {
		r := id.AccountID(reviewerID.UUID)
		doc.ReviewerID = &r
	}
	doc.ReviewNote = note.String
	return &doc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
