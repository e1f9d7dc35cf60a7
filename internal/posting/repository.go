package posting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledgerbridge/internal/audit"
)

var (
	// ErrSourceNotFound indicates an unknown source document id.
	ErrSourceNotFound = errors.New("posting: source document not found")
	// ErrDuplicateLedgerAttempt indicates a second target document for the
	// same (source document, target ledger) key. The unique constraint is
	// the hard backstop behind the orchestration lock.
	ErrDuplicateLedgerAttempt = errors.New("posting: target document already exists for ledger")
)

// Repository reads source documents and persists target documents. The
// target document, its lines and the success audit entry are written as a
// single transaction so a ledger attempt is never observed half-written.
type Repository interface {
	GetSourceDocument(ctx context.Context, id uuid.UUID) (SourceDocument, error)
	PersistTarget(ctx context.Context, doc TargetDocument, entry audit.Entry) (uuid.UUID, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) GetSourceDocument(ctx context.Context, id uuid.UUID) (SourceDocument, error) {
	var doc SourceDocument
	err := r.db.QueryRow(ctx, `SELECT id, doc_key, company_id, posting_date, currency, posted_at
FROM source_documents WHERE id=$1`, id).
		Scan(&doc.ID, &doc.DocKey, &doc.CompanyID, &doc.PostingDate, &doc.Currency, &doc.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SourceDocument{}, ErrSourceNotFound
		}
		return SourceDocument{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, account_id, account_group, debit, credit, currency, dim_business_unit, dim_cost_center, dim_location, dim_product_line, historical_rate, historical_date
FROM source_lines WHERE source_doc_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return SourceDocument{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line SourceLine
		if err := rows.Scan(&line.ID, &line.AccountID, &line.AccountGroup, &line.Debit, &line.Credit, &line.Currency,
			&line.DimBusinessUnit, &line.DimCostCenter, &line.DimLocation, &line.DimProductLine,
			&line.HistoricalRate, &line.HistoricalDate); err != nil {
			return SourceDocument{}, err
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, rows.Err()
}

func (r *repository) PersistTarget(ctx context.Context, doc TargetDocument, entry audit.Entry) (uuid.UUID, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return uuid.Nil, fmt.Errorf("posting: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO target_documents (id, source_doc_id, ledger_id, company_id, posting_date, currency)
VALUES ($1,$2,$3,$4,$5,$6)`,
		doc.ID, doc.SourceDocID, doc.LedgerID, doc.CompanyID, doc.PostingDate, doc.Currency)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, ErrDuplicateLedgerAttempt
		}
		return uuid.Nil, err
	}

	for _, line := range doc.Lines {
		_, err := tx.Exec(ctx, `INSERT INTO target_lines (target_doc_id, source_line_id, account_id, debit, credit, dim_business_unit, dim_cost_center, dim_location, dim_product_line, rate_value, rate_date, rate_type, rule_id, rule_kind, pnl_component, oci_component, cta_component)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			doc.ID, line.SourceLineID, line.AccountID, line.Debit, line.Credit,
			line.DimBusinessUnit, line.DimCostCenter, line.DimLocation, line.DimProductLine,
			line.RateValue, line.RateDate, line.RateType, line.RuleID, line.RuleKind,
			line.PnLComponent, line.OCIComponent, line.CTAComponent)
		if err != nil {
			return uuid.Nil, err
		}
	}

	meta, err := marshalMeta(entry.Meta)
	if err != nil {
		return uuid.Nil, err
	}
	_, err = tx.Exec(ctx, `INSERT INTO posting_audit_entries (source_doc_id, ledger_id, outcome, error_detail, total_debit, total_credit, meta, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		entry.SourceDocID, entry.LedgerID, entry.Outcome, entry.ErrorDetail,
		entry.TotalDebit, entry.TotalCredit, meta, entry.StartedAt, entry.FinishedAt)
	if err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("posting: commit tx: %w", err)
	}
	return doc.ID, nil
}

func marshalMeta(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("posting: marshal audit meta: %w", err)
	}
	return data, nil
}
