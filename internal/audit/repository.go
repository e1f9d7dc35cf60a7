package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists and reads posting audit entries plus the posted-ledger
// view needed by completeness checks.
type Repository interface {
	InsertEntry(ctx context.Context, entry Entry) error
	EntriesForDoc(ctx context.Context, sourceDocID uuid.UUID) ([]Entry, error)
	// PostedLedgerCounts returns, per ledger, how many successful target
	// documents exist for the source document. A count above one is a
	// duplicate that completeness flags as an extra.
	PostedLedgerCounts(ctx context.Context, sourceDocID uuid.UUID) (map[int64]int, error)
	// DocsWithGaps lists source documents that have audit activity but fewer
	// posted target ledgers than expected.
	DocsWithGaps(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) InsertEntry(ctx context.Context, entry Entry) error {
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("audit: marshal meta: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO posting_audit_entries (source_doc_id, ledger_id, outcome, error_detail, total_debit, total_credit, meta, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		entry.SourceDocID, entry.LedgerID, entry.Outcome, entry.ErrorDetail,
		entry.TotalDebit, entry.TotalCredit, meta, entry.StartedAt, entry.FinishedAt)
	return err
}

func (r *repository) EntriesForDoc(ctx context.Context, sourceDocID uuid.UUID) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, source_doc_id, ledger_id, outcome, error_detail, total_debit, total_credit, meta, started_at, finished_at
FROM posting_audit_entries WHERE source_doc_id=$1 ORDER BY id ASC`, sourceDocID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var entry Entry
		var meta []byte
		if err := rows.Scan(&entry.ID, &entry.SourceDocID, &entry.LedgerID, &entry.Outcome, &entry.ErrorDetail,
			&entry.TotalDebit, &entry.TotalCredit, &meta, &entry.StartedAt, &entry.FinishedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, fmt.Errorf("audit: unmarshal meta: %w", err)
			}
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *repository) PostedLedgerCounts(ctx context.Context, sourceDocID uuid.UUID) (map[int64]int, error) {
	rows, err := r.db.Query(ctx, `SELECT ledger_id, count(*) FROM target_documents WHERE source_doc_id=$1 GROUP BY ledger_id`, sourceDocID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[int64]int)
	for rows.Next() {
		var ledgerID int64
		var n int
		if err := rows.Scan(&ledgerID, &n); err != nil {
			return nil, err
		}
		counts[ledgerID] = n
	}
	return counts, rows.Err()
}

func (r *repository) DocsWithGaps(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT a.source_doc_id
FROM posting_audit_entries a
GROUP BY a.source_doc_id
HAVING (SELECT count(*) FROM ledgers l WHERE l.active AND NOT l.is_leading)
     > (SELECT count(DISTINCT t.ledger_id) FROM target_documents t WHERE t.source_doc_id = a.source_doc_id)
ORDER BY max(a.finished_at) ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
