package outbox

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

var _ Store = (*PGStore)(nil)

func (s *PGStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

var _ Tx = (*pgTx)(nil)

// PendingBatch: SKIP LOCKED supaya relay di replica lain lewati row
// yang sedang dipegang sini; satu row tidak pernah di-publish dua kali.
func (t *pgTx) PendingBatch(ctx context.Context, limit int) ([]Message, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, topic, key, payload, status, retry_count, COALESCE(last_error,''), created_at
		FROM outbox
		WHERE status = 'pending'
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Topic, &m.Key, &m.Payload, &m.Status, &m.RetryCount, &m.LastError, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *pgTx) MarkSent(ctx context.Context, ids []int64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE outbox SET status='sent', sent_at=now() WHERE id = ANY($1)`, ids)
	return err
}

func (t *pgTx) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE outbox SET retry_count=retry_count+1, last_error=$2 WHERE id=$1`, id, errMsg)
	return err
}
