package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// JamRepo persists jams.  A jam row doubles as the lock that serializes
// every change to the order of its songs.
type JamRepo struct {
	db *sql.DB
}

// NewJamRepo returns a JamRepo bound to db.
func NewJamRepo(db *sql.DB) *JamRepo { return &JamRepo{db: db} }

const jamColumns = `id, event_id, name, slug, status, notes, order_index, created_at, updated_at`

func scanJam(sc scanner) (*model.Jam, error) {
	var j model.Jam
	if err := sc.Scan(&j.ID, &j.EventID, &j.Name, &j.Slug, &j.Status, &j.Notes, &j.OrderIndex, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJam appends a jam to its event.  A slug collision yields
// model.ErrSlugTaken.
func (r *JamRepo) CreateJam(ctx context.Context, j *model.Jam) error {
	const q = `INSERT INTO jams (event_id, name, slug, status, notes, order_index)
		SELECT ?, ?, ?, ?, ?, COALESCE(MAX(order_index) + 1, 0) FROM jams WHERE event_id = ?`
	res, err := r.db.ExecContext(ctx, q, j.EventID, j.Name, j.Slug, j.Status, j.Notes, j.EventID)
	if err != nil {
		if isDuplicate(err) {
			return model.ErrSlugTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// Query back the row for the generated index and timestamps.
	got, err := scanJam(r.db.QueryRowContext(ctx, `SELECT `+jamColumns+` FROM jams WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*j = *got
	return nil
}

// GetJam returns a jam by id.
func (r *JamRepo) GetJam(ctx context.Context, id uint64) (*model.Jam, error) {
	j, err := scanJam(r.db.QueryRowContext(ctx, `SELECT `+jamColumns+` FROM jams WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "jam %d not found", id)
	}
	return j, nil
}

// ListJams returns the jams of an event ordered by order_index.
func (r *JamRepo) ListJams(ctx context.Context, eventID uint64) ([]model.Jam, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jamColumns+` FROM jams WHERE event_id = ? ORDER BY order_index, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Jam{}
	for rows.Next() {
		j, err := scanJam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// lockJam takes the row lock of a jam inside tx.
func lockJam(ctx context.Context, tx *sql.Tx, jamID uint64) error {
	var id uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM jams WHERE id = ? FOR UPDATE`, jamID).Scan(&id)
	return notFound(err, "jam %d not found", jamID)
}
