package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// CandidateRepo persists applications and owns the capacity check.
type CandidateRepo struct {
	db *sql.DB
}

// NewCandidateRepo returns a CandidateRepo bound to db.
func NewCandidateRepo(db *sql.DB) *CandidateRepo { return &CandidateRepo{db: db} }

const candidateColumns = `c.id, c.song_id, c.instrument, c.guest_id, c.status, c.applied_at, c.approved_at, c.approved_by`

func scanCandidate(sc scanner) (*model.Candidate, error) {
	var (
		c          model.Candidate
		approvedAt sql.NullTime
		approvedBy sql.NullString
	)
	if err := sc.Scan(&c.ID, &c.SongID, &c.Instrument, &c.GuestID, &c.Status, &c.AppliedAt, &approvedAt, &approvedBy); err != nil {
		return nil, err
	}
	c.ApprovedAt = timePtr(approvedAt)
	c.ApprovedBy = stringPtr(approvedBy)
	return &c, nil
}

func listCandidates(ctx context.Context, q querier, where string, args ...any) ([]model.Candidate, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+candidateColumns+` FROM song_candidates c `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func getCandidate(ctx context.Context, q querier, id uint64, lock string) (*model.Candidate, error) {
	c, err := scanCandidate(q.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM song_candidates c WHERE c.id = ?`+lock, id))
	if err != nil {
		return nil, notFound(err, "candidate %d not found", id)
	}
	return c, nil
}

func approvedByInstrument(ctx context.Context, q querier, songID uint64) (map[string]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT instrument, COUNT(*) FROM song_candidates WHERE song_id = ? AND status = ? GROUP BY instrument`,
		songID, model.CandidateApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var (
			inst string
			n    int
		)
		if err := rows.Scan(&inst, &n); err != nil {
			return nil, err
		}
		out[inst] = n
	}
	return out, rows.Err()
}

// CreateCandidate inserts a pending application.  The song row is read
// with a shared lock so a concurrent close cannot slip in between the
// status check and the insert.
func (r *CandidateRepo) CreateCandidate(ctx context.Context, c *model.Candidate) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		s, err := getSong(ctx, tx, c.SongID, ` FOR SHARE`)
		if err != nil {
			return err
		}
		if s.Status != model.SongOpenForCandidates {
			return model.ErrSongNotOpen
		}
		var slots int
		err = tx.QueryRowContext(ctx,
			`SELECT slots FROM song_instrument_slots WHERE song_id = ? AND instrument = ?`,
			c.SongID, c.Instrument).Scan(&slots)
		if err != nil {
			return notFound(err, "song %d has no %q slot", c.SongID, c.Instrument)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO song_candidates (song_id, instrument, guest_id, status, applied_at) VALUES (?, ?, ?, ?, ?)`,
			c.SongID, c.Instrument, c.GuestID, model.CandidatePending, c.AppliedAt)
		if err != nil {
			if isDuplicate(err) {
				return model.ErrDuplicateApplication
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = uint64(id)
		c.Status = model.CandidatePending
		return nil
	})
}

// GetCandidate returns a candidate by id.
func (r *CandidateRepo) GetCandidate(ctx context.Context, id uint64) (*model.Candidate, error) {
	return getCandidate(ctx, r.db, id, "")
}

// ListCandidates returns the candidates of a song in application order.
func (r *CandidateRepo) ListCandidates(ctx context.Context, songID uint64) ([]model.Candidate, error) {
	return listCandidates(ctx, r.db, `WHERE c.song_id = ? ORDER BY c.id`, songID)
}

// ListCandidatesForGuest returns the guest's applications across a jam.
func (r *CandidateRepo) ListCandidatesForGuest(ctx context.Context, jamID, guestID uint64) ([]model.Candidate, error) {
	return listCandidates(ctx, r.db,
		`JOIN songs s ON s.id = c.song_id WHERE s.jam_id = ? AND c.guest_id = ? ORDER BY c.id`, jamID, guestID)
}

// ApproveCandidate approves a pending candidate when a seat is free.  The
// slot row is locked with FOR UPDATE and the approved count is re-read
// under that lock, which serializes approvals per (song, instrument).
func (r *CandidateRepo) ApproveCandidate(ctx context.Context, id uint64, approvedBy string, at time.Time) (*model.Candidate, int, error) {
	var (
		approved  *model.Candidate
		remaining int
	)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		c, err := getCandidate(ctx, tx, id, ` FOR UPDATE`)
		if err != nil {
			return err
		}
		if c.Status != model.CandidatePending {
			return model.Errorf(model.KindNotFound, "no pending candidate %d", id)
		}
		var slots int
		err = tx.QueryRowContext(ctx,
			`SELECT slots FROM song_instrument_slots WHERE song_id = ? AND instrument = ? FOR UPDATE`,
			c.SongID, c.Instrument).Scan(&slots)
		if err != nil {
			return notFound(err, "song %d has no %q slot", c.SongID, c.Instrument)
		}
		var taken int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM song_candidates WHERE song_id = ? AND instrument = ? AND status = ?`,
			c.SongID, c.Instrument, model.CandidateApproved).Scan(&taken); err != nil {
			return err
		}
		if taken >= slots {
			return model.ErrCapacityExceeded
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE song_candidates SET status = ?, approved_at = ?, approved_by = ? WHERE id = ? AND status = ?`,
			model.CandidateApproved, at, approvedBy, id, model.CandidatePending)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return model.Errorf(model.KindNotFound, "no pending candidate %d", id)
		}
		by, when := approvedBy, at
		c.Status = model.CandidateApproved
		c.ApprovedBy = &by
		c.ApprovedAt = &when
		approved = c
		remaining = slots - taken - 1
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return approved, remaining, nil
}

// RejectCandidate rejects a pending candidate.  changed is false when it
// was already rejected.
func (r *CandidateRepo) RejectCandidate(ctx context.Context, id uint64) (*model.Candidate, bool, error) {
	var (
		out     *model.Candidate
		changed bool
	)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		c, err := getCandidate(ctx, tx, id, ` FOR UPDATE`)
		if err != nil {
			return err
		}
		switch c.Status {
		case model.CandidateRejected:
			out = c
			return nil
		case model.CandidateApproved:
			return model.Errorf(model.KindInvalidState, "candidate %d is already approved", id)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE song_candidates SET status = ? WHERE id = ?`, model.CandidateRejected, id); err != nil {
			return err
		}
		c.Status = model.CandidateRejected
		out, changed = c, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, changed, nil
}

// CountApproved returns the approved candidates of one instrument.
func (r *CandidateRepo) CountApproved(ctx context.Context, songID uint64, instrument string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM song_candidates WHERE song_id = ? AND instrument = ? AND status = ?`,
		songID, instrument, model.CandidateApproved).Scan(&n)
	return n, err
}
