package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// SongRepo persists songs and their instrument manifests.  Every method
// that changes bucket membership or order locks the owning jam row first
// and the song row second, so concurrent reorders, opens and status
// changes in one jam never interleave.
type SongRepo struct {
	db *sql.DB
}

// NewSongRepo returns a SongRepo bound to db.
func NewSongRepo(db *sql.DB) *SongRepo { return &SongRepo{db: db} }

const songColumns = `id, jam_id, title, artist, song_key, tempo, status, ready, order_index, release_batch, created_at, updated_at`

// bucketOrder sorts songs into display buckets.
const bucketOrder = `FIELD(status, 'open_for_candidates', 'on_stage', 'planned', 'played', 'canceled'), order_index, id`

func scanSong(sc scanner) (*model.Song, error) {
	var (
		s      model.Song
		artist sql.NullString
		key    sql.NullString
		tempo  sql.NullInt64
		batch  sql.NullString
	)
	err := sc.Scan(&s.ID, &s.JamID, &s.Title, &artist, &key, &tempo, &s.Status, &s.Ready,
		&s.OrderIndex, &batch, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Artist = stringPtr(artist)
	s.Key = stringPtr(key)
	s.Tempo = intPtr(tempo)
	s.ReleaseBatch = stringPtr(batch)
	return &s, nil
}

func getSong(ctx context.Context, q querier, id uint64, lock string) (*model.Song, error) {
	s, err := scanSong(q.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`+lock, id))
	if err != nil {
		return nil, notFound(err, "song %d not found", id)
	}
	return s, nil
}

// lockSongInJam resolves the song's jam, locks the jam and then the song.
func lockSongInJam(ctx context.Context, tx *sql.Tx, songID uint64) (*model.Song, error) {
	var jamID uint64
	err := tx.QueryRowContext(ctx, `SELECT jam_id FROM songs WHERE id = ?`, songID).Scan(&jamID)
	if err != nil {
		return nil, notFound(err, "song %d not found", songID)
	}
	if err := lockJam(ctx, tx, jamID); err != nil {
		return nil, err
	}
	return getSong(ctx, tx, songID, ` FOR UPDATE`)
}

// nextIndex returns the append position of a (jam, status) bucket.
func nextIndex(ctx context.Context, tx *sql.Tx, jamID uint64, status model.SongStatus) (int, error) {
	var next int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index) + 1, 0) FROM songs WHERE jam_id = ? AND status = ?`,
		jamID, status).Scan(&next)
	return next, err
}

func bucketIDs(ctx context.Context, tx *sql.Tx, jamID uint64, status model.SongStatus) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM songs WHERE jam_id = ? AND status = ? ORDER BY order_index, id`, jamID, status)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// renumber writes order_index 0..n-1 following ids.
func renumber(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE songs SET order_index = ? WHERE id = ? AND order_index <> ?`, i, id, i); err != nil {
			return err
		}
	}
	return nil
}

// compact re-packs a bucket so its indices have no gaps.
func compact(ctx context.Context, tx *sql.Tx, jamID uint64, status model.SongStatus) error {
	ids, err := bucketIDs(ctx, tx, jamID, status)
	if err != nil {
		return err
	}
	return renumber(ctx, tx, ids)
}

func insertSlots(ctx context.Context, tx *sql.Tx, songID uint64, slots []model.InstrumentSlot) error {
	if len(slots) == 0 {
		return nil
	}
	query := `INSERT INTO song_instrument_slots (song_id, instrument, slots, required, fallback_allowed) VALUES `
	args := make([]any, 0, len(slots)*5)
	for i, s := range slots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, songID, s.Instrument, s.Slots, s.Required, s.FallbackAllowed)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// CreateSong inserts a planned song at the end of the planned bucket.
func (r *SongRepo) CreateSong(ctx context.Context, s *model.Song, slots []model.InstrumentSlot) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockJam(ctx, tx, s.JamID); err != nil {
			return err
		}
		idx, err := nextIndex(ctx, tx, s.JamID, model.SongPlanned)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO songs (jam_id, title, artist, song_key, tempo, status, ready, order_index)
			 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
			s.JamID, s.Title, nullString(s.Artist), nullString(s.Key), nullInt(s.Tempo), model.SongPlanned, idx)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertSlots(ctx, tx, uint64(id), slots); err != nil {
			return err
		}
		got, err := getSong(ctx, tx, uint64(id), "")
		if err != nil {
			return err
		}
		*s = *got
		return nil
	})
}

// GetSong returns a song by id.
func (r *SongRepo) GetSong(ctx context.Context, id uint64) (*model.Song, error) {
	return getSong(ctx, r.db, id, "")
}

// ListSongs returns all songs of a jam grouped by bucket.
func (r *SongRepo) ListSongs(ctx context.Context, jamID uint64) ([]model.Song, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE jam_id = ? ORDER BY `+bucketOrder, jamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func listSlots(ctx context.Context, q querier, songID uint64, lock string) ([]model.InstrumentSlot, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT song_id, instrument, slots, required, fallback_allowed
		 FROM song_instrument_slots WHERE song_id = ? ORDER BY instrument`+lock, songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.InstrumentSlot{}
	for rows.Next() {
		var s model.InstrumentSlot
		if err := rows.Scan(&s.SongID, &s.Instrument, &s.Slots, &s.Required, &s.FallbackAllowed); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListSlots returns the manifest of a song.
func (r *SongRepo) ListSlots(ctx context.Context, songID uint64) ([]model.InstrumentSlot, error) {
	if _, err := getSong(ctx, r.db, songID, ""); err != nil {
		return nil, err
	}
	return listSlots(ctx, r.db, songID, "")
}

// ReplaceSlots swaps the manifest.  The slot rows are locked first so a
// concurrent approval observes either the old or the new manifest.
func (r *SongRepo) ReplaceSlots(ctx context.Context, songID uint64, slots []model.InstrumentSlot) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := getSong(ctx, tx, songID, ` FOR UPDATE`); err != nil {
			return err
		}
		if _, err := listSlots(ctx, tx, songID, ` FOR UPDATE`); err != nil {
			return err
		}
		approved, err := approvedByInstrument(ctx, tx, songID)
		if err != nil {
			return err
		}
		if err := model.CheckManifestFits(slots, approved); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM song_instrument_slots WHERE song_id = ?`, songID); err != nil {
			return err
		}
		return insertSlots(ctx, tx, songID, slots)
	})
}

// DeleteSong removes the song and its dependent rows, then compacts the
// bucket it lived in.
func (r *SongRepo) DeleteSong(ctx context.Context, songID uint64) (*model.Song, error) {
	var deleted *model.Song
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		s, err := lockSongInJam(ctx, tx, songID)
		if err != nil {
			return err
		}
		for _, q := range []string{
			`DELETE FROM song_ratings WHERE song_id = ?`,
			`DELETE FROM song_candidates WHERE song_id = ?`,
			`DELETE FROM song_instrument_slots WHERE song_id = ?`,
			`DELETE FROM songs WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, songID); err != nil {
				return err
			}
		}
		deleted = s
		return compact(ctx, tx, s.JamID, s.Status)
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// OpenSongs opens planned songs of a jam as one unit under the jam lock.
func (r *SongRepo) OpenSongs(ctx context.Context, jamID uint64, ids []uint64, limit int, batch *string) ([]model.Song, error) {
	var out []model.Song
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockJam(ctx, tx, jamID); err != nil {
			return err
		}
		for _, id := range ids {
			s, err := getSong(ctx, tx, id, ` FOR UPDATE`)
			if err != nil {
				return err
			}
			if s.JamID != jamID {
				return model.Errorf(model.KindNotFound, "song %d not found in jam %d", id, jamID)
			}
			if s.Status != model.SongPlanned {
				return model.Errorf(model.KindInvalidState, "song %d is %s, not planned", id, s.Status)
			}
		}
		var open int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM songs WHERE jam_id = ? AND status = ?`,
			jamID, model.SongOpenForCandidates).Scan(&open); err != nil {
			return err
		}
		if open+len(ids) > limit {
			return model.Errorf(model.KindTooManyOpenSongs, "jam %d has %d open songs, limit is %d", jamID, open, limit)
		}
		next, err := nextIndex(ctx, tx, jamID, model.SongOpenForCandidates)
		if err != nil {
			return err
		}
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE songs SET status = ?, ready = 0, order_index = ?, release_batch = COALESCE(?, release_batch)
				 WHERE id = ?`,
				model.SongOpenForCandidates, next+i, nullString(batch), id); err != nil {
				return err
			}
		}
		if err := compact(ctx, tx, jamID, model.SongPlanned); err != nil {
			return err
		}
		out = make([]model.Song, 0, len(ids))
		for _, id := range ids {
			s, err := getSong(ctx, tx, id, "")
			if err != nil {
				return err
			}
			out = append(out, *s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSong applies mutate to the locked song and writes it back.  A
// status change appends the song to its new bucket and compacts the old one.
func (r *SongRepo) UpdateSong(ctx context.Context, songID uint64, mutate func(*model.Song) error) (*model.Song, error) {
	var updated *model.Song
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		s, err := lockSongInJam(ctx, tx, songID)
		if err != nil {
			return err
		}
		from := s.Status
		if err := mutate(s); err != nil {
			return err
		}
		if s.Status != from {
			if s.OrderIndex, err = nextIndex(ctx, tx, s.JamID, s.Status); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE songs SET title = ?, artist = ?, song_key = ?, tempo = ?, status = ?, ready = ?,
			 order_index = ?, release_batch = ? WHERE id = ?`,
			s.Title, nullString(s.Artist), nullString(s.Key), nullInt(s.Tempo), s.Status, s.Ready,
			s.OrderIndex, nullString(s.ReleaseBatch), songID); err != nil {
			return err
		}
		if s.Status != from {
			if err := compact(ctx, tx, s.JamID, from); err != nil {
				return err
			}
		}
		updated, err = getSong(ctx, tx, songID, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CloseSong returns an open song to planned and rejects its undecided
// candidates in the same transaction.
func (r *SongRepo) CloseSong(ctx context.Context, songID uint64) (*model.Song, []model.Candidate, error) {
	var (
		closed   *model.Song
		rejected []model.Candidate
	)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		s, err := lockSongInJam(ctx, tx, songID)
		if err != nil {
			return err
		}
		if s.Status != model.SongOpenForCandidates {
			return model.Errorf(model.KindInvalidState, "song %d is %s, not open", songID, s.Status)
		}
		idx, err := nextIndex(ctx, tx, s.JamID, model.SongPlanned)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE songs SET status = ?, ready = 0, order_index = ? WHERE id = ?`,
			model.SongPlanned, idx, songID); err != nil {
			return err
		}
		if err := compact(ctx, tx, s.JamID, model.SongOpenForCandidates); err != nil {
			return err
		}
		pending, err := listCandidates(ctx, tx,
			`WHERE c.song_id = ? AND c.status = ? ORDER BY c.id FOR UPDATE`, songID, model.CandidatePending)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE song_candidates SET status = ? WHERE song_id = ? AND status = ?`,
				model.CandidateRejected, songID, model.CandidatePending); err != nil {
				return err
			}
		}
		for i := range pending {
			pending[i].Status = model.CandidateRejected
		}
		rejected = pending
		closed, err = getSong(ctx, tx, songID, "")
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return closed, rejected, nil
}

// ReorderBucket rewrites the order of one bucket following
// model.PlanReorder.
func (r *SongRepo) ReorderBucket(ctx context.Context, jamID uint64, status model.SongStatus, ids []uint64) ([]uint64, error) {
	var order []uint64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockJam(ctx, tx, jamID); err != nil {
			return err
		}
		current, err := bucketIDs(ctx, tx, jamID, status)
		if err != nil {
			return err
		}
		if order, err = model.PlanReorder(current, ids); err != nil {
			return err
		}
		return renumber(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
