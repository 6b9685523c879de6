package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

var (
	songCols      = []string{"id", "jam_id", "title", "artist", "song_key", "tempo", "status", "ready", "order_index", "release_batch", "created_at", "updated_at"}
	candidateCols = []string{"id", "song_id", "instrument", "guest_id", "status", "applied_at", "approved_at", "approved_by"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func songRow(id, jamID uint64, status model.SongStatus, idx int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(songCols).
		AddRow(id, jamID, "Song", nil, nil, nil, string(status), false, idx, nil, now, now)
}

func candidateRow(id, songID uint64, instrument string, status model.CandidateStatus) *sqlmock.Rows {
	return sqlmock.NewRows(candidateCols).
		AddRow(id, songID, instrument, uint64(9), string(status), time.Now(), nil, nil)
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApproveCandidateTakesLastSeat(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCandidateRepo(db)
	at := time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM song_candidates c WHERE c.id = ? FOR UPDATE`)).
		WithArgs(uint64(5)).
		WillReturnRows(candidateRow(5, 3, "guitar", model.CandidatePending))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT slots FROM song_instrument_slots WHERE song_id = ? AND instrument = ? FOR UPDATE`)).
		WithArgs(uint64(3), "guitar").
		WillReturnRows(sqlmock.NewRows([]string{"slots"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM song_candidates WHERE song_id = ? AND instrument = ? AND status = ?`)).
		WithArgs(uint64(3), "guitar", model.CandidateApproved).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE song_candidates SET status = ?, approved_at = ?, approved_by = ? WHERE id = ? AND status = ?`)).
		WithArgs(model.CandidateApproved, at, "staff:1", uint64(5), model.CandidatePending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, remaining, err := repo.ApproveCandidate(context.Background(), 5, "staff:1", at)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if c.Status != model.CandidateApproved || remaining != 0 || *c.ApprovedBy != "staff:1" {
		t.Fatalf("candidate=%+v remaining=%d", c, remaining)
	}
	expectMet(t, mock)
}

func TestApproveCandidateCapacityExceeded(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCandidateRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM song_candidates c WHERE c.id = ? FOR UPDATE`)).
		WithArgs(uint64(6)).
		WillReturnRows(candidateRow(6, 3, "guitar", model.CandidatePending))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM song_instrument_slots WHERE song_id = ? AND instrument = ? FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"slots"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM song_candidates`)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	_, _, err := repo.ApproveCandidate(context.Background(), 6, "staff:1", time.Now())
	if !errors.Is(err, model.ErrCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	expectMet(t, mock)
}

func TestApproveDecidedCandidateIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCandidateRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM song_candidates c WHERE c.id = ? FOR UPDATE`)).
		WillReturnRows(candidateRow(7, 3, "guitar", model.CandidateRejected))
	mock.ExpectRollback()

	_, _, err := repo.ApproveCandidate(context.Background(), 7, "staff:1", time.Now())
	if model.KindOf(err) != model.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	expectMet(t, mock)
}

func TestCreateCandidateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCandidateRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = ? FOR SHARE`)).
		WithArgs(uint64(3)).
		WillReturnRows(songRow(3, 1, model.SongOpenForCandidates, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT slots FROM song_instrument_slots WHERE song_id = ? AND instrument = ?`)).
		WithArgs(uint64(3), "bass").
		WillReturnRows(sqlmock.NewRows([]string{"slots"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO song_candidates`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := repo.CreateCandidate(context.Background(), &model.Candidate{SongID: 3, Instrument: "bass", GuestID: 9, AppliedAt: time.Now()})
	if !errors.Is(err, model.ErrDuplicateApplication) {
		t.Fatalf("expected duplicate application, got %v", err)
	}
	expectMet(t, mock)
}

func TestCreateCandidateSongNotOpen(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCandidateRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = ? FOR SHARE`)).
		WillReturnRows(songRow(3, 1, model.SongPlanned, 0))
	mock.ExpectRollback()

	err := repo.CreateCandidate(context.Background(), &model.Candidate{SongID: 3, Instrument: "bass", GuestID: 9})
	if !errors.Is(err, model.ErrSongNotOpen) {
		t.Fatalf("expected song not open, got %v", err)
	}
	expectMet(t, mock)
}

func TestOpenSongsCeiling(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM jams WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	for _, id := range []uint64{10, 11} {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = ? FOR UPDATE`)).
			WithArgs(id).
			WillReturnRows(songRow(id, 1, model.SongPlanned, 0))
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM songs WHERE jam_id = ? AND status = ?`)).
		WithArgs(uint64(1), model.SongOpenForCandidates).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectRollback()

	_, err := repo.OpenSongs(context.Background(), 1, []uint64{10, 11}, 5, nil)
	if !errors.Is(err, model.ErrTooManyOpenSongs) {
		t.Fatalf("expected too many open songs, got %v", err)
	}
	expectMet(t, mock)
}

func TestReorderBucketAppendsUnmentioned(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM jams WHERE id = ? FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM songs WHERE jam_id = ? AND status = ? ORDER BY order_index, id`)).
		WithArgs(uint64(1), model.SongPlanned).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3).AddRow(4))
	for i, id := range []uint64{3, 1, 2, 4} {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE songs SET order_index = ? WHERE id = ? AND order_index <> ?`)).
			WithArgs(i, id, i).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	order, err := repo.ReorderBucket(context.Background(), 1, model.SongPlanned, []uint64{3, 1})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if fmt.Sprint(order) != "[3 1 2 4]" {
		t.Fatalf("order = %v", order)
	}
	expectMet(t, mock)
}

func TestReorderBucketOutOfBucket(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM jams WHERE id = ? FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM songs WHERE jam_id = ? AND status = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectRollback()

	_, err := repo.ReorderBucket(context.Background(), 1, model.SongPlanned, []uint64{99})
	if !errors.Is(err, model.ErrOutOfBucket) {
		t.Fatalf("expected out of bucket, got %v", err)
	}
	expectMet(t, mock)
}

func TestUpsertRatingReturnsSummary(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRatingRepo(db)
	at := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = ? FOR SHARE`)).
		WillReturnRows(songRow(4, 1, model.SongPlayed, 0))
	mock.ExpectExec(regexp.QuoteMeta(`ON DUPLICATE KEY UPDATE stars = VALUES(stars)`)).
		WithArgs(uint64(4), "guest:12", uint64(12), nil, 5, at).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(stars), 0), COUNT(*) FROM song_ratings WHERE song_id = ?`)).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow(11, 3))
	mock.ExpectCommit()

	sum, err := repo.UpsertRating(context.Background(), model.Rating{SongID: 4, Rater: model.Rater{GuestID: 12}, Stars: 5, RatedAt: at})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if sum.Count != 3 || sum.Average == nil || *sum.Average != 3.67 {
		t.Fatalf("summary = %+v", sum)
	}
	expectMet(t, mock)
}

func TestUpsertRatingRequiresPlayed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRatingRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = ? FOR SHARE`)).
		WillReturnRows(songRow(4, 1, model.SongOnStage, 0))
	mock.ExpectRollback()

	_, err := repo.UpsertRating(context.Background(), model.Rating{SongID: 4, Rater: model.Rater{UserID: 3}, Stars: 4})
	if !errors.Is(err, model.ErrSongNotPlayed) {
		t.Fatalf("expected song not played, got %v", err)
	}
	expectMet(t, mock)
}

func TestGetJamNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJamRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM jams WHERE id = ?`)).
		WithArgs(uint64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetJam(context.Background(), 404)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	expectMet(t, mock)
}

func TestCreateJamSlugTaken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJamRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO jams`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'slug'"})

	err := repo.CreateJam(context.Background(), &model.Jam{EventID: 1, Name: "x", Slug: "x-abc", Status: model.JamActive})
	if !errors.Is(err, model.ErrSlugTaken) {
		t.Fatalf("expected slug taken, got %v", err)
	}
	expectMet(t, mock)
}

func TestResolveGuest(t *testing.T) {
	db, mock := newMock(t)
	repo := NewGuestRepo(db)
	in := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM guests WHERE event_id = ? AND user_id = ?`)).
		WithArgs(uint64(7), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "user_id", "check_in_at"}).AddRow(3, 7, 42, in))

	g, err := repo.ResolveGuest(context.Background(), 7, 42)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if g.ID != 3 || !g.CheckedIn() {
		t.Fatalf("guest = %+v", g)
	}
	expectMet(t, mock)
}

// expectLockSong mirrors lockSongInJam: jam lookup, jam lock, song lock.
func expectLockSong(mock sqlmock.Sqlmock, songID, jamID uint64, status model.SongStatus, idx int) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT jam_id FROM songs WHERE id = ?`)).
		WithArgs(songID).
		WillReturnRows(sqlmock.NewRows([]string{"jam_id"}).AddRow(jamID))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM jams WHERE id = ? FOR UPDATE`)).
		WithArgs(jamID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(jamID))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = ? FOR UPDATE`)).
		WithArgs(songID).
		WillReturnRows(songRow(songID, jamID, status, idx))
}

// expectCompact mirrors compact: read the bucket, renumber every id.
func expectCompact(mock sqlmock.Sqlmock, jamID uint64, status model.SongStatus, ids ...uint64) {
	rows := sqlmock.NewRows([]string{"id"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM songs WHERE jam_id = ? AND status = ? ORDER BY order_index, id`)).
		WithArgs(jamID, status).
		WillReturnRows(rows)
	for i, id := range ids {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE songs SET order_index = ? WHERE id = ? AND order_index <> ?`)).
			WithArgs(i, id, i).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
}

func TestCloseSongRejectsOnlyPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	expectLockSong(mock, 3, 1, model.SongOpenForCandidates, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(order_index) + 1, 0) FROM songs WHERE jam_id = ? AND status = ?`)).
		WithArgs(uint64(1), model.SongPlanned).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE songs SET status = ?, ready = 0, order_index = ? WHERE id = ?`)).
		WithArgs(model.SongPlanned, 2, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectCompact(mock, 1, model.SongOpenForCandidates, 4)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM song_candidates c WHERE c.song_id = ? AND c.status = ? ORDER BY c.id FOR UPDATE`)).
		WithArgs(uint64(3), model.CandidatePending).
		WillReturnRows(sqlmock.NewRows(candidateCols).
			AddRow(7, 3, "bass", 21, string(model.CandidatePending), now, nil, nil).
			AddRow(8, 3, "drums", 22, string(model.CandidatePending), now, nil, nil))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE song_candidates SET status = ? WHERE song_id = ? AND status = ?`)).
		WithArgs(model.CandidateRejected, uint64(3), model.CandidatePending).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = ?`)).
		WithArgs(uint64(3)).
		WillReturnRows(songRow(3, 1, model.SongPlanned, 2))
	mock.ExpectCommit()

	closed, rejected, err := repo.CloseSong(context.Background(), 3)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != model.SongPlanned || closed.Ready || closed.OrderIndex != 2 {
		t.Fatalf("closed = %+v", closed)
	}
	if len(rejected) != 2 || rejected[0].ID != 7 || rejected[1].ID != 8 {
		t.Fatalf("rejected = %+v", rejected)
	}
	for _, c := range rejected {
		if c.Status != model.CandidateRejected {
			t.Fatalf("candidate %d status %s", c.ID, c.Status)
		}
	}
	expectMet(t, mock)
}

func TestCloseSongWithoutPendingSkipsUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	expectLockSong(mock, 3, 1, model.SongOpenForCandidates, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(order_index) + 1, 0)`)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE songs SET status = ?, ready = 0, order_index = ? WHERE id = ?`)).
		WithArgs(model.SongPlanned, 0, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectCompact(mock, 1, model.SongOpenForCandidates)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM song_candidates c WHERE c.song_id = ? AND c.status = ?`)).
		WillReturnRows(sqlmock.NewRows(candidateCols))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = ?`)).
		WillReturnRows(songRow(3, 1, model.SongPlanned, 0))
	mock.ExpectCommit()

	_, rejected, err := repo.CloseSong(context.Background(), 3)
	if err != nil || len(rejected) != 0 {
		t.Fatalf("close = %+v, %v", rejected, err)
	}
	expectMet(t, mock)
}

func TestCloseSongNotOpen(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	expectLockSong(mock, 3, 1, model.SongPlanned, 0)
	mock.ExpectRollback()

	_, _, err := repo.CloseSong(context.Background(), 3)
	if !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	expectMet(t, mock)
}

func TestDeleteSongCascadesAndCompacts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	expectLockSong(mock, 5, 1, model.SongPlanned, 1)
	for _, q := range []string{
		`DELETE FROM song_ratings WHERE song_id = ?`,
		`DELETE FROM song_candidates WHERE song_id = ?`,
		`DELETE FROM song_instrument_slots WHERE song_id = ?`,
		`DELETE FROM songs WHERE id = ?`,
	} {
		mock.ExpectExec(regexp.QuoteMeta(q)).
			WithArgs(uint64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	expectCompact(mock, 1, model.SongPlanned, 4, 6)
	mock.ExpectCommit()

	deleted, err := repo.DeleteSong(context.Background(), 5)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != 5 || deleted.Status != model.SongPlanned {
		t.Fatalf("deleted = %+v", deleted)
	}
	expectMet(t, mock)
}

func TestDeleteSongNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT jam_id FROM songs WHERE id = ?`)).
		WithArgs(uint64(5)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.DeleteSong(context.Background(), 5)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	expectMet(t, mock)
}

func TestUpdateSongStatusChangeMovesToBucketEnd(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	expectLockSong(mock, 5, 1, model.SongOpenForCandidates, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(order_index) + 1, 0) FROM songs WHERE jam_id = ? AND status = ?`)).
		WithArgs(uint64(1), model.SongCanceled).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE songs SET title = ?, artist = ?, song_key = ?, tempo = ?, status = ?, ready = ?`)).
		WithArgs("Song", nil, nil, nil, model.SongCanceled, false, 3, nil, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectCompact(mock, 1, model.SongOpenForCandidates, 6)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = ?`)).
		WithArgs(uint64(5)).
		WillReturnRows(songRow(5, 1, model.SongCanceled, 3))
	mock.ExpectCommit()

	got, err := repo.UpdateSong(context.Background(), 5, func(s *model.Song) error {
		s.SetStatus(model.SongCanceled)
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != model.SongCanceled || got.OrderIndex != 3 {
		t.Fatalf("song = %+v", got)
	}
	expectMet(t, mock)
}

func TestUpdateSongMutateErrorRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	expectLockSong(mock, 5, 1, model.SongOpenForCandidates, 0)
	mock.ExpectRollback()

	_, err := repo.UpdateSong(context.Background(), 5, func(*model.Song) error { return model.ErrNotReady })
	if !errors.Is(err, model.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	expectMet(t, mock)
}

func expectLockedManifest(mock sqlmock.Sqlmock, songID uint64, approvedGuitars int) {
	mock.ExpectQuery(regexp.QuoteMeta(`FROM songs WHERE id = ? FOR UPDATE`)).
		WithArgs(songID).
		WillReturnRows(songRow(songID, 1, model.SongOpenForCandidates, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM song_instrument_slots WHERE song_id = ? ORDER BY instrument FOR UPDATE`)).
		WithArgs(songID).
		WillReturnRows(sqlmock.NewRows([]string{"song_id", "instrument", "slots", "required", "fallback_allowed"}).
			AddRow(songID, "guitar", 2, true, false))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT instrument, COUNT(*) FROM song_candidates WHERE song_id = ? AND status = ? GROUP BY instrument`)).
		WithArgs(songID, model.CandidateApproved).
		WillReturnRows(sqlmock.NewRows([]string{"instrument", "n"}).AddRow("guitar", approvedGuitars))
}

func TestReplaceSlotsCapacityExceeded(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	expectLockedManifest(mock, 3, 2)
	mock.ExpectRollback()

	err := repo.ReplaceSlots(context.Background(), 3, []model.InstrumentSlot{{Instrument: "guitar", Slots: 1, Required: true}})
	if !errors.Is(err, model.ErrCapacityExceeded) {
		t.Fatalf("expected capacity exceeded, got %v", err)
	}
	expectMet(t, mock)
}

func TestReplaceSlotsSwapsManifest(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSongRepo(db)

	mock.ExpectBegin()
	expectLockedManifest(mock, 3, 1)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM song_instrument_slots WHERE song_id = ?`)).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO song_instrument_slots (song_id, instrument, slots, required, fallback_allowed) VALUES (?, ?, ?, ?, ?),(?, ?, ?, ?, ?)`)).
		WithArgs(uint64(3), "guitar", 3, true, false, uint64(3), "bass", 1, false, true).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.ReplaceSlots(context.Background(), 3, []model.InstrumentSlot{
		{Instrument: "guitar", Slots: 3, Required: true},
		{Instrument: "bass", Slots: 1, FallbackAllowed: true},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	expectMet(t, mock)
}
