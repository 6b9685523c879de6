package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// CreateJamInput carries the staff-provided fields of a new jam.
type CreateJamInput struct {
	EventID uint64 `json:"event_id"`
	Name    string `json:"name"`
	Notes   string `json:"notes"`
}

const slugAttempts = 3

// CreateJam creates an active jam with a generated slug.
func (s *Service) CreateJam(ctx context.Context, in CreateJamInput) (*model.Jam, error) {
	name := strings.TrimSpace(in.Name)
	if in.EventID == 0 || name == "" {
		return nil, model.Errorf(model.KindInvalidInput, "event_id and name are required")
	}
	for i := 0; ; i++ {
		j := &model.Jam{
			EventID: in.EventID,
			Name:    name,
			Slug:    slugify(name) + "-" + randomSuffix(),
			Status:  model.JamActive,
			Notes:   in.Notes,
		}
		err := s.store.CreateJam(ctx, j)
		if err == nil {
			s.log.Info().Uint64("jam_id", j.ID).Uint64("event_id", j.EventID).Str("slug", j.Slug).Msg("jam created")
			return j, nil
		}
		if !errors.Is(err, model.ErrSlugTaken) || i+1 >= slugAttempts {
			return nil, err
		}
	}
}

// GetJam returns a jam by id.
func (s *Service) GetJam(ctx context.Context, id uint64) (*model.Jam, error) {
	return s.store.GetJam(ctx, id)
}

// ListJams returns the jams of an event in display order.
func (s *Service) ListJams(ctx context.Context, eventID uint64) ([]model.Jam, error) {
	return s.store.ListJams(ctx, eventID)
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > 48 {
		out = strings.TrimRight(out[:48], "-")
	}
	if out == "" {
		return "jam"
	}
	return out
}

func randomSuffix() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "000000"
	}
	return hex.EncodeToString(b)
}
