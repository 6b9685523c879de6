package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/jam-session-queue/internal/memstore"
	"github.com/iliyamo/jam-session-queue/internal/model"
	"github.com/iliyamo/jam-session-queue/internal/service"
	"github.com/iliyamo/jam-session-queue/internal/utils"
)

const sampleSetlist = `
songs:
  - title: Cissy Strut
    artist: The Meters
    key: C
    tempo: 92
    release_batch: early
    instruments:
      - {instrument: guitar, slots: 1}
      - {instrument: drums, slots: 1}
      - {instrument: keys, slots: 1, required: false}
  - title: Chameleon
    release_batch: early
    instruments:
      - {instrument: bass, slots: 1}
  - title: Footprints
    instruments:
      - {instrument: sax, slots: 2, fallback_allowed: true}
`

func TestParseSetlist(t *testing.T) {
	s, err := parseSetlist(strings.NewReader(sampleSetlist))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Songs) != 3 {
		t.Fatalf("songs = %d", len(s.Songs))
	}
	in := s.Songs[0].input()
	if in.Title != "Cissy Strut" || *in.Artist != "The Meters" || *in.Tempo != 92 {
		t.Fatalf("input = %+v", in)
	}
	if !in.Instruments[0].Required || in.Instruments[2].Required {
		t.Fatalf("required flags = %+v", in.Instruments)
	}
	if got := s.Songs[1].input(); got.Artist != nil || got.Tempo != nil {
		t.Fatalf("optional fields set: %+v", got)
	}
	names, members := s.batches()
	if len(names) != 1 || names[0] != "early" || len(members["early"]) != 2 {
		t.Fatalf("batches = %v %v", names, members)
	}
}

func TestParseSetlistErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "empty"},
		{"no songs", "songs: []\n", "no songs"},
		{"unknown key", "songs:\n  - title: A\n    tmepo: 90\n", "tmepo"},
		{"missing title", "songs:\n  - artist: B\n", "title is required"},
		{"zero slots", "songs:\n  - title: A\n    instruments:\n      - {instrument: guitar, slots: 0}\n", "song 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSetlist(strings.NewReader(tt.in))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestImportSetlist(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	svc := service.New(st, st, nil, service.Options{Logger: zerolog.Nop()})
	jam, err := svc.CreateJam(ctx, service.CreateJamInput{EventID: 3, Name: "Sunday Session"})
	if err != nil {
		t.Fatal(err)
	}
	s, err := parseSetlist(strings.NewReader(sampleSetlist))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := importSetlist(ctx, svc, jam.ID, s, true, &out); err != nil {
		t.Fatal(err)
	}
	buckets, err := svc.ListSongs(ctx, jam.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets[model.SongOpenForCandidates]) != 2 || len(buckets[model.SongPlanned]) != 1 {
		t.Fatalf("buckets = %v", buckets)
	}
	for _, sg := range buckets[model.SongOpenForCandidates] {
		if sg.ReleaseBatch == nil || *sg.ReleaseBatch != "early" {
			t.Fatalf("release batch = %v", sg.ReleaseBatch)
		}
	}
	if !strings.Contains(out.String(), "opened batch early (2 songs)") {
		t.Fatalf("output = %s", out.String())
	}

	if err := importSetlist(ctx, svc, 999, s, false, &out); err == nil {
		t.Fatal("import into unknown jam succeeded")
	}
}

func TestRunToken(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"token", "--secret", "s", "--user", "9", "--role", "staff"}, &out); err != nil {
		t.Fatal(err)
	}
	if strings.Count(strings.TrimSpace(out.String()), ".") != 2 {
		t.Fatalf("not a JWT: %q", out.String())
	}
	if err := run([]string{"token", "--secret", "s", "--user", "9", "--role", "owner"}, &out); err == nil {
		t.Fatal("unknown role accepted")
	}
}

func TestRunTokenDefaultTTLFromEnv(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "30")
	var out bytes.Buffer
	if err := run([]string{"token", "--secret", "s", "--user", "9", "--json"}, &out); err != nil {
		t.Fatal(err)
	}
	var tok utils.AccessToken
	if err := json.Unmarshal(out.Bytes(), &tok); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if left := time.Until(tok.Exp); left < 29*time.Minute || left > 31*time.Minute {
		t.Fatalf("expires in %v", left)
	}
}
