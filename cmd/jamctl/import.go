package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/iliyamo/jam-session-queue/internal/config"
	"github.com/iliyamo/jam-session-queue/internal/database"
	"github.com/iliyamo/jam-session-queue/internal/logging"
	"github.com/iliyamo/jam-session-queue/internal/model"
	"github.com/iliyamo/jam-session-queue/internal/queue"
	"github.com/iliyamo/jam-session-queue/internal/repository"
	"github.com/iliyamo/jam-session-queue/internal/service"
)

func runImport(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("import", pflag.ContinueOnError)
	file := fs.StringP("file", "f", "", "setlist YAML file")
	jamID := fs.Uint64("jam", 0, "target jam id")
	open := fs.Bool("open", false, "open each release batch after import")
	dryRun := fs.Bool("dry-run", false, "validate and print the setlist without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()
	setlist, err := parseSetlist(f)
	if err != nil {
		return err
	}

	if *dryRun {
		for i, sg := range setlist.Songs {
			fmt.Fprintf(out, "%2d. %s (%d instruments)\n", i+1, sg.Title, len(sg.Instruments))
		}
		return nil
	}
	if *jamID == 0 {
		return fmt.Errorf("--jam is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := logging.New(logging.Config{Level: os.Getenv("LOG_LEVEL"), Format: "text", Output: os.Stderr})
	dbc := config.LoadDBConfig()
	db, err := database.Open(ctx, database.Options{
		User: dbc.User, Pass: dbc.Pass, Host: dbc.Host, Port: dbc.Port, Name: dbc.Name,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if dbc.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	var emitter service.Emitter
	if rc := config.LoadRelayConfig(); rc.Enabled {
		pub := queue.NewPublisher(rc.URL, rc.Exchange)
		defer pub.Close()
		emitter = brokerEmitter{pub: pub, origin: "jamctl-" + uuid.NewString(), log: log}
	}
	svc := service.New(repository.NewStore(db), repository.NewGuestRepo(db), emitter, service.Options{
		MaxOpenSongs: config.MaxConcurrentOpenSongs,
		Logger:       log,
	})
	return importSetlist(ctx, svc, *jamID, setlist, *open, out)
}

// importSetlist creates every song in order and optionally opens the
// release batches.  It stops at the first failure; songs created before it
// stay in the jam.
func importSetlist(ctx context.Context, svc *service.Service, jamID uint64, s *Setlist, open bool, out io.Writer) error {
	if _, err := svc.GetJam(ctx, jamID); err != nil {
		return err
	}
	ids := make([]uint64, len(s.Songs))
	for i, sg := range s.Songs {
		song, err := svc.CreateSong(ctx, jamID, sg.input())
		if err != nil {
			return fmt.Errorf("song %d (%s): %w", i+1, sg.Title, err)
		}
		ids[i] = song.ID
		fmt.Fprintf(out, "created song %d: %s\n", song.ID, song.Title)
	}
	if !open {
		return nil
	}
	names, members := s.batches()
	for _, name := range names {
		batch := name
		var songIDs []uint64
		for _, i := range members[name] {
			songIDs = append(songIDs, ids[i])
		}
		if _, err := svc.OpenSongs(ctx, jamID, songIDs, &batch); err != nil {
			return fmt.Errorf("open batch %s: %w", name, err)
		}
		fmt.Fprintf(out, "opened batch %s (%d songs)\n", name, len(songIDs))
	}
	return nil
}

// brokerEmitter forwards engine events to the relay exchange so running
// servers push imported songs to their viewers.
type brokerEmitter struct {
	pub    queue.EventPublisher
	origin string
	log    zerolog.Logger
}

func (b brokerEmitter) Emit(ctx context.Context, key model.ChannelKey, typ string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.log.Error().Err(err).Str("type", typ).Msg("marshal payload")
		return
	}
	ev := queue.JamEvent{
		Origin:    b.origin,
		EventID:   key.EventID,
		JamID:     key.JamID,
		Type:      typ,
		Payload:   data,
		EmittedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := b.pub.Publish(ctx, ev); err != nil {
		b.log.Warn().Err(err).Str("type", typ).Msg("broker publish failed")
	}
}
