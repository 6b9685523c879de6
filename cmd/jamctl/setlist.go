package main

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/jam-session-queue/internal/model"
	"github.com/iliyamo/jam-session-queue/internal/service"
)

// Setlist is the YAML file accepted by "jamctl import".
//
//	songs:
//	  - title: Cissy Strut
//	    artist: The Meters
//	    key: C
//	    tempo: 92
//	    instruments:
//	      - {instrument: guitar, slots: 1}
//	      - {instrument: drums, slots: 1}
type Setlist struct {
	Songs []SetlistSong `yaml:"songs"`
}

// SetlistSong is one entry of a setlist.
type SetlistSong struct {
	Title        string              `yaml:"title"`
	Artist       string              `yaml:"artist"`
	Key          string              `yaml:"key"`
	Tempo        int                 `yaml:"tempo"`
	ReleaseBatch string              `yaml:"release_batch"`
	Instruments  []SetlistInstrument `yaml:"instruments"`
}

// SetlistInstrument is one manifest line.  Required defaults to true.
type SetlistInstrument struct {
	Instrument      string `yaml:"instrument"`
	Slots           int    `yaml:"slots"`
	Required        *bool  `yaml:"required"`
	FallbackAllowed bool   `yaml:"fallback_allowed"`
}

// parseSetlist decodes r strictly: unknown keys are errors so typos do not
// silently drop fields.
func parseSetlist(r io.Reader) (*Setlist, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Setlist
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("setlist is empty")
		}
		return nil, fmt.Errorf("parse setlist: %w", err)
	}
	if len(s.Songs) == 0 {
		return nil, fmt.Errorf("setlist has no songs")
	}
	for i, sg := range s.Songs {
		if strings.TrimSpace(sg.Title) == "" {
			return nil, fmt.Errorf("song %d: title is required", i+1)
		}
		if err := model.ValidateManifest(sg.manifest()); err != nil {
			return nil, fmt.Errorf("song %d (%s): %w", i+1, sg.Title, err)
		}
	}
	return &s, nil
}

func (sg SetlistSong) manifest() []model.InstrumentSlot {
	out := make([]model.InstrumentSlot, 0, len(sg.Instruments))
	for _, in := range sg.Instruments {
		required := true
		if in.Required != nil {
			required = *in.Required
		}
		out = append(out, model.InstrumentSlot{
			Instrument:      strings.TrimSpace(in.Instrument),
			Slots:           in.Slots,
			Required:        required,
			FallbackAllowed: in.FallbackAllowed,
		})
	}
	return out
}

// input converts the entry to the engine's create input.
func (sg SetlistSong) input() service.CreateSongInput {
	in := service.CreateSongInput{
		Title:       strings.TrimSpace(sg.Title),
		Instruments: sg.manifest(),
	}
	if sg.Artist != "" {
		in.Artist = &sg.Artist
	}
	if sg.Key != "" {
		in.Key = &sg.Key
	}
	if sg.Tempo != 0 {
		in.Tempo = &sg.Tempo
	}
	return in
}

// batches groups song positions by release batch in first-seen order.
// Songs without a batch are not opened.
func (s *Setlist) batches() (names []string, members map[string][]int) {
	members = make(map[string][]int)
	for i, sg := range s.Songs {
		b := strings.TrimSpace(sg.ReleaseBatch)
		if b == "" {
			continue
		}
		if _, ok := members[b]; !ok {
			names = append(names, b)
		}
		members[b] = append(members[b], i)
	}
	return names, members
}
