package app

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/example/vjdeck/internal/bus"
	"github.com/example/vjdeck/internal/document"
	"github.com/example/vjdeck/internal/input"
	"github.com/example/vjdeck/internal/mapping"
	"github.com/example/vjdeck/internal/sequencer"
)

// OnDashboardMessage consumes commands from the dashboard UI. Unknown
// types are logged and dropped; a UI from a newer build must not crash
// an older core.
func (c *Conductor) OnDashboardMessage(msg bus.Message) {
	switch msg.Type {
	case "sequencer:toggle":
		state := c.Seq.Toggle()
		c.sender.SendToDashboard(bus.New("sequencer-state", map[string]any{"state": state.String()}))
	case "sequencer:bpm":
		if bpm, ok := msg.Props["bpm"].(float64); ok {
			c.SetBPM(bpm)
		}
	case "sequencer:mode":
		on, _ := msg.Props["on"].(bool)
		c.SetSequencerMode(on)
	case "sequencer:pattern":
		c.Seq.SetPattern(patternFromMessage(msg))
	case "track:activate":
		c.ActivateTrack(msg.Str("trackId"))
	case "workspace:select":
		if path := msg.Str("path"); path != "" {
			if err := c.SelectWorkspace(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("workspace select failed")
			}
		}
	case "input:configure":
		c.configureInputFromMessage(msg)
	case "set:create":
		c.Store.Update(func(d *document.Document) {
			if _, err := d.AddSet(msg.Str("name")); err != nil {
				log.Warn().Err(err).Msg("set create rejected")
			}
		})
	case "set:delete":
		c.Store.Update(func(d *document.Document) {
			if !d.DeleteSet(msg.Str("setId")) {
				log.Warn().Str("setId", msg.Str("setId")).Msg("set delete rejected")
			}
		})
	case "set:activate":
		c.Store.Update(func(d *document.Document) {
			d.ActivateSet(msg.Str("setId"))
		})
	case "track:add":
		c.Store.UpdateActiveSet(func(set *document.Set, d *document.Document) {
			if _, err := set.AddTrack(msg.Str("name"), d.Config.Input.Type); err != nil {
				log.Warn().Err(err).Msg("track add rejected")
			}
		})
	case "track:remove":
		id := msg.Str("trackId")
		removed := false
		c.Store.UpdateActiveSet(func(set *document.Set, d *document.Document) {
			removed = set.RemoveTrack(id)
		})
		if removed {
			c.dropTrackRecordings(id)
		}
	case "channel:add":
		c.updateTrack(msg.Str("trackId"), func(t *document.Track) {
			if _, err := t.AddChannel(); err != nil {
				log.Warn().Err(err).Msg("channel add rejected")
			}
		})
	case "channel:delete":
		if ch, ok := msg.Props["channel"].(float64); ok {
			c.updateTrack(msg.Str("trackId"), func(t *document.Track) {
				t.DeleteChannel(int(ch))
			})
		}
	case "channel:slot":
		ch, okCh := msg.Props["channel"].(float64)
		slot, okSlot := msg.Props["slot"].(float64)
		if okCh && okSlot {
			c.updateTrack(msg.Str("trackId"), func(t *document.Track) {
				t.SetChannelSlot(int(ch), int(slot))
			})
		}
	case "module:add":
		if typeID := msg.Str("typeId"); typeID != "" {
			c.updateTrack(msg.Str("trackId"), func(t *document.Track) {
				t.AddModule(typeID)
			})
		}
	case "module:delete":
		c.updateTrack(msg.Str("trackId"), func(t *document.Track) {
			t.DeleteModule(msg.Str("moduleId"))
		})
	case "userColors:set":
		if raw, ok := msg.Props["colors"].([]any); ok {
			colors := make([]string, 0, len(raw))
			for _, v := range raw {
				if s, ok := v.(string); ok {
					colors = append(colors, s)
				}
			}
			c.Store.Update(func(d *document.Document) { d.SetUserColors(colors) })
		}
	case bus.TypeRefreshProjector, bus.TypeSetBg, bus.TypeToggleAspectRatio:
		// Pure render instructions pass straight through.
		c.sender.SendToProjector(msg)
	default:
		log.Debug().Str("type", msg.Type).Msg("unknown dashboard command")
	}
}

// configureInputFromMessage applies a partial input config from the UI
// over the stored one, persists it and restarts the source.
func (c *Conductor) configureInputFromMessage(msg bus.Message) {
	c.Store.Update(func(d *document.Document) {
		in := &d.Config.Input
		if t := msg.Str("inputType"); t == string(mapping.InputOSC) || t == string(mapping.InputMIDI) {
			in.Type = mapping.InputType(t)
		}
		if name := msg.Str("deviceName"); name != "" {
			in.DeviceName = name
		}
		if port, ok := msg.Props["port"].(float64); ok && port > 0 {
			in.Port = int(port)
		}
		if mode := msg.Str("noteMatchMode"); mode == string(mapping.MatchExactNote) || mode == string(mapping.MatchPitchClass) {
			in.NoteMatchMode = mapping.MatchMode(mode)
		}
		if v, ok := msg.Props["velocitySensitive"].(bool); ok {
			in.VelocitySensitive = v
		}
	})
	if err := c.ConfigureInput(); err != nil {
		log.Warn().Err(err).Msg("input reconfigure failed")
	}
}

// updateTrack runs fn against one track of the active set inside a
// document update. Unknown track ids are a silent no-op.
func (c *Conductor) updateTrack(trackID string, fn func(*document.Track)) {
	c.Store.UpdateActiveSet(func(set *document.Set, d *document.Document) {
		if t := set.TrackByID(trackID); t != nil {
			fn(t)
		}
	})
}

// patternFromMessage decodes a sequencer pattern from its wire shape:
// steps plus per-channel boolean rows keyed by channel number.
func patternFromMessage(msg bus.Message) sequencer.Pattern {
	p := sequencer.Pattern{Steps: sequencer.DefaultSteps, Rows: map[int][]bool{}}
	if steps, ok := msg.Props["steps"].(float64); ok && steps > 0 {
		p.Steps = int(steps)
	}
	rows, _ := msg.Props["rows"].(map[string]any)
	for key, raw := range rows {
		ch, err := strconv.Atoi(key)
		if err != nil || ch < 1 {
			continue
		}
		cells, ok := raw.([]any)
		if !ok {
			continue
		}
		row := make([]bool, 0, len(cells))
		for _, cell := range cells {
			on, _ := cell.(bool)
			row = append(row, on)
		}
		p.Rows[ch] = row
	}
	return p
}

// ListMIDIDevices is re-exported for the device picker endpoint.
func (c *Conductor) ListMIDIDevices() ([]string, error) {
	return input.ListMIDIDevices()
}
