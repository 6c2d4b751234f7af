package app

import (
	"encoding/json"
	"strconv"

	"github.com/example/vjdeck/internal/bus"
	"github.com/example/vjdeck/internal/document"
	"github.com/example/vjdeck/internal/input"
	"github.com/example/vjdeck/internal/mapping"
)

// HandleEvent routes one normalized input event. Track selection is
// always live; method triggers are suppressed while the sequencer owns
// the channels.
func (c *Conductor) HandleEvent(ev input.Event) {
	d := c.Store.Snapshot()
	cfg := d.Config
	switch ev.Kind {
	case input.KindTrackSelect:
		slot, ok := slotForEvent(ev, cfg.TrackMappings, cfg.Input.NoteMatchMode, mapping.TrackSlotCapacity(ev.Source))
		if !ok {
			return
		}
		set := d.ActiveSet()
		if set == nil {
			return
		}
		t := set.TrackBySlot(slot)
		if t == nil {
			return
		}
		c.ActivateTrack(t.ID)
	case input.KindMethodTrigger:
		if cfg.SequencerMode {
			return
		}
		slot, ok := slotForEvent(ev, cfg.ChannelMappings, cfg.Input.NoteMatchMode, mapping.ChannelSlotCount)
		if !ok {
			return
		}
		c.fireSlot(slot, ev.Velocity)
	}
}

func slotForEvent(ev input.Event, tbl mapping.Table, mode mapping.MatchMode, slotCount int) (int, bool) {
	if ev.Source == mapping.InputOSC {
		return mapping.SlotForAddress(ev.Address, tbl, slotCount)
	}
	return mapping.SlotForNote(ev.Note, mode, tbl, slotCount)
}

// fireSlot fires every channel of the active track bound to a trigger
// slot. Most tracks bind one channel per slot, but nothing forbids
// doubling up.
func (c *Conductor) fireSlot(slot, velocity int) {
	track := c.ActiveTrack()
	if track == nil {
		return
	}
	for _, ch := range track.ChannelNumbers() {
		if track.ChannelMappings[strconv.Itoa(ch)] == slot {
			c.fireChannel(track, ch, slot, velocity)
		}
	}
}

// TriggerChannel is the sequencer's entry point: fire one channel of
// the active track by number, exactly as live input would.
func (c *Conductor) TriggerChannel(channel int) {
	track := c.ActiveTrack()
	if track == nil {
		return
	}
	slot, ok := track.ChannelMappings[strconv.Itoa(channel)]
	if !ok {
		return
	}
	c.fireChannel(track, channel, slot, 127)
}

func (c *Conductor) fireChannel(track *document.Track, channel, slot, velocity int) {
	d := c.Store.Snapshot()
	name := strconv.Itoa(channel)
	if trig, ok := mapping.ResolveTrigger(slot, d.Config.Input.Type, d.Config.Input.NoteMatchMode, d.Config.ChannelMappings); ok {
		name = trig.Display()
	}
	c.flash(channel)
	props := map[string]any{
		"channelName": name,
		"channel":     channel,
		"trackId":     track.ID,
		"velocity":    velocity,
	}
	c.sender.SendToProjector(bus.New(bus.TypeChannelTrigger, props))
	c.sender.SendToDashboard(bus.New(bus.TypeChannelTrigger, props))
}

// decodeMethodDefs converts the loosely-typed methods prop of an
// introspection response into typed defs via a JSON round trip.
func decodeMethodDefs(v any) []document.MethodDef {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var defs []document.MethodDef
	if err := json.Unmarshal(b, &defs); err != nil {
		return nil
	}
	return defs
}
