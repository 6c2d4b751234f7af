package input

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/example/vjdeck/internal/document"
	"github.com/example/vjdeck/internal/mapping"
)

// midiSource listens to one MIDI input port and splits note-on events
// into the two logical streams by MIDI channel: the track-selection
// channel and the method-trigger channel. Everything else is dropped.
type midiSource struct {
	drv  *rtmididrv.Driver
	port drivers.In
	stop func()
}

// NewMIDISource opens the device named in cfg (first available port
// when the name matches nothing) and starts listening.
func NewMIDISource(cfg document.InputConfig, hooks Hooks) (Source, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	port, err := findPort(drv, cfg.DeviceName)
	if err != nil {
		drv.Close()
		return nil, err
	}
	if err := port.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open %q: %w", port.String(), err)
	}

	trackCh := uint8(cfg.TrackSelectionChannel - 1)
	methodCh := uint8(cfg.MethodTriggerChannel - 1)
	stop, err := midi.ListenTo(port, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		if !msg.GetNoteStart(&ch, &key, &vel) {
			return
		}
		ev := Event{Source: mapping.InputMIDI, Note: int(key), Velocity: int(vel)}
		if !cfg.VelocitySensitive {
			ev.Velocity = 127
		}
		switch ch {
		case trackCh:
			ev.Kind = KindTrackSelect
		case methodCh:
			ev.Kind = KindMethodTrigger
		default:
			return
		}
		if hooks.OnEvent != nil {
			hooks.OnEvent(ev)
		}
	}, midi.HandleError(func(err error) {
		log.Warn().Err(err).Str("device", port.String()).Msg("midi listener error")
		if hooks.OnStatus != nil {
			hooks.OnStatus(Status{State: StateError, Message: err.Error()})
		}
	}))
	if err != nil {
		port.Close()
		drv.Close()
		return nil, fmt.Errorf("listen %q: %w", port.String(), err)
	}
	return &midiSource{drv: drv, port: port, stop: stop}, nil
}

func (s *midiSource) Close() error {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	if s.port != nil {
		s.port.Close()
		s.port = nil
	}
	if s.drv != nil {
		s.drv.Close()
		s.drv = nil
	}
	return nil
}

func findPort(drv *rtmididrv.Driver, name string) (drivers.In, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	if len(ins) == 0 {
		return nil, fmt.Errorf("no midi inputs available")
	}
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(name)) && name != "" {
			return in, nil
		}
	}
	return ins[0], nil
}

// ListMIDIDevices enumerates input port names for the device picker.
func ListMIDIDevices() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}
