// Package app wires the pieces together: document store, input
// manager, sequencer, registry, workspace guard and the message bus.
// The conductor is the only component that sees all of them.
package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/vjdeck/internal/bus"
	"github.com/example/vjdeck/internal/diag"
	"github.com/example/vjdeck/internal/document"
	"github.com/example/vjdeck/internal/input"
	"github.com/example/vjdeck/internal/registry"
	"github.com/example/vjdeck/internal/sequencer"
	"github.com/example/vjdeck/internal/workspace"
)

// flashDuration is how long a fired channel stays lit on the dashboard.
const flashDuration = 100 * time.Millisecond

// Sender is the outbound half of the bus as the conductor sees it.
// *bus.Hub satisfies it; tests substitute a recorder.
type Sender interface {
	SendToProjector(bus.Message)
	SendToDashboard(bus.Message)
	ProjectorConnected() bool
}

// Conductor routes input events and sequencer ticks into render
// instructions, and keeps the registry and workspace in step.
type Conductor struct {
	Store *document.Store
	Input *input.Manager
	Seq   *sequencer.Engine
	Reg   *registry.Registry
	Guard *workspace.Guard

	sender Sender

	mu            sync.Mutex
	activeTrackID string
	flashes       map[int]time.Time
	watcher       *workspace.Watcher
	recordings    document.RecordingDocument
	recPath       string
}

// New wires a conductor around a loaded store and a sender.
func New(store *document.Store, sender Sender) *Conductor {
	c := &Conductor{
		Store:   store,
		sender:  sender,
		flashes: map[int]time.Time{},
	}
	c.Guard = workspace.NewGuard(func(path string) {
		sender.SendToDashboard(bus.New(bus.TypeLostSync, map[string]any{"workspacePath": path}))
		sender.SendToDashboard(diag.Message(diag.Diagnostic{
			Severity:       diag.Err,
			Code:           "WORKSPACE.LOST_SYNC",
			Summary:        "Workspace directory became unreachable",
			SuggestedFixes: []string{"Reconnect the drive and re-select the workspace"},
			Evidence:       map[string]any{"path": path},
		}))
	})
	c.Reg = registry.New(registry.Hooks{
		Introspect: func(id string) {
			sender.SendToProjector(bus.New(bus.TypeModuleIntrospect, map[string]any{"moduleId": id}))
		},
		Gate: func() bool {
			return c.Guard.Ready() && sender.ProjectorConnected()
		},
		Changed: func() {
			sender.SendToDashboard(bus.New(bus.TypeModulesChanged, nil))
		},
	})
	c.Input = input.NewManager(input.Hooks{
		OnEvent: c.HandleEvent,
		OnStatus: func(st input.Status) {
			sender.SendToDashboard(bus.New("input-status", map[string]any{
				"state": string(st.State), "message": st.Message,
			}))
			if st.State == input.StateError {
				sender.SendToDashboard(diag.Message(diag.Diagnostic{
					Severity: diag.Err,
					Code:     "INPUT.SOURCE_ERROR",
					Summary:  "Input source failed",
					Detail:   st.Message,
				}))
			}
		},
	})
	c.Seq = sequencer.New(store.Snapshot().Config.SequencerBPM, sequencer.Hooks{
		TriggerChannel: c.TriggerChannel,
		StepChanged: func(step int) {
			sender.SendToDashboard(bus.New(bus.TypeSequencerStep, map[string]any{"step": step}))
		},
	})
	return c
}

// UseInputManager swaps the input manager. Tests use it to install
// fake sources wired to c.HandleEvent.
func (c *Conductor) UseInputManager(m *input.Manager) { c.Input = m }

// UseRecordings loads the recordings sidecar at path. Track removal
// cascades into it from then on.
func (c *Conductor) UseRecordings(path string) {
	rec := document.LoadRecordings(path)
	c.mu.Lock()
	c.recordings = rec
	c.recPath = path
	c.mu.Unlock()
}

// Recordings returns the current recordings store.
func (c *Conductor) Recordings() document.RecordingDocument {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordings
}

// dropTrackRecordings removes a deleted track's recordings and
// persists the sidecar.
func (c *Conductor) dropTrackRecordings(trackID string) {
	c.mu.Lock()
	c.recordings = document.DeleteRecordingsForTracks(c.recordings, []string{trackID})
	rec, path := c.recordings, c.recPath
	c.mu.Unlock()
	if path == "" {
		return
	}
	if err := document.SaveRecordings(path, rec); err != nil {
		log.Warn().Err(err).Msg("recordings save failed")
	}
}

// ConfigureInput applies the document's input config to the manager
// and tells the dashboard.
func (c *Conductor) ConfigureInput() error {
	cfg := c.Store.Snapshot().Config.Input
	err := c.Input.Configure(cfg)
	c.sender.SendToDashboard(bus.New(bus.TypeInputConfigure, map[string]any{
		"inputType": string(cfg.Type), "deviceName": cfg.DeviceName,
	}))
	return err
}

// ActiveTrack returns the live track of the active set, or nil.
func (c *Conductor) ActiveTrack() *document.Track {
	c.mu.Lock()
	id := c.activeTrackID
	c.mu.Unlock()
	set := c.Store.Snapshot().ActiveSet()
	if set == nil {
		return nil
	}
	if t := set.TrackByID(id); t != nil {
		return t
	}
	return nil
}

// ActivateTrack switches the live track and tells both peers.
func (c *Conductor) ActivateTrack(trackID string) {
	set := c.Store.Snapshot().ActiveSet()
	if set == nil {
		return
	}
	t := set.TrackByID(trackID)
	if t == nil {
		return
	}
	c.mu.Lock()
	c.activeTrackID = t.ID
	c.mu.Unlock()
	c.sender.SendToProjector(bus.New(bus.TypeTrackActivate, map[string]any{"trackName": t.Name}))
	c.sender.SendToDashboard(bus.New(bus.TypeTrackActivate, map[string]any{
		"trackId": t.ID, "trackName": t.Name,
	}))
}

// IsFlashing reports whether a channel's trigger latch is still lit.
func (c *Conductor) IsFlashing(channel int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.flashes[channel]
	return ok && time.Since(at) < flashDuration
}

func (c *Conductor) flash(channel int) {
	c.mu.Lock()
	c.flashes[channel] = time.Now()
	c.mu.Unlock()
}

// SetSequencerMode flips the sequencer on or off in the document.
// Turning it off while playing force-stops the transport, resets the
// step and re-issues the input configure so live input resumes with
// the last external config.
func (c *Conductor) SetSequencerMode(on bool) {
	c.Store.Update(func(d *document.Document) { d.Config.SequencerMode = on })
	if on {
		return
	}
	c.Seq.ForceStop()
	if err := c.ConfigureInput(); err != nil {
		log.Warn().Err(err).Msg("input reconfigure after sequencer off")
	}
}

// SetBPM stores the tempo and reschedules the transport.
func (c *Conductor) SetBPM(bpm float64) {
	if bpm <= 0 {
		return
	}
	c.Store.Update(func(d *document.Document) { d.Config.SequencerBPM = bpm })
	c.Seq.SetBPM(bpm)
}

// SelectWorkspace scaffolds, confirms and scans a workspace directory,
// then starts watching its modules.
func (c *Conductor) SelectWorkspace(path string) error {
	if err := workspace.Scaffold(path); err != nil {
		return err
	}
	if err := c.Guard.Select(path); err != nil {
		return err
	}
	res, err := workspace.ScanModules(c.Guard.ModulesDir())
	if err != nil {
		return err
	}
	c.Reg.ApplyScan(res)

	c.mu.Lock()
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
	c.mu.Unlock()
	w, err := workspace.NewWatcher(c.Guard.ModulesDir(), c.onModulesChanged)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.watcher = w
	c.mu.Unlock()
	return nil
}

func (c *Conductor) onModulesChanged(filename string) {
	if !c.Guard.Check() {
		return
	}
	c.Reg.NotifyModulesChanged(filename)
	c.sender.SendToDashboard(bus.New(bus.TypeModulesChanged, map[string]any{"filename": filename}))
}

// OnProjectorMessage consumes the projector's side of the bus.
func (c *Conductor) OnProjectorMessage(msg bus.Message) {
	switch msg.Type {
	case bus.TypeProjectorReady:
		// A fresh projector knows nothing; queue a full drain.
		c.Reg.NotifyModulesChanged("")
	case bus.TypeModuleIntrospected:
		c.applyIntrospection(msg)
	case bus.TypeDebugLog:
		log.Debug().Str("from", "projector").Msg(msg.Str("message"))
		c.sender.SendToDashboard(msg)
	}
}

func (c *Conductor) applyIntrospection(msg bus.Message) {
	id := msg.Str("moduleId")
	if id == "" {
		return
	}
	if failed, _ := msg.Props["failed"].(bool); failed {
		c.Reg.ReportLoadFailure(id)
		return
	}
	methods := decodeMethodDefs(msg.Props["methods"])
	c.Reg.ApplyIntrospection(id, msg.Str("name"), msg.Str("category"), methods)
	if c.Reg.MigrateTypes(c.Store) {
		log.Info().Msg("migrated stale module type references")
	}
}

// Close tears everything down in dependency order.
func (c *Conductor) Close() {
	c.Seq.Stop()
	if err := c.Input.Close(); err != nil {
		log.Debug().Err(err).Msg("input close")
	}
	c.mu.Lock()
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
	c.mu.Unlock()
}
