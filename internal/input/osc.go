package input

import (
	"fmt"
	"net"

	"github.com/hypebeast/go-osc/osc"
	"github.com/rs/zerolog/log"

	"github.com/example/vjdeck/internal/document"
	"github.com/example/vjdeck/internal/mapping"
)

// oscSource listens on a UDP port and routes messages by address
// prefix. A leading zero-valued argument is the note-off analog and is
// dropped; malformed or unrecognized messages are logged and dropped,
// never an error.
type oscSource struct {
	conn net.PacketConn
	done chan struct{}
}

type oscDispatcher struct {
	hooks Hooks
}

func (d oscDispatcher) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		d.handle(p)
	case *osc.Bundle:
		for _, m := range p.Messages {
			d.handle(m)
		}
	}
}

func (d oscDispatcher) handle(msg *osc.Message) {
	if msg == nil || msg.Address == "" {
		return
	}
	if isZeroValue(msg.Arguments) {
		return
	}
	ev := Event{Source: mapping.InputOSC, Address: mapping.NormalizeAddress(msg.Address), Velocity: 127}
	switch {
	case mapping.IsTrackAddress(msg.Address):
		ev.Kind = KindTrackSelect
	case mapping.IsChannelAddress(msg.Address):
		ev.Kind = KindMethodTrigger
	default:
		log.Debug().Str("address", msg.Address).Msg("unrecognized osc address")
		return
	}
	if d.hooks.OnEvent != nil {
		d.hooks.OnEvent(ev)
	}
}

// isZeroValue reports whether the first argument is a numeric zero.
func isZeroValue(args []any) bool {
	if len(args) == 0 {
		return false
	}
	switch v := args[0].(type) {
	case int32:
		return v == 0
	case int64:
		return v == 0
	case float32:
		return v == 0
	case float64:
		return v == 0
	}
	return false
}

// NewOSCSource binds the UDP port from cfg and serves until closed.
func NewOSCSource(cfg document.InputConfig, hooks Hooks) (Source, error) {
	conn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("osc listen :%d: %w", cfg.Port, err)
	}
	srv := &osc.Server{Dispatcher: oscDispatcher{hooks: hooks}}
	src := &oscSource{conn: conn, done: make(chan struct{})}
	go func() {
		defer close(src.done)
		if err := srv.Serve(conn); err != nil {
			// Serve returns when the connection closes; anything else
			// is worth a line.
			log.Debug().Err(err).Int("port", cfg.Port).Msg("osc server stopped")
		}
	}()
	return src, nil
}

func (s *oscSource) Close() error {
	err := s.conn.Close()
	<-s.done
	return err
}
