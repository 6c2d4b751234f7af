package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/vjdeck/internal/bus"
	"github.com/example/vjdeck/internal/jsmod"
)

// The projector is a headless bus client: it loads visual module files
// on request and answers introspection, and it logs the render
// instructions a windowed build would draw.
func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:7212", "dashboard bus address")
		wsPath   = flag.String("workspace", "", "module workspace directory")
		logLevel = flag.String("log-level", "info", "zerolog level")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	var client *bus.Client
	client = bus.NewClient("ws://"+*addr+"/ws/projector", func(msg bus.Message) {
		switch msg.Type {
		case bus.TypeModuleIntrospect:
			introspect(client, *wsPath, msg.Str("moduleId"))
		case bus.TypeChannelTrigger:
			log.Info().
				Str("channelName", msg.Str("channelName")).
				Interface("channel", msg.Props["channel"]).
				Msg("channel trigger")
		case bus.TypeTrackActivate:
			log.Info().Str("trackName", msg.Str("trackName")).Msg("track activate")
		case bus.TypeRefreshProjector:
			log.Info().Msg("full refresh requested")
		case bus.TypeSetBg:
			log.Info().Str("value", msg.Str("value")).Msg("background change")
		case bus.TypeToggleAspectRatio:
			log.Info().Str("name", msg.Str("name")).Msg("aspect ratio change")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go client.Run(ctx)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")
	cancel()
}

// introspect loads one module file and reports back. Failures become a
// failed report, never a crash of the read loop.
func introspect(client *bus.Client, workspace, id string) {
	if id == "" || workspace == "" {
		return
	}
	path := filepath.Join(workspace, "modules", id+".js")
	info, err := jsmod.IntrospectFile(path, id)
	if err != nil {
		log.Warn().Err(err).Str("moduleId", id).Msg("module load failed")
		client.Send(bus.New(bus.TypeModuleIntrospected, map[string]any{
			"moduleId": id,
			"failed":   true,
		}))
		return
	}
	client.Send(bus.New(bus.TypeModuleIntrospected, map[string]any{
		"moduleId": info.ID,
		"name":     info.Name,
		"category": info.Category,
		"methods":  info.Methods,
	}))
}
