package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/vjdeck/internal/app"
	"github.com/example/vjdeck/internal/bus"
	"github.com/example/vjdeck/internal/config"
	"github.com/example/vjdeck/internal/document"
)

func main() {
	var (
		addr       = flag.String("addr", "", "websocket bus listen address (overrides config)")
		configPath = flag.String("config", "vjdeck.yaml", "path to vjdeck.yaml")
		dataDir    = flag.String("data-dir", "", "user data directory (overrides config)")
		wsPath     = flag.String("workspace", "", "module workspace directory (overrides config)")
		logLevel   = flag.String("log-level", "", "zerolog level (overrides config)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using defaults")
		cfg = config.Defaults()
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *wsPath != "" {
		cfg.Workspace = *wsPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	// ---- Document ----
	docPath := cfg.DocumentPath()
	doc, res := document.Load(docPath)
	if res.IsDefault {
		log.Info().Msg("starting with a fresh document")
	}
	store := document.NewStore(doc, res.IsDefault)

	// ---- Bus + conductor ----
	var conductor *app.Conductor
	hub := bus.NewHub(bus.Hooks{
		OnProjectorMessage: func(m bus.Message) {
			if conductor != nil {
				conductor.OnProjectorMessage(m)
			}
		},
		OnDashboardMessage: func(m bus.Message) {
			if conductor != nil {
				conductor.OnDashboardMessage(m)
			}
		},
	})
	conductor = app.New(store, hub)
	conductor.UseRecordings(cfg.RecordingsPath())

	// Every committed update is persisted and pushed to the UI.
	store.OnChange(func(d *document.Document) {
		if err := document.Save(docPath, d, false); err != nil {
			log.Warn().Err(err).Msg("document save failed")
		}
		hub.SendToDashboard(bus.New("document", map[string]any{"document": d}))
	})

	if err := conductor.ConfigureInput(); err != nil {
		log.Warn().Err(err).Msg("input init failed; configure a device from the dashboard")
	}

	// ---- Workspace + session restore ----
	statePath := cfg.AppStatePath()
	appState := document.LoadAppState(statePath)
	workspacePath := cfg.Workspace
	if workspacePath == "" {
		workspacePath = appState.WorkspacePath
	}
	if workspacePath != "" {
		if err := conductor.SelectWorkspace(workspacePath); err != nil {
			log.Warn().Err(err).Str("path", workspacePath).Msg("workspace unavailable")
		}
	}
	if appState.ActiveTrackID != "" {
		conductor.ActivateTrack(appState.ActiveTrackID)
	}

	// ---- Update checks ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	checker := app.NewUpdateChecker(cfg.Update.ReleaseURL)
	go checker.Run(ctx, time.Duration(cfg.Update.IntervalS)*time.Second)

	// ---- HTTP ----
	mux := http.NewServeMux()
	hub.Attach(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		tag, _ := checker.Latest()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"workspace": string(conductor.Guard.State()),
			"projector": hub.ProjectorConnected(),
			"latest":    tag,
		})
	})
	mux.HandleFunc("/midi-devices", func(w http.ResponseWriter, r *http.Request) {
		names, err := conductor.ListMIDIDevices()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(names)
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("bus listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	appState.WorkspacePath = conductor.Guard.Path()
	if t := conductor.ActiveTrack(); t != nil {
		appState.ActiveTrackID = t.ID
	}
	appState.ActiveSetID = store.Snapshot().Config.ActiveSetID
	if err := document.SaveAppState(statePath, appState); err != nil {
		log.Warn().Err(err).Msg("app state save failed")
	}
	if err := store.Save(docPath); err != nil {
		log.Warn().Err(err).Msg("final document save failed")
	}

	conductor.Close()
	hub.Close()
	_ = srv.Close()
}
