package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/handboard/internal/app"
	"github.com/ayusman/handboard/internal/config"
	"github.com/ayusman/handboard/internal/engine"
	"github.com/ayusman/handboard/internal/render"
	"github.com/ayusman/handboard/internal/server"
	"github.com/ayusman/handboard/internal/store"
	"github.com/ayusman/handboard/internal/tray"
)

func main() {
	fmt.Println("Handboard - Gesture Whiteboard")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	st, err := store.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// Defaults are captured before persisted overrides are layered on.
	defaults := cfg.Tunings()
	overrides, err := st.Settings().Map()
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	for _, key := range cfg.ApplyAll(overrides) {
		log.Printf("Ignoring unknown stored setting %q", key)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(cfg.Server.BoardInterval)
	renderer := render.NewRenderer(hub, cfg.Render.TubeRadius, cfg.Render.Radial)
	eng := engine.New(cfg.EngineConfig(), renderer, hub)
	eng.OnModeChange(func(m engine.Mode) {
		log.Printf("Mode: %s", m)
	})

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = eng.Run(ctx)
	}()

	tracker := app.New(cfg.AppConfig(), eng)
	tracker.SetEnabled(cfg.Tracking.Enabled)
	if err := tracker.Start(); err != nil {
		log.Printf("Tracking unavailable: %v", err)
	}
	defer tracker.Stop()

	webDir := cfg.Server.WebDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Events:    eng,
		Hub:       hub,
		Frames:    tracker,
		Defaults:  defaults,
	})
	httpServer := srv.Handler(cfg.Server.Addr)

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()

	if cfg.UI.Tray {
		runTray(ctx, stop, cfg, eng, hub, tracker)
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	<-engineDone
	fmt.Println("Goodbye")
}

// runTray blocks on the menu-bar icon until the user quits or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, cfg config.Config, eng *engine.Engine, hub *server.Hub, tracker *app.App) {
	t := tray.New(cfg.Tracking.Enabled)
	eng.OnModeChange(func(m engine.Mode) { t.SetMode(m.String()) })
	t.OnToggle(tracker.SetEnabled)
	t.OnOpenBoard(func() {
		if err := openBrowser("http://" + cfg.Server.Addr + "/"); err != nil {
			log.Printf("Open board: %v", err)
		}
	})
	t.OnQuit(stop)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case <-ticker.C:
				if snap, ok := hub.Latest(); ok {
					t.SetRoutes(len(snap.Routes))
				}
			}
		}
	}()

	t.Run()
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handboard/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handboard", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
