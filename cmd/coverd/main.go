// Command coverd serves cover calculations and effect toggles for one scene
// over HTTP and the websocket action channel.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/api"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/config"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/effects"
	"github.com/thatlonelybugbear/fvtt-token-visibility/internal/scene"
)

var (
	listen       = flag.String("listen", "", "Listen address (overrides settings)")
	settingsPath = flag.String("settings", "", "Path to settings JSON file")
	dbPath       = flag.String("db", "", "Path to sqlite database (overrides settings)")
	sceneID      = flag.String("scene", "", "Scene ID to serve")
)

func main() {
	flag.Parse()

	settings := config.Defaults()
	if *settingsPath != "" {
		var err error
		settings, err = config.Load(*settingsPath)
		if err != nil {
			log.Fatalf("[coverd] %v", err)
		}
	}
	path := *dbPath
	if path == "" {
		path = *settings.DatabasePath
	}
	addr := *listen
	if addr == "" {
		addr = *settings.Listen
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		log.Fatalf("[coverd] failed to open database %s: %v", path, err)
	}
	defer db.Close()

	sceneStore, err := scene.NewStore(db)
	if err != nil {
		log.Fatalf("[coverd] %v", err)
	}
	statusStore, err := effects.NewStatusStore(db)
	if err != nil {
		log.Fatalf("[coverd] %v", err)
	}

	sc, err := loadScene(sceneStore, *sceneID)
	if err != nil {
		log.Fatalf("[coverd] %v", err)
	}
	log.Printf("[coverd] serving scene %s (%s): %d walls, %d tiles, %d tokens",
		sc.ID, sc.Name, len(sc.Walls()), len(sc.Tiles()), len(sc.Tokens()))

	local := &effects.LocalDispatcher{Scene: sc, Store: statusStore}
	manager := effects.NewManager(local)
	server := api.NewServer(sc, settings, manager, local)

	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}

	go func() {
		log.Printf("[coverd] listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[coverd] server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("[coverd] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("[coverd] shutdown error: %v", err)
	}
}

// loadScene fetches the requested scene, or the only stored scene when no ID
// was given.
func loadScene(store *scene.Store, id string) (*scene.Scene, error) {
	if id != "" {
		return store.LoadScene(id)
	}
	scenes, err := store.ListScenes()
	if err != nil {
		return nil, err
	}
	if len(scenes) != 1 {
		return nil, errors.New("no -scene given and the database does not hold exactly one scene")
	}
	for sid := range scenes {
		return store.LoadScene(sid)
	}
	return nil, errors.New("unreachable")
}
