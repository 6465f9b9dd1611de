package deps

import (
	"context"
	"log"

	"github.com/ammoru/pulseroom/config"
	"github.com/ammoru/pulseroom/internal/db"
	"github.com/ammoru/pulseroom/internal/engine"
	"github.com/ammoru/pulseroom/internal/room"
	"github.com/ammoru/pulseroom/internal/store"
)

type Dependencies struct {
	DB     *db.DB
	Store  store.PollStore
	Ledger store.VoteLedger
	Engine *engine.Engine
	Rooms  *room.Broadcaster
}

// New wires the storage backend, the broadcaster and the engine. An empty
// DSN selects the in-process store.
func New(cfg *config.Config) *Dependencies {
	d := &Dependencies{
		Rooms: room.NewBroadcaster(),
	}

	if cfg.Dsn == "" {
		mem := store.NewMemoryStore()
		d.Store = mem
		d.Ledger = mem
	} else {
		database, err := db.New(cfg.Dsn)
		if err != nil {
			log.Panicln("failed to connect to database", "error", err)
		}
		pg, err := store.NewPostgresStore(context.Background(), database)
		if err != nil {
			log.Panicln("failed to prepare database schema", "error", err)
		}
		d.DB = database
		d.Store = pg
		d.Ledger = pg
	}

	d.Engine = engine.New(d.Store, d.Ledger, d.Rooms, cfg.VoteLockWait)
	return d
}

func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
