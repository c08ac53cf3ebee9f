// syncagent keeps a local task cache reconciled with the board API.
// It syncs once and exits, or loops when TASKFLOW_SYNC_INTERVAL is set.
// The local cache survives any server failure: offline runs are normal.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"taskflow/internal/apiclient"
	"taskflow/internal/config"
	"taskflow/internal/localstore"
	"taskflow/internal/syncer"
)

func main() {
	reset := flag.Bool("reset", false, "clear the local task cache and exit")
	register := flag.Bool("register", false, "register the account instead of logging in")
	flag.Parse()

	cfg, err := config.LoadAgent()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	storePath := cfg.StorePath
	if storePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("resolve home dir: %v", err)
		}
		storePath = filepath.Join(home, ".taskflow", "tasks.json")
	}
	store := localstore.New(storePath)

	if *reset {
		if err := store.Clear(); err != nil {
			log.Fatalf("clear local store: %v", err)
		}
		log.Printf("local store cleared: %s", storePath)
		return
	}

	client, err := apiclient.New(cfg.APIBaseURL, cfg.PushTimeoutDuration())
	if err != nil {
		log.Fatalf("api client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *register {
		err = client.Register(ctx, cfg.Username, cfg.Password)
	} else {
		err = client.Login(ctx, cfg.Username, cfg.Password)
	}
	if err != nil {
		// No session means no pushes, but a sync can still run offline
		// against the local store.
		log.Printf("auth failed, continuing offline: %v", err)
	}

	s := syncer.New(store, client, syncer.Config{
		PushConcurrency: cfg.PushConcurrency,
		PushTimeout:     cfg.PushTimeoutDuration(),
		Retries:         cfg.PushRetries,
	})

	runOnce := func() {
		rep, err := s.Sync(ctx)
		if err != nil {
			log.Printf("sync: %v", err)
			return
		}
		if rep.Offline {
			log.Printf("offline, keeping %d local tasks: %v", rep.Merged, rep.OfflineCause)
			return
		}
		log.Printf("synced: %d merged, %d created, %d updated, %d push failures",
			rep.Merged, rep.Created, rep.Updated, len(rep.Failures))
		for _, f := range rep.Failures {
			log.Printf("push %s %s failed (will retry next sync): %v", f.Op, f.TaskID, f.Err)
		}
	}

	runOnce()
	interval := cfg.IntervalDuration()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("shutting down")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
