package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/cloudent/reputation-node/circuits/reputation"
	"github.com/cloudent/reputation-node/log"
	"github.com/cloudent/reputation-node/pipeline"
	"github.com/cloudent/reputation-node/relayer"
	"github.com/cloudent/reputation-node/service"
	"github.com/cloudent/reputation-node/storage"
)

func main() {
	host := flag.String("host", "0.0.0.0", "API host")
	port := flag.Int("port", 8080, "API port")
	dataDir := flag.String("dataDir", filepath.Join(os.TempDir(), "reputation-node"), "data directory")
	logLevel := flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	relayerURL := flag.String("relayerUrl", "https://relayer-api.horizenlabs.io/api/v1", "relayer API base URL")
	relayerAPIKey := flag.String("relayerApiKey", os.Getenv("RELAYER_API_KEY"), "relayer API key")
	chainID := flag.Int64("chainId", relayer.DefaultChainID, "settlement chain ID")
	batchInterval := flag.Duration("batchInterval", 12*time.Hour, "proof batch interval")
	noScheduler := flag.Bool("noScheduler", false, "disable the periodic proof batch")
	artifactsTimeout := flag.Duration("artifactsTimeout", 10*time.Minute, "circuit artifacts download timeout")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	log.Infow("downloading circuit artifacts")
	if err := service.DownloadArtifacts(*artifactsTimeout); err != nil {
		log.Fatalf("failed to download circuit artifacts: %v", err)
	}
	prover, err := reputation.NewProver(reputation.Artifacts, filepath.Join(*dataDir, "scratch"))
	if err != nil {
		log.Fatalf("failed to set up prover: %v", err)
	}

	database, err := metadb.New(db.TypePebble, filepath.Join(*dataDir, "db"))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	stg := storage.New(database)

	client, err := relayer.NewClient(*relayerURL, *relayerAPIKey)
	if err != nil {
		log.Fatalf("failed to create relayer client: %v", err)
	}
	registrar := relayer.NewRegistrar(client, stg.VKCache())
	poller := relayer.NewPoller(client, relayer.DefaultRetryPolicy)
	pl := pipeline.New(stg, prover, registrar, client, poller, *chainID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiSrv := service.NewAPI(stg, pl, *host, *port)
	if err := apiSrv.Start(ctx); err != nil {
		log.Fatalf("failed to start API service: %v", err)
	}
	defer apiSrv.Stop()

	if !*noScheduler {
		scheduler := service.NewScheduler(pl, *batchInterval)
		if err := scheduler.Start(ctx); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	log.Infow("reputation node running", "host", *host, "port", *port,
		"chainId", *chainID, "scheduler", !*noScheduler)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Infow("shutting down")
}
