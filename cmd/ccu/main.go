package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/config"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/engine"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/layout"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/messaging"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/orders"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/snapshot"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/store"
	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "ccu.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("ccu", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("ccu: database open (%s)", cfg.Database.Driver)

	// Redis snapshot mirror (optional)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	var mirror *snapshot.Mirror
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("ccu: redis not available (%v), running without snapshot mirror", err)
		redisClient.Close()
	} else {
		log.Printf("ccu: redis connected (%s)", cfg.Redis.Address)
		mirror = snapshot.NewMirror(redisClient)
		defer redisClient.Close()
	}
	cancel()

	// Factory layout and production flows
	l, err := layout.LoadLayout(cfg.Factory.LayoutPath)
	if err != nil {
		log.Fatalf("load layout: %v", err)
	}
	graph, err := layout.NewGraph(l)
	if err != nil {
		log.Fatalf("build layout graph: %v", err)
	}
	flows, err := orders.LoadFlows(cfg.Factory.FlowsPath)
	if err != nil {
		log.Fatalf("load flows: %v", err)
	}

	// Messaging: a CCU without a bus controls nothing, so exhausting the
	// connect retries is fatal.
	msgClient := messaging.NewClient(&cfg.Messaging)
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		MsgClient:  msgClient,
		Mirror:     mirror,
		Graph:      graph,
		Flows:      flows,
	})
	msgClient.SetStatusFunc(func(connected bool, detail string) {
		if connected {
			log.Printf("ccu: messaging up: %s", detail)
		} else {
			log.Printf("ccu: messaging down: %s", detail)
		}
	})
	if err := msgClient.ConnectWithRetry(cfg.Messaging.ConnectRetries, cfg.Messaging.ConnectInterval); err != nil {
		log.Fatalf("%v", err)
	}
	eng.Start()
	defer eng.Stop()

	if err := eng.SubscribeAll(); err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	log.Printf("ccu: listening on %s", cfg.Messaging.Backend)

	// Web server (read-only JSON API)
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: www.NewRouter(eng),
	}
	go func() {
		log.Printf("ccu: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("ccu: ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("ccu: shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("ccu: stopped")
}
