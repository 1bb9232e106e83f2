package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/config"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/server"
	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/util"
)

var (
	port     = flag.Int("port", 0, "HTTP port (overrides config.toml)")
	devMode  = flag.Bool("dev", false, "development mode")
	dataDir  = flag.String("dataDir", "", "data directory (overrides config.toml)")
	sourceDB = flag.String("sourceDB", "", "path to the source SQLite database (overrides config.toml)")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  AutoReport - template auto-mapping tool")
	fmt.Println("==========================================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}
	if *sourceDB != "" {
		cfg.Source.DatabasePath = *sourceDB
	}

	dataPath, err := config.EnsureDataDir(cfg)
	if err != nil {
		log.Printf("failed to create data directory: %v", err)
	} else {
		fmt.Printf("data directory: %s\n", dataPath)
	}

	srv := server.NewServer(cfg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	go func() {
		fmt.Printf("listening on port %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	if !cfg.Server.DevMode {
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("could not open a browser, visit %s manually\n", url)
		}
	} else {
		fmt.Printf("dev mode: visit %s\n", url)
	}

	fmt.Println("\npress Ctrl+C to stop ...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nshutting down ...")
	if err := srv.Close(); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
