// Package main is the entry point of the print bridge.
// The bridge runs as a service and prints documents submitted by the
// browser extension over HTTP or WebSocket.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/judwhite/go-svc"

	"github.com/adcondev/print-bridge/internal/daemon"
)

func main() {
	consoleMode := flag.Bool("console", false, "Run in console mode (not as service)")
	configPath := flag.String("config", "", "Path to a YAML config file (overrides PRINTBRIDGE_CONFIG)")
	flag.Parse()

	prg := &daemon.Program{ConfigPath: *configPath}

	if *consoleMode || isInteractive() {
		prg.Console = true
		runConsole(prg)
		return
	}

	if err := svc.Run(prg, syscall.SIGINT, syscall.SIGTERM); err != nil {
		log.Fatal(err)
	}
}

// runConsole runs the program until interrupted
func runConsole(prg *daemon.Program) {
	if err := prg.Init(nil); err != nil {
		log.Fatalf("Init failed: %v", err)
	}
	if err := prg.Start(); err != nil {
		log.Fatalf("Start failed: %v", err)
	}

	log.Printf("Print bridge listening on %s, press Ctrl+C to stop", prg.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	if err := prg.Stop(); err != nil {
		log.Printf("Stop failed: %v", err)
	}
}

// isInteractive reports whether stdin is a terminal
func isInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
