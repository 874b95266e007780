package main

import (
	"flag"

	"github.com/matheus3301/inboxd/internal/daemon"
	"github.com/matheus3301/inboxd/internal/home"
	"go.uber.org/fx"
)

func main() {
	dataFlag := flag.String("data", "", "data directory (default ~/.inboxd)")
	listenFlag := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	dataDir := *dataFlag
	if dataDir == "" {
		dataDir = home.Default()
	}

	app := fx.New(
		daemon.Module(daemon.Params{DataDir: dataDir, ListenAddr: *listenFlag}),
	)

	app.Run()
}
