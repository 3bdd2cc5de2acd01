package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"canvassync/internal/app"
)

func main() {
	var cfgPath string
	var once bool
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json/yaml")
	flag.BoolVar(&once, "once", false, "run a single sync pass and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	// No trigger schedule means one-shot mode.
	if once || a.Schedule() == "" {
		err := a.RunOnce(ctx)
		_ = a.Stop(context.Background())
		if err != nil {
			os.Exit(1)
		}
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	<-ctx.Done()
	_ = a.Stop(context.Background())
}
