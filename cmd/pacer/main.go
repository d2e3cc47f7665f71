package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pacer/internal/app"
)

func main() {
	var (
		cfgPath  string
		replay   string
		interval time.Duration
	)
	flag.StringVar(&cfgPath, "config", "./pacer.yaml", "path to config yaml/json")
	flag.StringVar(&replay, "replay", "", "comma separated clock readings (seconds) to replay against a manual scheduler")
	flag.DurationVar(&interval, "interval", 10*time.Second, "interval used by -replay")
	flag.Parse()

	if replay != "" {
		readings, err := app.ParseReadings(replay)
		if err != nil {
			fmt.Println("fatal:", err)
			os.Exit(2)
		}
		if _, err := app.Replay(os.Stdout, interval, readings); err != nil {
			fmt.Println("fatal:", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		fmt.Println("stop:", err)
	}
	if err := a.Err(); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}
