package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ballot-bot/bot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := bot.Run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}
