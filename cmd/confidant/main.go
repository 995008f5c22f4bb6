package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/avelar/confidant/cmd/confidant/accounts"
	"github.com/avelar/confidant/cmd/confidant/serve"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "confidant",
		Usage: "Keep one secret per person, behind a proper login!",
		Commands: []*cli.Command{
			serve.Cmd(),
			accounts.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
	}
}
