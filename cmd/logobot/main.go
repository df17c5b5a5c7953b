// Command logobot runs the speech therapy center bot.
package main

import (
	"context"
	"log"

	corecmd "github.com/m3rciful/logobot/core/cmd"
	"github.com/m3rciful/logobot/internal/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.New(ctx, cfg.(*app.Config), app.Options{})
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
