package main

import (
	"log"

	corecmd "github.com/m3rciful/ledgerbot/core/cmd"
	"github.com/m3rciful/ledgerbot/internal/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(carrier.(*app.Config))
		},
	})
	if err != nil {
		log.Fatalf("ledgerbot: %v", err)
	}
}
