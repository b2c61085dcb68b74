package main

import (
	"log"

	corecmd "github.com/m3rciful/accbot/core/cmd"
	"github.com/m3rciful/accbot/internal/app"
	"github.com/m3rciful/accbot/internal/config"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		EnvFiles:          []string{".env"},
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
