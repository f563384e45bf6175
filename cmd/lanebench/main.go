package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := buildCLI().Execute(); err != nil {
		log.Error().Err(err).Msg("lanebench failed")
		os.Exit(1)
	}
}
