package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/planter-dashboard/cmd/server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Error running server")
		os.Exit(1)
	}
}
