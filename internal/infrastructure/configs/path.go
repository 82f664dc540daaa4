package configs

import (
	"flag"
	"log"
	"os"

	"github.com/hilthontt/huddle/internal/infrastructure/env"
)

func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("HUDDLE_CONFIG", "")
	}

	if configPath == "" {
		configPath = findConfig(
			"./config.yaml",
			"./config.yml",
			"../../config.yaml", // local dev from cmd/http
			"/etc/huddle/config.yaml",
			"/app/config.yaml",
		)
	}

	if configPath == "" {
		log.Println("config file not found, running on defaults. Use --config or HUDDLE_CONFIG to point at one")
	}

	return configPath
}

func findConfig(candidates ...string) string {
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
