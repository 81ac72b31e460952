package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

const HelpMessage = `
Nava Transportes fleet API

Usage:
  nava --mode=<mode> [--config-path=config.yaml]

Modes:
  auth-service     login, token refresh, profile, logout
  admin-service    users, trips, exports, payments, analytics, live feed
  driver-service   trip logs and payments of the signed in driver
  all              every route in one process

Flags:
  --mode           service mode
  --config-path    path to the config yaml file (default config.yaml)
  --help           show this message
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig prints the resolved configuration with secrets masked.
func PrintConfig(cfg *Config) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	rows := [][2]string{
		{"mode", string(cfg.Mode)},
		{"port", cfg.Port()},
		{"base path", cfg.HTTP.BasePath},
		{"allowed origins", strings.Join(cfg.HTTP.AllowedOrigins, ",")},
		{"database", fmt.Sprintf("%s@%s:%s/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)},
		{"database password", mask(cfg.Database.Password)},
		{"rabbitmq", fmt.Sprintf("%s:%s (enabled=%t)", cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.Enabled)},
		{"redis", fmt.Sprintf("%s db=%d (enabled=%t)", cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Enabled)},
		{"access ttl", cfg.Auth.AccessTokenTTL.String()},
		{"refresh ttl", cfg.Auth.RefreshTokenTTL.String()},
		{"jwt secret", mask(cfg.Auth.JWTSecret)},
		{"locationiq key", mask(cfg.ExternalAPIConfig.LocationIQapiKey)},
		{"log level", cfg.Log.Level},
	}

	fmt.Fprintln(w, "CONFIG\tVALUE")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\n", r[0], r[1])
	}
}

func mask(s string) string {
	switch {
	case s == "":
		return "<empty>"
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + strings.Repeat("*", len(s)-2)
	}
}
