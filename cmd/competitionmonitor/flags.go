package main

import (
	"encoding/json"
	"io"

	"github.com/a-h/competitionmonitor/client"
)

// ServerFlags are shared by the commands that call a running server.
type ServerFlags struct {
	ServerURL    string `help:"The URL of the competition monitor server." env:"COMPETITION_MONITOR_URL" default:"http://localhost:8000"`
	ServerAPIKey string `help:"The API key for the competition monitor server." env:"COMPETITION_MONITOR_API_KEY" default:""`
	LogLevel     string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (f ServerFlags) Client() client.Client {
	return client.New(f.ServerURL, f.ServerAPIKey)
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
