package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/adamsih300u/bastion-sub008/pkg/client"
)

func main() {
	api := flag.String("api", envOr("FAULTSIM_API", client.DefaultEndpoint), "faultsim-d base URL")
	namespace := flag.String("namespace", "", "namespace to watch first (defaults to the first known)")
	interval := flag.Duration("interval", time.Second, "poll interval")
	flag.Parse()

	c := client.NewClient(*api,
		client.WithHTTPClient(&http.Client{Timeout: 500 * time.Millisecond}),
		client.WithRetry(client.DefaultBackoff(), 0),
	)
	p := tea.NewProgram(newModel(c, *namespace, *interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "faultsim-tui: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
