// Command healthcheck probes the service liveness endpoint for container
// health checks. It exits non-zero unless the probe returns 200.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultURL = "http://localhost:8080/healthz"

func main() {
	os.Exit(probe(context.Background(), target()))
}

func target() string {
	if u := os.Getenv("HEALTHCHECK_URL"); u != "" {
		return u
	}
	return defaultURL
}

func probe(ctx context.Context, url string) int {
	client := &http.Client{Timeout: 3 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 1
	}
	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
