// Command healthcheck probes the history server's health endpoint and exits
// non-zero unless it reports ok. It is meant for container HEALTHCHECK use.
package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

const probeTimeout = 2 * time.Second

func main() {
	os.Exit(check(os.Getenv("TEMPMAIL_LISTEN_ADDR")))
}

func check(listenAddr string) int {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	u := url.URL{Scheme: "http", Host: loopbackAddr(listenAddr), Path: "/api/health"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 1
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Status != "ok" {
		return 1
	}
	return 0
}

// loopbackAddr rewrites a bind-all listen address to loopback, since the
// probe runs next to the server.
func loopbackAddr(raw string) string {
	const fallback = "127.0.0.1:8080"

	host, port, err := net.SplitHostPort(raw)
	if err != nil || port == "" {
		return fallback
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
