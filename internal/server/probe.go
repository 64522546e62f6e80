package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// NetworkProber checks connectivity to the database host and the
// provider's public site. It backs the /debug/network endpoint used
// when diagnosing deploy-environment DNS and egress problems.
type NetworkProber struct {
	dbHost  string
	dbURL   string
	siteURL string
	timeout time.Duration
	lookup  func(ctx context.Context, host string) ([]string, error)
	httpGet func(ctx context.Context, url string) (int, error)
}

// NewNetworkProber probes the given database host plus the provider
// main site over HTTPS.
func NewNetworkProber(dbHost, siteURL string) *NetworkProber {
	client := &http.Client{}
	return &NetworkProber{
		dbHost:  dbHost,
		dbURL:   "https://" + dbHost,
		siteURL: siteURL,
		timeout: 10 * time.Second,
		lookup: func(ctx context.Context, host string) ([]string, error) {
			return net.DefaultResolver.LookupHost(ctx, host)
		},
		httpGet: func(ctx context.Context, url string) (int, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return 0, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return 0, err
			}
			resp.Body.Close()
			return resp.StatusCode, nil
		},
	}
}

// Probe runs the three checks and reports each as a human-readable
// Success/Failed string, matching what the mobile team greps for in
// deploy logs.
func (p *NetworkProber) Probe(ctx context.Context) map[string]string {
	results := make(map[string]string, 3)

	dnsCtx, cancel := context.WithTimeout(ctx, p.timeout)
	addrs, err := p.lookup(dnsCtx, p.dbHost)
	cancel()
	switch {
	case err != nil:
		results["dns_resolution"] = fmt.Sprintf("Failed: %s", err)
	case len(addrs) == 0:
		results["dns_resolution"] = "Failed: no addresses"
	default:
		results["dns_resolution"] = fmt.Sprintf("Success: %s", addrs[0])
	}

	httpCtx, cancel := context.WithTimeout(ctx, p.timeout)
	status, err := p.httpGet(httpCtx, p.dbURL)
	cancel()
	if err != nil {
		results["http_connection"] = fmt.Sprintf("Failed: %s", err)
	} else {
		results["http_connection"] = fmt.Sprintf("Success: %d", status)
	}

	siteCtx, cancel := context.WithTimeout(ctx, p.timeout)
	status, err = p.httpGet(siteCtx, p.siteURL)
	cancel()
	if err != nil {
		results["provider_main_site"] = fmt.Sprintf("Failed: %s", err)
	} else {
		results["provider_main_site"] = fmt.Sprintf("Success: %d", status)
	}

	return results
}
