// Package connectivity probes the external services the storefront depends
// on. The diagnostics endpoint runs a DNS, TCP and HTTP check per target so
// operators can tell a network fault from an upstream outage.
package connectivity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultProbeTimeout = 5 * time.Second

// Target is one external endpoint to probe.
type Target struct {
	Name string
	URL  string
}

// CheckResult is the outcome of one probe step.
type CheckResult struct {
	OK       bool   `json:"ok"`
	Duration string `json:"duration"`
	Detail   string `json:"detail,omitempty"`
}

// TargetReport groups the probe steps for one target.
type TargetReport struct {
	Name string      `json:"name"`
	Host string      `json:"host"`
	DNS  CheckResult `json:"dns"`
	TCP  CheckResult `json:"tcp"`
	HTTP CheckResult `json:"http"`
}

// Healthy reports whether every probe step passed.
func (r TargetReport) Healthy() bool {
	return r.DNS.OK && r.TCP.OK && r.HTTP.OK
}

// Prober runs reachability checks against configured targets.
type Prober struct {
	targets    []Target
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewProber creates a prober for the given targets.
func NewProber(targets []Target, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		targets: targets,
		timeout: defaultProbeTimeout,
		httpClient: &http.Client{
			Timeout: defaultProbeTimeout,
		},
		logger: logger,
	}
}

// ProbeAll checks every configured target. Probe failures are reported in the
// result, never as an error.
func (p *Prober) ProbeAll(ctx context.Context) []TargetReport {
	reports := make([]TargetReport, 0, len(p.targets))
	for _, target := range p.targets {
		reports = append(reports, p.probe(ctx, target))
	}
	return reports
}

func (p *Prober) probe(ctx context.Context, target Target) TargetReport {
	report := TargetReport{Name: target.Name}

	parsed, err := url.Parse(target.URL)
	if err != nil || parsed.Host == "" {
		report.DNS = CheckResult{Detail: fmt.Sprintf("invalid target URL %q", target.URL)}
		return report
	}
	host := parsed.Hostname()
	port := parsed.Port()
	if port == "" {
		if parsed.Scheme == "http" {
			port = "80"
		} else {
			port = "443"
		}
	}
	report.Host = host

	report.DNS = p.probeDNS(ctx, host)
	if !report.DNS.OK {
		return report
	}
	report.TCP = p.probeTCP(ctx, net.JoinHostPort(host, port))
	if !report.TCP.OK {
		return report
	}
	report.HTTP = p.probeHTTP(ctx, target.URL)

	if !report.Healthy() {
		p.logger.Warn("connectivity probe failed",
			zap.String("target", target.Name),
			zap.String("host", host))
	}
	return report
}

func (p *Prober) probeDNS(ctx context.Context, host string) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	result := CheckResult{Duration: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.OK = true
	result.Detail = fmt.Sprintf("%d addresses", len(addrs))
	return result
}

func (p *Prober) probeTCP(ctx context.Context, addr string) CheckResult {
	dialer := net.Dialer{Timeout: p.timeout}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	result := CheckResult{Duration: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	conn.Close()
	result.OK = true
	return result
}

func (p *Prober) probeHTTP(ctx context.Context, rawURL string) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return CheckResult{Detail: err.Error()}
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	result := CheckResult{Duration: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	defer resp.Body.Close()

	// any HTTP answer proves reachability, 4xx/5xx included
	result.OK = true
	result.Detail = resp.Status
	return result
}
