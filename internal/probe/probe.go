package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"time"

	"github.com/NordCoder/Sitewatch/internal/obs"
)

const DefaultTimeout = 10 * time.Second

const (
	ReasonTimeout    = "timeout"
	ReasonRefused    = "connection refused"
	ReasonTLS        = "tls handshake failed"
	reasonDNSPrefix  = "dns lookup failed: "
	drainLimit int64 = 64 << 10
)

// Outcome is the result of one probe. Any HTTP response, whatever its status
// code, is Reachable.
type Outcome struct {
	Reachable    bool
	StatusCode   int
	ResponseTime time.Duration
	Reason       string
}

func Reachable(code int, rt time.Duration) Outcome {
	return Outcome{Reachable: true, StatusCode: code, ResponseTime: rt}
}

func Unreachable(reason string) Outcome {
	return Outcome{Reason: reason}
}

type Prober interface {
	Probe(ctx context.Context, target string) Outcome
}

type Config struct {
	// Timeout is DefaultTimeout when zero. Only tests shorten it.
	Timeout         time.Duration
	UserAgent       string
	FollowRedirects bool
	VerifyTLS       bool
}

type HTTPProber struct {
	c         *http.Client
	userAgent string
}

var _ Prober = (*HTTPProber)(nil)

// NewHTTPProber fixes the timeout for the lifetime of the prober.
func NewHTTPProber(cfg Config) *HTTPProber {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS,
			MinVersion:         tls.VersionTLS12,
		},
	}
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: obs.HTTPTransport(transport),
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return &HTTPProber{c: client, userAgent: cfg.UserAgent}
}

func (p *HTTPProber) Probe(ctx context.Context, target string) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Unreachable(err.Error())
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	start := time.Now()
	resp, err := p.c.Do(req)
	if err != nil {
		return Unreachable(Classify(err))
	}
	rt := time.Since(start)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	return Reachable(resp.StatusCode, rt)
}

// Classify maps a transport error to a short diagnostic reason.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return reasonDNSPrefix + dnsErr.Name
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonRefused
	}
	if isTLSError(err) {
		return ReasonTLS
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

func isTLSError(err error) bool {
	var (
		recErr      tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		invalidCert x509.CertificateInvalidError
		hostErr     x509.HostnameError
	)
	return errors.As(err, &recErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &invalidCert) ||
		errors.As(err, &hostErr)
}
