// Package embed decides whether a URL can be shown inside a frame on our
// origin by reading the target's framing headers.
package embed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// Status is the outcome of an embeddability probe.
type Status int

const (
	Embedded Status = iota
	Blocked
)

func (s Status) String() string {
	if s == Embedded {
		return "embedded"
	}
	return "blocked"
}

// Result carries the probe outcome and a short human readable reason.
type Result struct {
	URL    string `json:"url"`
	Status Status `json:"-"`
	Reason string `json:"reason,omitempty"`
}

// Embeddable is a convenience for Status == Embedded.
func (r Result) Embeddable() bool { return r.Status == Embedded }

var (
	// ErrInvalidURL is returned for targets that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("embed: url must be absolute http or https")
	// ErrForbiddenAddress is returned by the default dialer for loopback,
	// private, link-local and other non-public destinations.
	ErrForbiddenAddress = errors.New("embed: destination address not allowed")
)

// reasonUnreachable is reported for every failure to fetch the target so the
// probe does not reveal why a destination could not be read.
const reasonUnreachable = "unreachable"

// Checker is the capability probe used by the session controller and the
// embed-check endpoint.
type Checker interface {
	TryEmbed(ctx context.Context, target string) (Result, error)
}

// Prober fetches the target and inspects X-Frame-Options and the CSP
// frame-ancestors directive.
type Prober struct {
	client *http.Client
	// Origin is the scheme://host the frame would be embedded in.
	Origin string
}

// NewProber builds a probe for the given embedding origin. A nil client uses
// a client with a 10 second timeout that only dials public addresses.
func NewProber(origin string, client *http.Client) *Prober {
	if client == nil {
		client = newPublicClient(10 * time.Second)
	}
	return &Prober{client: client, Origin: strings.TrimRight(origin, "/")}
}

// newPublicClient checks the resolved address at dial time, which also covers
// redirects and names that resolve differently on each lookup.
func newPublicClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			return checkPublicAddress(address)
		},
	}
	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func checkPublicAddress(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !isPublicAddr(addr) {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, host)
	}
	return nil
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		sharedAddressSpace.Contains(addr):
		return false
	}
	return true
}

func (p *Prober) TryEmbed(ctx context.Context, target string) (Result, error) {
	parsed, err := url.Parse(strings.TrimSpace(target))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Result{URL: target, Status: Blocked, Reason: "invalid url"}, ErrInvalidURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return Result{URL: target, Status: Blocked, Reason: "invalid url"}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{URL: target, Status: Blocked, Reason: reasonUnreachable}, nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= http.StatusBadRequest {
		return Result{URL: target, Status: Blocked, Reason: reasonUnreachable}, nil
	}

	targetOrigin := originOf(resp.Request.URL)
	if reason, blocked := p.blockedByCSP(resp.Header, targetOrigin); blocked {
		return Result{URL: target, Status: Blocked, Reason: reason}, nil
	}
	// CSP frame-ancestors supersedes X-Frame-Options when both are present.
	if !hasFrameAncestors(resp.Header) {
		if reason, blocked := p.blockedByXFO(resp.Header, targetOrigin); blocked {
			return Result{URL: target, Status: Blocked, Reason: reason}, nil
		}
	}
	return Result{URL: target, Status: Embedded}, nil
}

func (p *Prober) blockedByXFO(h http.Header, targetOrigin string) (string, bool) {
	xfo := strings.ToUpper(strings.TrimSpace(h.Get("X-Frame-Options")))
	switch {
	case xfo == "":
		return "", false
	case xfo == "DENY":
		return "x-frame-options: deny", true
	case xfo == "SAMEORIGIN":
		if !strings.EqualFold(targetOrigin, p.Origin) {
			return "x-frame-options: sameorigin", true
		}
		return "", false
	case strings.HasPrefix(xfo, "ALLOW-FROM"):
		allowed := strings.TrimSpace(strings.TrimPrefix(xfo, "ALLOW-FROM"))
		if !strings.EqualFold(strings.TrimRight(allowed, "/"), p.Origin) {
			return "x-frame-options: allow-from", true
		}
		return "", false
	default:
		return "", false
	}
}

func hasFrameAncestors(h http.Header) bool {
	_, ok := frameAncestors(h)
	return ok
}

func frameAncestors(h http.Header) ([]string, bool) {
	for _, policy := range h.Values("Content-Security-Policy") {
		for _, directive := range strings.Split(policy, ";") {
			fields := strings.Fields(strings.TrimSpace(directive))
			if len(fields) == 0 || !strings.EqualFold(fields[0], "frame-ancestors") {
				continue
			}
			return fields[1:], true
		}
	}
	return nil, false
}

func (p *Prober) blockedByCSP(h http.Header, targetOrigin string) (string, bool) {
	sources, ok := frameAncestors(h)
	if !ok {
		return "", false
	}
	for _, src := range sources {
		switch strings.ToLower(src) {
		case "'none'":
			return "csp frame-ancestors 'none'", true
		case "*":
			return "", false
		case "'self'":
			if strings.EqualFold(targetOrigin, p.Origin) {
				return "", false
			}
		default:
			if sourceMatches(src, p.Origin) {
				return "", false
			}
		}
	}
	return "csp frame-ancestors excludes origin", true
}

// sourceMatches handles exact origins, scheme-only sources and *.host wildcards.
func sourceMatches(src, origin string) bool {
	src = strings.TrimRight(strings.ToLower(src), "/")
	origin = strings.ToLower(origin)
	if src == origin {
		return true
	}
	o, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.HasSuffix(src, ":") && !strings.Contains(src, "/") {
		return o.Scheme+":" == src
	}
	host := src
	if i := strings.Index(host, "://"); i >= 0 {
		if host[:i] != o.Scheme {
			return false
		}
		host = host[i+3:]
	}
	if strings.HasPrefix(host, "*.") {
		return strings.HasSuffix(o.Host, host[1:])
	}
	return host == o.Host
}

func originOf(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
