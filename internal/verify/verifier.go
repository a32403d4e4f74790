package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"

	"webring/internal/config"
)

var (
	ErrOwnershipMissing     = errors.New("ownership_token_missing")
	ErrOwnershipMismatch    = errors.New("ownership_token_mismatch")
	ErrOwnershipUnavailable = errors.New("ownership_check_unavailable")

	errForbiddenAddress = errors.New("address not reachable for verification")
)

// carrier-grade NAT space is not covered by netip.Addr.IsPrivate.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

const maxTokenBody = 4 << 10

// Token is the value a site must publish to prove it controls siteURL:
// the hex SHA-256 of the normalized root url.
func Token(siteURL string) string {
	sum := sha256.Sum256([]byte(siteURL))
	return hex.EncodeToString(sum[:])
}

type Verifier interface {
	Verify(ctx context.Context, siteURL string) error
}

type NoopVerifier struct{}

func (NoopVerifier) Verify(ctx context.Context, siteURL string) error { return nil }

type HTTPVerifier struct {
	path   string
	client *http.Client
}

func NewVerifier(cfg config.Join) Verifier {
	if !cfg.VerifyOwnership {
		return NoopVerifier{}
	}
	dialer := &net.Dialer{Timeout: cfg.VerifyTimeout}
	if !cfg.AllowPrivateHosts {
		dialer.Control = refuseInternal
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// a proxy would dial on our behalf and skip the address check
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	maxRedirects := cfg.MaxRedirects
	return &HTTPVerifier{
		path: cfg.VerifyPath,
		client: &http.Client{
			Timeout:   cfg.VerifyTimeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// refuseInternal runs after name resolution, so it sees the address that
// is actually dialed, redirects included.
func refuseInternal(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if internalAddr(ip) {
		return fmt.Errorf("%w: %s", errForbiddenAddress, ip)
	}
	return nil
}

func internalAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return !ip.IsGlobalUnicast() || ip.IsPrivate() || sharedAddressSpace.Contains(ip)
}

// Verify fetches <siteURL><path> and compares the trimmed body with Token.
func (v *HTTPVerifier) Verify(ctx context.Context, siteURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(siteURL, "/")+v.path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOwnershipUnavailable, err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOwnershipUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: HTTP %d", ErrOwnershipUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d from %s", ErrOwnershipMissing, resp.StatusCode, v.path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBody))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOwnershipUnavailable, err)
	}
	got := strings.ToLower(strings.TrimSpace(string(body)))
	if got == "" {
		return fmt.Errorf("%w: empty body at %s", ErrOwnershipMissing, v.path)
	}
	if got != Token(siteURL) {
		return ErrOwnershipMismatch
	}
	return nil
}
