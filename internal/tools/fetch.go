package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/zakerytclarke/teapot/internal/extract"
	"github.com/zakerytclarke/teapot/internal/htmltext"
)

const (
	FetchName = "fetch_page"

	defaultFetchTimeout = 15 * time.Second
	maxFetchBytes       = int64(2 * 1024 * 1024)
	// DefaultFetchChars bounds how much page text is folded into a prompt.
	DefaultFetchChars = 4000
)

// ErrPrivateAddress is returned when a fetch would connect to a loopback,
// private, link-local or unspecified address.
var ErrPrivateAddress = errors.New("refusing to fetch a non-public address")

// FetchConfig controls the page fetch tool.
type FetchConfig struct {
	Client   *http.Client
	MaxChars int
	// AllowPrivate lets the tool reach loopback and private networks.
	AllowPrivate bool
}

// Fetch downloads a web page and returns it as markdown.
func Fetch(cfg FetchConfig) Tool {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	if !cfg.AllowPrivate {
		client = publicOnly(client)
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultFetchChars
	}
	return Tool{
		Name:        FetchName,
		Description: "Downloads a web page given its http or https URL and returns its text",
		Input: extract.MustSchema(FetchName, extract.Field{
			Name:        "url",
			Type:        extract.Text,
			Description: "the full http:// or https:// address",
		}),
		Invoke: func(ctx context.Context, args extract.Record) (any, error) {
			url, _ := args.Text("url")
			return fetchPage(ctx, client, strings.Trim(url, `"'<> `), maxChars)
		},
	}
}

func fetchPage(ctx context.Context, client *http.Client, url string, maxChars int) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", errors.New("url must start with http:// or https://")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "teapot-fetch/1.0")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	content := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		if content, err = htmltext.Markdown(content); err != nil {
			return "", fmt.Errorf("convert %s: %w", url, err)
		}
	}
	content = strings.TrimSpace(content)
	if r := []rune(content); len(r) > maxChars {
		content = string(r[:maxChars])
	}
	return content, nil
}

// publicOnly copies client with a dialer that checks every resolved address,
// redirects included.
func publicOnly(client *http.Client) *http.Client {
	base, ok := client.Transport.(*http.Transport)
	if !ok || base == nil {
		base = http.DefaultTransport.(*http.Transport)
	}
	tr := base.Clone()
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: rejectPrivate}
	tr.DialContext = dialer.DialContext
	guarded := *client
	guarded.Transport = tr
	return &guarded
}

func rejectPrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
	}
	return nil
}
