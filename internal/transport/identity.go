package transport

import (
	"fmt"
	"net/http"
)

// Identity decides how outgoing requests present themselves to a server
type Identity interface {
	Name() string
	Apply(h http.Header)
}

const chromeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// BrowserIdentity mimics a desktop Chrome navigation. Quote and press
// endpoints throttle obvious bots far more aggressively.
type BrowserIdentity struct{}

func (BrowserIdentity) Name() string { return "browser" }

func (BrowserIdentity) Apply(h http.Header) {
	h.Set("User-Agent", chromeUserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Sec-Ch-Ua", `"Chromium";v="124", "Google Chrome";v="124", "Not-A.Brand";v="99"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Upgrade-Insecure-Requests", "1")
}

// PlainIdentity announces the tool honestly
type PlainIdentity struct {
	UserAgent string
}

// DefaultUserAgent is sent by PlainIdentity when none is configured
const DefaultUserAgent = "mnav/1.0 (+https://github.com/rovshanmuradov/mnav)"

func (PlainIdentity) Name() string { return "plain" }

func (p PlainIdentity) Apply(h http.Header) {
	ua := p.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	h.Set("User-Agent", ua)
	h.Set("Accept", "*/*")
}

// IdentityByName resolves the config value of sources.identity
func IdentityByName(name string) (Identity, error) {
	switch name {
	case "browser":
		return BrowserIdentity{}, nil
	case "plain":
		return PlainIdentity{}, nil
	default:
		return nil, fmt.Errorf("unknown identity %q", name)
	}
}
