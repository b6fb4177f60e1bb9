package terminal

import (
	"io"
	"net/url"
	"strings"

	"github.com/pkg/browser"
)

// Opener opens a URL outside the terminal.
type Opener interface {
	Open(url string) error
}

type BrowserOpener struct{}

// NewBrowserOpener silences the launched browser's output so it cannot
// scribble over the full-screen UI.
func NewBrowserOpener() BrowserOpener {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return BrowserOpener{}
}

func (BrowserOpener) Open(u string) error {
	return browser.OpenURL(u)
}

// resolveURL makes target absolute against site. Absolute targets and an
// empty site are returned unchanged.
func resolveURL(site, target string) string {
	ref, err := url.Parse(target)
	if err != nil || ref.IsAbs() || strings.TrimSpace(site) == "" {
		return target
	}
	base, err := url.Parse(site)
	if err != nil {
		return target
	}
	return base.ResolveReference(ref).String()
}
