package initiator

import (
	"github.com/skratchdot/open-golang/open"
)

// Browser opens a URL for the user.
type Browser interface {
	Open(url string) error
}

// BrowserFunc adapts a function to Browser.
type BrowserFunc func(url string) error

func (f BrowserFunc) Open(url string) error { return f(url) }

// SystemBrowser hands URLs to the desktop's default browser.
type SystemBrowser struct{}

func NewSystemBrowser() *SystemBrowser {
	return &SystemBrowser{}
}

func (SystemBrowser) Open(url string) error {
	return open.Start(url)
}
