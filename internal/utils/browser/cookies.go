// Package browser reads cookies from local browser profiles for authenticated
// stream requests.
package browser

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"mediadl/internal/utils/logging"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all"
	"github.com/browserutils/kooky/browser/chrome"
	"github.com/browserutils/kooky/browser/firefox"
	"github.com/browserutils/kooky/browser/safari"
	"golang.org/x/net/publicsuffix"
)

// ErrUnsupportedCookieFile is returned for cookie files of unknown browsers.
var ErrUnsupportedCookieFile = errors.New("unsupported cookie file format")

// Source selects where cookies are read from. With CookieFile set, Browser
// is ignored; with both empty every detected browser is tried.
type Source struct {
	Browser    string
	CookieFile string
}

// Enabled reports whether any cookie source is configured.
func (s Source) Enabled() bool {
	return s.Browser != "" || s.CookieFile != ""
}

// LoadCookies reads cookies for the base domain of each URL. The result is
// keyed by "https://<domain>/" for use with stream.NewHTTPClient.
func LoadCookies(src Source, rawURLs ...string) (map[string][]*http.Cookie, error) {
	out := make(map[string][]*http.Cookie)

	var stores []kooky.CookieStore
	if src.CookieFile != "" {
		logging.D(2, "Reading cookies from specified file: %s", src.CookieFile)
		store, err := openCookieFile(src.CookieFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read cookies from file: %w", err)
		}
		stores = []kooky.CookieStore{store}
	} else {
		stores = kooky.FindAllCookieStores()
	}
	defer func() {
		for _, s := range stores {
			s.Close()
		}
	}()

	for _, raw := range rawURLs {
		domain, err := baseDomain(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to extract base domain: %w", err)
		}
		key := "https://" + domain + "/"
		if _, done := out[key]; done {
			continue
		}

		browser := src.Browser
		if src.CookieFile != "" {
			browser = ""
		}
		cookies := readBrowserCookies(stores, browser, domain)

		if len(cookies) == 0 {
			logging.I("No cookies found for %q, proceeding without cookies", domain)
			continue
		}
		logging.I("Found a total of %d cookies for %q", len(cookies), domain)
		out[key] = cookies
	}
	return out, nil
}

// readBrowserCookies reads from every store matching browser.
func readBrowserCookies(stores []kooky.CookieStore, browser, domain string) []*http.Cookie {
	var (
		found     []*http.Cookie
		attempted []string
	)
	for _, store := range stores {
		name := store.Browser()
		if !matchesBrowser(name, browser) {
			continue
		}
		attempted = append(attempted, name)

		cookies, err := store.ReadCookies(kooky.Valid, kooky.Domain(domain))
		if err != nil {
			logging.D(2, "Failed to read cookies from %s: %v", name, err)
			continue
		}
		if len(cookies) > 0 {
			logging.D(1, "Read %d cookies from %s for domain %s", len(cookies), name, domain)
			found = append(found, convertToHTTPCookies(cookies)...)
		}
	}
	slices.Sort(attempted)
	logging.D(1, "Attempted to read cookies from the following browsers: %v", slices.Compact(attempted))
	return found
}

// matchesBrowser compares a store's browser name with the requested one.
func matchesBrowser(store, want string) bool {
	return want == "" || strings.EqualFold(store, want)
}

// convertToHTTPCookies converts kooky cookies to http.Cookie format.
func convertToHTTPCookies(kookyCookies []*kooky.Cookie) []*http.Cookie {
	httpCookies := make([]*http.Cookie, len(kookyCookies))
	for i, c := range kookyCookies {
		httpCookies[i] = &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
	}
	return httpCookies
}

// baseDomain returns the registrable domain of a URL's host.
func baseDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// IP addresses and single-label hosts have no public suffix.
		return host, nil
	}
	return domain, nil
}

// openCookieFile opens the cookie store of a browser's cookie file.
func openCookieFile(cookieFilePath string) (kooky.CookieStore, error) {
	var (
		store kooky.CookieStore
		err   error
	)

	base := filepath.Base(cookieFilePath)
	switch {
	case strings.Contains(cookieFilePath, "firefox") || base == "cookies.sqlite":
		store, err = firefox.CookieStore(cookieFilePath)
	case strings.Contains(cookieFilePath, "safari") || base == "Cookies.binarycookies":
		store, err = safari.CookieStore(cookieFilePath)
	case strings.Contains(cookieFilePath, "chrome") || base == "Cookies":
		store, err = chrome.CookieStore(cookieFilePath)
	default:
		return nil, ErrUnsupportedCookieFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie store: %w", err)
	}
	return store, nil
}
