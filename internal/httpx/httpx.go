package httpx

import (
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// BrowserHeaders imitate a desktop browser. Exchange endpoints reject
// requests without them.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Connection":      "keep-alive",
		"DNT":             "1",
		"Pragma":          "no-cache",
		"Cache-Control":   "no-cache",
	}
}

// New builds a resty client with sane transport defaults and a cookie jar.
func New(timeout time.Duration) *resty.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}
	return resty.New().
		SetTimeout(timeout).
		SetTransport(transport)
}

// NewBrowser is New plus browser-imitating headers, for scraping
// undocumented endpoints.
func NewBrowser(timeout time.Duration) *resty.Client {
	return New(timeout).SetHeaders(BrowserHeaders())
}
