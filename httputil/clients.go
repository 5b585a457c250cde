package httputil

import (
	"crypto/tls"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/Rovis91/lbc/config"
)

type Clients struct {
	Scraping *http.Client // optionally proxied, for leboncoin endpoints
	API      *http.Client // direct, for Telegram and other APIs
}

func NewClients(proxyCfg *config.ProxyConfig) *Clients {
	transport := &http.Transport{
		ForceAttemptHTTP2: false,
		TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
	}

	if proxyCfg != nil && proxyCfg.URL != "" {
		proxyURL, err := url.Parse(proxyCfg.URL)
		if err != nil {
			log.Printf("Warning: invalid proxy URL, continuing without proxy: %v", err)
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	scraping := &http.Client{
		Timeout:   15 * time.Second,
		Transport: transport,
	}

	return &Clients{
		Scraping: scraping,
		API:      &http.Client{Timeout: 30 * time.Second},
	}
}
