package proxy

import (
	"fmt"
	"net/http"
	"net/url"
)

// Settings contains outbound proxy configuration for network clients.
type Settings struct {
	Enabled  bool   `mapstructure:"PROXY_ENABLED" default:"false"`
	Hostname string `mapstructure:"PROXY_HOST"`
	Port     int    `mapstructure:"PROXY_PORT"`
	Username string `mapstructure:"PROXY_USER"`
	Password string `mapstructure:"PROXY_PASSWORD"`
}

// HasProxy returns true if proxy is enabled and configured.
func (p Settings) HasProxy() bool {
	return p.Enabled && p.Hostname != "" && p.Port > 0
}

// URL returns the proxy URL with credentials, or nil when no proxy is configured.
func (p Settings) URL() *url.URL {
	if !p.HasProxy() {
		return nil
	}
	u := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", p.Hostname, p.Port),
	}
	if p.Username != "" && p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// Func returns a function usable as http.Transport.Proxy.
func (p Settings) Func() func(*http.Request) (*url.URL, error) {
	u := p.URL()
	if u == nil {
		return http.ProxyFromEnvironment
	}
	return http.ProxyURL(u)
}
