// Package endpoint resolves the DashScope realtime websocket endpoint and the
// credentials attached to its handshake.
package endpoint

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type Region string

const (
	RegionChina         Region = "china"
	RegionInternational Region = "international"
)

const realtimePath = "/api-ws/v1/realtime"

var hosts = map[Region]string{
	RegionChina:         "dashscope.aliyuncs.com",
	RegionInternational: "dashscope-intl.aliyuncs.com",
}

// ParseRegion accepts the region names used in configuration files. The empty
// string resolves to the international region.
func ParseRegion(s string) (Region, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "intl", string(RegionInternational):
		return RegionInternational, nil
	case "cn", string(RegionChina):
		return RegionChina, nil
	}
	return "", fmt.Errorf("unknown region %q", s)
}

type Config struct {
	Region Region
	Model  string
	APIKey string
	// BaseURL replaces the regional host, e.g. "ws://127.0.0.1:8080" for a
	// local gateway or test server.
	BaseURL string
}

// Endpoint is everything the transport needs to open a session socket.
type Endpoint struct {
	URL    string
	Header http.Header
}

func Resolve(cfg Config) (Endpoint, error) {
	region := cfg.Region
	if region == "" {
		region = RegionInternational
	}
	host, ok := hosts[region]
	if !ok {
		return Endpoint{}, fmt.Errorf("unknown region %q", cfg.Region)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return Endpoint{}, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Endpoint{}, fmt.Errorf("api key is required")
	}

	query := url.Values{}
	query.Set("model", cfg.Model)

	u := &url.URL{Scheme: "wss", Host: host, Path: realtimePath, RawQuery: query.Encode()}
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return Endpoint{}, fmt.Errorf("invalid base url: %w", err)
		}
		if base.Scheme != "ws" && base.Scheme != "wss" {
			return Endpoint{}, fmt.Errorf("invalid base url scheme %q", base.Scheme)
		}
		u.Scheme, u.Host = base.Scheme, base.Host
	}

	return Endpoint{
		URL:    u.String(),
		Header: http.Header{"Authorization": {"Bearer " + cfg.APIKey}},
	}, nil
}
