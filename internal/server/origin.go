// Package server normalizes and validates HTTP origins for WebSocket upgrade
// requests.
package server

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// originChecker holds the normalized origin allow-list for WebSocket
// upgrades. Requests without an Origin header (CLI tools, native apps) are
// always allowed; this is a LAN tool, not a public site.
type originChecker struct {
	allowAll bool
	allowed  map[string]struct{}
	log      *zap.SugaredLogger
}

func newOriginChecker(origins []string, log *zap.SugaredLogger) *originChecker {
	oc := &originChecker{
		allowed: make(map[string]struct{}, len(origins)),
		log:     log,
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			oc.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warnw("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		oc.allowed[normalized] = struct{}{}
	}

	return oc
}

func (oc *originChecker) check(r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" || oc.allowAll {
		return true
	}

	normalized, ok := normalizeOrigin(originHeader)
	if ok {
		if _, exists := oc.allowed[normalized]; exists {
			return true
		}
	}

	oc.log.Warnw("blocked websocket connection from disallowed origin", "origin", originHeader)
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
