package middleware

import (
	"path"
	"strings"

	"github.com/MrEthical07/tokenguard"
)

// BypassPolicy decides which paths skip authentication: exact matches,
// prefixes and suffixes. Paths are cleaned before matching so dot segments
// cannot smuggle a protected path under a public prefix.
type BypassPolicy struct {
	exact    map[string]struct{}
	prefixes []string
	suffixes []string
}

// NewBypassPolicy copies cfg into a policy; later edits to cfg do not leak in.
func NewBypassPolicy(cfg tokenguard.BypassConfig) *BypassPolicy {
	p := &BypassPolicy{
		exact:    make(map[string]struct{}, len(cfg.Exact)),
		prefixes: append([]string(nil), cfg.Prefixes...),
		suffixes: append([]string(nil), cfg.Suffixes...),
	}
	for _, e := range cfg.Exact {
		p.exact[e] = struct{}{}
	}
	return p
}

// Match reports whether urlPath may be served without a token. A nil policy
// matches nothing.
func (p *BypassPolicy) Match(urlPath string) bool {
	if p == nil {
		return false
	}

	clean := cleanPath(urlPath)

	if _, ok := p.exact[clean]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(clean, prefix) || clean+"/" == prefix {
			return true
		}
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(clean, suffix) {
			return true
		}
	}
	return false
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	clean := path.Clean(p)
	// path.Clean drops the trailing slash; keep it so "/api/auth/" style
	// prefixes still match "/api/auth/login/".
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return clean
}
