package crawler

import "strings"

// HostBlocklist stores exact hosts and suffix wildcards derived from configuration.
// A bare "example.com" entry also blocks its subdomains (www.example.com); a
// "*.example.com" or ".example.com" entry blocks subdomains only.
type HostBlocklist struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewHostBlocklist builds a blocklist from patterns. It returns nil when no
// usable pattern is given; a nil blocklist blocks nothing.
func NewHostBlocklist(patterns []string) *HostBlocklist {
	matcher := &HostBlocklist{
		exact: make(map[string]struct{}),
	}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(value, "*."):
			if suffix := strings.TrimPrefix(value, "*."); suffix != "" {
				matcher.addSuffix(suffix)
			}
		case strings.HasPrefix(value, "."):
			if suffix := strings.TrimPrefix(value, "."); suffix != "" {
				matcher.addSuffix(suffix)
			}
		default:
			matcher.exact[value] = struct{}{}
			matcher.addSuffix(value)
		}
	}
	if len(matcher.exact) == 0 && len(matcher.suffixes) == 0 {
		return nil
	}
	return matcher
}

func (b *HostBlocklist) addSuffix(suffix string) {
	for _, existing := range b.suffixes {
		if existing == suffix {
			return
		}
	}
	b.suffixes = append(b.suffixes, suffix)
}

// IsBlocked reports whether host matches any pattern.
func (b *HostBlocklist) IsBlocked(host string) bool {
	if b == nil {
		return false
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}
	if _, exact := b.exact[host]; exact {
		return true
	}
	for _, suffix := range b.suffixes {
		if strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// IsBlockedURL is IsBlocked applied to the host of rawURL.
func (b *HostBlocklist) IsBlockedURL(rawURL string) bool {
	return b.IsBlocked(Hostname(rawURL))
}
