package probe

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidTarget = errors.New("target must be an absolute http or https url")

// NormalizeTarget trims raw and returns its canonical form: scheme and host
// lowercased, default ports and the fragment removed. Only http and https
// targets are accepted.
func NormalizeTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidTarget
	}
	if u.Hostname() == "" {
		return "", ErrInvalidTarget
	}

	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && u.Port() == "80") || (u.Scheme == "https" && u.Port() == "443") {
		u.Host = u.Hostname()
		if strings.Contains(u.Host, ":") {
			u.Host = "[" + u.Host + "]"
		}
	}
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}
