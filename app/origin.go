package relay

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// checkOrigin builds the websocket origin policy from the configured origins.
// "*" allows everything. Requests without an Origin header come from
// non-browser clients and are allowed.
func checkOrigin(origins []string) func(r *http.Request) bool {
	allowAll := lo.Contains(origins, "*")
	allowed := lo.SliceToMap(lo.FilterMap(origins, func(o string, _ int) (string, bool) {
		return normalizeOrigin(strings.TrimSpace(o))
	}), func(o string) (string, struct{}) {
		return o, struct{}{}
	})

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		header := r.Header.Get("Origin")
		if header == "" {
			return true
		}
		origin, ok := normalizeOrigin(header)
		if !ok {
			return false
		}
		_, ok = allowed[origin]
		return ok
	}
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
