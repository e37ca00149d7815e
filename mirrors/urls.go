package mirrors

import "strings"

// URLs turns mirror hosts into index urls of the form
// scheme://host/simple/. Hosts without an http, https or file scheme get
// http://. The result has no duplicates and keeps the input order.
func URLs(mirrors []string) []string {
	var (
		urls = make([]string, 0, len(mirrors))
		seen = make(map[string]struct{}, len(mirrors))
	)
	for _, m := range mirrors {
		u := mirrorURL(m)
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

func mirrorURL(m string) string {
	u := strings.TrimRight(strings.TrimSpace(m), "/")
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") &&
		!strings.HasPrefix(lower, "https://") &&
		!strings.HasPrefix(lower, "file://") {
		u = "http://" + u
	}
	if !strings.HasSuffix(u, "/simple") {
		u += "/simple"
	}
	return u + "/"
}
