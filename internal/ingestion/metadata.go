package ingestion

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Source kinds reported by InferSource.
const (
	KindFile = "file"
	KindURL  = "url"
)

// SourceInfo is best-effort display metadata derived from a source
// identifier. It never changes the identifier itself: chunks are always
// tagged with the path or URL exactly as the caller supplied it.
type SourceInfo struct {
	// Kind is KindFile or KindURL.
	Kind string
	// Title is a short display name: the file name, or the last URL path
	// segment, or the host when the URL has no path.
	Title string
	// Host is the URL host, empty for local files.
	Host string
}

// InferSource classifies raw as a local path or a remote URL.
//
// Recognised URL forms:
//
//	https://host/path/to/report.pdf      → url, "report.pdf", "host"
//	http://host/download?id=7            → url, "download", "host"
//	https://host                         → url, "host", "host"
//
// Anything without an http(s) scheme and host is treated as a file path.
func InferSource(raw string) SourceInfo {
	raw = strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil && isRemote(parsed) {
		info := SourceInfo{Kind: KindURL, Host: strings.ToLower(parsed.Hostname())}
		segments := trimSegments(parsed.Path)
		if len(segments) == 0 {
			info.Title = info.Host
			return info
		}
		last := segments[len(segments)-1]
		if unescaped, err := url.PathUnescape(last); err == nil {
			last = unescaped
		}
		info.Title = last
		return info
	}

	title := filepath.Base(raw)
	if raw == "" || title == "." || title == string(filepath.Separator) {
		title = raw
	}
	return SourceInfo{Kind: KindFile, Title: title}
}

// isRemote reports whether u is an absolute http(s) URL with a host.
func isRemote(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// trimSegments splits a URL path into its non-empty segments.
func trimSegments(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
