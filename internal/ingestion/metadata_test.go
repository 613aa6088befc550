package ingestion

import "testing"

func TestInferSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		kind  string
		title string
		host  string
	}{
		// ── Remote documents ───────────────────────────────────────────
		{
			name:  "https pdf",
			raw:   "https://arxiv.org/pdf/1706.03762.pdf",
			kind:  KindURL,
			title: "1706.03762.pdf",
			host:  "arxiv.org",
		},
		{
			name:  "http with query string",
			raw:   "http://files.example.com/download?id=7",
			kind:  KindURL,
			title: "download",
			host:  "files.example.com",
		},
		{
			name:  "escaped segment",
			raw:   "https://example.com/docs/annual%20report.pdf",
			kind:  KindURL,
			title: "annual report.pdf",
			host:  "example.com",
		},
		{
			name:  "trailing slash",
			raw:   "https://example.com/papers/",
			kind:  KindURL,
			title: "papers",
			host:  "example.com",
		},
		{
			name:  "host only",
			raw:   "https://Example.COM",
			kind:  KindURL,
			title: "example.com",
			host:  "example.com",
		},
		{
			name:  "host with port",
			raw:   "http://127.0.0.1:8080/a.pdf",
			kind:  KindURL,
			title: "a.pdf",
			host:  "127.0.0.1",
		},
		// ── Local files ────────────────────────────────────────────────
		{
			name:  "absolute path",
			raw:   "/home/user/docs/thesis.pdf",
			kind:  KindFile,
			title: "thesis.pdf",
		},
		{
			name:  "relative path",
			raw:   "reports/q3.pdf",
			kind:  KindFile,
			title: "q3.pdf",
		},
		{
			name:  "file scheme is a path",
			raw:   "file:///tmp/x.pdf",
			kind:  KindFile,
			title: "x.pdf",
		},
		{
			name:  "scheme without host",
			raw:   "https:///nohost.pdf",
			kind:  KindFile,
			title: "nohost.pdf",
		},
		{
			name:  "empty",
			raw:   "",
			kind:  KindFile,
			title: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := InferSource(tc.raw)
			if got.Kind != tc.kind {
				t.Errorf("Kind: want %q, got %q", tc.kind, got.Kind)
			}
			if got.Title != tc.title {
				t.Errorf("Title: want %q, got %q", tc.title, got.Title)
			}
			if got.Host != tc.host {
				t.Errorf("Host: want %q, got %q", tc.host, got.Host)
			}
		})
	}
}
