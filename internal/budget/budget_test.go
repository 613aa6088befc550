package budget

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"),
		schema.UserMessage("hello world"),
	}
	// Each message: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2 = 7
	if got := EstimateMessages(msgs); got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func Test_Truncate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		input     string
		maxTokens int
		want      string
		truncated bool
	}{
		{name: "fits", input: "abcdefgh", maxTokens: 2, want: "abcdefgh"},
		{name: "cut", input: "abcdefghij", maxTokens: 2, want: "abcdefgh", truncated: true},
		{name: "zero budget", input: "abc", maxTokens: 0, want: "", truncated: true},
		{name: "zero budget empty input", input: "", maxTokens: 0, want: ""},
		// "ä" occupies bytes 3 and 4, so a 4-byte cut backs up to byte 3.
		{name: "rune boundary", input: "abcäd", maxTokens: 1, want: "abc", truncated: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, truncated := Truncate(tc.input, tc.maxTokens)
			if got != tc.want || truncated != tc.truncated {
				t.Errorf("Truncate(%q, %d) = (%q, %v), want (%q, %v)",
					tc.input, tc.maxTokens, got, truncated, tc.want, tc.truncated)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}

func Test_FitDocument_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage("sys")}
	doc := "a short document"
	got, truncated := FitDocument(fixed, doc, DefaultSummaryTokens)
	if truncated || got != doc {
		t.Errorf("want document unchanged, got %q (truncated=%v)", got, truncated)
	}
}

func Test_FitDocument_TrimsToBudget(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage("sys")}
	doc := strings.Repeat("x", 4*1000)
	got, truncated := FitDocument(fixed, doc, 500)
	if !truncated {
		t.Fatal("want document truncated")
	}
	total := EstimateMessages(append(fixed, schema.UserMessage(got)))
	if total > 500 {
		t.Errorf("prompt estimate %d exceeds budget 500", total)
	}
}

func Test_FitDocument_FixedExceedsBudget(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage(strings.Repeat("x", 4*7000))}
	got, _ := FitDocument(fixed, "document", 6000)
	if got != "" {
		t.Errorf("want empty document, got %q", got)
	}
}
