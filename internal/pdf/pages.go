package pdf

import (
	"strconv"
	"strings"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

// ParsePages resolves a comma-separated page selection against a document
// of total pages and returns 1-based page numbers in selection order.
// Negative numbers count from the end (-1 is the last page). An empty
// selection means every page. Repeated pages are returned once.
func ParsePages(selection string, total int) ([]int, error) {
	if strings.TrimSpace(selection) == "" {
		all := make([]int, total)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}

	seen := make(map[int]bool)
	var out []int
	for _, field := range strings.Split(selection, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, rag.Invalid("invalid page number %q", field)
		}
		page := n
		if n < 0 {
			page = total + n + 1
		}
		if n == 0 || page < 1 || page > total {
			return nil, rag.Invalid("page %d out of range (document has %d pages)", n, total)
		}
		if !seen[page] {
			seen[page] = true
			out = append(out, page)
		}
	}
	if len(out) == 0 {
		return nil, rag.Invalid("page selection %q names no pages", selection)
	}
	return out, nil
}
