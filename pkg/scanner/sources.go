package scanner

import (
	"sort"
	"strings"
)

// AllSources selects every followed blog
const AllSources = "all"

// SelectSources filters the followed blogs with an allow list and a deny
// list. An allow list containing AllSources (or empty) keeps every followed
// blog. Names compare case-insensitively. The result is sorted and unique.
func SelectSources(followed, allow, deny []string) []string {
	denied := make(map[string]bool, len(deny))
	for _, d := range deny {
		denied[strings.ToLower(strings.TrimSpace(d))] = true
	}

	all := len(allow) == 0
	allowed := make(map[string]bool, len(allow))
	for _, a := range allow {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == AllSources {
			all = true
		}
		allowed[a] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, f := range followed {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" || seen[key] || denied[key] {
			continue
		}
		if !all && !allowed[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
