package synthesis

import "strings"

// Separator joins a datasource id prefix and a plugin-local identifier.
const Separator = "-"

// Compose builds the broker-visible identifier of a plugin-local id.
func Compose(prefix, localID string) string {
	return prefix + Separator + localID
}

// Decompose splits a composite identifier into its prefix token and local id.
// The prefix never contains the separator, so the split happens on the first
// one; the local id keeps any separators of its own. Whether the prefix is
// registered is checked by Registry.Decompose.
func Decompose(composite string) (prefix, localID string, ok bool) {
	idx := strings.Index(composite, Separator)
	if idx <= 0 {
		return "", "", false
	}
	return composite[:idx], composite[idx+len(Separator):], true
}

// SplitList flattens values that may be comma-joined into trimmed, non-empty items.
func SplitList(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// ExtractMany returns the local ids of the composite ids that belong to prefix.
// Each value may itself be a comma-joined list. Entries with another prefix are
// dropped. The result is never nil so that an emptied filter stays a filter.
func ExtractMany(prefix string, values ...string) []string {
	out := make([]string, 0, len(values))
	head := prefix + Separator
	for _, id := range SplitList(values...) {
		if strings.HasPrefix(id, head) {
			out = append(out, id[len(head):])
		}
	}
	return out
}

// ValidPrefix reports whether prefix is a non-empty alphanumeric token.
func ValidPrefix(prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Matches reports whether v passes a filter. A nil filter accepts everything;
// a non-nil empty filter accepts nothing.
func Matches(filter []string, v string) bool {
	if filter == nil {
		return true
	}
	for _, f := range filter {
		if f == v {
			return true
		}
	}
	return false
}
