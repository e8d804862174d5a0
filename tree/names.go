package tree

import (
	"strconv"
	"strings"
)

// Separator is the path boundary character. It can never appear inside a node
// name; FixName rewrites it.
const Separator = '/'

// separatorSubstitute replaces any Separator found inside a raw name so the
// name cannot be mistaken for a path boundary.
const separatorSubstitute = '\\'

// duplicateFloor is the first suffix number assigned to a deduplicated name,
// i.e. "X" becomes "X (2)".
const duplicateFloor = 2

// Comparer is a total order over node names. It returns a negative value when
// a sorts before b, zero when the names are equal siblings, and a positive
// value otherwise. The comparer is fixed at Tree construction.
type Comparer func(a, b string) int

// CompareFold is the default Comparer: ordinal, case-insensitive.
func CompareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// CompareOrdinal compares names byte-wise with no folding.
func CompareOrdinal(a, b string) int {
	return strings.Compare(a, b)
}

// FixName normalizes a raw name for use as a node name: leading and trailing
// whitespace is trimmed, an empty result is replaced with placeholder, and any
// path separator inside the name is substituted so the result can never span a
// path boundary.
func FixName(raw, placeholder string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return placeholder
	}
	return strings.ReplaceAll(name, string(Separator), string(separatorSubstitute))
}

// SplitDirectory splits a '/'-delimited path into its first non-empty trimmed
// segment and the remainder. Empty segments are skipped, so "a//b" yields
// ("a", "b"). A path with no usable segment yields ("", "").
func SplitDirectory(path string) (segment, remainder string) {
	for path != "" {
		var head string
		if i := strings.IndexByte(path, Separator); i >= 0 {
			head, path = path[:i], path[i+1:]
		} else {
			head, path = path, ""
		}
		if head = strings.TrimSpace(head); head != "" {
			return head, path
		}
	}
	return "", ""
}

// IsDuplicateName reports whether name matches the duplicate pattern
// "<base> (<n>)" with a non-empty base and a non-negative integer n, and
// returns the parsed parts.
func IsDuplicateName(name string) (ok bool, base string, number int) {
	if !strings.HasSuffix(name, ")") {
		return false, "", 0
	}
	i := strings.LastIndex(name, " (")
	if i < 1 { // at least one character before the " ("
		return false, "", 0
	}
	digits := name[i+2 : len(name)-1]
	if digits == "" {
		return false, "", 0
	}
	number, err := strconv.Atoi(digits)
	if err != nil || number < 0 {
		return false, "", 0
	}
	return true, name[:i], number
}

// IncrementDuplicate returns the next name in the duplicate sequence: for a
// name already carrying a duplicate suffix the number is incremented, any
// other name gets the first suffix appended.
func IncrementDuplicate(name string) string {
	if ok, base, number := IsDuplicateName(name); ok {
		return base + " (" + strconv.Itoa(number+1) + ")"
	}
	return name + " (" + strconv.Itoa(duplicateFloor) + ")"
}
