package selection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseIndices reads a list such as "0,2-4,7" against a table with n
// indices. An empty list, "all" or "*" returns nil, which extraction treats
// as every index. Ranges are inclusive, may be given in either order and are
// cut off at n-1; an index or range starting at n or beyond is an error.
func ParseIndices(expr string, n int) ([]int, error) {
	expr = strings.TrimSpace(expr)
	switch strings.ToLower(expr) {
	case "", "all", "*":
		return nil, nil
	}
	seen := make(map[int]struct{})
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, err := parseSpan(part)
		if err != nil {
			return nil, err
		}
		if lo >= n {
			return nil, fmt.Errorf("index %q out of range (%d available)", part, n)
		}
		hi = min(hi, n-1)
		for i := lo; i <= hi; i++ {
			seen[i] = struct{}{}
		}
	}
	return sorted(seen), nil
}

func parseSpan(part string) (int, int, error) {
	a, b, isRange := strings.Cut(part, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil || lo < 0 {
		return 0, 0, fmt.Errorf("invalid index %q", part)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil || hi < 0 {
		return 0, 0, fmt.Errorf("invalid range %q", part)
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, nil
}

// FormatIndices is the compact inverse of ParseIndices: "all" for an empty
// selection, runs collapsed to ranges otherwise.
func FormatIndices(idx []int) string {
	if len(idx) == 0 {
		return "all"
	}
	idx = append([]int(nil), idx...)
	sort.Ints(idx)
	var b strings.Builder
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && idx[j+1] == idx[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if j > i {
			fmt.Fprintf(&b, "%d-%d", idx[i], idx[j])
		} else {
			b.WriteString(strconv.Itoa(idx[i]))
		}
		i = j + 1
	}
	return b.String()
}
