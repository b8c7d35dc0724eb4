package diff

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Summary describes the structural difference between two artifact payloads.
type Summary struct {
	AddedPaths   []string `json:"added_paths"`
	RemovedPaths []string `json:"removed_paths"`
	ChangedPaths []string `json:"changed_paths"`

	ChangedLineCount  int `json:"changed_line_count"`
	ComparedLineCount int `json:"compared_line_count"`
}

// HasChanges reports whether the two payloads differ at all.
func (s Summary) HasChanges() bool {
	return len(s.AddedPaths) > 0 || len(s.RemovedPaths) > 0 || len(s.ChangedPaths) > 0
}

// Compare flattens both payloads into path/value maps and reports added,
// removed, and changed paths, plus a line-oriented magnitude signal computed
// from the pretty-printed payload text.
func Compare(base, target json.RawMessage) (Summary, error) {
	baseDoc, err := decode(base)
	if err != nil {
		return Summary{}, fmt.Errorf("decode base payload: %w", err)
	}
	targetDoc, err := decode(target)
	if err != nil {
		return Summary{}, fmt.Errorf("decode target payload: %w", err)
	}

	baseFlat := Flatten(baseDoc)
	targetFlat := Flatten(targetDoc)

	summary := Summary{
		AddedPaths:   []string{},
		RemovedPaths: []string{},
		ChangedPaths: []string{},
	}
	for path, targetValue := range targetFlat {
		baseValue, ok := baseFlat[path]
		if !ok {
			summary.AddedPaths = append(summary.AddedPaths, path)
			continue
		}
		if baseValue != targetValue {
			summary.ChangedPaths = append(summary.ChangedPaths, path)
		}
	}
	for path := range baseFlat {
		if _, ok := targetFlat[path]; !ok {
			summary.RemovedPaths = append(summary.RemovedPaths, path)
		}
	}
	sort.Strings(summary.AddedPaths)
	sort.Strings(summary.RemovedPaths)
	sort.Strings(summary.ChangedPaths)

	baseLines := prettyLines(baseDoc)
	targetLines := prettyLines(targetDoc)
	summary.ComparedLineCount = max(len(baseLines), len(targetLines))
	summary.ChangedLineCount = summary.ComparedLineCount - commonLineCount(baseLines, targetLines)

	return summary, nil
}

// Flatten reduces a decoded JSON document to a map of path to serialized leaf
// value. Object keys append ".key", array indices append "[i]", and empty
// containers are recorded as the sentinel literals {} and [].
func Flatten(doc any) map[string]string {
	flat := make(map[string]string)
	flatten("", doc, flat)
	return flat
}

func flatten(prefix string, value any, into map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			into[rootPath(prefix)] = "{}"
			return
		}
		for key, child := range v {
			flatten(prefix+"."+key, child, into)
		}
	case []any:
		if len(v) == 0 {
			into[rootPath(prefix)] = "[]"
			return
		}
		for i, child := range v {
			flatten(prefix+"["+strconv.Itoa(i)+"]", child, into)
		}
	default:
		serialized, err := json.Marshal(v)
		if err != nil {
			serialized = []byte(fmt.Sprintf("%v", v))
		}
		into[rootPath(prefix)] = string(serialized)
	}
}

func rootPath(prefix string) string {
	if prefix == "" {
		return "."
	}
	return prefix
}

func decode(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func prettyLines(doc any) []string {
	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil
	}
	return strings.Split(string(pretty), "\n")
}

// commonLineCount returns the length of the longest common subsequence of the
// two line slices, the stable half of a classic line diff.
func commonLineCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
