package cache

import (
	"bufio"
	"strconv"
	"strings"
)

// ParseInfo splits Redis INFO output into a field map. Section headers,
// blank lines and malformed lines are skipped.
func ParseInfo(text string) map[string]string {
	out := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// UsedMemory extracts used_memory (bytes) from INFO output.
func UsedMemory(text string) (int64, bool) {
	v, ok := ParseInfo(text)["used_memory"]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
