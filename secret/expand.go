package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var bracedVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv expands $VAR and ${VAR} from the environment. A braced
// reference to an unset variable is an error listing every missing name;
// bare $VAR expands to the empty string when unset. $$ produces a literal $.
func ExpandEnv(s string) (string, error) {
	const escaped = "\x00dollar\x00"
	s = strings.ReplaceAll(s, "$$", escaped)

	var missing []string
	seen := make(map[string]bool)
	for _, m := range bracedVar.FindAllStringSubmatch(s, -1) {
		name := m[1]
		if _, ok := os.LookupEnv(name); !ok && !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), escaped, "$"), nil
}
