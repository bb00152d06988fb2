package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// bracedRefPattern matches ${VAR} references. Bare $VAR is expanded too,
// but only braced references are checked for presence.
var bracedRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment references in a configured secret
// value. A braced reference to an unset variable is an error rather than
// a silently empty signing key; `$$` escapes a literal dollar.
func ExpandEnvStrict(s string) (string, error) {
	const dollar = "\x00laurel.dollar\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	seen := map[string]bool{}
	for _, match := range bracedRefPattern.FindAllStringSubmatch(s, -1) {
		name := match[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := os.LookupEnv(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("secret: undefined environment variables: %s", strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), dollar, "$"), nil
}
