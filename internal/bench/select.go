package bench

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/syncbench/internal/errors"
	"github.com/Iron-Ham/syncbench/internal/strategy"
)

// SelectKinds resolves patterns to strategy kinds, in declaration order and
// without duplicates. A pattern is either a name or alias accepted by
// strategy.ParseKind, or a glob over canonical names such as "*-lock" or
// "channel-{rendezvous,relay}". No patterns selects every kind but deadlock.
//
// Wildcards never select the deadlock kind, since each of its trials waits
// out the full timeout. It has to be named explicitly.
func SelectKinds(patterns []string) ([]strategy.Kind, error) {
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}

	selected := make(map[strategy.Kind]bool)
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if k, err := strategy.ParseKind(pattern); err == nil {
			selected[k] = true
			continue
		}

		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid strategy pattern: %v", err)).
				WithField("strategies").
				WithValue(pattern)
		}
		matched := false
		for _, k := range strategy.Kinds() {
			if k == strategy.Deadlock {
				continue
			}
			if g.Match(k.String()) {
				selected[k] = true
				matched = true
			}
		}
		if !matched {
			return nil, errors.NewValidationError("pattern matches no strategy").
				WithField("strategies").
				WithValue(pattern).
				WithCause(errors.ErrUnknownStrategy)
		}
	}

	if len(selected) == 0 {
		return nil, errors.NewValidationError("no strategies selected").WithField("strategies")
	}

	kinds := make([]strategy.Kind, 0, len(selected))
	for _, k := range strategy.Kinds() {
		if selected[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}
