package sanitize

import (
	"regexp"
	"sync/atomic"

	"VoiceBridge/internal/entity"

	"github.com/sirupsen/logrus"
)

type compiledRule struct {
	re          *regexp.Regexp
	replacement string
}

// Pipeline rewrites model output through the compiled rule set. The active
// set is an immutable snapshot behind an atomic pointer so readers never
// lock; Swap replaces the whole set at once.
type Pipeline struct {
	rules atomic.Pointer[[]compiledRule]
	log   *logrus.Logger
}

func NewPipeline(log *logrus.Logger) *Pipeline {
	p := &Pipeline{log: log}
	empty := []compiledRule{}
	p.rules.Store(&empty)
	return p
}

// Swap recompiles the rule set and installs it atomically. Rules that fail
// to compile are skipped with a warning; only rules with direction out/both
// apply to outbound text.
func (p *Pipeline) Swap(rules []entity.SanitizationRule) {
	compiled := make([]compiledRule, 0, len(rules))

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if rule.Direction != entity.SanitizeDirectionOut && rule.Direction != entity.SanitizeDirectionBoth {
			continue
		}

		pattern := rule.Pattern
		if rule.Flags != "" {
			pattern = "(?" + rule.Flags + ")" + pattern
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			p.log.WithFields(logrus.Fields{
				"rule_id": rule.ID,
				"pattern": rule.Pattern,
				"error":   err.Error(),
			}).Warn("Skipping invalid sanitization pattern")
			continue
		}

		compiled = append(compiled, compiledRule{re: re, replacement: rule.Replacement})
	}

	p.rules.Store(&compiled)
}

// Apply rewrites text through every active rule. Rules are literal substring
// replacements, so applying twice gives the same result as once.
func (p *Pipeline) Apply(text string) string {
	if text == "" {
		return text
	}

	for _, rule := range *p.rules.Load() {
		text = rule.re.ReplaceAllLiteralString(text, rule.replacement)
	}
	return text
}

func (p *Pipeline) RuleCount() int {
	return len(*p.rules.Load())
}
