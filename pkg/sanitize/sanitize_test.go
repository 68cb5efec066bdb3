package sanitize

import (
	"testing"

	"VoiceBridge/internal/entity"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestPipeline(rules ...entity.SanitizationRule) *Pipeline {
	log := logrus.New()
	p := NewPipeline(log)
	p.Swap(rules)
	return p
}

func TestApplyRedaction(t *testing.T) {
	p := newTestPipeline(entity.SanitizationRule{
		ID:          "phone",
		Pattern:     `\d{3}-\d{4}`,
		Replacement: "[redacted]",
		Direction:   entity.SanitizeDirectionOut,
		IsActive:    true,
	})

	assert.Equal(t, "call [redacted] now", p.Apply("call 555-1234 now"))
}

func TestApplyIsIdempotent(t *testing.T) {
	p := newTestPipeline(entity.SanitizationRule{
		ID:          "phone",
		Pattern:     `\d{3}-\d{4}`,
		Replacement: "[redacted]",
		Direction:   entity.SanitizeDirectionBoth,
		IsActive:    true,
	})

	once := p.Apply("call 555-1234 now")
	twice := p.Apply(once)

	assert.Equal(t, once, twice)
}

func TestSwapSkipsInvalidPattern(t *testing.T) {
	p := newTestPipeline(
		entity.SanitizationRule{
			ID:        "broken",
			Pattern:   `([`,
			Direction: entity.SanitizeDirectionOut,
			IsActive:  true,
		},
		entity.SanitizationRule{
			ID:          "ok",
			Pattern:     "secret",
			Replacement: "[hidden]",
			Direction:   entity.SanitizeDirectionOut,
			IsActive:    true,
		},
	)

	assert.Equal(t, 1, p.RuleCount())
	assert.Equal(t, "the [hidden] word", p.Apply("the secret word"))
}

func TestSwapFiltersDirectionAndActive(t *testing.T) {
	p := newTestPipeline(
		entity.SanitizationRule{
			ID:        "inbound-only",
			Pattern:   "in",
			Direction: entity.SanitizeDirectionIn,
			IsActive:  true,
		},
		entity.SanitizationRule{
			ID:        "disabled",
			Pattern:   "off",
			Direction: entity.SanitizeDirectionOut,
			IsActive:  false,
		},
	)

	assert.Equal(t, 0, p.RuleCount())
	assert.Equal(t, "in off", p.Apply("in off"))
}

func TestApplyFlags(t *testing.T) {
	p := newTestPipeline(entity.SanitizationRule{
		ID:          "ci",
		Pattern:     "internal",
		Flags:       "i",
		Replacement: "[x]",
		Direction:   entity.SanitizeDirectionOut,
		IsActive:    true,
	})

	assert.Equal(t, "[x] and [x]", p.Apply("INTERNAL and internal"))
}

func TestApplyReplacementIsLiteral(t *testing.T) {
	p := newTestPipeline(entity.SanitizationRule{
		ID:          "literal",
		Pattern:     `(\d{3})-\d{4}`,
		Replacement: "$1-XXXX",
		Direction:   entity.SanitizeDirectionOut,
		IsActive:    true,
	})

	// Group references in the replacement are not expanded.
	assert.Equal(t, "call $1-XXXX now", p.Apply("call 555-1234 now"))
}

func TestApplyEmptyInput(t *testing.T) {
	p := newTestPipeline()
	assert.Equal(t, "", p.Apply(""))
}

func TestSwapReplacesWholeSet(t *testing.T) {
	p := newTestPipeline(entity.SanitizationRule{
		ID:          "old",
		Pattern:     "old",
		Replacement: "[old]",
		Direction:   entity.SanitizeDirectionOut,
		IsActive:    true,
	})

	p.Swap([]entity.SanitizationRule{{
		ID:          "new",
		Pattern:     "new",
		Replacement: "[new]",
		Direction:   entity.SanitizeDirectionOut,
		IsActive:    true,
	}})

	assert.Equal(t, "old [new]", p.Apply("old new"))
}
