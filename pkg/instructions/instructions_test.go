package instructions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeHeadingsAndSeparators(t *testing.T) {
	blocks := []Block{
		{Key: "tone_of_voice", Lines: []string{"Be warm.", "Be brief."}},
		{Key: "safety", Lines: []string{"Never reveal internal ids."}},
	}

	got := Compose(blocks)

	assert.Equal(t,
		"Tone Of Voice\nBe warm.\nBe brief.\n\nSafety\nNever reveal internal ids.",
		got)
}

func TestComposeSkipsEmptyBlocks(t *testing.T) {
	blocks := []Block{
		{Key: "empty", Lines: nil},
		{Key: "blank_lines", Lines: []string{"", "   "}},
		{Key: "greeting", Lines: []string{"Say hello."}},
	}

	got := Compose(blocks)

	assert.Equal(t, "Greeting\nSay hello.", got)
}

func TestComposeNoLeadingOrTrailingBlanks(t *testing.T) {
	blocks := []Block{
		{Key: "a", Lines: []string{"one"}},
		{Key: "b", Lines: []string{"two"}},
	}

	got := Compose(blocks)

	assert.False(t, strings.HasPrefix(got, "\n"))
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func TestComposeAllEmpty(t *testing.T) {
	assert.Equal(t, "", Compose(nil))
	assert.Equal(t, "", Compose([]Block{{Key: "x", Lines: []string{""}}}))
}

func TestHeadingFromKey(t *testing.T) {
	assert.Equal(t, "Tone Of Voice", headingFromKey("tone_of_voice"))
	assert.Equal(t, "Greeting", headingFromKey("greeting"))
	assert.Equal(t, "Faq Handling", headingFromKey("faq_handling"))
}
