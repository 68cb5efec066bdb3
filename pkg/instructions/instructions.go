package instructions

import "strings"

// Block is one named group of instruction lines, e.g. key "tone_of_voice"
// with one line per rule.
type Block struct {
	Key   string
	Lines []string
}

// Compose renders the blocks into a single system-prompt string. Each
// non-empty block becomes a title-cased heading followed by its lines and a
// blank separator. Empty blocks produce nothing, and the result carries no
// leading or trailing blank line.
func Compose(blocks []Block) string {
	var sections []string

	for _, block := range blocks {
		lines := nonEmptyLines(block.Lines)
		if len(lines) == 0 {
			continue
		}

		var b strings.Builder
		b.WriteString(headingFromKey(block.Key))
		b.WriteString("\n")
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	return strings.Join(sections, "\n\n")
}

func nonEmptyLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func headingFromKey(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
