package scriptgen

import (
	"strings"
)

// ExtractCodeBlock pulls the script out of an LLM completion. When the
// completion carries a fenced code block, the content between the first
// fence pair is used and an optional language tag on the opening fence
// line is dropped. Completions without fences are used as-is. Either
// way the result is trimmed; nothing left means ErrContentEmpty.
func ExtractCodeBlock(raw string) (string, error) {
	content := strings.TrimSpace(raw)

	if idx := strings.Index(content, "```"); idx != -1 {
		content = content[idx+3:]

		// The opening fence may carry a language tag ("```python").
		if nl := strings.Index(content, "\n"); nl != -1 {
			firstLine := strings.TrimSpace(content[:nl])
			if !strings.ContainsAny(firstLine, " \t") && len(firstLine) < 20 {
				content = content[nl+1:]
			}
		}

		if end := strings.Index(content, "```"); end != -1 {
			content = content[:end]
		}
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrContentEmpty
	}

	return content, nil
}
