package madl

import (
	"strings"
)

// Parameter describes one parameter of a reusable method.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ReusableMethod is a method harvested from a successful script run and
// indexed for reuse. Identity is ClassName.MethodName; everything else is
// descriptive metadata that feeds the embedding.
type ReusableMethod struct {
	ClassName      string      `json:"class_name"`
	MethodName     string      `json:"method_name"`
	Signature      string      `json:"signature"`
	Intent         string      `json:"intent"`
	Description    string      `json:"description"`
	Keywords       []string    `json:"keywords,omitempty"`
	Parameters     []Parameter `json:"parameters,omitempty"`
	ReturnType     string      `json:"return_type,omitempty"`
	Example        string      `json:"example,omitempty"`
	SourceTestCase string      `json:"source_test_case,omitempty"`
	Score          float64     `json:"score,omitempty"`
}

// Key returns the identity key used for deduplication.
func (m *ReusableMethod) Key() string {
	return m.ClassName + "." + m.MethodName
}

// CanonicalText renders the method as the text that gets embedded.
// All descriptive attributes contribute so that searches can match on
// any of them.
func (m *ReusableMethod) CanonicalText() string {
	parts := []string{m.Signature, m.Intent, m.Description}
	if len(m.Keywords) > 0 {
		parts = append(parts, strings.Join(m.Keywords, " "))
	}
	for _, p := range m.Parameters {
		parts = append(parts, p.Name+" "+p.Type)
	}
	if m.ReturnType != "" {
		parts = append(parts, "returns "+m.ReturnType)
	}
	if m.Example != "" {
		parts = append(parts, m.Example)
	}

	var kept []string
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, strings.TrimSpace(part))
		}
	}
	return strings.Join(kept, "\n")
}
