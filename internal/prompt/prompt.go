// Package prompt assembles extracted documents and a question into one LLM prompt.
package prompt

import (
	"fmt"
	"strings"
)

// Section is one document's contribution to the prompt.
type Section struct {
	Label string
	Text  string
}

// Assemble writes each section between numbered delimiters, in order, followed
// by the question. The result depends only on its inputs.
func Assemble(sections []Section, question string) string {
	var b strings.Builder
	for i, s := range sections {
		fmt.Fprintf(&b, "--- Document %d: %s ---\n", i+1, s.Label)
		b.WriteString(s.Text)
		if !strings.HasSuffix(s.Text, "\n") {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "--- End of document %d ---\n\n", i+1)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteByte('\n')
	return b.String()
}
