package chat

import (
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/fyrsmithlabs/ragnchat/internal/llm"
	"github.com/fyrsmithlabs/ragnchat/internal/vectorstore"
)

const (
	systemTemplate = "Answer any use questions based solely on the context below:\n\n<context>\n{{.context}}\n</context>"
	humanTemplate  = "{{.input}}"

	documentSeparator = "\n\n"
)

var (
	systemPrompt = prompts.NewPromptTemplate(systemTemplate, []string{"context"})
	humanPrompt  = prompts.NewPromptTemplate(humanTemplate, []string{"input"})
)

// stuffDocuments joins the stored content of every match in rank order.
func stuffDocuments(matches []vectorstore.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if c := m.Metadata[vectorstore.ContentKey]; c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, documentSeparator)
}

// retrievalMessages renders the retrieval-QA conversation.
func retrievalMessages(input string, matches []vectorstore.Match) ([]llm.Message, error) {
	system, err := systemPrompt.Format(map[string]any{"context": stuffDocuments(matches)})
	if err != nil {
		return nil, err
	}
	human, err := humanPrompt.Format(map[string]any{"input": input})
	if err != nil {
		return nil, err
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: human},
	}, nil
}
