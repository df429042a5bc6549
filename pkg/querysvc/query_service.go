// Package querysvc implements the natural-language-to-SQL half of the Query
// Executor (§4.C, §6 POST /query/generate-sql): a one-shot, tool-free LLM
// call over the warehouse schema, grounded the same way chatengine.Adapter
// drives agent.LLMClient, minus the tool-calling loop this endpoint doesn't
// need.
package querysvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/njvoter/gateway/pkg/agent"
	"github.com/njvoter/gateway/pkg/config"
)

const sqlSystemPrompt = `You translate a caller's plain-language request into a single read-only SQL SELECT statement against the voter/analytics warehouse schema.

Rules:
- Emit exactly one SELECT statement, nothing else: no prose, no explanation, no markdown fences.
- Never emit INSERT, UPDATE, DELETE, DDL, or multiple statements.
- Prefer explicit column lists over SELECT *.
- If the request implies sending something to people (a list for a mailing), include person_id, email, first_name, last_name, and city in the SELECT when those columns are available, so the result can be used as a campaign recipient list.`

// Service generates SQL from a natural-language prompt.
type Service struct {
	llm            agent.LLMClient
	providerConfig *config.LLMProviderConfig
	backend        config.LLMBackend
}

// New creates a Service bound to a single LLM provider/backend pair, the
// same pair the chat session's default model would resolve to.
func New(llm agent.LLMClient, providerConfig *config.LLMProviderConfig, backend config.LLMBackend) *Service {
	return &Service{llm: llm, providerConfig: providerConfig, backend: backend}
}

// GenerateSQL turns prompt into a SQL SELECT statement. It does not
// validate or execute the statement; callers run it through
// warehouse.Executor.Execute, which applies the guard and remapper before
// any query reaches the backend.
func (s *Service) GenerateSQL(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt is required")
	}

	messages := []agent.ConversationMessage{
		{Role: agent.RoleSystem, Content: sqlSystemPrompt},
		{Role: agent.RoleUser, Content: prompt},
	}
	chunks, err := s.llm.Generate(ctx, &agent.GenerateInput{
		Messages: messages,
		Config:   s.providerConfig,
		Backend:  s.backend,
	})
	if err != nil {
		return "", fmt.Errorf("sql generation call failed: %w", err)
	}

	var text strings.Builder
	for chunk := range chunks {
		switch c := chunk.(type) {
		case *agent.TextChunk:
			text.WriteString(c.Content)
		case *agent.ErrorChunk:
			return "", fmt.Errorf("sql generation error: %s", c.Message)
		}
	}

	sql := extractSQL(text.String())
	if sql == "" {
		return "", fmt.Errorf("model returned no SQL for this prompt")
	}
	return sql, nil
}

// extractSQL strips a markdown code fence if the model wrapped its answer
// in one despite the system prompt's instruction not to.
func extractSQL(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```sql")
		text = strings.TrimPrefix(text, "```SQL")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}
