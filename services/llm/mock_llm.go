package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// MockClient is an offline backend for demos and tests. It scans the
// prompt for the first service marked as erroring, and blames the most
// recent commit mentioned under it. Deterministic for a given prompt.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// Generate implements the Client interface.
func (m *MockClient) Generate(_ context.Context, prompt string, _ GenerationParams) (string, error) {
	suspect, commit := scanPrompt(prompt)

	var report map[string]any
	if suspect != "" {
		action := "Inspect recent changes and redeploy."
		if commit != "" {
			action = "Rollback commit " + commit
		}
		report = map[string]any{
			"root_cause_service": suspect,
			"confidence":         0.95,
			"reasoning": "Service " + suspect + " is reporting errors and had " +
				"a recent change event in the provided context.",
			"recommended_action": action,
		}
	} else {
		report = map[string]any{
			"root_cause_service": "unknown",
			"confidence":         0.1,
			"reasoning":          "No obvious correlations found.",
			"recommended_action": "Escalate to human.",
		}
	}

	out, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// scanPrompt finds the first "- Service: NAME [ERROR]" line and the first
// commit mentioned after it.
func scanPrompt(prompt string) (suspect, commit string) {
	lines := strings.Split(prompt, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- Service: ") || !strings.Contains(trimmed, "[ERROR]") {
			continue
		}
		suspect = strings.TrimSpace(strings.TrimPrefix(trimmed, "- Service: "))
		if idx := strings.Index(suspect, "["); idx >= 0 {
			suspect = strings.TrimSpace(suspect[:idx])
		}

		for _, after := range lines[i+1:] {
			after = strings.TrimSpace(after)
			if strings.HasPrefix(after, "- Service: ") {
				break
			}
			if idx := strings.Index(after, "Commit: "); idx >= 0 {
				rest := after[idx+len("Commit: "):]
				if end := strings.IndexAny(rest, ") "); end >= 0 {
					rest = rest[:end]
				}
				commit = rest
				break
			}
		}
		return suspect, commit
	}
	return "", ""
}
