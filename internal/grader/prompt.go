package grader

import (
	"fmt"
	"strings"

	"github.com/vezlo/ai-validator/internal/llm"
	"github.com/vezlo/ai-validator/internal/model"
)

const developerRubric = `Grading mode: DEVELOPER.
The user is a developer asking about a codebase or technical documentation.
- A grounded answer names concrete code elements from the sources: functions, types, files, endpoints, configuration keys.
- Generic programming advice that could apply to any project scores LOW, even if it is correct.
- Code elements mentioned in the response that do not appear in the sources count against relevance.`

const userRubric = `Grading mode: USER.
The user is asking a general question answered from a knowledge base.
- A grounded answer restates or summarizes facts present in the sources.
- Facts, figures or names that do not appear in the sources are invented and score LOW.
- Reasonable paraphrasing of the sources is acceptable.`

const verdictInstructions = `Respond ONLY with a JSON object of this exact shape, no additional text:
{"valid": true or false, "confidence": 0-100, "source_relevance": 0.0-1.0, "source_usage_rate": 0.0-1.0, "reason": "one sentence"}

- "source_relevance": how much of the response is supported by the sources.
- "source_usage_rate": how much of what the sources offer for this question the response actually uses.
- "valid": true only if the response is grounded in the sources and addresses the question.`

// buildPrompt renders the grading prompt for one query/response pair.
func buildPrompt(query, response string, sources []model.Source, developerMode bool) string {
	var b strings.Builder

	b.WriteString("You are grading whether an AI response is grounded in the source documents it was given.\n\n")
	if developerMode {
		b.WriteString(developerRubric)
	} else {
		b.WriteString(userRubric)
	}

	b.WriteString("\n\nQuestion:\n")
	b.WriteString(query)

	b.WriteString("\n\nSources:\n")
	for i, src := range sources {
		fmt.Fprintf(&b, "[Source %d: %s]\n%s\n\n", i+1, src.Label(), llm.Truncate(src.Content, llm.MaxSourceChars))
	}

	b.WriteString("Response to grade:\n")
	b.WriteString(response)
	b.WriteString("\n\n")
	b.WriteString(verdictInstructions)

	return b.String()
}
