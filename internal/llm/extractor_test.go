package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExtractionPrompt_ArticleSchema(t *testing.T) {
	schema := ArticleExtractionSchema("")
	prompt := BuildExtractionPrompt(schema, "Latest posts\n- Agents 101 (https://b.io/agents)")

	assert.Contains(t, prompt, "most recent article")
	assert.Contains(t, prompt, `"title": "string" (required)`)
	assert.Contains(t, prompt, `"link": "string" (required)`)
	assert.Contains(t, prompt, `"author": "string" //`)
	assert.Contains(t, prompt, "Agents 101")
	assert.Contains(t, prompt, "Return ONLY the JSON object")
}

func TestArticleExtractionSchema_CustomHint(t *testing.T) {
	schema := ArticleExtractionSchema("Find the newest release note")
	assert.Contains(t, schema.Description, "Find the newest release note")
	assert.Len(t, schema.Fields, 5)
}
