// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "Article")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// ArticleExtractionSchema returns the schema used to pull the most recent article
// out of a listing page. hint is the task description placed before the schema.
func ArticleExtractionSchema(hint string) ExtractionSchema {
	if strings.TrimSpace(hint) == "" {
		hint = "Extract the most recent article information including title, author, publication date, and direct link to the article"
	}
	return ExtractionSchema{
		Name: "Article",
		Description: `You are reading the text and links of a blog or news listing page.
` + hint + `.
Use only articles that appear on the page. The link must be one of the listed links.`,
		Fields: []SchemaField{
			{Name: "title", Type: "\"string\"", Description: "Article title", Required: true},
			{Name: "author", Type: "\"string\"", Description: "Author name if available"},
			{Name: "date", Type: "\"string\"", Description: "Publication date in YYYY-MM-DD format if available"},
			{Name: "link", Type: "\"string\"", Description: "Direct link to the article", Required: true},
			{Name: "description", Type: "\"string\"", Description: "Description of what the article is about if available"},
		},
	}
}
