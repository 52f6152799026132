package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/saad688/pdftoword/internal/models"
)

// pageResponseSchema accepts either {"blocks": [...]} or the whole-document
// shape {"pages": [{"blocks": [...]}]} that models sometimes fall back to.
const pageResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "definitions": {
    "block": {
      "type": "object",
      "properties": {
        "type": {"type": "string", "enum": ["paragraph", "list_item", "table"]},
        "text": {"type": "string"}
      },
      "required": ["type", "text"]
    },
    "blocks": {"type": "array", "items": {"$ref": "#/definitions/block"}}
  },
  "properties": {
    "blocks": {"$ref": "#/definitions/blocks"},
    "pages": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {"blocks": {"$ref": "#/definitions/blocks"}},
        "required": ["blocks"]
      }
    }
  },
  "anyOf": [{"required": ["blocks"]}, {"required": ["pages"]}]
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func responseSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(pageResponseSchema))
	})
	return compiledSchema, schemaErr
}

var errEmptyResponse = errors.New("model returned an empty response")

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Skip a language tag such as "json" on the opening fence line.
	if idx := strings.Index(text, "\n"); idx >= 0 {
		first := text[:idx]
		if len(first) < 20 && !strings.ContainsAny(first, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// ParsePageResponse validates a model answer and returns its blocks in order.
func ParsePageResponse(raw string) ([]models.Block, error) {
	cleaned := CleanJSONBlock(raw)
	if cleaned == "" {
		return nil, errEmptyResponse
	}

	schema, err := responseSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load response schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("response does not match schema: %s", strings.Join(msgs, "; "))
	}

	var payload struct {
		Blocks []models.Block `json:"blocks"`
		Pages  []struct {
			Blocks []models.Block `json:"blocks"`
		} `json:"pages"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	blocks := payload.Blocks
	if blocks == nil {
		for _, p := range payload.Pages {
			blocks = append(blocks, p.Blocks...)
		}
	}
	if blocks == nil {
		blocks = []models.Block{}
	}
	return blocks, nil
}
