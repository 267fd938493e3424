package persistence

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// listingContentSchema is the structural contract every stored listing
// version must satisfy. Sections remain free-form objects so the content
// model can evolve without a migration; only the envelope is enforced.
const listingContentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["listingName", "sections"],
  "properties": {
    "listingName": {
      "type": "string",
      "minLength": 1
    },
    "sections": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object"
      }
    }
  }
}`

// newsLinksSchema constrains the optional news feed attached to a version.
const newsLinksSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["url", "title"],
    "properties": {
      "url": {"type": "string", "minLength": 1},
      "title": {"type": "string", "minLength": 1}
    }
  }
}`

// ContentValidator validates listing version payloads against the embedded
// content schemas compiled via santhosh-tekuri/jsonschema.
type ContentValidator struct {
	content *jsonschema.Schema
	news    *jsonschema.Schema
}

// NewContentValidator compiles the embedded schemas once. It only fails if
// the schemas shipped with the binary are malformed.
func NewContentValidator() (*ContentValidator, error) {
	content, err := compileSchema("memory://schemas/listing-content.json", listingContentSchema)
	if err != nil {
		return nil, err
	}
	news, err := compileSchema("memory://schemas/news-links.json", newsLinksSchema)
	if err != nil {
		return nil, err
	}
	return &ContentValidator{content: content, news: news}, nil
}

// ValidateContent ensures the payload is a structurally valid listing document.
func (v *ContentValidator) ValidateContent(payload []byte) error {
	return validateDocument(v.content, payload, "listing content")
}

// ValidateNewsLinks ensures the payload is a valid news link collection.
// An empty payload is allowed; news links are optional.
func (v *ContentValidator) ValidateNewsLinks(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	return validateDocument(v.news, payload, "news links")
}

func validateDocument(schema *jsonschema.Schema, payload []byte, label string) error {
	if len(payload) == 0 {
		return fmt.Errorf("%s payload is required for validation", label)
	}

	var document any
	if err := json.Unmarshal(payload, &document); err != nil {
		return fmt.Errorf("decode %s: %w", label, err)
	}

	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("%s validation: %w", label, err)
	}

	return nil
}

func compileSchema(url, definition string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, strings.NewReader(definition)); err != nil {
		return nil, fmt.Errorf("register schema %s: %w", url, err)
	}

	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}

	return compiled, nil
}
