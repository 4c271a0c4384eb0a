package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed quote_batch.schema.json
var quoteBatchSchemaJSON string

//go:embed pair_verdict.schema.json
var pairVerdictSchemaJSON string

const (
	quoteBatchSchemaName  = "quote_batch.schema.json"
	pairVerdictSchemaName = "pair_verdict.schema.json"
)

// QuoteBatch is one article's worth of already-extracted quote candidates.
type QuoteBatch struct {
	PayloadVersion string           `json:"payload_version"`
	Article        BatchArticle     `json:"article"`
	Candidates     []QuoteCandidate `json:"candidates"`
}

type BatchArticle struct {
	URL         string  `json:"url"`
	Title       string  `json:"title,omitempty"`
	PublishedAt *string `json:"published_at,omitempty"`
}

// PublishedTime parses published_at. Validation guarantees RFC3339.
func (a BatchArticle) PublishedTime() *time.Time {
	if a.PublishedAt == nil {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*a.PublishedAt))
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}

type QuoteCandidate struct {
	Text         string   `json:"text"`
	SpeakerName  string   `json:"speaker_name"`
	SpeakerTitle string   `json:"speaker_title,omitempty"`
	Context      string   `json:"context,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	QuoteType    string   `json:"quote_type,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// PairVerdict is the JSON object a verifier model must answer with.
type PairVerdict struct {
	Relationship string  `json:"relationship"`
	Confidence   float64 `json:"confidence"`
	Canonical    string  `json:"canonical,omitempty"`
	Explanation  string  `json:"explanation,omitempty"`
}

type compiledSchema struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

var (
	quoteBatchSchema  compiledSchema
	pairVerdictSchema compiledSchema
)

func ValidateQuoteBatchPayload(payload json.RawMessage) (*QuoteBatch, error) {
	var batch QuoteBatch
	if err := validateInto(payload, &quoteBatchSchema, quoteBatchSchemaName, quoteBatchSchemaJSON, &batch); err != nil {
		return nil, err
	}
	if err := validateBatchSemantics(&batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// ValidatePairVerdict checks a model answer against the verdict schema.
func ValidatePairVerdict(payload []byte) (*PairVerdict, error) {
	var verdict PairVerdict
	if err := validateInto(payload, &pairVerdictSchema, pairVerdictSchemaName, pairVerdictSchemaJSON, &verdict); err != nil {
		return nil, err
	}
	verdict.Canonical = strings.ToLower(strings.TrimSpace(verdict.Canonical))
	return &verdict, nil
}

func validateInto(payload []byte, target *compiledSchema, name, source string, out any) error {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := target.load(name, source)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("normalize payload JSON: %w", err)
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func (c *compiledSchema) load(name, source string) (*jsonschema.Schema, error) {
	c.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(name, strings.NewReader(source)); err != nil {
			c.err = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(name)
		if err != nil {
			c.err = fmt.Errorf("compile schema: %w", err)
			return
		}

		c.schema = schema
	})

	if c.err != nil {
		return nil, c.err
	}
	if c.schema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return c.schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateBatchSemantics(batch *QuoteBatch) error {
	if batch == nil {
		return fmt.Errorf("payload is nil")
	}
	if strings.TrimSpace(batch.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if err := validateURI("article.url", batch.Article.URL); err != nil {
		return err
	}
	if batch.Article.PublishedAt != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*batch.Article.PublishedAt)); err != nil {
			return fmt.Errorf("article.published_at must be RFC3339: %w", err)
		}
	}

	for i, candidate := range batch.Candidates {
		if strings.TrimSpace(candidate.Text) == "" {
			return fmt.Errorf("candidates[%d].text must not be empty", i)
		}
		if strings.TrimSpace(candidate.SpeakerName) == "" {
			return fmt.Errorf("candidates[%d].speaker_name must not be empty", i)
		}
		if candidate.SourceURL != "" {
			if err := validateURI(fmt.Sprintf("candidates[%d].source_url", i), candidate.SourceURL); err != nil {
				return err
			}
		}
		for j, topic := range candidate.Topics {
			if strings.TrimSpace(topic) == "" {
				return fmt.Errorf("candidates[%d].topics[%d] must not be empty", i, j)
			}
		}
	}
	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
