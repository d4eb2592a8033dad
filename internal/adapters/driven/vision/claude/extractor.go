// Package claude extracts structured invoice entities with a Claude vision model.
package claude

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"github.com/custodia-labs/ledgerscan/internal/vision"
)

// Verify interface compliance
var _ driven.EntityExtractor = (*Extractor)(nil)

// DefaultModel is used when no model is configured
const DefaultModel = "claude-sonnet-4-20250514"

const maxTokens = 2048

const prompt = `Extract the invoice fields from this image. Reply with a single JSON object and nothing else.
Use these keys, leaving out any field that is not printed on the document:
invoice_id, supplier_name, supplier_address, supplier_city, supplier_state, supplier_zip,
supplier_country, invoice_date, net_amount, total_tax_amount, total_amount.
All values are strings copied as printed. Add "line_items": an array with the printed text of each line item row.`

// messageClient is the part of the SDK message service used here
type messageClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Extractor implements driven.EntityExtractor
type Extractor struct {
	messages messageClient
	model    string
}

// NewExtractor creates an extractor using the given API key and model
func NewExtractor(apiKey, model string, opts ...option.RequestOption) (*Extractor, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Extractor{messages: &client.Messages, model: model}, nil
}

// Name identifies the back end in logs
func (e *Extractor) Name() string { return "anthropic" }

// ExtractEntities asks the model for the invoice fields printed on the image
func (e *Extractor) ExtractEntities(ctx context.Context, image []byte, mimeType string) (*domain.Entities, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(image)),
				anthropic.NewTextBlock(prompt),
			),
		},
	}

	msg, err := e.messages.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return parseEntities(text.String())
}

func classifyError(err error) error {
	wrapped := fmt.Errorf("anthropic entities: %w", err)

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return vision.Permanent(wrapped)
		}
	}
	return wrapped
}

// parseEntities reads the JSON object in the model reply. A reply with no
// usable field yields nil, nil.
func parseEntities(reply string) (*domain.Entities, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, vision.Permanent(fmt.Errorf("anthropic entities: no JSON object in reply"))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, vision.Permanent(fmt.Errorf("anthropic entities: %w", err))
	}

	entities := &domain.Entities{Fields: make(map[string]string)}
	for key, value := range raw {
		if key == "line_items" {
			var items []string
			if err := json.Unmarshal(value, &items); err == nil {
				for _, item := range items {
					if strings.TrimSpace(item) != "" {
						entities.LineItems = append(entities.LineItems, item)
					}
				}
			}
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			// Numbers are accepted as printed
			s = strings.TrimSpace(string(value))
			if s == "null" {
				continue
			}
		}
		if s = strings.TrimSpace(s); s != "" {
			entities.Fields[key] = s
		}
	}

	if entities.IsEmpty() {
		return nil, nil
	}
	return entities, nil
}
