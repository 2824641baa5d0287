// Package classify assigns a category id and confidence score to canonical
// transactions. The classification itself is delegated to Gemini; this
// package owns the taxonomy, the prompt, and the response validation.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/bank-sync/internal/domain"
	"github.com/dvloznov/bank-sync/internal/logger"
)

// DefaultModelName is the default Gemini model used for classification.
const DefaultModelName = "gemini-2.5-flash"

// UncategorizedID is assigned when the model cannot decide or returns an
// unknown category.
const UncategorizedID = "0"

// categories is the banking taxonomy the model must pick from.
var categories = map[string]string{
	"100100": "salary",
	"100200": "interests",
	"100300": "refunds",
	"200100": "supermarket",
	"200110": "restaurants",
	"200130": "transfers",
	"200140": "subscriptions",
	"200200": "transportation",
	"200300": "health",
	"200400": "housing",
	"200500": "leisure",
	"400100": "bank fees",
	"400200": "withdrawals",
}

// Classifier categorizes transactions through the Gemini API.
type Classifier struct {
	model string
}

// New creates a Classifier using the given model name; an empty name falls
// back to DefaultModelName.
func New(model string) *Classifier {
	if model == "" {
		model = DefaultModelName
	}
	return &Classifier{model: model}
}

// classificationResult is one entry of the model's JSON answer.
type classificationResult struct {
	Index      int     `json:"index"`
	CategoryID string  `json:"category_id"`
	Confidence float64 `json:"confidence"`
}

// Classify returns the same transactions, in the same order, with CategoryID
// and CategoryProba populated. Transactions the model does not answer for,
// or answers with an unknown category, come back as uncategorized.
func (c *Classifier) Classify(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error) {
	if len(txs) == 0 {
		return txs, nil
	}

	log := logger.FromContext(ctx)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("Classify: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(txs)},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Classify: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("Classify: empty response from model")
	}

	results, err := parseResults(rawText)
	if err != nil {
		return nil, fmt.Errorf("Classify: %w", err)
	}

	out := applyResults(txs, results)
	log.Info().Int("transactions", len(out)).Msg("Classification completed")
	return out, nil
}

// buildPrompt lists the taxonomy and the transaction labels with their
// positional index; the model answers by index so ordering stays intact.
func buildPrompt(txs []domain.Transaction) string {
	var b strings.Builder
	b.WriteString("You are a bank transaction classifier.\n\n")
	b.WriteString("Use ONLY the following category ids:\n\n")
	for id, name := range categories {
		fmt.Fprintf(&b, "  %s: %s\n", id, name)
	}
	b.WriteString("\nTransactions (index: label, signed amount, currency):\n\n")
	for i, tx := range txs {
		fmt.Fprintf(&b, "  %d: %q, %s, %s\n", i, tx.Label, tx.Amount, tx.Currency)
	}
	b.WriteString("\nOutput STRICT JSON only: a JSON array of objects with fields\n")
	b.WriteString("\"index\" (number), \"category_id\" (string), \"confidence\" (number 0..1).\n")
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")
	return b.String()
}

// parseResults decodes the model answer, tolerating Markdown fences the
// model sometimes adds despite instructions.
func parseResults(raw string) ([]classificationResult, error) {
	clean := cleanModelJSON(raw)

	var results []classificationResult
	if err := json.Unmarshal([]byte(clean), &results); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	return results, nil
}

// applyResults stamps category and confidence onto a copy of the input,
// preserving order and length. Out-of-range indexes are ignored; unknown
// category ids degrade to uncategorized.
func applyResults(txs []domain.Transaction, results []classificationResult) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)

	for i := range out {
		out[i].CategoryID = UncategorizedID
		out[i].CategoryProba = 0
	}

	for _, r := range results {
		if r.Index < 0 || r.Index >= len(out) {
			continue
		}
		if _, known := categories[r.CategoryID]; !known {
			continue
		}
		out[r.Index].CategoryID = r.CategoryID
		out[r.Index].CategoryProba = r.Confidence
	}
	return out
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}
