package ollama

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/label-compliance/internal/core/domain"
	"github.com/kirillkom/label-compliance/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, genModel string) *Client {
	return NewWithOptions(baseURL, genModel, Options{})
}

func NewWithOptions(baseURL, genModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Classifier produces compliance documents from raw label text.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Evaluate(ctx context.Context, labelText, categoryHint string) (*domain.ComplianceDocument, error) {
	respText, err := c.client.generateJSON(ctx, buildCompliancePrompt(labelText, categoryHint), "evaluate")
	if err != nil {
		return nil, err
	}

	var doc domain.ComplianceDocument
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &doc); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "parse compliance json", err)
	}
	if doc.OverallStatus == "" {
		slog.Warn("classifier_missing_overall_status", "category_hint", categoryHint)
	}
	if strings.TrimSpace(doc.Category) == "" {
		doc.Category = categoryHint
	}
	// Identity and category state belong to this service, not the model.
	doc.ID = ""
	doc.CategoryConfirmed = false
	return &doc, nil
}

// Generator answers follow-up questions about a stored document.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) AnswerFollowUp(
	ctx context.Context,
	question string,
	doc *domain.ComplianceDocument,
	history []domain.Iteration,
) (string, error) {
	return g.client.generateText(ctx, buildFollowUpPrompt(question, doc, history), "answer")
}

func (c *Client) generateJSON(ctx context.Context, prompt, operation string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, reqBody, operation)
}

func (c *Client) generateText(ctx context.Context, prompt, operation string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, reqBody, operation)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any, operation string) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", modelError("ollama "+operation, err)
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
