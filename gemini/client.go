// Package gemini implements the generative-image client behind the queue
// scheduler. Every call emits structured request/response logs so the
// operator journal shows the full exchange even for failed calls.
package gemini

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/katje/colorizer/errors"
	"github.com/katje/colorizer/journal"
	"github.com/katje/colorizer/logger"
	"github.com/katje/colorizer/queue"
)

// generateFunc matches genai's Models.GenerateContent. Tests swap it for a
// scripted stub; production uses the real client method.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Client talks to the Gemini API. Settings are snapshotted per call through
// the provider func so a config reload never affects an in-flight job.
type Client struct {
	generate generateFunc
	settings func() Settings
	prompts  *PromptConfig

	logger *zap.SugaredLogger
	brush  *zap.SugaredLogger

	mu   sync.Mutex
	used map[string]int
}

// New builds a client against the Gemini API. The key comes from explicit
// configuration; nothing here reads process environment.
func New(ctx context.Context, apiKey string, settings func() Settings, log *zap.SugaredLogger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	return newClient(client.Models.GenerateContent, settings, log), nil
}

func newClient(generate generateFunc, settings func() Settings, log *zap.SugaredLogger) *Client {
	if settings == nil {
		settings = DefaultSettings
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		generate: generate,
		settings: settings,
		prompts:  DefaultPromptConfig(),
		logger:   log,
		brush:    logger.AddBrushSymbol(log),
		used:     make(map[string]int),
	}
}

// safetyOff disables the content filters so report generation and art
// colorization are not blocked by the input image itself.
var safetyOff = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
}

// Colorize runs the primary image generation for a job. The returned
// Generation carries the artifact, the derived filename, and the call logs;
// an empty artifact with a nil error means the call resolved without
// producing an image.
func (c *Client) Colorize(ctx context.Context, job *queue.Job) (*queue.Generation, error) {
	s := c.settings().Normalize()
	var logs []queue.CallLog

	name, nameLogs := c.deriveFilename(ctx, job, s)
	logs = append(logs, nameLogs...)

	prompt := BuildPrompt(s, c.prompts)
	if framing := framingPrompt(s); framing != "" {
		prompt += " " + framing
	}

	content := &genai.Content{
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: job.MIMEType, Data: job.Payload}},
			genai.NewPartFromText(prompt),
		},
	}
	config := &genai.GenerateContentConfig{SafetySettings: safetyOff}
	if supportsImageConfig(s.ImageModel) && s.AspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: s.AspectRatio}
	}

	logs = append(logs, queue.CallLog{
		Category: journal.CategoryImageRequest,
		Title:    "Image generation request",
		Detail: map[string]interface{}{
			"model":        s.ImageModel,
			"prompt":       prompt,
			"mime_type":    job.MIMEType,
			"payload_size": len(job.Payload),
		},
	})
	c.brush.Infow("Calling image model",
		logger.FieldJobID, job.ID,
		logger.FieldModel, s.ImageModel,
		logger.FieldSize, len(job.Payload),
	)

	result, err := c.generate(ctx, s.ImageModel, []*genai.Content{content}, config)
	if err != nil {
		logs = append(logs, queue.CallLog{
			Category: journal.CategoryImageResponse,
			Title:    "Image generation error",
			Detail:   err.Error(),
		})
		return nil, &queue.CallError{
			Err:  errors.Wrap(err, "image generation call failed"),
			Logs: logs,
		}
	}

	image, mimeType := firstImage(result)
	logs = append(logs, queue.CallLog{
		Category: journal.CategoryImageResponse,
		Title:    "Image generation response",
		Detail: map[string]interface{}{
			"candidates": len(result.Candidates),
			"bytes":      len(image),
			"mime_type":  mimeType,
		},
	})

	return &queue.Generation{
		Image:    image,
		MIMEType: mimeType,
		Filename: c.reserveName(name) + extensionFor(mimeType),
		Model:    s.ImageModel,
		Logs:     logs,
	}, nil
}

// deriveFilename asks the text model for a short kebab-case name. Best
// effort: any failure falls back to the default name and the logs show what
// happened.
func (c *Client) deriveFilename(ctx context.Context, job *queue.Job, s Settings) (string, []queue.CallLog) {
	const prompt = "Analyze this image and provide a very short, descriptive filename (max 5 words) using kebab-case. Do not include extension."

	logs := []queue.CallLog{{
		Category: journal.CategoryModelRequest,
		Title:    "Filename derivation request",
		Detail: map[string]interface{}{
			"model":  s.TextModel,
			"prompt": prompt,
		},
	}}

	content := &genai.Content{
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: job.MIMEType, Data: job.Payload}},
			genai.NewPartFromText(prompt),
		},
	}
	result, err := c.generate(ctx, s.TextModel, []*genai.Content{content}, nil)
	if err != nil {
		logs = append(logs, queue.CallLog{
			Category: journal.CategoryModelResponse,
			Title:    "Filename derivation error",
			Detail:   err.Error(),
		})
		return FallbackFilename, logs
	}

	text := firstText(result)
	logs = append(logs, queue.CallLog{
		Category: journal.CategoryModelResponse,
		Title:    "Filename derivation response",
		Detail:   text,
	})
	return SanitizeFilename(text), logs
}

// reserveName claims a base name, suffixing on collision within this client's
// lifetime.
func (c *Client) reserveName(base string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uniqueName(c.used, base)
}

// firstImage scans a response for the first inline image part.
func firstImage(result *genai.GenerateContentResponse) ([]byte, string) {
	if result == nil {
		return nil, ""
	}
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType
			}
		}
	}
	return nil, ""
}

// firstText concatenates the text parts of the first usable candidate.
func firstText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}
