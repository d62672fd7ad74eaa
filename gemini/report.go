package gemini

import (
	"context"

	"google.golang.org/genai"

	"github.com/katje/colorizer/errors"
	"github.com/katje/colorizer/journal"
	"github.com/katje/colorizer/queue"
)

const reportPrompt = `Act as an advanced computer vision analysis tool similar to Google Cloud Vision.
Analyze the provided image and generate a comprehensive forensic report in Markdown format.

The report MUST include the following sections:

# Image Analysis Report

## 1. Safety Assessment (SafeSearch)
Provide a human-readable analysis of the safety of this image.
Analyze the likelihood (Very Unlikely, Unlikely, Possible, Likely, Very Likely) for the following categories:
- Adult Content
- Violence / Gore
- Racy / Suggestive
- Medical / Surgery
- Spoof / Fake
- Harassment / Hate

## 2. Label Detection
List all identified objects, concepts, and themes in the image with high confidence.

## 3. Object & Logo Detection
Identify specific objects (bounding box context) and brand logos if present.

## 4. Landmark Detection
Identify any famous natural or man-made landmarks.

## 5. Image Properties
Describe dominant colors, lighting conditions, and composition.

## 6. Text Detection (OCR)
Transcribe any visible text found in the image.

## 7. Detailed Visual Description
Provide a neutral, factual description of the entire image content.`

// FailureReport analyzes the original input of a failed job so the operator
// can see what the model saw. The cause is diagnostic context only; report
// problems never replace it.
func (c *Client) FailureReport(ctx context.Context, job *queue.Job, cause error) (*queue.Generation, error) {
	s := c.settings().Normalize()

	logs := []queue.CallLog{{
		Category: journal.CategoryModelRequest,
		Title:    "Failure analysis request",
		Detail: map[string]interface{}{
			"model":     s.TextModel,
			"job_error": cause.Error(),
		},
	}}

	content := &genai.Content{
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: job.MIMEType, Data: job.Payload}},
			genai.NewPartFromText(reportPrompt),
		},
	}
	result, err := c.generate(ctx, s.TextModel, []*genai.Content{content},
		&genai.GenerateContentConfig{SafetySettings: safetyOff})
	if err != nil {
		logs = append(logs, queue.CallLog{
			Category: journal.CategoryModelResponse,
			Title:    "Failure analysis error",
			Detail:   err.Error(),
		})
		return nil, &queue.CallError{
			Err:  errors.Wrap(err, "failure report call failed"),
			Logs: logs,
		}
	}

	report := firstText(result)
	logs = append(logs, queue.CallLog{
		Category: journal.CategoryModelResponse,
		Title:    "Failure analysis response",
		Detail: map[string]interface{}{
			"length": len(report),
		},
	})
	if report == "" {
		report = "Analysis complete but no text generated."
	}

	return &queue.Generation{
		Image:    []byte(report),
		MIMEType: "text/markdown",
		Filename: SanitizeFilename(stripExtension(job.DisplayName)) + "-report.md",
		Model:    s.TextModel,
		Logs:     logs,
	}, nil
}
