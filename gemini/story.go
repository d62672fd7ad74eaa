package gemini

import (
	"context"

	"google.golang.org/genai"

	"github.com/katje/colorizer/errors"
	"github.com/katje/colorizer/journal"
	"github.com/katje/colorizer/queue"
)

const storyPrompt = "Write a short, engaging story based on this image. Give it a creative title formatted as a Markdown Header (# Title). Format the story in Markdown."

// Story generates a markdown story about a finished artifact. The story file
// sits next to the image, so the artifact is referenced by its filename.
func (c *Client) Story(ctx context.Context, job *queue.Job, gen *queue.Generation) (*queue.Generation, error) {
	s := c.settings().Normalize()

	logs := []queue.CallLog{{
		Category: journal.CategoryModelRequest,
		Title:    "Story generation request",
		Detail: map[string]interface{}{
			"model":  s.TextModel,
			"prompt": storyPrompt,
		},
	}}

	content := &genai.Content{
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: gen.MIMEType, Data: gen.Image}},
			genai.NewPartFromText(storyPrompt),
		},
	}
	result, err := c.generate(ctx, s.TextModel, []*genai.Content{content}, nil)
	if err != nil {
		logs = append(logs, queue.CallLog{
			Category: journal.CategoryModelResponse,
			Title:    "Story generation error",
			Detail:   err.Error(),
		})
		return nil, &queue.CallError{
			Err:  errors.Wrap(err, "story generation call failed"),
			Logs: logs,
		}
	}

	story := firstText(result)
	logs = append(logs, queue.CallLog{
		Category: journal.CategoryModelResponse,
		Title:    "Story generation response",
		Detail: map[string]interface{}{
			"length": len(story),
		},
	})
	if story == "" {
		return &queue.Generation{Model: s.TextModel, Logs: logs}, nil
	}

	markdown := story + "\n\n![" + gen.Filename + "](" + gen.Filename + ")\n"
	return &queue.Generation{
		Image:    []byte(markdown),
		MIMEType: "text/markdown",
		Filename: stripExtension(gen.Filename) + ".md",
		Model:    s.TextModel,
		Logs:     logs,
	}, nil
}
