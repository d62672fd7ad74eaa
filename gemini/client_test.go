package gemini

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/katje/colorizer/errors"
	"github.com/katje/colorizer/journal"
	"github.com/katje/colorizer/queue"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func imageResponse(data []byte, mimeType string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			}},
		}},
	}
}

// recordedCall captures what the stub saw for one generate invocation.
type recordedCall struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

type stubGenerate struct {
	mu       sync.Mutex
	byModel  map[string]*genai.GenerateContentResponse
	errModel map[string]error
	calls    []recordedCall
}

func (s *stubGenerate) fn(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prompt string
	for _, content := range contents {
		for _, part := range content.Parts {
			if part.Text != "" {
				prompt = part.Text
			}
		}
	}
	s.calls = append(s.calls, recordedCall{model: model, prompt: prompt, config: config})

	if err, ok := s.errModel[model]; ok {
		return nil, err
	}
	return s.byModel[model], nil
}

func testSettings() Settings {
	s := DefaultSettings()
	s.TextModel = "text-model"
	s.ImageModel = "image-model"
	return s
}

func newStubClient(stub *stubGenerate, s Settings) *Client {
	return newClient(stub.fn, func() Settings { return s }, nil)
}

func testJob(t *testing.T) *queue.Job {
	t.Helper()
	job, err := queue.NewJob([]byte("input-image"), "image/jpeg", "cat-scan.jpg", 1)
	require.NoError(t, err)
	return job
}

func TestColorize(t *testing.T) {
	stub := &stubGenerate{byModel: map[string]*genai.GenerateContentResponse{
		"text-model":  textResponse("Sleepy Cat On Roof"),
		"image-model": imageResponse([]byte("colorized-bytes"), "image/png"),
	}}
	client := newStubClient(stub, testSettings())

	gen, err := client.Colorize(context.Background(), testJob(t))
	require.NoError(t, err)

	assert.Equal(t, []byte("colorized-bytes"), gen.Image)
	assert.Equal(t, "image/png", gen.MIMEType)
	assert.Equal(t, "sleepy-cat-on-roof.png", gen.Filename)
	assert.Equal(t, "image-model", gen.Model)

	// Request and response land in the logs for both calls.
	var categories []string
	for _, l := range gen.Logs {
		categories = append(categories, l.Category)
	}
	assert.Equal(t, []string{
		journal.CategoryModelRequest,
		journal.CategoryModelResponse,
		journal.CategoryImageRequest,
		journal.CategoryImageResponse,
	}, categories)

	require.Len(t, stub.calls, 2)
	assert.Equal(t, "text-model", stub.calls[0].model)
	assert.Equal(t, "image-model", stub.calls[1].model)
	assert.Contains(t, stub.calls[1].prompt, "Colorize this image realistically.")
	require.NotNil(t, stub.calls[1].config)
	assert.Len(t, stub.calls[1].config.SafetySettings, 4)
}

func TestColorizeFilenameFallback(t *testing.T) {
	stub := &stubGenerate{
		byModel:  map[string]*genai.GenerateContentResponse{"image-model": imageResponse([]byte("x"), "image/png")},
		errModel: map[string]error{"text-model": errors.New("text model down")},
	}
	client := newStubClient(stub, testSettings())

	gen, err := client.Colorize(context.Background(), testJob(t))
	require.NoError(t, err, "filename derivation is best effort")

	assert.Equal(t, FallbackFilename+".png", gen.Filename)
}

func TestColorizeAPIError(t *testing.T) {
	stub := &stubGenerate{
		byModel:  map[string]*genai.GenerateContentResponse{"text-model": textResponse("name")},
		errModel: map[string]error{"image-model": errors.New("429 quota exceeded")},
	}
	client := newStubClient(stub, testSettings())

	gen, err := client.Colorize(context.Background(), testJob(t))
	require.Error(t, err)
	assert.Nil(t, gen)

	var callErr *queue.CallError
	require.True(t, errors.As(err, &callErr), "failures carry their logs")
	assert.NotEmpty(t, callErr.Logs)
	last := callErr.Logs[len(callErr.Logs)-1]
	assert.Equal(t, journal.CategoryImageResponse, last.Category)
	assert.Equal(t, "Image generation error", last.Title)
}

func TestColorizeNoImageInResponse(t *testing.T) {
	stub := &stubGenerate{byModel: map[string]*genai.GenerateContentResponse{
		"text-model":  textResponse("name"),
		"image-model": textResponse("I cannot do that"),
	}}
	client := newStubClient(stub, testSettings())

	gen, err := client.Colorize(context.Background(), testJob(t))
	require.NoError(t, err, "a resolved call without an image is not a transport error")
	assert.Empty(t, gen.Image)
	assert.NotEmpty(t, gen.Logs)
}

func TestColorizeUniqueFilenames(t *testing.T) {
	stub := &stubGenerate{byModel: map[string]*genai.GenerateContentResponse{
		"text-model":  textResponse("same-name"),
		"image-model": imageResponse([]byte("x"), "image/png"),
	}}
	client := newStubClient(stub, testSettings())

	first, err := client.Colorize(context.Background(), testJob(t))
	require.NoError(t, err)
	second, err := client.Colorize(context.Background(), testJob(t))
	require.NoError(t, err)

	assert.Equal(t, "same-name.png", first.Filename)
	assert.Equal(t, "same-name-2.png", second.Filename)
}

func TestColorizeImageConfigForProModel(t *testing.T) {
	s := testSettings()
	s.ImageModel = "gemini-3-pro-image-preview"
	s.AspectRatio = "3:4"
	stub := &stubGenerate{byModel: map[string]*genai.GenerateContentResponse{
		"text-model":                 textResponse("name"),
		"gemini-3-pro-image-preview": imageResponse([]byte("x"), "image/png"),
	}}
	client := newStubClient(stub, s)

	_, err := client.Colorize(context.Background(), testJob(t))
	require.NoError(t, err)

	imageCall := stub.calls[len(stub.calls)-1]
	require.NotNil(t, imageCall.config.ImageConfig)
	assert.Equal(t, "3:4", imageCall.config.ImageConfig.AspectRatio)
	assert.NotContains(t, imageCall.prompt, "Change the aspect ratio")
}

func TestStory(t *testing.T) {
	artifact := &queue.Generation{
		Image:    []byte("image-bytes"),
		MIMEType: "image/png",
		Filename: "sleepy-cat.png",
	}

	t.Run("composes markdown next to the artifact", func(t *testing.T) {
		stub := &stubGenerate{byModel: map[string]*genai.GenerateContentResponse{
			"text-model": textResponse("# The Roof\n\nOnce upon a time."),
		}}
		client := newStubClient(stub, testSettings())

		story, err := client.Story(context.Background(), testJob(t), artifact)
		require.NoError(t, err)

		assert.Equal(t, "sleepy-cat.md", story.Filename)
		assert.Equal(t, "text/markdown", story.MIMEType)
		assert.Contains(t, string(story.Image), "# The Roof")
		assert.Contains(t, string(story.Image), "![sleepy-cat.png](sleepy-cat.png)")
	})

	t.Run("empty story yields no artifact", func(t *testing.T) {
		stub := &stubGenerate{byModel: map[string]*genai.GenerateContentResponse{
			"text-model": textResponse(""),
		}}
		client := newStubClient(stub, testSettings())

		story, err := client.Story(context.Background(), testJob(t), artifact)
		require.NoError(t, err)
		assert.Empty(t, story.Image)
	})

	t.Run("call failure carries logs", func(t *testing.T) {
		stub := &stubGenerate{errModel: map[string]error{"text-model": errors.New("boom")}}
		client := newStubClient(stub, testSettings())

		_, err := client.Story(context.Background(), testJob(t), artifact)
		var callErr *queue.CallError
		require.True(t, errors.As(err, &callErr))
		assert.NotEmpty(t, callErr.Logs)
	})
}

func TestFailureReport(t *testing.T) {
	stub := &stubGenerate{byModel: map[string]*genai.GenerateContentResponse{
		"text-model": textResponse("# Image Analysis Report\n\nDetails."),
	}}
	client := newStubClient(stub, testSettings())

	report, err := client.FailureReport(context.Background(), testJob(t), errors.New("model refused"))
	require.NoError(t, err)

	assert.Equal(t, "cat-scan-report.md", report.Filename)
	assert.Equal(t, "text/markdown", report.MIMEType)
	assert.Contains(t, string(report.Image), "Image Analysis Report")

	// The analysis call itself runs unfiltered.
	require.Len(t, stub.calls, 1)
	require.NotNil(t, stub.calls[0].config)
	assert.Len(t, stub.calls[0].config.SafetySettings, 4)
	assert.Contains(t, stub.calls[0].prompt, "forensic report")
}
