package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"uploadAI/core"
)

// Client talks to the upload-ai HTTP API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
	}
}

// UploadAudio posts the converted audio as multipart form data and returns
// the created video id.
func (c *Client) UploadAudio(ctx context.Context, fileName string, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/videos", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError("upload", resp)
	}

	var out struct {
		Video core.Video `json:"video"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.Video.ID == "" {
		return "", fmt.Errorf("upload response missing video id")
	}
	return out.Video.ID, nil
}

// RequestTranscription asks the server to transcribe a stored upload.
func (c *Client) RequestTranscription(ctx context.Context, videoID, prompt string) error {
	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/videos/%s/transcription", c.BaseURL, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("transcription", resp)
	}
	return nil
}

// GenerateCompletion streams a completion for a stored video, forwarding each
// chunk to out as it arrives.
func (c *Client) GenerateCompletion(ctx context.Context, videoID, prompt string, temperature float32, out io.Writer) error {
	payload, err := json.Marshal(map[string]any{
		"videoId":     videoID,
		"prompt":      prompt,
		"temperature": temperature,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ai/generate", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("generate", resp)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("read completion stream: %w", err)
	}
	return nil
}

func apiError(op string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("%s failed: %s (status %d)", op, body.Error, resp.StatusCode)
	}
	return fmt.Errorf("%s failed with status %d", op, resp.StatusCode)
}
