package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/seslichat/sesli/pkg/Logger"
)

// TranscriptionResponse is the JSON shape the whisper server returns.
type TranscriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Client sends an uploaded audio blob to a whisper server and returns
// the recognized text. When an ffmpeg binary is configured the blob is
// normalized to 16 kHz mono WAV first; browser uploads are typically
// webm and arrive with broken duration headers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	language   string
	ffmpegPath string
	logger     *Logger.Logger
}

func New(baseURL, language, ffmpegPath string, logger *Logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		language:   language,
		ffmpegPath: ffmpegPath,
		logger:     logger,
	}
}

// Transcribe converts raw audio bytes into text. Every internal failure
// (bad format, no speech, transcoding error) surfaces as a plain error;
// callers map it to their own uniform input-resolution failure.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio payload")
	}

	if c.ffmpegPath != "" {
		converted, err := c.normalize(ctx, audio)
		if err != nil {
			c.logger.Warnf("audio normalization failed, sending original payload: %v", err)
		} else {
			audio = converted
		}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio_file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	lang := c.language
	if lang == "" {
		lang = "en"
	}
	requestURL := fmt.Sprintf("%s/asr?encode=true&task=transcribe&language=%s&output=json",
		c.baseURL, url.QueryEscape(lang))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper service returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var transcription TranscriptionResponse
	if err := json.Unmarshal(responseBody, &transcription); err != nil {
		// some whisper builds answer with bare text
		text := strings.TrimSpace(string(responseBody))
		if text != "" {
			return text, nil
		}
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	text := strings.TrimSpace(transcription.Text)
	if text == "" {
		return "", fmt.Errorf("no speech detected in the audio")
	}
	c.logger.Debugf("transcription: %s (language: %s)", text, transcription.Language)
	return text, nil
}

// normalize pipes the blob through ffmpeg into a 16 kHz mono PCM WAV.
func (c *Client) normalize(ctx context.Context, audio []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.ffmpegPath,
		"-i", "pipe:0",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(audio)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg conversion failed: %w: %s", err, errOut.String())
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output")
	}
	return out.Bytes(), nil
}
