package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/seslichat/sesli/pkg/Logger"
)

// voice per detected language, with an English fallback
var voiceMap = map[string]string{
	"en": "en_US-amy-medium",
	"fr": "fr_FR-siwis-medium",
	"de": "de_DE-thorsten-medium",
	"es": "es_ES-davefx-medium",
	"it": "it_IT-riccardo-x_low",
	"pt": "pt_PT-tugao-medium",
	"ru": "ru_RU-denis-medium",
	"zh": "zh_CN-huayan-medium",
	"tr": "tr_TR-fettah-medium",
}

const defaultVoice = "en_US-amy-medium"

var ttsUnsafe = regexp.MustCompile(`[^\w\s,.!?'-]`)

// Client synthesizes finished replies through a piper-style HTTP server
// and stores the resulting audio under a publicly served directory.
type Client struct {
	baseURL    string
	httpClient *http.Client
	audioDir   string // filesystem directory audio files are written to
	publicPath string // URL prefix the files are served under
	timeout    time.Duration
	logger     *Logger.Logger
}

func New(baseURL, audioDir, publicPath string, timeout time.Duration, logger *Logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		audioDir:   audioDir,
		publicPath: publicPath,
		timeout:    timeout,
		logger:     logger,
	}
}

// Synthesize renders text into a spoken audio file in the voice for the
// given language code and returns the URL it is retrievable under.
func (c *Client) Synthesize(ctx context.Context, text, lang, requestID string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("empty text")
	}
	cleaned := ttsUnsafe.ReplaceAllString(text, "")

	voice, ok := voiceMap[lang]
	if !ok {
		voice = defaultVoice
	}

	u, err := url.Parse(c.baseURL + "/api/text-to-speech")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("text", cleaned)
	q.Set("voice", voice)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "audio/wav")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("tts http %d: %s (dur=%s)", resp.StatusCode, string(b), time.Since(start))
	}

	fileName := fmt.Sprintf("audio-%s.wav", requestID)
	filePath := filepath.Join(c.audioDir, fileName)
	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("write audio file: %w", err)
	}

	audioURL := c.publicPath + "/" + fileName
	c.logger.Infof("saved speak file %s (dur=%s)", filePath, time.Since(start))
	return audioURL, nil
}
