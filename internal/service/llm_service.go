package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tudu/pkg/apperrors"
	"tudu/pkg/config"

	"github.com/Role1776/gigago"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	gigaChatOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	gigaChatBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"

	// tokenRefreshMargin renews the access token shortly before it expires.
	tokenRefreshMargin = time.Minute
	defaultTemperature = 0.3
)

var errUnauthorized = errors.New("gigachat: unauthorized")

// refusalPhrases mark replies where the model declined to read the image.
var refusalPhrases = []string{
	"cannot help",
	"cannot process",
	"can't help",
	"unable to read",
	"please provide",
	"не могу помочь",
	"не могу обработать",
	"не могу извлечь",
	"предоставьте содержимое",
}

// LLMService talks to GigaChat. Text completions go through the gigago
// client; image analysis uses the REST files and chat endpoints directly
// because gigago has no attachment support.
type LLMService struct {
	client     *gigago.Client
	cfg        *config.GigaChatConfig
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	oauthURL   string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewLLMService(cfg *config.GigaChatConfig, logger *zap.Logger) (*LLMService, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.ConfigurationMissing("GIGACHAT_API_KEY")
	}

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(context.Background(), cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	logger.Info("GigaChat client ready", zap.String("model", cfg.Model), zap.Duration("timeout", cfg.Timeout))

	return &LLMService{
		client:     client,
		cfg:        cfg,
		logger:     logger,
		httpClient: httpClient,
		baseURL:    gigaChatBaseURL,
		oauthURL:   gigaChatOAuthURL,
	}, nil
}

// Complete runs a single-turn text completion under the configured timeout.
func (s *LLMService) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	model := s.client.GenerativeModel(s.cfg.Model)
	model.SystemInstruction = system
	model.Temperature = defaultTemperature

	resp, err := model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// DescribeImage uploads the image, asks the model about it and removes the
// upload afterwards. An expired token is refreshed once.
func (s *LLMService) DescribeImage(ctx context.Context, image []byte, fileName, mimeType, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	fileID, err := s.withTokenRetry(ctx, func(token string) (string, error) {
		return s.uploadFile(ctx, token, image, fileName, mimeType)
	})
	if err != nil {
		return "", err
	}
	defer s.deleteFile(fileID)

	text, err := s.withTokenRetry(ctx, func(token string) (string, error) {
		return s.chatWithAttachment(ctx, token, fileID, prompt)
	})
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			s.logger.Warn("Model declined the image", zap.String("reply", text))
			return "", fmt.Errorf("model declined the image: %s", text)
		}
	}
	return text, nil
}

func (s *LLMService) withTokenRetry(ctx context.Context, call func(token string) (string, error)) (string, error) {
	token, err := s.token(ctx, false)
	if err != nil {
		return "", err
	}

	out, err := call(token)
	if !errors.Is(err, errUnauthorized) {
		return out, err
	}

	s.logger.Info("GigaChat token rejected, refreshing")
	token, err = s.token(ctx, true)
	if err != nil {
		return "", err
	}
	return call(token)
}

// token returns a cached access token, fetching a new one when it is
// missing, about to expire, or force is set.
func (s *LLMService) token(ctx context.Context, force bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && s.accessToken != "" && time.Now().Add(tokenRefreshMargin).Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	rqUID := uuid.New().String()
	form := url.Values{}
	form.Set("scope", s.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", rqUID)
	// the key is issued already Base64-encoded
	req.Header.Set("Authorization", "Basic "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(body)),
			zap.String("rq_uid", rqUID),
		)
		return "", fmt.Errorf("OAuth failed with status %d", resp.StatusCode)
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("failed to decode OAuth response: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in OAuth response")
	}

	switch {
	case oauthResp.ExpiresAt > 0:
		s.tokenExpiry = time.UnixMilli(oauthResp.ExpiresAt)
	case oauthResp.ExpiresIn > 0:
		s.tokenExpiry = time.Now().Add(time.Duration(oauthResp.ExpiresIn) * time.Second)
	default:
		s.tokenExpiry = time.Now().Add(30 * time.Minute)
	}
	s.accessToken = oauthResp.AccessToken

	s.logger.Debug("Access token obtained", zap.Time("expires_at", s.tokenExpiry))
	return s.accessToken, nil
}

func (s *LLMService) uploadFile(ctx context.Context, token string, data []byte, fileName, mimeType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// "general" lets the file be attached to chat completions
	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}
	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {mimeType},
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized:
		return "", errUnauthorized
	case http.StatusRequestEntityTooLarge:
		return "", fmt.Errorf("file too large (413)")
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(msg))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if uploadResp.ID == "" {
		return "", fmt.Errorf("upload response has no file id")
	}

	s.logger.Debug("File uploaded to GigaChat", zap.String("file_id", uploadResp.ID))
	return uploadResp.ID, nil
}

type chatMessage struct {
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

func (s *LLMService) chatWithAttachment(ctx context.Context, token, fileID, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt, Attachments: []string{fileID}},
		},
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", errUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat completion failed with status %d: %s", resp.StatusCode, string(msg))
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from vision model")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// deleteFile removes an uploaded file. Failures are only logged.
func (s *LLMService) deleteFile(fileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, err := s.token(ctx, false)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/files/"+url.PathEscape(fileID)+"/delete", nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("Failed to delete uploaded file", zap.String("file_id", fileID), zap.Error(err))
		return
	}
	resp.Body.Close()
}

func (s *LLMService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
