// Package bigachat implements the client for the BigAChat HTTP API.
// It handles OAuth token acquisition and chat-completion requests over
// an HTTPS transport pinned to a custom certificate bundle.
package bigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/dmfed/bigachat-bot/internal/config"
)

// Fixed replies for well-formed HTTP responses whose body does not carry
// the expected completion shape. These are returned as the reply text,
// never as an error.
const (
	fallbackEmptyChoices   = "could not parse the server's response"
	fallbackMissingContent = "could not process the server's response"
)

var (
	// ErrTokenUnavailable signals that no access token could be obtained.
	ErrTokenUnavailable = errors.New("access token unavailable")

	// ErrChatUnavailable signals that no chat completion could be obtained.
	ErrChatUnavailable = errors.New("chat completion unavailable")
)

// retryableStatus lists the HTTP status codes that trigger a retry.
// Every other error status fails the call immediately.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client defines the BigAChat API operations used by the bot.
type Client interface {
	// GetAccessToken performs the OAuth round trip and returns a fresh
	// bearer token. Token lifetime is not tracked; callers fetch a new
	// token before every chat request.
	GetAccessToken(ctx context.Context) (string, error)

	// SendMessage sends a single user-turn prompt and returns the reply
	// text extracted from the completion response.
	SendMessage(ctx context.Context, prompt, token string) (string, error)
}

type apiClient struct {
	httpClient *http.Client
	cfg        config.BigAChatConfig
	log        *slog.Logger
}

// NewClient creates a BigAChat API client. If cfg.CertFile is set, the
// transport trusts only the certificates in that PEM bundle.
func NewClient(cfg config.BigAChatConfig, log *slog.Logger) (Client, error) {
	if log == nil {
		log = slog.Default()
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	if cfg.CertFile != "" {
		pemData, err := os.ReadFile(cfg.CertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read certificate bundle %s: %w", cfg.CertFile, err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CertFile)
		}

		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}

	return &apiClient{
		httpClient: httpClient,
		cfg:        cfg,
		log:        log.With("component", "bigachat_client"),
	}, nil
}

func (c *apiClient) GetAccessToken(ctx context.Context) (string, error) {
	form := url.Values{"scope": {c.cfg.Scope}}.Encode()
	rqUID := uuid.NewString()

	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthURL, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", c.basicAuthHeader())
		req.Header.Set("RqUID", rqUID)
		return req, nil
	})
	if err != nil {
		c.log.ErrorContext(ctx, "Token request failed", "error", err, "rquid", rqUID)
		return "", fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		c.log.ErrorContext(ctx, "Failed to decode token response", "error", err, "rquid", rqUID)
		return "", fmt.Errorf("%w: invalid token response: %w", ErrTokenUnavailable, err)
	}
	if tok.AccessToken == "" {
		c.log.ErrorContext(ctx, "Token response missing access_token", "rquid", rqUID)
		return "", fmt.Errorf("%w: empty access_token in response", ErrTokenUnavailable)
	}

	c.log.DebugContext(ctx, "Access token obtained", "rquid", rqUID)
	return tok.AccessToken, nil
}

func (c *apiClient) SendMessage(ctx context.Context, prompt, token string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: roleUser, Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %w", ErrChatUnavailable, err)
	}

	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ChatURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		c.log.ErrorContext(ctx, "Chat completion request failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrChatUnavailable, err)
	}

	return c.extractReply(ctx, body), nil
}

// extractReply pulls choices[0].message.content out of the response body.
// A malformed body is a recoverable condition: it maps to one of the two
// fixed fallback strings instead of an error.
func (c *apiClient) extractReply(ctx context.Context, body []byte) string {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.log.WarnContext(ctx, "Chat response body is not valid JSON", "error", err)
		return fallbackMissingContent
	}

	if len(parsed.Choices) == 0 {
		c.log.WarnContext(ctx, "Chat response contains no choices")
		return fallbackEmptyChoices
	}

	content := parsed.Choices[0].Message.Content
	if content == "" {
		c.log.WarnContext(ctx, "Chat response choice is missing message content")
		return fallbackMissingContent
	}

	return content
}

// doWithRetry runs one HTTP request/response cycle under the retry policy:
// up to cfg.RetryAttempts total attempts, exponential backoff starting at
// cfg.RetryDelay, retried only for transport errors and the status codes
// in retryableStatus. A fresh request is built per attempt so the body can
// be resent.
func (c *apiClient) doWithRetry(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			req, err := build()
			if err != nil {
				return nil, retry.Unrecoverable(fmt.Errorf("failed to build request: %w", err))
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read response body: %w", err)
			}

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				statusErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
				if retryableStatus[resp.StatusCode] {
					return nil, statusErr
				}
				return nil, retry.Unrecoverable(statusErr)
			}

			return body, nil
		},
		retry.Attempts(c.cfg.RetryAttempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.log.WarnContext(ctx, "Retrying API request", "attempt", n+1, "error", err)
		}),
	)
}

// basicAuthHeader renders the OAuth credential header. The upstream API
// historically accepted the credential pair joined with a literal colon
// and unencoded; "base64" switches to standard Basic-auth encoding.
func (c *apiClient) basicAuthHeader() string {
	pair := c.cfg.ClientID + ":" + c.cfg.ClientSecret
	if c.cfg.AuthHeaderEncoding == "base64" {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(pair))
	}
	return "Basic " + pair
}
