// Package client calls the login and protected endpoints of a running token service.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-service/internal/api/dto"
)

// DefaultTimeout bounds each outbound request.
const DefaultTimeout = 10 * time.Second

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the token service over HTTP.
type Client struct {
	baseURL string
	timeout time.Duration
}

// New returns a client for baseURL. A non-positive timeout uses DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// Login exchanges an email and password for a token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	agent := fiber.Post(c.baseURL + "/login")
	agent.JSON(dto.LoginRequest{Email: email, Password: password})

	var resp dto.AuthResponse
	if err := c.do(ctx, agent, &resp); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("login: response carried no token")
	}
	return resp.Token, nil
}

// FetchProtected calls the protected endpoint with token and returns the decoded body.
func (c *Client) FetchProtected(ctx context.Context, token string) (map[string]any, error) {
	agent := fiber.Get(c.baseURL + "/protected-data")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+token)

	var resp map[string]any
	if err := c.do(ctx, agent, &resp); err != nil {
		return nil, fmt.Errorf("fetch protected data: %w", err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, agent *fiber.Agent, out any) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	agent.Timeout(timeout)

	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if status < 200 || status >= 300 {
		return decodeAPIError(status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
