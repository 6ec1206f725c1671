/**
 * @description
 * This package provides a client for the SMS gateway used to deliver one-time
 * passwords to customers. It encapsulates the logic for making authenticated HTTP
 * requests to the gateway, handling request body construction, and parsing responses.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package smsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Sender is the interface implemented by types that can deliver an OTP by SMS.
type Sender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// Client is a client for the SMS gateway API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new SMS gateway client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// messageRequest is the payload for the gateway's send-message endpoint.
type messageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// messageResponse is the expected response from the gateway.
type messageResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// ErrorResponse represents an error from the SMS gateway.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("sms gateway error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown sms gateway error"
}

// SendOTP delivers a verification code to the given phone number.
func (c *Client) SendOTP(ctx context.Context, phone, code string) error {
	payload := messageRequest{
		To:      phone,
		Message: fmt.Sprintf("Your payment verification code is %s. It expires shortly.", code),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/v1/messages", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute sms request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read sms response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=sms_client op=send_otp status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=sms_client op=send_otp status=%d title=%q", resp.StatusCode, firstErrorTitle(errResp))
		return &errResp
	}

	var okResp messageResponse
	if err := json.Unmarshal(bodyBytes, &okResp); err != nil {
		return fmt.Errorf("failed to decode success response: %w", err)
	}
	return nil
}

func firstErrorTitle(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Title
}
