package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://api.twilio.com"

type Client struct {
	AccountSID string
	AuthToken  string
	HTTP       *http.Client

	MessagingServiceSID string
	FromNumber          string
	BaseURL             string
}

type SendRequest struct {
	From      string
	To        string
	Body      string
	MediaURLs []string
}

type SendResponse struct {
	Sid       string `json:"sid"`
	Status    string `json:"status"`
	Code      int    `json:"code"`
	ErrorCode *int   `json:"error_code"`
	Message   string `json:"message"`
}

// APIError is a non-2xx answer from the Messages endpoint.
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
	Raw        []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("twilio send failed: status=%d code=%d: %s", e.HTTPStatus, e.Code, e.Message)
	}
	return fmt.Sprintf("twilio send failed: status=%d", e.HTTPStatus)
}

// SendSMS posts one message. From falls back to the messaging service, then FromNumber.
func (c *Client) SendSMS(ctx context.Context, req SendRequest) (SendResponse, error) {
	form := url.Values{}
	form.Set("To", req.To)
	form.Set("Body", req.Body)
	for _, m := range req.MediaURLs {
		form.Add("MediaUrl", m)
	}
	switch {
	case req.From != "":
		form.Set("From", req.From)
	case c.MessagingServiceSID != "":
		form.Set("MessagingServiceSid", c.MessagingServiceSID)
	default:
		form.Set("From", c.FromNumber)
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	endpoint := baseURL + "/2010-04-01/Accounts/" + c.AccountSID + "/Messages.json"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResponse{}, fmt.Errorf("build twilio request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(c.AccountSID, c.AuthToken)

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return SendResponse{}, fmt.Errorf("twilio post: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	var out SendResponse
	_ = json.Unmarshal(b, &out)

	// Twilio returns 201 for created; treat 2xx as success
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, &APIError{HTTPStatus: resp.StatusCode, Code: out.Code, Message: out.Message, Raw: b}
	}
	return out, nil
}
