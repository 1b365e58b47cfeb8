package llmprovider

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// maxErrorBody bounds how much of a failed response is read for the message
const maxErrorBody = 64 * 1024

// Send executes req and maps non-2xx responses to *ProviderError.
// On success the caller owns resp.Body.
func Send(client *http.Client, provider ProviderID, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ProviderError{
			Provider:  provider.String(),
			Message:   fmt.Sprintf("%s HTTP request failed: %v", provider, err),
			Retryable: true,
			Err:       ErrProviderUnavailable,
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	return nil, responseError(provider, resp)
}

// responseError builds a *ProviderError from a failed response, reading the
// vendor error envelope when one is present.
func responseError(provider ProviderID, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	retryable, sentinel := classifyStatus(resp.StatusCode)
	perr := &ProviderError{
		Provider:   provider.String(),
		StatusCode: resp.StatusCode,
		Retryable:  retryable,
		Err:        sentinel,
	}

	if gjson.ValidBytes(body) {
		// {"error": {"type": ..., "message": ...}} (Anthropic, OpenAI, OpenRouter)
		// {"message": ...} (Cohere)
		perr.Type = gjson.GetBytes(body, "error.type").String()
		perr.Message = firstString(body, "error.message", "message", "error")
	}
	if perr.Message == "" {
		perr.Message = strings.TrimSpace(string(body))
	}
	if perr.Message == "" {
		perr.Message = http.StatusText(resp.StatusCode)
	}
	return perr
}

func firstString(body []byte, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// ReadResult reads a non-streaming response, decodes it into shape and annotates it.
func ReadResult(adapter Adapter, resp *http.Response, shape ResultShape) (*Result, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result, err := adapter.DecodeBody(body, shape)
	if err != nil {
		return nil, err
	}
	adapter.Annotate(result, resp.Header)
	return result, nil
}
