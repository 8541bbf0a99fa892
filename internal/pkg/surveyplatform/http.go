package surveyplatform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// doJSON performs one request against the platform API and parses the JSON
// body. Platform calls are researcher- or respondent-blocking, so there is
// no retry loop here; failures surface immediately as connection errors.
func doJSON(ctx context.Context, platform, method, url string, headers map[string]string, payload []byte) (gjson.Result, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return gjson.Result{}, connectionFailed(platform, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, connectionFailed(platform, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, connectionFailed(platform, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := platformMessage(body)
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return gjson.Result{}, connectionFailed(platform, msg)
	}
	return gjson.ParseBytes(body), nil
}

// platformMessage extracts the human-readable error message platforms embed
// in their error payloads, so it can be passed through unmodified.
func platformMessage(body []byte) string {
	parsed := gjson.ParseBytes(body)
	for _, path := range []string{"meta.error.errorMessage", "error.message", "message"} {
		if field := parsed.Get(path); field.Exists() {
			return field.String()
		}
	}
	return ""
}

func connectionFailed(platform, msg string) *Error {
	return &Error{Platform: platform, Kind: ErrConnectionFailed, Message: msg}
}

func inactiveSurvey(platform, msg string) *Error {
	return &Error{Platform: platform, Kind: ErrInactiveSurvey, Message: msg}
}
