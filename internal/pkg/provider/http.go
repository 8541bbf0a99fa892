package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/rules"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// Retry policy for transient failures: two retries with short backoff.
const maxRetries = 2

var retryBackoff = []time.Duration{200 * time.Millisecond, 800 * time.Millisecond}

// Provider APIs enforce their own quotas; the limiters keep one resolution
// burst from tripping them.
var (
	limiterMu sync.Mutex
	limiters  = map[string]*rate.Limiter{}
)

func limiterFor(provider string) *rate.Limiter {
	limiterMu.Lock()
	defer limiterMu.Unlock()
	l, ok := limiters[provider]
	if !ok {
		l = rate.NewLimiter(rate.Limit(5), 10)
		limiters[provider] = l
	}
	return l
}

// fetchJSON performs an authenticated GET against a provider endpoint,
// applying the rate limiter, the retry policy and the failure taxonomy.
// Scope errors get the required set filled in by the calling adapter.
func fetchJSON(ctx context.Context, providerName, accessToken, url string, requiredScopes []string) (gjson.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return gjson.Result{}, transient(providerName, ctx.Err())
			case <-time.After(retryBackoff[attempt-1]):
			}
		}

		if err := limiterFor(providerName).Wait(ctx); err != nil {
			return gjson.Result{}, transient(providerName, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return gjson.Result{}, permanent(providerName, err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = transient(providerName, err)
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = transient(providerName, readErr)
				continue
			}
			return gjson.ParseBytes(body), nil
		case resp.StatusCode == http.StatusUnauthorized:
			return gjson.Result{}, permanent(providerName, fmt.Errorf("token invalid or revoked (status 401)"))
		case resp.StatusCode == http.StatusForbidden:
			return gjson.Result{}, scopeMismatch(providerName, requiredScopes, acceptedScopesFromBody(body))
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = transient(providerName, fmt.Errorf("status %d", resp.StatusCode))
			continue
		default:
			return gjson.Result{}, permanent(providerName, fmt.Errorf("status %d: %s", resp.StatusCode, body))
		}
	}
	return gjson.Result{}, lastErr
}

// acceptedScopesFromBody pulls the scope list some providers echo in their
// insufficient-scope error payloads. Absent fields yield an empty set.
func acceptedScopesFromBody(body []byte) []string {
	parsed := gjson.ParseBytes(body)
	for _, path := range []string{"scope", "scopes", "errors.0.scopes"} {
		field := parsed.Get(path)
		if !field.Exists() {
			continue
		}
		if field.IsArray() {
			var out []string
			for _, s := range field.Array() {
				out = append(out, s.String())
			}
			return out
		}
		if s := field.String(); s != "" {
			return splitScopes(s)
		}
	}
	return nil
}

func splitScopes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
}

// mapRecords converts the record array of a provider response into typed
// records, extracting only the requested attributes via their gjson origin
// paths. Values that are absent or fail to parse are left out of the
// record; the evaluator treats a missing attribute as a non-match.
func mapRecords(cat *catalog.Category, attrs []string, body gjson.Result) []rules.Record {
	items := body.Get(cat.RecordsPath).Array()
	out := make([]rules.Record, 0, len(items))
	for _, item := range items {
		rec := rules.Record{}
		for _, name := range attrs {
			attr, ok := cat.Attribute(name)
			if !ok {
				continue
			}
			raw := item.Get(attr.Origin)
			if !raw.Exists() {
				continue
			}
			switch attr.Type {
			case rules.TypeNumber:
				rec[name] = rules.Number(raw.Float())
			case rules.TypeDate:
				if v, err := rules.ParseTyped(rules.TypeDate, raw.String()); err == nil {
					rec[name] = v
				}
			case rules.TypeText:
				rec[name] = rules.Text(raw.String())
			}
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out
}
