package ghclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	retry "github.com/avast/retry-go/v5"
	"github.com/rs/zerolog/log"

	"github.com/sasank-xyz/github-for-jira/internal/metrics"
)

const graphQLRateLimitedType = "RATE_LIMITED"

// GraphQLRequest is a GraphQL query sent on behalf of an installation.
type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`

	// ExpensiveField names a field GitHub sometimes fails to compute for large
	// payloads (e.g. "changedFiles"). If an error mentions it and Fallback is set,
	// the query is sent once more as Fallback, which should omit the field.
	ExpensiveField string          `json:"-"`
	Fallback       *GraphQLRequest `json:"-"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Query runs req as the installation and decodes the "data" member into out (if non-nil).
//
// Errors are *RateLimitedError for rate limiting, *QueryError for any other GraphQL
// error and *HTTPError for non-2xx responses without GraphQL errors.
func (c *Client) Query(ctx context.Context, installationID int64, req GraphQLRequest, out any) error {
	logger := log.Ctx(ctx).With().Int64("installation_id", installationID).Logger()
	httpClient := &http.Client{
		Transport: c.installationTransport(installationID),
		Timeout:   c.timeout,
	}

	attempt := 0
	data, err := retry.NewWithData[json.RawMessage](
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var fieldErr *fieldTooExpensiveError
			return req.Fallback != nil && errors.As(err, &fieldErr)
		}),
		retry.OnRetry(func(_ uint, err error) {
			metrics.GraphQLRetries.Inc()
			logger.Info().Err(err).Msg("retrying graphql query without expensive field")
		}),
	).Do(func() (json.RawMessage, error) {
		body := req
		if attempt > 0 {
			body = *req.Fallback
		}
		attempt++
		return c.postGraphQL(ctx, httpClient, body)
	})
	if err != nil {
		var fieldErr *fieldTooExpensiveError
		if errors.As(err, &fieldErr) {
			return fieldErr.query
		}
		return err
	}

	if out == nil || len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding graphql data: %w", err)
	}
	return nil
}

func (c *Client) postGraphQL(ctx context.Context, httpClient *http.Client, req GraphQLRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling graphql request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating graphql request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("graphql request failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading graphql response (status %d): %w", resp.StatusCode, err)
	}

	var result graphQLResponse
	decodeErr := json.Unmarshal(body, &result)

	if len(result.Errors) > 0 {
		return nil, classifyGraphQLErrors(resp, result.Errors, req.ExpensiveField)
	}
	if isRateLimitedResponse(resp) {
		metrics.RateLimited.WithLabelValues("graphql").Inc()
		return nil, &RateLimitedError{Message: strings.TrimSpace(string(body)), Response: resp}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpError(resp.StatusCode, fmt.Errorf("graphql request failed with status %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding graphql response: %w", decodeErr)
	}
	return result.Data, nil
}

// classifyGraphQLErrors turns the errors of a response into one of the error kinds of Query.
func classifyGraphQLErrors(resp *http.Response, errs []GraphQLError, expensiveField string) error {
	for _, e := range errs {
		if e.Type == graphQLRateLimitedType {
			metrics.RateLimited.WithLabelValues("graphql").Inc()
			return &RateLimitedError{Message: e.Message, Response: resp}
		}
	}

	queryErr := newQueryError(errs)
	if expensiveField != "" {
		for _, e := range errs {
			if strings.Contains(e.Message, expensiveField) {
				return &fieldTooExpensiveError{field: expensiveField, query: queryErr}
			}
		}
	}
	return queryErr
}

// isRateLimitedResponse detects primary (exhausted quota) and secondary (429) rate limits.
func isRateLimitedResponse(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != ""
	}
	return false
}
