package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Filter is an equality predicate on one column.
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Order sorts a select by one column.
type Order struct {
	Column     string
	Descending bool
}

// Query describes a select: equality filters, optional ordering and an optional limit.
type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int // 0 means no limit
}

// RestClient is the data access adapter for the remote catalog store. It talks to
// the project's PostgREST endpoint; every call is exactly one HTTP request, with
// no retries and no timeout beyond the caller's context.
type RestClient struct {
	projectURL string
	apiKey     string
	httpClient *http.Client
}

// NewRestClient creates a client for the project at projectURL authenticated
// with the project's public key. A nil httpClient uses http.DefaultClient.
func NewRestClient(projectURL, apiKey string, httpClient *http.Client) (*RestClient, error) {
	projectURL = strings.TrimRight(strings.TrimSpace(projectURL), "/")
	if projectURL == "" || apiKey == "" {
		return nil, ErrMissingEndpoint
	}
	if _, err := url.Parse(projectURL); err != nil {
		return nil, fmt.Errorf("store: invalid project URL: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RestClient{projectURL: projectURL, apiKey: apiKey, httpClient: httpClient}, nil
}

// ProjectURL returns the normalized project URL.
func (c *RestClient) ProjectURL() string {
	return c.projectURL
}

// Select reads rows of table matching q and decodes the JSON array into dest.
func (c *RestClient) Select(ctx context.Context, table string, q Query, dest any) error {
	params := url.Values{}
	params.Set("select", "*")
	for _, f := range q.Filters {
		params.Add(f.Column, "eq."+formatValue(f.Value))
	}
	if q.Order != nil {
		direction := "asc"
		if q.Order.Descending {
			direction = "desc"
		}
		params.Set("order", q.Order.Column+"."+direction)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return c.do(ctx, http.MethodGet, table, params, nil, dest)
}

// Insert writes rows (a slice of payloads) into table. When dest is non-nil the
// created rows are decoded into it; otherwise the store is asked not to return them.
func (c *RestClient) Insert(ctx context.Context, table string, rows any, dest any) error {
	return c.do(ctx, http.MethodPost, table, nil, rows, dest)
}

// Update applies payload to the row of table with the given id.
func (c *RestClient) Update(ctx context.Context, table, id string, payload any, dest any) error {
	params := url.Values{}
	params.Set("id", "eq."+id)
	return c.do(ctx, http.MethodPatch, table, params, payload, dest)
}

// Delete removes the row of table with the given id.
func (c *RestClient) Delete(ctx context.Context, table, id string, dest any) error {
	params := url.Values{}
	params.Set("id", "eq."+id)
	return c.do(ctx, http.MethodDelete, table, params, nil, dest)
}

// Ping checks that the REST endpoint answers with the configured key.
func (c *RestClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.projectURL+"/rest/v1/", nil)
	if err != nil {
		return fmt.Errorf("store: build ping request: %w", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("store: ping returned status %d", resp.StatusCode)}
	}
	return nil
}

func (c *RestClient) do(ctx context.Context, method, table string, params url.Values, payload any, dest any) error {
	prefer := ""
	if method != http.MethodGet {
		prefer = "return=minimal"
		if dest != nil {
			prefer = "return=representation"
		}
	}
	return c.send(ctx, method, "/rest/v1/"+url.PathEscape(table), params, payload, dest, prefer)
}

// Call issues one JSON request against another service of the same project,
// e.g. "/auth/v1/token". Authorization follows the same rules as table calls.
func (c *RestClient) Call(ctx context.Context, method, path string, params url.Values, payload any, dest any) error {
	return c.send(ctx, method, path, params, payload, dest, "")
}

func (c *RestClient) send(ctx context.Context, method, path string, params url.Values, payload any, dest any, prefer string) error {
	endpoint := c.projectURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("store: encode %s payload: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("store: build %s %s request: %w", method, path, err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("store: read %s response: %w", path, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if dest == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("store: decode %s response: %w", path, err)
	}
	return nil
}

// authorize sets the project key and the bearer token: the signed-in user's
// token when the request context carries one, the public key otherwise.
func (c *RestClient) authorize(req *http.Request) {
	token, ok := AccessToken(req.Context())
	if !ok {
		token = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
}

// decodeAPIError understands the PostgREST ({"message","code"}), storage
// ({"error","message","statusCode"}) and auth ({"msg","error_code"} or
// {"error","error_description"}) error bodies.
func decodeAPIError(status int, raw []byte) error {
	var body struct {
		Message          string          `json:"message"`
		Code             json.RawMessage `json:"code"`
		ErrorCode        string          `json:"error_code"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Msg              string          `json:"msg"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	switch {
	case body.Message != "":
		apiErr.Message = body.Message
	case body.ErrorDescription != "":
		apiErr.Message = body.ErrorDescription
	case body.Msg != "":
		apiErr.Message = body.Msg
	default:
		apiErr.Message = body.Error
	}

	// auth responses carry a numeric "code" next to a string "error_code"
	var code string
	if json.Unmarshal(body.Code, &code) != nil {
		code = ""
	}
	switch {
	case body.ErrorCode != "":
		apiErr.Code = body.ErrorCode
	case code != "":
		apiErr.Code = code
	default:
		apiErr.Code = body.Error
	}
	return apiErr
}

func formatValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprint(value)
	}
}
