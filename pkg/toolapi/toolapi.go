package toolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// IToolAPI executes business tools against the external tool backend. Path
// templates use :param placeholders substituted from the call arguments;
// remaining arguments become the JSON body (non-GET) or the query string
// (GET).
type IToolAPI interface {
	Call(ctx context.Context, method, pathTemplate string, args map[string]interface{}) (json.RawMessage, error)
}

type toolAPIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New() IToolAPI {
	return &toolAPIClient{
		baseURL: strings.TrimRight(os.Getenv("TOOL_API_BASE_URL"), "/"),
		token:   os.Getenv("TOOL_API_TOKEN"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *toolAPIClient) Call(ctx context.Context, method, pathTemplate string, args map[string]interface{}) (json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("tool API base URL not configured")
	}

	path, remaining, err := resolvePath(pathTemplate, args)
	if err != nil {
		return nil, err
	}

	method = strings.ToUpper(method)
	endpoint := c.baseURL + path

	var body io.Reader
	if method == http.MethodGet {
		if len(remaining) > 0 {
			query := url.Values{}
			for k, v := range remaining {
				query.Set(k, fmt.Sprintf("%v", v))
			}
			endpoint += "?" + query.Encode()
		}
	} else {
		payload, err := json.Marshal(remaining)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("tool API error: %s - %s", resp.Status, string(respBody))
	}

	if len(respBody) == 0 {
		return json.RawMessage(`{}`), nil
	}

	return respBody, nil
}

// resolvePath substitutes :param segments from args and returns the resolved
// path plus the arguments that were not consumed by the template.
func resolvePath(pathTemplate string, args map[string]interface{}) (string, map[string]interface{}, error) {
	remaining := make(map[string]interface{}, len(args))
	for k, v := range args {
		remaining[k] = v
	}

	segments := strings.Split(pathTemplate, "/")
	for i, segment := range segments {
		if !strings.HasPrefix(segment, ":") {
			continue
		}

		name := segment[1:]
		value, ok := remaining[name]
		if !ok {
			return "", nil, fmt.Errorf("missing path parameter: %s", name)
		}

		segments[i] = url.PathEscape(fmt.Sprintf("%v", value))
		delete(remaining, name)
	}

	return strings.Join(segments, "/"), remaining, nil
}
