package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// IVectorIndex is the remote similarity-search service. It is optional; an
// unconfigured index returns Enabled() == false and the retriever falls back
// to the local vectors.
type IVectorIndex interface {
	Enabled() bool
	Query(ctx context.Context, vector []float32, scope string, topK int) ([]Match, error)
	TopK() int
}

type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type queryRequest struct {
	Vector    []float32         `json:"vector"`
	TopK      int               `json:"topK"`
	Namespace string            `json:"namespace,omitempty"`
	Filter    map[string]string `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

type vectorIndexClient struct {
	host       string
	apiKey     string
	namespace  string
	topK       int
	httpClient *http.Client
}

func New() IVectorIndex {
	topK := 5
	if v := os.Getenv("VECTOR_INDEX_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			topK = n
		}
	}

	return &vectorIndexClient{
		host:      os.Getenv("VECTOR_INDEX_HOST"),
		apiKey:    os.Getenv("VECTOR_INDEX_API_KEY"),
		namespace: os.Getenv("VECTOR_INDEX_NAMESPACE"),
		topK:      topK,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *vectorIndexClient) Enabled() bool {
	return c.host != ""
}

func (c *vectorIndexClient) TopK() int {
	return c.topK
}

func (c *vectorIndexClient) Query(ctx context.Context, vector []float32, scope string, topK int) ([]Match, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("vector index not configured")
	}

	reqBody := queryRequest{
		Vector:    vector,
		TopK:      topK,
		Namespace: c.namespace,
	}
	if scope != "" {
		reqBody.Filter = map[string]string{"scope": scope}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/query", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vector index error: %s - %s", resp.Status, string(body))
	}

	var result queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return result.Matches, nil
}
