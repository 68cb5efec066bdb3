package toolapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) IToolAPI {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("TOOL_API_BASE_URL", server.URL)
	t.Setenv("TOOL_API_TOKEN", "test-token")

	return New()
}

func TestCallSubstitutesPathParams(t *testing.T) {
	var gotPath, gotQuery, gotAuth string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"status":"confirmed"}`))
	})

	result, err := client.Call(context.Background(), "GET", "/bookings/:locator", map[string]interface{}{
		"locator": "ABC123",
		"verbose": true,
	})

	require.NoError(t, err)
	assert.Equal(t, "/bookings/ABC123", gotPath)
	assert.Equal(t, "verbose=true", gotQuery)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.JSONEq(t, `{"status":"confirmed"}`, string(result))
}

func TestCallMissingPathParam(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	})

	_, err := client.Call(context.Background(), "GET", "/bookings/:locator", map[string]interface{}{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing path parameter: locator")
}

func TestCallPostSendsRemainingArgsAsBody(t *testing.T) {
	var gotBody map[string]interface{}
	var gotMethod string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		payload, _ := io.ReadAll(r.Body)
		json.Unmarshal(payload, &gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"42"}`))
	})

	result, err := client.Call(context.Background(), "post", "/orders/:shop/items", map[string]interface{}{
		"shop": "main",
		"sku":  "X-9",
		"qty":  float64(2),
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, map[string]interface{}{"sku": "X-9", "qty": float64(2)}, gotBody)
	assert.JSONEq(t, `{"id":"42"}`, string(result))
}

func TestCallNon2xxReturnsErrorWithBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no such booking"}`))
	})

	_, err := client.Call(context.Background(), "GET", "/bookings/:locator", map[string]interface{}{
		"locator": "NOPE",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such booking")
}

func TestCallEmptyBodyBecomesEmptyObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	result, err := client.Call(context.Background(), "DELETE", "/sessions/:id", map[string]interface{}{
		"id": "s1",
	})

	require.NoError(t, err)
	assert.Equal(t, `{}`, string(result))
}

func TestCallUnconfiguredBaseURL(t *testing.T) {
	t.Setenv("TOOL_API_BASE_URL", "")
	client := New()

	_, err := client.Call(context.Background(), "GET", "/x", nil)

	require.Error(t, err)
}

func TestResolvePathEscapesValues(t *testing.T) {
	path, remaining, err := resolvePath("/files/:name", map[string]interface{}{
		"name": "a b/c",
	})

	require.NoError(t, err)
	assert.Equal(t, "/files/a%20b%2Fc", path)
	assert.Empty(t, remaining)
}
