package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHTTP struct {
	req  *http.Request
	resp *http.Response
	err  error
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) {
	m.req = req
	return m.resp, m.err
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestGenerateSuccess(t *testing.T) {
	mock := &mockHTTP{resp: jsonResponse(200, `{"response":"FILE: a.py\n` + "```" + `\nprint(1)\n` + "```" + `"}`)}
	c := NewClient("http://ollama:11434", WithHTTPClient(mock), WithModel("codellama"))

	out, err := c.Generate(context.Background(), "add a")
	require.NoError(t, err)
	assert.Contains(t, out, "FILE: a.py")

	// Request shape: POST /api/generate with model and non-streaming flag.
	require.NotNil(t, mock.req)
	assert.Equal(t, http.MethodPost, mock.req.Method)
	assert.Equal(t, "http://ollama:11434/api/generate", mock.req.URL.String())

	body, err := io.ReadAll(mock.req.Body)
	require.NoError(t, err)
	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, "codellama", sent["model"])
	assert.Equal(t, false, sent["stream"])
	assert.Equal(t, "add a", sent["prompt"])
	assert.InDelta(t, DefaultTemperature, sent["temperature"].(float64), 0.001)
}

func TestGenerateTransportError(t *testing.T) {
	mock := &mockHTTP{err: errors.New("connection refused")}
	c := NewClient("", WithHTTPClient(mock))

	_, err := c.Generate(context.Background(), "add a")
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, DefaultHost, genErr.Host)
}

func TestGenerateErrorStatus(t *testing.T) {
	mock := &mockHTTP{resp: jsonResponse(500, `{"error":"model not found"}`)}
	c := NewClient("", WithHTTPClient(mock))

	_, err := c.Generate(context.Background(), "add a")
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Error(), "status 500")
}

func TestGenerateMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>gateway error</html>"},
		{"missing response field", `{"done":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockHTTP{resp: jsonResponse(200, tt.body)}
			c := NewClient("", WithHTTPClient(mock))

			_, err := c.Generate(context.Background(), "add a")
			var genErr *GenerationError
			assert.ErrorAs(t, err, &genErr)
		})
	}
}

func TestClientDefaults(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, DefaultModel, c.Model())

	c = NewClient("", WithModel(""))
	assert.Equal(t, DefaultModel, c.Model(), "empty model keeps the default")
}
