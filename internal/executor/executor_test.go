package executor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/studiowebux/ballast/internal/types"
)

func TestPrepare_EncodesBody(t *testing.T) {
	exec := New()

	tests := []struct {
		name        string
		endpoint    types.Endpoint
		wantMethod  types.Method
		wantBody    string
		wantCT      string
		wantHeaders int
	}{
		{
			name:       "no body",
			endpoint:   types.Endpoint{Name: "a", Method: "get", URL: "http://x"},
			wantMethod: types.MethodGet,
		},
		{
			name:        "string body verbatim",
			endpoint:    types.Endpoint{Name: "b", Method: "POST", URL: "http://x", Body: "plain text"},
			wantMethod:  types.MethodPost,
			wantBody:    "plain text",
			wantHeaders: 0,
		},
		{
			name:        "structured body as json",
			endpoint:    types.Endpoint{Name: "c", Method: "PUT", URL: "http://x", Body: map[string]any{"id": 1.0}},
			wantMethod:  types.MethodPut,
			wantBody:    `{"id":1}`,
			wantCT:      "application/json",
			wantHeaders: 1,
		},
		{
			name: "configured content type kept",
			endpoint: types.Endpoint{
				Name: "d", Method: "PATCH", URL: "http://x",
				Headers: map[string]string{"content-type": "application/merge-patch+json"},
				Body:    map[string]any{"id": 1.0},
			},
			wantMethod:  types.MethodPatch,
			wantBody:    `{"id":1}`,
			wantHeaders: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := exec.Prepare(&tt.endpoint)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, req.Method)
			assert.Equal(t, tt.wantBody, string(req.Body))
			assert.Len(t, req.Headers, tt.wantHeaders)
			if tt.wantCT != "" {
				assert.Equal(t, tt.wantCT, req.Headers["Content-Type"])
			}
		})
	}
}

func TestPrepare_InvalidMethod(t *testing.T) {
	_, err := New().Prepare(&types.Endpoint{Name: "bad", Method: "FETCH", URL: "http://x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.Contains(t, err.Error(), `endpoint "bad"`)
}

func TestDo_JSONResponse(t *testing.T) {
	var gotMethod, gotBody, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Token")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("X-Multi", "a")
		w.Header().Add("X-Multi", "b")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true,"items":[1,2]}`))
	}))
	defer server.Close()

	exec := New(WithLogger(zaptest.NewLogger(t)))
	req, err := exec.Prepare(&types.Endpoint{
		Name:    "create",
		Method:  "POST",
		URL:     server.URL,
		Headers: map[string]string{"X-Token": "secret"},
		Body:    map[string]any{"name": "widget"},
	})
	require.NoError(t, err)

	result := exec.Do(context.Background(), req)

	assert.True(t, result.Success)
	assert.Equal(t, http.StatusCreated, result.Status)
	assert.GreaterOrEqual(t, result.DurationMs, 0.0)
	assert.Equal(t, map[string]any{"ok": true, "items": []any{1.0, 2.0}}, result.ResponseBody)
	assert.Equal(t, "application/json", result.ResponseHeaders["Content-Type"])
	assert.Equal(t, "a, b", result.ResponseHeaders["X-Multi"])
	assert.Empty(t, result.Error)

	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, `{"name":"widget"}`, gotBody)
}

func TestDo_UnparsableBodyIsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	exec := New()
	req, err := exec.Prepare(&types.Endpoint{Name: "page", Method: "GET", URL: server.URL})
	require.NoError(t, err)

	result := exec.Do(context.Background(), req)
	assert.True(t, result.Success)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.False(t, result.HasBody())
	assert.NotEmpty(t, result.ResponseHeaders)
}

func TestDo_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	exec := New(WithLogger(zaptest.NewLogger(t)))
	req, err := exec.Prepare(&types.Endpoint{Name: "down", Method: "GET", URL: url})
	require.NoError(t, err)

	result := exec.Do(context.Background(), req)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.Status)
	assert.Nil(t, result.ResponseBody)
	assert.Nil(t, result.ResponseHeaders)
	assert.NotEmpty(t, result.Error)
	assert.GreaterOrEqual(t, result.DurationMs, 0.0)
}

func TestDo_InjectedClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Served-By", "fixture")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	exec := New(WithHTTPClient(server.Client()))
	req, err := exec.Prepare(&types.Endpoint{Name: "queue", Method: "POST", URL: server.URL})
	require.NoError(t, err)

	result := exec.Do(context.Background(), req)
	assert.True(t, result.Success)
	assert.Equal(t, http.StatusAccepted, result.Status)
	assert.Equal(t, "fixture", result.ResponseHeaders["X-Served-By"])
	assert.False(t, result.HasBody())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "12.50ms", FormatDuration(12.5))
	assert.Equal(t, "1.50s", FormatDuration(1500))
}
