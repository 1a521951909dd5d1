package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/service"
	"github.com/zakerytclarke/teapot/internal/testutil"
)

func newTestRouter(t *testing.T, respond func(string) (string, error)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	settings := domain.DefaultSettings()
	settings.TopK = 1
	engine, err := service.New(service.Options{
		Settings:  settings,
		Embedder:  testutil.LandmarkEmbedder(),
		Generator: &testutil.Generator{Respond: respond},
	})
	require.NoError(t, err)
	_, err = engine.Rebuild(context.Background(), testutil.Docs(testutil.EiffelTower, testutil.GreatWall))
	require.NoError(t, err)
	return NewRouter(NewQueryHandler(engine))
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func fixed(answer string) func(string) (string, error) {
	return func(string) (string, error) { return answer, nil }
}

func TestHealthz(t *testing.T) {
	code, out := do(t, newTestRouter(t, fixed("")), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", out["status"])
	require.EqualValues(t, 2, out["documents"])
}

func TestQueryEndpoint(t *testing.T) {
	r := newTestRouter(t, fixed("Paris."))
	code, out := do(t, r, http.MethodPost, "/api/query", `{"query":"What landmark was constructed in the 1800s?"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Paris.", out["answer"])
	sources := out["sources"].([]any)
	require.Len(t, sources, 1)
	doc := sources[0].(map[string]any)["document"].(map[string]any)
	require.Equal(t, testutil.EiffelTower, doc["text"])

	code, _ = do(t, r, http.MethodPost, "/api/query", `{"query":"  "}`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestChatEndpoint(t *testing.T) {
	var seen string
	r := newTestRouter(t, func(p string) (string, error) {
		seen = p
		return "ok", nil
	})
	code, _ := do(t, r, http.MethodPost, "/api/chat", `{"messages":[
		{"role":"human","content":"hi"},
		{"role":"bot","content":"hello"},
		{"role":"user","content":"Which wall stretches for miles?"}]}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, testutil.GreatWall+"\nuser: hi\nassistant: hello\nWhich wall stretches for miles?", seen)

	code, out := do(t, r, http.MethodPost, "/api/chat", `{"messages":[{"role":"robot","content":"x"}]}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, out["error"], "robot")
}

func TestExtractEndpoint(t *testing.T) {
	r := newTestRouter(t, func(p string) (string, error) {
		if strings.Contains(p, "field built") {
			return "1889", nil
		}
		return "unknown", nil
	})
	code, out := do(t, r, http.MethodPost, "/api/extract", `{"query":"When was the tower built?","schema":{"name":"landmark","fields":[
		{"name":"built","type":"integer"},
		{"name":"architect","type":"text","optional":true}]}}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]any{"built": 1889.0, "architect": "unknown"}, out["record"])

	code, out = do(t, r, http.MethodPost, "/api/extract", `{"schema":{"name":"x","fields":[{"name":"height","type":"float"}]}}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Len(t, out["problems"], 1)

	code, _ = do(t, r, http.MethodPost, "/api/extract", `{"schema":{"name":"x","fields":[{"name":"when","type":"date"}]}}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, out = do(t, r, http.MethodPost, "/api/extract", `{"schema":{"name":"x","fields":[
		{"name":"height","type":"float"},
		{"name":"height","type":"integer"}]}}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, out["error"], "twice")

	code, _ = do(t, r, http.MethodPost, "/api/extract", `{"schema":{"name":"x","fields":[{"name":" ","type":"text"}]}}`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestRetrieveEndpoint(t *testing.T) {
	r := newTestRouter(t, fixed(""))
	code, out := do(t, r, http.MethodPost, "/api/retrieve", `{"query":"tea ceremony"}`)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, out["documents"])
}
