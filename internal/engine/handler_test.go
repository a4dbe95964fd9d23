package engine

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudkit/internal/logger"
	"crudkit/internal/query"
)

func testApp(t *testing.T) *fiber.App {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewResource(newPersonService(t, nil), Int64ID)))

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.Discard())})
	RegisterRoutes(app, NewHandler(reg, query.DefaultLimits, logger.Discard()))
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("database on fire") })
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHandler_CRUD(t *testing.T) {
	app := testApp(t)

	status, body := doRequest(t, app, http.MethodPost, "/api/people", `{"name":"alice","age":25,"status":"ACTIVE"}`)
	require.Equal(t, http.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["id"])

	status, body = doRequest(t, app, http.MethodPost, "/api/people/batch",
		`[{"name":"albert","age":35,"status":"ACTIVE"},{"name":"bob","age":40,"status":"INACTIVE"}]`)
	require.Equal(t, http.StatusCreated, status)
	assert.Len(t, body["data"], 2)

	status, body = doRequest(t, app, http.MethodGet, "/api/people?age=30,GREATER_THAN&name=al,LIKE", "")
	require.Equal(t, http.StatusOK, status)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "albert", results[0].(map[string]any)["name"])
	pageInfo := body["pageInfo"].(map[string]any)
	assert.Equal(t, float64(1), pageInfo["totalItems"])
	assert.Len(t, pageInfo["filters"], 2)

	status, body = doRequest(t, app, http.MethodGet, "/api/people/2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "albert", body["data"].(map[string]any)["name"])

	status, body = doRequest(t, app, http.MethodPatch, "/api/people/2", `{"name":"Bert"}`)
	require.Equal(t, http.StatusOK, status)
	data = body["data"].(map[string]any)
	assert.Equal(t, "Bert", data["name"])
	assert.Equal(t, float64(35), data["age"])

	status, body = doRequest(t, app, http.MethodPut, "/api/people/2", `{"name":"Bertie","age":36,"status":"ACTIVE"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(36), body["data"].(map[string]any)["age"])

	status, body = doRequest(t, app, http.MethodDelete, "/api/people/3", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob", body["data"].(map[string]any)["name"])

	status, body = doRequest(t, app, http.MethodDelete, "/api/people", `[1, "2", 99]`)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, body = doRequest(t, app, http.MethodDelete, "/api/people", `[99]`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestHandler_Errors(t *testing.T) {
	app := testApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown entity", http.MethodGet, "/api/ghosts", "", 404, "UNKNOWN_ENTITY"},
		{"invalid id", http.MethodGet, "/api/people/abc", "", 400, "INVALID_ID"},
		{"missing record", http.MethodGet, "/api/people/42", "", 404, "NOT_FOUND"},
		{"empty body", http.MethodPost, "/api/people", "", 400, "INVALID_PAYLOAD"},
		{"malformed body", http.MethodPost, "/api/people", `{"name":`, 400, "INVALID_PAYLOAD"},
		{"unknown body field", http.MethodPost, "/api/people", `{"nickname":"x"}`, 400, "INVALID_PAYLOAD"},
		{"batch delete needs array", http.MethodDelete, "/api/people", `{"id":1}`, 400, "INVALID_PAYLOAD"},
		{"internal error is hidden", http.MethodGet, "/boom", "", 500, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}
}

func TestHandler_Conflict(t *testing.T) {
	app := testApp(t)

	status, _ := doRequest(t, app, http.MethodPost, "/api/people", `{"name":"alice","age":25,"status":"ACTIVE"}`)
	require.Equal(t, http.StatusCreated, status)
	status, body := doRequest(t, app, http.MethodPost, "/api/people", `{"name":"alice","age":26,"status":"ACTIVE"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))
}

func TestHandler_Schema(t *testing.T) {
	app := testApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/api/_schema", "")
	require.Equal(t, http.StatusOK, status)
	all := body["data"].([]any)
	require.Len(t, all, 1)
	assert.Equal(t, "people", all[0].(map[string]any)["name"])

	status, body = doRequest(t, app, http.MethodGet, "/api/_schema/people", "")
	require.Equal(t, http.StatusOK, status)
	desc := body["data"].(map[string]any)
	assert.Equal(t, "people", desc["table"])
	assert.Equal(t, "id", desc["primary_key"])

	status, body = doRequest(t, app, http.MethodGet, "/api/_schema/ghosts", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "UNKNOWN_ENTITY", errorCode(body))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	r := NewResource(newPersonService(t, nil), Int64ID)
	require.NoError(t, reg.Register(r))
	assert.Error(t, reg.Register(r))

	got, ok := reg.Get("people")
	require.True(t, ok)
	assert.Equal(t, "people", got.Name())
	_, ok = reg.Get("ghosts")
	assert.False(t, ok)
	assert.Len(t, reg.All(), 1)
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList([]byte(`[1, "2", "3f2c"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3f2c"}, ids)

	_, err = parseIDList([]byte(`1`))
	assert.Error(t, err)
}
