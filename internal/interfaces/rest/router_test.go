package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kkkppp/p2proto/internal/application/services"
	"github.com/kkkppp/p2proto/internal/config"
	"github.com/kkkppp/p2proto/internal/domain/events"
	"github.com/kkkppp/p2proto/internal/infrastructure/database"
	"github.com/kkkppp/p2proto/internal/infrastructure/persistence"
	"github.com/kkkppp/p2proto/internal/interfaces/rest"
	"github.com/kkkppp/p2proto/pkg/auth"
)

const testSecret = "test-secret"

type testServer struct {
	t      *testing.T
	router *gin.Engine
	svc    *services.ServiceManager
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	conn, err := database.Open(ctx, &config.Config{DBDriver: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, persistence.MigrateCatalog(ctx, conn))

	svc := services.NewServiceManager(conn, services.Options{})
	tokens := auth.NewTokenManager(testSecret)
	token, err := tokens.GenerateToken(auth.UserSession{ID: 7, Name: "Ann"})
	require.NoError(t, err)

	return &testServer{t: t, router: rest.NewRouter(svc, tokens), svc: svc, token: token}
}

func (s *testServer) do(method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

func (s *testServer) createPersonTable() string {
	s.t.Helper()
	w, resp := s.do(http.MethodPost, "/api/tables", map[string]interface{}{
		"name":        "person",
		"label":       "Person",
		"pluralLabel": "People",
		"columns": []map[string]interface{}{
			{"name": "id", "domain": "AUTOINCREMENT", "primaryKey": true},
			{"name": "name", "domain": "TEXT"},
			{"name": "age", "domain": "INTEGER"},
			{"name": "secret", "domain": "PASSWORD"},
		},
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	result := resp["result"].(map[string]interface{})
	return result["componentId"].(string)
}

// MockSubscriber records events published on the bus
type MockSubscriber struct {
	mock.Mock
}

func (m *MockSubscriber) Handle(ctx context.Context, payload interface{}) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "bad token", header: "Bearer not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestRouter_Domains(t *testing.T) {
	s := newTestServer(t)
	w, resp := s.do(http.MethodGet, "/api/domains", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(10), data["count"])
	domains := data["domains"].([]interface{})
	first := domains[0].(map[string]interface{})
	assert.Equal(t, "UUID", first["name"])
	assert.Equal(t, "TEXT", first["sqlType"], "storage types follow the dialect")
}

func TestRouter_TableLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := s.createPersonTable()

	w, resp := s.do(http.MethodGet, "/api/tables/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	table := resp["table"].(map[string]interface{})
	assert.Equal(t, "person", table["name"])

	w, resp = s.do(http.MethodGet, "/api/tables", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["tables"], 1)

	w, _ = s.do(http.MethodPut, "/api/tables/"+id+"/labels", map[string]string{"label": "Human", "pluralLabel": "Humans"})
	require.Equal(t, http.StatusOK, w.Code)
	_, resp = s.do(http.MethodGet, "/api/tables/"+id, nil)
	assert.Equal(t, "Humans", resp["table"].(map[string]interface{})["pluralLabel"])

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"duplicate", http.MethodPost, "/api/tables", map[string]string{"name": "person"}, http.StatusConflict, ""},
		{"bad id", http.MethodGet, "/api/tables/nope", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown id", http.MethodGet, "/api/tables/7b0f1e1c-8f4b-4a57-9d7e-2f3d4c5b6a79", nil, http.StatusNotFound, ""},
		{"missing name", http.MethodPost, "/api/tables", map[string]string{"label": "x"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown domain", http.MethodPost, "/api/tables", map[string]interface{}{
			"name": "thing", "columns": []map[string]interface{}{{"name": "id", "domain": "MONEY"}},
		}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, resp["code"])
			}
		})
	}
}

func TestRouter_CreateTableDatabaseFailure(t *testing.T) {
	s := newTestServer(t)
	_, err := s.svc.DB().ExecContext(context.Background(), "CREATE TABLE person (id INTEGER)")
	require.NoError(t, err)

	w, resp := s.do(http.MethodPost, "/api/tables", map[string]string{"name": "person"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "operation failed", resp["error"], "driver text is not returned")
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "FAILED", data["status"])
	assert.NotEmpty(t, data["componentId"])
}

func TestRouter_RecordCRUD(t *testing.T) {
	s := newTestServer(t)
	s.createPersonTable()

	subscriber := new(MockSubscriber)
	subscriber.On("Handle", mock.Anything, mock.AnythingOfType("services.RecordEventPayload")).Return(nil)
	s.svc.EventBus.Subscribe(events.RecordCreated, subscriber.Handle)

	for _, body := range []map[string]interface{}{
		{"name": "Ann", "age": 31, "secret": "pw"},
		{"name": "Bob", "age": 17},
		{"name": "Cid", "age": 45},
	} {
		w, _ := s.do(http.MethodPost, "/api/data/person", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	subscriber.AssertNumberOfCalls(t, "Handle", 3)

	w, resp := s.do(http.MethodGet, "/api/data/person/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	record := resp["record"].(map[string]interface{})
	assert.Equal(t, "Ann", record["name"])
	assert.Equal(t, auth.PasswordMask, record["secret"])

	filter := url.QueryEscape(`{"column":"age","op":"GE","value":18}`)
	tests := []struct {
		name      string
		method    string
		path      string
		body      interface{}
		wantNames []string
	}{
		{"all", http.MethodGet, "/api/data/person", nil, []string{"Ann", "Bob", "Cid"}},
		{"criterion json", http.MethodGet, "/api/data/person?filter=" + filter, nil, []string{"Ann", "Cid"}},
		{"expression", http.MethodGet, "/api/data/person?where=" + url.QueryEscape("age < 40 && age > 20"), nil, []string{"Ann"}},
		{"terms", http.MethodGet, "/api/data/person?q=" + url.QueryEscape("age > 18") + "&q=" + url.QueryEscape("name = Cid"), nil, []string{"Cid"}},
		{"query body", http.MethodPost, "/api/data/person/query", map[string]interface{}{
			"criterion": map[string]interface{}{"column": "name", "op": "IN", "value": []string{"Bob", "Cid"}},
			"where":     "age > 20",
		}, []string{"Cid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := s.do(tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var names []string
			for _, r := range resp["records"].([]interface{}) {
				names = append(names, r.(map[string]interface{})["name"].(string))
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}

	w, _ = s.do(http.MethodPut, "/api/data/person/2", map[string]interface{}{"age": 18})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, resp = s.do(http.MethodGet, "/api/data/person/2", nil)
	assert.Equal(t, float64(18), resp["record"].(map[string]interface{})["age"])

	w, _ = s.do(http.MethodDelete, "/api/data/person/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/data/person/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RecordErrors(t *testing.T) {
	s := newTestServer(t)
	s.createPersonTable()

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"unknown table", http.MethodGet, "/api/data/nope", nil, http.StatusNotFound},
		{"unknown column", http.MethodPost, "/api/data/person", map[string]interface{}{"nickname": "x"}, http.StatusBadRequest},
		{"malformed value", http.MethodPost, "/api/data/person", map[string]interface{}{"age": "old"}, http.StatusBadRequest},
		{"bad filter json", http.MethodGet, "/api/data/person?filter=%7B", nil, http.StatusBadRequest},
		{"bad term", http.MethodGet, "/api/data/person?q=nonsense", nil, http.StatusBadRequest},
		{"raw sql from a client", http.MethodPost, "/api/data/person/query", map[string]interface{}{
			"criterion": map[string]interface{}{"sql": "1=1; DROP TABLE person"},
		}, http.StatusBadRequest},
		{"missing row update", http.MethodPut, "/api/data/person/99", map[string]interface{}{"age": 1}, http.StatusNotFound},
		{"missing row delete", http.MethodDelete, "/api/data/person/99", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestRouter_Formula(t *testing.T) {
	s := newTestServer(t)
	s.createPersonTable()

	w, resp := s.do(http.MethodPost, "/api/formula/validate", map[string]string{"table": "person", "formula": "upper($name)"})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "upper(name)", data["sql"])
	assert.Equal(t, []interface{}{"name"}, data["references"])

	w, resp = s.do(http.MethodPost, "/api/formula/validate", map[string]string{"table": "person", "formula": "upper($nope)"})
	require.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	assert.Equal(t, false, data["valid"])
	assert.NotEmpty(t, data["error"])

	w, _ = s.do(http.MethodPost, "/api/formula/validate", map[string]string{"table": "nope", "formula": "upper($name)"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = s.do(http.MethodPost, "/api/formula/preview", map[string]interface{}{
		"table": "person", "formula": "concat($name, '!')", "record": map[string]interface{}{"name": "Ann"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ann!", resp["data"].(map[string]interface{})["result"])

	w, resp = s.do(http.MethodGet, "/api/formula/functions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), resp["data"].(map[string]interface{})["count"])
}
