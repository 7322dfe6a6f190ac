package httpexec

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amblessed/employees-harness/packages/cases"
	"github.com/amblessed/employees-harness/packages/identity"
)

func TestExecute_AppliesBasicAuthAndParams(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	var gotQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"employees": []}`))
	}))
	defer server.Close()

	c := &cases.TestCase{
		Method:   cases.GET,
		Endpoint: "",
		Params:   map[string]string{"pageNumber": "1", "pageSize": "10"},
	}
	actor := identity.Identity{UserID: "EMP001", Password: "fun123"}

	req, err := BuildRequest(server.URL, c, actor)
	require.NoError(t, err)

	resp, err := NewClient().Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, gotOK)
	assert.Equal(t, "EMP001", gotUser)
	assert.Equal(t, "fun123", gotPass)
	assert.Equal(t, []string{"1"}, gotQuery["pageNumber"])
	assert.Equal(t, []string{"10"}, gotQuery["pageSize"])
	assert.True(t, resp.IsSuccess())
	assert.GreaterOrEqual(t, resp.DurationMs(), int64(0))
}

func TestExecute_AnonymousSendsNoAuthorization(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, sawAuth = r.BasicAuth()
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := &cases.TestCase{Method: cases.GET, Endpoint: ""}
	req, err := BuildRequest(server.URL, c, identity.Anonymous())
	require.NoError(t, err)

	resp, err := NewClient().Execute(context.Background(), req)
	require.NoError(t, err, "an unauthenticated request is still well-formed")
	assert.Equal(t, 401, resp.StatusCode)
	assert.False(t, sawAuth)
}

func TestExecute_BlankPasswordStillAuthenticates(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := &cases.TestCase{Method: cases.GET, Endpoint: ""}
	req, err := BuildRequest(server.URL, c, identity.Identity{UserID: "EMP009"})
	require.NoError(t, err)

	_, err = NewClient().Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, gotOK, "an empty secret must still be sent as basic auth")
	assert.Equal(t, "EMP009", gotUser)
	assert.Empty(t, gotPass)
}

func TestExecute_BodyHandlingByMethod(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	actor := identity.Identity{UserID: "ADM001", Password: "fun123"}
	payload := cases.Payload{Fields: map[string]any{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada.lovelace@gmail.com",
	}}

	t.Run("POST attaches JSON body", func(t *testing.T) {
		c := &cases.TestCase{Method: cases.POST, Payload: payload}
		req, err := BuildRequest(server.URL, c, actor)
		require.NoError(t, err)

		_, err = NewClient().Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "application/json", gotContentType)

		var decoded map[string]string
		require.NoError(t, json.Unmarshal(gotBody, &decoded))
		assert.Equal(t, "Ada", decoded["firstName"])
	})

	t.Run("PUT attaches JSON body", func(t *testing.T) {
		c := &cases.TestCase{Method: cases.PUT, Payload: payload}
		req, err := BuildRequest(server.URL, c, actor)
		require.NoError(t, err)
		assert.NotEmpty(t, req.Body)
	})

	t.Run("GET ignores payload", func(t *testing.T) {
		c := &cases.TestCase{Method: cases.GET, Payload: payload}
		req, err := BuildRequest(server.URL, c, actor)
		require.NoError(t, err)
		assert.Empty(t, req.Body)

		_, err = NewClient().Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, gotBody)
		assert.Empty(t, gotContentType)
	})

	t.Run("DELETE ignores payload", func(t *testing.T) {
		c := &cases.TestCase{Method: cases.DELETE, Payload: payload}
		req, err := BuildRequest(server.URL, c, actor)
		require.NoError(t, err)
		assert.Empty(t, req.Body)
	})
}

func TestExecute_TransportErrorIsDistinct(t *testing.T) {
	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := &cases.TestCase{Method: cases.GET}
	req, err := BuildRequest(url, c, identity.Identity{UserID: "EMP001", Password: "fun123"})
	require.NoError(t, err)

	_, err = NewClient().Execute(context.Background(), req)
	require.Error(t, err)

	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestExecute_NonSuccessStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "Employee not found with id: AAABBBCCC"}`))
	}))
	defer server.Close()

	c := &cases.TestCase{Method: cases.GET, Endpoint: "/id/AAABBBCCC"}
	req, err := BuildRequest(server.URL, c, identity.Identity{UserID: "EMP001", Password: "fun123"})
	require.NoError(t, err)

	resp, err := NewClient().Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Contains(t, resp.BodyString(), "Employee not found")
}

func TestExecute_RateLimit(t *testing.T) {
	var count int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithRateLimit(50))
	c := &cases.TestCase{Method: cases.GET}
	actor := identity.Identity{UserID: "EMP001", Password: "fun123"}

	start := time.Now()
	for i := 0; i < 3; i++ {
		req, err := BuildRequest(server.URL, c, actor)
		require.NoError(t, err)
		_, err = client.Execute(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, count)
	// 50 rps with burst 1 forces at least ~40ms of pacing for 3 requests.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestBuildURL(t *testing.T) {
	r := &Request{URL: "http://localhost:9090/api/employees/search", QueryParams: map[string]string{
		"department": "Engineering", "position": "Manager", "salary": "50000",
	}}
	url := r.BuildURL()
	assert.Contains(t, url, "department=Engineering")
	assert.Contains(t, url, "position=Manager")
	assert.Contains(t, url, "salary=50000")

	plain := &Request{URL: "http://localhost:9090/api/employees"}
	assert.Equal(t, plain.URL, plain.BuildURL())
}
