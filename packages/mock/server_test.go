package mock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amblessed/employees-harness/packages/config"
	"github.com/amblessed/employees-harness/packages/harness"
)

func startMock(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer()
	s.Seed(40, 7)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestMock_HealthAndAuth(t *testing.T) {
	_, ts := startMock(t)

	t.Run("health is open", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/actuator/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("listing requires credentials", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/employees")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

// The mock exists to exercise the harness end to end: seed it, point a
// session at it, and run real case collections against it.
func TestMock_DrivesFullHarnessRun(t *testing.T) {
	mockSrv, ts := startMock(t)

	dir := t.TempDir()
	require.NoError(t, mockSrv.WriteUserDetails(filepath.Join(dir, harness.IdentityFileName)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "smoke.json"), []byte(`{
		"GET": [
			{
				"story": "Get All Employees",
				"type": "Positive Test",
				"endpoint": "",
				"params": {"pageNumber": "1", "pageSize": "10"},
				"expected_status": 200,
				"check_field": "employees",
				"user_role": "Admin"
			},
			{
				"story": "Get Employee By ID",
				"type": "Positive Test",
				"endpoint": "/id/RANDOM_VALID_ID",
				"expected_status": 200,
				"expected_detail": "Employee found successfully",
				"check_field": "employee",
				"user_role": "Manager",
				"access_target": "other"
			},
			{
				"story": "Get Employee By Invalid ID",
				"type": "Negative Test",
				"endpoint": "/id/RANDOM_INVALID_ID",
				"expected_status": 404,
				"expected_detail": "Employee not found with id: RANDOM_INVALID_ID",
				"user_role": "Admin"
			},
			{
				"story": "Anonymous Is Rejected",
				"type": "Negative Test",
				"endpoint": "",
				"expected_status": 401,
				"expected_detail": "Full authentication is required to access this resource",
				"user_role": "Guest"
			}
		],
		"DELETE": [
			{
				"story": "Employee Cannot Delete",
				"type": "Negative Test",
				"endpoint": "/id/RANDOM_VALID_ID",
				"expected_status": 403,
				"expected_detail": "Access Denied",
				"user_role": "Employee",
				"access_target": "other"
			}
		]
	}`), 0644))

	cfg := config.DefaultConfig()
	cfg.BaseURL = ts.URL + "/api/employees"
	cfg.ResourceDir = dir
	cfg.Seed = 11

	session, err := harness.NewSession(cfg)
	require.NoError(t, err)
	defer session.Close()

	result, err := harness.NewRunner(session).RunCollection(context.Background(), "smoke.json")
	require.NoError(t, err)

	require.Len(t, result.Cases, 5)
	for _, cr := range result.Cases {
		assert.True(t, cr.Passed(), "%s: err=%v result=%v", cr.Case.Story, cr.Err, cr.Result)
	}
}

func TestMock_CreateAndDuplicateEmail(t *testing.T) {
	s := NewServer()
	s.Seed(5, 3)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	var adminID string
	for id, u := range s.users {
		if u.Role == "ROLE_ADMIN" {
			adminID = id
			break
		}
	}
	if adminID == "" {
		// Small seeds may roll no admin; promote one directly.
		for id, u := range s.users {
			u.Role = "ROLE_ADMIN"
			s.users[id] = u
			adminID = id
			break
		}
	}

	post := func(body string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/employees", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(adminID, DefaultPassword)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := post(`{"firstName": "Ada", "lastName": "Lovelace", "email": "ada.lovelace@gmail.com"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	dup := post(`{"firstName": "Ada", "lastName": "Again", "email": "ada.lovelace@gmail.com"}`)
	defer dup.Body.Close()
	assert.Equal(t, http.StatusConflict, dup.StatusCode)
}
