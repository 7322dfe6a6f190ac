package oracle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "employees.db")

	client, err := NewClient("sqlite://" + dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.db.Exec(`
		CREATE TABLE employees (
			user_id TEXT PRIMARY KEY,
			first_name TEXT, last_name TEXT, email TEXT,
			department TEXT, position TEXT, salary REAL
		);
		INSERT INTO employees VALUES
			('EMP001', 'Ada', 'Lovelace', 'ada.lovelace@gmail.com', 'Engineering', 'Manager', 95000),
			('EMP002', 'Grace', 'Hopper', 'grace.hopper@yahoo.com', 'Engineering', 'Manager', 45000),
			('EMP003', 'Alan', 'Turing', 'alan.turing@outlook.com', 'Research', 'Engineer', 72000);
	`)
	require.NoError(t, err)
	return client
}

func TestEmployeeByID(t *testing.T) {
	client := newTestClient(t)

	emp, err := client.EmployeeByID(context.Background(), "EMP001")
	require.NoError(t, err)
	assert.Equal(t, "Ada", emp.FirstName)
	assert.Equal(t, "Lovelace", emp.LastName)
	assert.Equal(t, "ada.lovelace@gmail.com", emp.Email)
}

func TestEmployeeByID_NotFound(t *testing.T) {
	client := newTestClient(t)

	_, err := client.EmployeeByID(context.Background(), "EMP999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAllEmployeesAndIDs(t *testing.T) {
	client := newTestClient(t)

	all, err := client.AllEmployees(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ids, err := client.AllIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"EMP001", "EMP002", "EMP003"}, ids)
}

func TestSearch_SalaryIsLowerBound(t *testing.T) {
	client := newTestClient(t)

	rows, err := client.Search(context.Background(), "Engineering", "Manager", 50000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "EMP001", rows[0].UserID)
	assert.GreaterOrEqual(t, rows[0].Salary, 50000.0)

	rows, err = client.Search(context.Background(), "Engineering", "Manager", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = client.Search(context.Background(), "Sales", "Manager", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSearch_OmittedFiltersAreWildcards(t *testing.T) {
	client := newTestClient(t)

	rows, err := client.Search(context.Background(), "Engineering", "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = client.Search(context.Background(), "", "Engineer", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "EMP003", rows[0].UserID)

	rows, err = client.Search(context.Background(), "", "", 50000)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = client.Search(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestCountEmployees(t *testing.T) {
	client := newTestClient(t)

	n, err := client.CountEmployees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		in         string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"sqlite://./test.db", "sqlite3", "./test.db", false},
		{"sqlite:./test.db", "sqlite3", "./test.db", false},
		{"postgres://u:p@localhost:5432/employeeDB", "postgres", "postgres://u:p@localhost:5432/employeeDB", false},
		{"mysql://u:p@localhost/db", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			driver, dsn, err := parseConnectionString(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}

func TestRebind(t *testing.T) {
	c := &Client{driverName: "postgres"}
	assert.Equal(t, "SELECT $1, $2", c.rebind("SELECT ?, ?"))

	c.driverName = "sqlite3"
	assert.Equal(t, "SELECT ?, ?", c.rebind("SELECT ?, ?"))
}
