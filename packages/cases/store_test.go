package cases

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeResource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStore_Load_MethodKeyed(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, "testcases.json", `{
		"GET": [
			{"story": "Get All Employees", "type": "Positive Test",
			 "endpoint": "", "params": {"pageNumber": "1", "pageSize": "10"},
			 "expected_status": 200, "check_field": "employees"}
		],
		"DELETE": [
			{"story": "Delete Employee", "type": "Positive Test",
			 "endpoint": "RANDOM_VALID_ID", "expected_status": 200,
			 "user_role": "Admin", "access_target": "other"}
		]
	}`)

	store, err := NewStore(WithResourceDir(dir))
	require.NoError(t, err)

	col, err := store.Load("testcases.json")
	require.NoError(t, err)

	assert.Equal(t, 2, col.Len())
	gets := col.ForMethod(GET)
	require.Len(t, gets, 1)
	assert.Equal(t, "Get All Employees", gets[0].Story)
	assert.Equal(t, GET, gets[0].Method)
	assert.Equal(t, 10, gets[0].DeclaredPageSize())

	dels := col.ForMethod(DELETE)
	require.Len(t, dels, 1)
	assert.Equal(t, RoleAdmin, dels[0].UserRole)
	assert.Equal(t, AccessOther, dels[0].AccessTarget)
}

func TestStore_Load_FlatArray(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, "testcases_security.json", `[
		{"story": "Employee cannot access other record", "type": "Negative Test",
		 "method": "GET", "endpoint": "RANDOM_VALID_ID",
		 "expected_status": 403, "expected_detail": "Access Denied",
		 "user_role": "Employee", "access_target": "other"},
		{"story": "Guest authentication rejected", "type": "Negative Test",
		 "method": "GET", "endpoint": "", "expected_status": 401,
		 "user_role": "Guest"}
	]`)

	store, err := NewStore(WithResourceDir(dir))
	require.NoError(t, err)

	col, err := store.Load("testcases_security.json")
	require.NoError(t, err)

	all := col.All()
	require.Len(t, all, 2)
	assert.Equal(t, Negative, all[0].Type)
	assert.Equal(t, AccessOther, all[0].AccessTarget)
	assert.Equal(t, RoleGuest, all[1].UserRole)

	// Flat collections still answer method queries.
	assert.Len(t, col.ForMethod(GET), 2)
	assert.Empty(t, col.ForMethod(POST))
}

func TestStore_Load_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, "testcases.json", `[
		{"story": "s", "type": "Positive Test", "method": "GET",
		 "endpoint": "", "expected_status": 200}
	]`)

	store, err := NewStore(WithResourceDir(dir))
	require.NoError(t, err)

	first, err := store.Load("testcases.json")
	require.NoError(t, err)
	second, err := store.Load("testcases.json")
	require.NoError(t, err)
	assert.Equal(t, first.All(), second.All())
}

func TestStore_Load_MalformedJSONYieldsEmptyCollection(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, "broken.json", `{"GET": [{]`)

	var logged []string
	store, err := NewStore(WithResourceDir(dir), WithLogf(func(format string, args ...any) {
		logged = append(logged, format)
	}))
	require.NoError(t, err)

	col, err := store.Load("broken.json")
	require.NoError(t, err)
	assert.Equal(t, 0, col.Len())
	assert.NotEmpty(t, logged, "decode error should be logged")
}

func TestStore_Load_Missing(t *testing.T) {
	store, err := NewStore(WithResourceDir(t.TempDir()))
	require.NoError(t, err)

	_, err = store.Load("nope.json")
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestStore_Find_SearchesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, filepath.Join("nested", "deeper", "cases.json"), `[]`)

	store, err := NewStore(WithResourceDir(dir))
	require.NoError(t, err)

	path, err := store.Find("cases.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "deeper", "cases.json"), path)
}

func TestSearchDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ResourceDirEnv, dir)

	found, err := SearchDir()
	require.NoError(t, err)
	assert.Equal(t, dir, found)
}

func TestStore_Load_DropsInvalidCases(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, "testcases.json", `[
		{"story": "ok", "type": "Positive Test", "method": "GET",
		 "endpoint": "", "expected_status": 200},
		{"story": "bad method", "type": "Positive Test", "method": "PATCH",
		 "endpoint": "", "expected_status": 200},
		{"story": "bad type", "type": "Maybe Test", "method": "GET",
		 "endpoint": "", "expected_status": 200}
	]`)

	store, err := NewStore(WithResourceDir(dir), WithLogf(func(string, ...any) {}))
	require.NoError(t, err)

	col, err := store.Load("testcases.json")
	require.NoError(t, err)
	require.Equal(t, 1, col.Len())
	assert.Equal(t, "ok", col.All()[0].Story)
}
