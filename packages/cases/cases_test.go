package cases

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_UnmarshalToken(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`"RANDOM_EMPLOYEE"`), &p))
	assert.Equal(t, "RANDOM_EMPLOYEE", p.Token)
	assert.Nil(t, p.Fields)
	assert.False(t, p.IsZero())
}

func TestPayload_UnmarshalObject(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"firstName":"Ada","lastName":"Lovelace","email":"ada.lovelace@gmail.com"}`), &p))
	assert.Empty(t, p.Token)
	assert.Equal(t, "Ada", p.Field("firstName"))
	assert.Equal(t, "", p.Field("salary"))
}

func TestPayload_UnmarshalInvalid(t *testing.T) {
	var p Payload
	assert.Error(t, json.Unmarshal([]byte(`42`), &p))
}

func TestPayload_MarshalRoundTrip(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		data, err := json.Marshal(Payload{Token: "EXISTING_EMAIL"})
		require.NoError(t, err)
		assert.JSONEq(t, `"EXISTING_EMAIL"`, string(data))
	})
	t.Run("object", func(t *testing.T) {
		data, err := json.Marshal(Payload{Fields: map[string]any{"email": "x@y.z"}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"email":"x@y.z"}`, string(data))
	})
}

func TestMethod_HasBody(t *testing.T) {
	assert.True(t, POST.HasBody())
	assert.True(t, PUT.HasBody())
	assert.False(t, GET.HasBody())
	assert.False(t, DELETE.HasBody())
}

func TestRoleCategory_Known(t *testing.T) {
	assert.True(t, RoleEmployee.Known())
	assert.True(t, RoleGuest.Known())
	assert.False(t, RoleCategory("Superuser").Known())
}

func TestTestCase_Validate(t *testing.T) {
	valid := TestCase{Story: "s", Type: Positive, Method: GET, ExpectedStatus: 200}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*TestCase)
	}{
		{"unknown type", func(c *TestCase) { c.Type = "Sometimes Test" }},
		{"unknown method", func(c *TestCase) { c.Method = "PATCH" }},
		{"unknown access target", func(c *TestCase) { c.AccessTarget = "sibling" }},
		{"status out of range", func(c *TestCase) { c.ExpectedStatus = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestTestCase_Clone(t *testing.T) {
	orig := TestCase{
		Story:   "clone me",
		Type:    Positive,
		Method:  POST,
		Params:  map[string]string{"pageSize": "5"},
		Payload: Payload{Fields: map[string]any{"firstName": "Ada"}},
	}
	clone := orig.Clone()
	clone.Params["pageSize"] = "9"
	clone.Payload.Fields["firstName"] = "Grace"

	assert.Equal(t, "5", orig.Params["pageSize"])
	assert.Equal(t, "Ada", orig.Payload.Field("firstName"))
}

func TestTestCase_DeclaredPageSize(t *testing.T) {
	c := TestCase{PageSize: 25}
	assert.Equal(t, 25, c.DeclaredPageSize())

	c.Params = map[string]string{"pageSize": "10"}
	assert.Equal(t, 10, c.DeclaredPageSize(), "query parameter wins")

	c.Params = map[string]string{"page": "1", "size": "15"}
	assert.Equal(t, 15, c.DeclaredPageSize(), "page/size pair also declares a size")

	c.Params = map[string]string{"pageSize": "10", "size": "15"}
	assert.Equal(t, 10, c.DeclaredPageSize(), "pageSize wins over size")

	c.Params = map[string]string{"pageSize": "not-a-number"}
	assert.Equal(t, 25, c.DeclaredPageSize())
}
