package request

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination(t *testing.T) {
	tests := []struct {
		query         string
		offset, limit int
	}{
		{"", 0, 100},
		{"?skip=20&limit=10", 20, 10},
		{"?skip=-5&limit=0", 0, 100},
		{"?limit=5000", 0, 100},
		{"?skip=abc&limit=xyz", 0, 100},
	}
	for _, tt := range tests {
		offset, limit := Pagination(httptest.NewRequest("GET", "/items"+tt.query, nil))
		assert.Equal(t, tt.offset, offset, tt.query)
		assert.Equal(t, tt.limit, limit, tt.query)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	err := DecodeJSON(httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a","extra":1}`)), &v)
	assert.Error(t, err)

	err = DecodeJSON(httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a"}`)), &v)
	assert.NoError(t, err)
	assert.Equal(t, "a", v.Name)
}

func TestBool(t *testing.T) {
	assert.True(t, Bool(httptest.NewRequest("GET", "/?thumbnail=true", nil), "thumbnail"))
	assert.True(t, Bool(httptest.NewRequest("GET", "/?thumbnail=1", nil), "thumbnail"))
	assert.False(t, Bool(httptest.NewRequest("GET", "/?thumbnail=nope", nil), "thumbnail"))
	assert.False(t, Bool(httptest.NewRequest("GET", "/", nil), "thumbnail"))
}
