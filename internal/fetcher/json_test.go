package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestDecodeJSONObject(t *testing.T) {
	obj, err := DecodeJSONObject[testRecord](strings.NewReader(`{"id": 7, "name": "alpha"}`))
	require.NoError(t, err)
	assert.Equal(t, 7, obj.ID)
	assert.Equal(t, "alpha", obj.Name)
}

func TestDecodeJSONObject_Nested(t *testing.T) {
	type page struct {
		Count   int          `json:"count"`
		Records []testRecord `json:"records"`
	}

	obj, err := DecodeJSONObject[page](strings.NewReader(`{"count": 2, "records": [{"id": 1}, {"id": 2}]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, obj.Count)
	require.Len(t, obj.Records, 2)
	assert.Equal(t, 2, obj.Records[1].ID)
}

func TestDecodeJSONObject_Malformed(t *testing.T) {
	_, err := DecodeJSONObject[testRecord](strings.NewReader(`{"id": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode object")
}
