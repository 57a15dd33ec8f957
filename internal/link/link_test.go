package link

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayDomain(t *testing.T) {
	type tTestCase struct {
		name     string
		url      string
		expected string
	}
	testCases := []tTestCase{
		{
			name:     "plain_https",
			url:      "https://github.com/alice/repo",
			expected: "github.com",
		},
		{
			name:     "www_prefix_is_stripped",
			url:      "https://www.github.com/alice/repo",
			expected: "github.com",
		},
		{
			name:     "host_with_port",
			url:      "http://localhost:3000/path",
			expected: "localhost",
		},
		{
			name:     "schemeless_url",
			url:      "example.com/some/path",
			expected: "example.com",
		},
		{
			name:     "bare_host",
			url:      "example.com",
			expected: "example.com",
		},
		{
			name:     "empty_url",
			url:      "",
			expected: "Unknown",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			lnk := &Link{URL: testCase.url}
			assert.Equal(t, testCase.expected, lnk.DisplayDomain())
		})
	}
}

func TestFaviconURL(t *testing.T) {
	lnk := &Link{URL: "https://github.com/alice/repo"}
	assert.Equal(t, "https://github.com/favicon.ico", lnk.FaviconURL())

	schemeless := &Link{URL: "example.com/path"}
	assert.Equal(t, "https://www.google.com/s2/favicons?domain=example.com", schemeless.FaviconURL())
}

func TestMarshalJSONAddsDerivedFields(t *testing.T) {
	lnk := &Link{
		ID:       "some-id",
		Owner:    "alice",
		Title:    "My repo",
		URL:      "https://www.github.com/alice/repo",
		Category: CategoryOther,
	}

	data, err := json.Marshal(lnk)
	require.NoError(t, err)

	decoded := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "github.com", decoded["displayDomain"])
	assert.Equal(t, "https://www.github.com/favicon.ico", decoded["faviconUrl"])
	assert.Equal(t, "alice", decoded["owner"])

	_, hasLastClicked := decoded["lastClicked"]
	assert.False(t, hasLastClicked, "a never-clicked link should omit lastClicked")
}
