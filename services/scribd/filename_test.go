package scribd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

var sanitizeTestCases = []struct {
	name     string
	input    string
	expected string
}{
	{name: "invalid characters", input: `a/b:c*d?"e"<f>|g\h`, expected: "a_b_c_d__e__f__g_h"},
	{name: "control characters", input: "line\nbreak\ttab", expected: "line_break_tab"},
	{name: "surrounding spaces and dots", input: "  ..notes..  ", expected: "notes"},
	{name: "empty", input: "", expected: "default_filename"},
	{name: "only dots", input: "...", expected: "default_filename"},
	{name: "unchanged", input: "Cours de Thermodynamique", expected: "Cours de Thermodynamique"},
}

func TestSanitizeFilename(t *testing.T) {
	for _, testCase := range sanitizeTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expected, SanitizeFilename(testCase.input))
		})
	}
}

func TestCanonicalFilename(t *testing.T) {
	require.Equal(t, "TD_1 Mécanique (123456).pdf", CanonicalFilename("TD/1 Mécanique", "123456"))
}

func TestDocumentIDAcceptsNumbersAndStrings(t *testing.T) {
	assert := require.New(t)

	var doc searchDocument
	assert.NoError(json.Unmarshal([]byte(`{"id": 512345678, "views": 3}`), &doc))
	assert.Equal(documentID("512345678"), doc.ID)

	assert.NoError(json.Unmarshal([]byte(`{"id": "abc-1", "views": "n/a"}`), &doc))
	assert.Equal(documentID("abc-1"), doc.ID)
	assert.Equal(viewCount(0), doc.Views)

	assert.Error(json.Unmarshal([]byte(`{"id": {"nested": true}}`), &doc))
}
