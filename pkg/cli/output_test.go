package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintTable_Basic(t *testing.T) {
	var buf bytes.Buffer
	columns := []string{"name", "age"}
	rows := [][]string{
		{"Alice", "30"},
		{"Bob", "25"},
	}

	printTable(&buf, columns, rows)
	output := buf.String()
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")

	require.Len(t, lines, 3, "expected header + 2 data rows")

	// Headers should be uppercased.
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[0], "AGE")

	assert.Contains(t, lines[1], "Alice")
	assert.Contains(t, lines[1], "30")
	assert.Contains(t, lines[2], "Bob")
	assert.Contains(t, lines[2], "25")
}

func TestPrintTable_EmptyColumns(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{}, [][]string{{"a"}})

	assert.Empty(t, buf.String(), "empty columns should produce no output")
}

func TestPrintTable_EmptyRows(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"id", "value"}, nil)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 1, "only the header line should be present")
	assert.Contains(t, lines[0], "ID")
	assert.Contains(t, lines[0], "VALUE")
}

func TestPrintTable_AlignsToWidestCell(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"a", "b"}, [][]string{
		{"longvalue", "x"},
		{"y", "z"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 3)
	// Column b starts at the same offset on every line.
	offset := strings.Index(lines[0], "B")
	assert.Equal(t, offset, strings.Index(lines[1], "x"))
	assert.Equal(t, offset, strings.Index(lines[2], "z"))
}

func TestPrintTable_ShortRowsPadWithEmptyCells(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"a", "b", "c"}, [][]string{{"only"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "only")
}

func TestPrintJSON_Basic(t *testing.T) {
	var buf bytes.Buffer

	err := printJSON(&buf, map[string]string{"hello": "world"})
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "world", parsed["hello"])

	// Should be indented.
	assert.Contains(t, buf.String(), "\n  ")
}

func TestPrintJSON_Nil(t *testing.T) {
	var buf bytes.Buffer

	err := printJSON(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "null\n", buf.String())
}

func TestPrintDetail_AlignsValues(t *testing.T) {
	var buf bytes.Buffer
	printDetail(&buf, [][2]string{
		{"name", "prod"},
		{"cluster", "https://example.test"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 2)
	assert.Equal(t, strings.Index(lines[0], "prod"), strings.Index(lines[1], "https://example.test"))
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "nil renders empty", in: nil, want: ""},
		{name: "string passes through", in: "hello", want: "hello"},
		{name: "bool", in: true, want: "true"},
		{name: "integral float has no exponent", in: float64(1755820800000), want: "1755820800000"},
		{name: "fractional float", in: 12.5, want: "12.5"},
		{name: "map serializes as JSON", in: map[string]interface{}{"k": "v"}, want: `{"k":"v"}`},
		{name: "slice serializes as JSON", in: []interface{}{"a", "b"}, want: `["a","b"]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatCell(tc.in))
		})
	}
}

func TestValidateOutputFormat(t *testing.T) {
	assert.NoError(t, validateOutputFormat(""))
	assert.NoError(t, validateOutputFormat("table"))
	assert.NoError(t, validateOutputFormat("json"))
	assert.Error(t, validateOutputFormat("yaml"))
}

func TestMaskSecret(t *testing.T) {
	assert.Empty(t, maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))
	masked := maskSecret("super-secret-value")
	assert.NotContains(t, masked, "secret")
	assert.True(t, strings.HasPrefix(masked, "su"))
}
