package llm

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		repair   bool
		want     map[string]any
		degraded bool
	}{
		{
			name:    "fenced object",
			content: "```json\n{\"summary\": \"ok\"}\n```",
			want:    map[string]any{"summary": "ok"},
		},
		{
			name:    "fence surrounded by prose",
			content: "Here is my analysis:\n\n```json\n{\"score\": 7}\n```\n\nLet me know if you need more.",
			want:    map[string]any{"score": float64(7)},
		},
		{
			name:    "uppercase fence marker",
			content: "```JSON\n{\"a\": true}\n```",
			want:    map[string]any{"a": true},
		},
		{
			name:    "unclosed fence",
			content: "```json\n{\"a\": [1, 2]}",
			want:    map[string]any{"a": []any{float64(1), float64(2)}},
		},
		{
			name:    "first fence wins",
			content: "```json\n{\"n\": 1}\n```\n```json\n{\"n\": 2}\n```",
			want:    map[string]any{"n": float64(1)},
		},
		{
			name:    "bare object with whitespace",
			content: "  \n{\"purpose\": \"teach joins\", \"nested\": {\"k\": null}}\n  ",
			want:    map[string]any{"purpose": "teach joins", "nested": map[string]any{"k": nil}},
		},
		{
			name:    "fence inside a string value",
			content: "```json\n{\"recommendations\": [\"Add an index:\\n```sql\\nCREATE INDEX i ON t(c);\\n```\"]}\n```",
			want:    map[string]any{"recommendations": []any{"Add an index:\n```sql\nCREATE INDEX i ON t(c);\n```"}},
		},
		{
			name:    "bare object quoting a json fence",
			content: "{\"note\": \"wrap it in ```json\"}",
			want:    map[string]any{"note": "wrap it in ```json"},
		},
		{name: "plain prose", content: "I cannot help with that.", degraded: true},
		{name: "empty content", content: "", degraded: true},
		{name: "whitespace only", content: " \n\t", degraded: true},
		{name: "json array", content: "[1, 2, 3]", degraded: true},
		{name: "json scalar", content: "42", degraded: true},
		{name: "json null", content: "null", degraded: true},
		{name: "broken fenced body", content: "```json\n{\"a\": \n```", degraded: true},
		{name: "trailing text after object", content: "{\"a\": 1} and more", degraded: true},
		{name: "generic fence is not a json fence", content: "```\n{\"a\": 1}\n```", degraded: true},
		{name: "trailing comma without repair", content: "{\"a\": 1,}", degraded: true},
		{
			name:    "trailing comma with repair",
			content: "{\"a\": 1,}",
			repair:  true,
			want:    map[string]any{"a": float64(1)},
		},
		{
			name:    "single quotes with repair",
			content: "```json\n{'grade': 'B'}\n```",
			repair:  true,
			want:    map[string]any{"grade": "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extractor{Repair: tt.repair}.Extract(tt.content)

			if tt.degraded {
				require.True(t, got.IsDegraded(), "expected degraded payload, got %v", got.Object())
				assert.NotEmpty(t, got.Degraded().Error)
				assert.Equal(t, tt.content, got.Degraded().RawContent)
				assert.Nil(t, got.Object())
				return
			}

			require.False(t, got.IsDegraded(), "unexpected degradation: %+v", got.Degraded())
			if diff := cmp.Diff(tt.want, got.Object()); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractFencedRoundTrip(t *testing.T) {
	objects := []map[string]any{
		{},
		{"a": "b"},
		{"technical_analysis": "Uses a CTE correctly.", "assessment": map[string]any{"grade": "A", "score": 9, "overall_assessment": "PASS"}},
		{"recommendations": []any{"add ORDER BY", "index the join key"}, "unicode": "naïve café 数据库", "empty": []any{}},
		{"escaped": "line\nbreak \"quoted\" `tick`", "n": -1.5e3, "t": true, "f": false, "z": nil},
		{"recommendations": []any{"Add an index:\n```sql\nCREATE INDEX idx_orders_customer ON orders(customer_id);\n```"}},
		{"fence": "```json\n{\"nested\": true}\n```", "after": "```"},
	}

	for _, x := range objects {
		encoded, err := json.MarshalIndent(x, "", "  ")
		require.NoError(t, err)

		var want map[string]any
		require.NoError(t, json.Unmarshal(encoded, &want))

		for _, wrapped := range []string{
			"```json\n" + string(encoded) + "\n```",
			"Sure!\n```json\n" + string(encoded) + "\n```\nDone.",
			string(encoded),
		} {
			got := Extractor{}.Extract(wrapped)
			require.False(t, got.IsDegraded(), "degraded for %q: %+v", wrapped, got.Degraded())
			if diff := cmp.Diff(want, got.Object()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		}
	}
}

func TestExtractKeepsRawContentVerbatim(t *testing.T) {
	inputs := []string{
		"not json at all",
		"{broken",
		"```json\nnope\n```",
		"  leading and trailing spaces  \n",
		"tabs\tand\r\nCRLF",
		"ünïcödé ✓ 🚀",
		"[\"array\"]",
		"```json",
	}

	for _, input := range inputs {
		for _, repair := range []bool{false, true} {
			got := Extractor{Repair: repair}.Extract(input)
			if !got.IsDegraded() {
				// repair may legitimately salvage some inputs
				require.True(t, repair, "input %q parsed without repair", input)
				continue
			}
			assert.Equal(t, input, got.Degraded().RawContent, "raw content must be byte-identical")
		}
	}
}
