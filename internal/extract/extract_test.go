package extract

import (
	"encoding/json"
	"testing"

	"github.com/lepinkainen/bookmind/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func TestArray(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []record
	}{
		{
			name:  "fenced block",
			input: "Here you go:\n```json\n[{\"title\":\"Dune\",\"author\":\"Frank Herbert\"}]\n```\nEnjoy!",
			want:  []record{{Title: "Dune", Author: "Frank Herbert"}},
		},
		{
			name:  "fenced block without newline",
			input: "```json [{\"title\":\"Dune\",\"author\":\"Frank Herbert\"}]```",
			want:  []record{{Title: "Dune", Author: "Frank Herbert"}},
		},
		{
			name:  "bare json",
			input: `  [{"title":"Emma","author":"Jane Austen"}]  `,
			want:  []record{{Title: "Emma", Author: "Jane Austen"}},
		},
		{
			name:  "array inside prose",
			input: `Sure! [{"title":"Emma","author":"Jane Austen"}] Let me know if you want more.`,
			want:  []record{{Title: "Emma", Author: "Jane Austen"}},
		},
		{
			name:  "brackets inside strings",
			input: `Result: [{"title":"The ] Trap [","author":"A. Writer"}] trailing ]`,
			want:  []record{{Title: "The ] Trap [", Author: "A. Writer"}},
		},
		{
			name:  "bracketed number before the records",
			input: "Here are my top [2] picks:\n[{\"title\":\"Dune\",\"author\":\"Frank Herbert\"}]",
			want:  []record{{Title: "Dune", Author: "Frank Herbert"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []record
			require.NoError(t, Array(tt.input, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArray_RawItemsSkipNonRecordBrackets(t *testing.T) {
	input := "See [1] and [a, b]. Picks: [ {\"title\":\"Dune\"}, {\"title\":\"Emma\"} ]"

	var items []json.RawMessage
	require.NoError(t, Array(input, &items))
	require.Len(t, items, 2)
	assert.JSONEq(t, `{"title":"Dune"}`, string(items[0]))
}

func TestArrayMalformed(t *testing.T) {
	inputs := []string{
		"",
		"I could not think of any books.",
		`[{"title": "unterminated"`,
		`{"title":"an object, not an array"}`,
		"```json\n[{\"title\": oops}]\n```",
	}

	for _, input := range inputs {
		var got []record
		err := Array(input, &got)
		require.Error(t, err, input)
		assert.True(t, errors.IsMalformedResponseError(err))
		assert.Empty(t, got)
	}
}

func TestObject(t *testing.T) {
	var got struct {
		Sentiment  string   `json:"sentiment"`
		Themes     []string `json:"themes"`
		Complexity float64  `json:"complexity"`
	}

	input := "Analysis:\n{\"sentiment\":\"hopeful\",\"themes\":[\"identity\",\"family\"],\"complexity\":0.7}\nDone."
	require.NoError(t, Object(input, &got))
	assert.Equal(t, "hopeful", got.Sentiment)
	assert.Equal(t, []string{"identity", "family"}, got.Themes)
	assert.InDelta(t, 0.7, got.Complexity, 1e-9)
}

func TestBalanced(t *testing.T) {
	region, ok := Balanced(`x [1, [2, 3], "]"] y`, '[', ']')
	require.True(t, ok)
	assert.Equal(t, `[1, [2, 3], "]"]`, region)

	_, ok = Balanced(`no brackets here`, '[', ']')
	assert.False(t, ok)

	_, ok = Balanced(`[1, 2`, '[', ']')
	assert.False(t, ok)
}
