package grader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairChain(t *testing.T) {
	t.Parallel()

	chain := NewRepairChain()

	tests := []struct {
		name     string
		input    string
		strategy string
		check    func(t *testing.T, obj map[string]any)
	}{
		{
			name:     "valid_as_is",
			input:    `{"a":1}`,
			strategy: "as-is",
			check: func(t *testing.T, obj map[string]any) {
				assert.EqualValues(t, 1, obj["a"])
			},
		},
		{
			name:     "control_characters",
			input:    "{\"a\":\x01 1}",
			strategy: "strip-control",
			check: func(t *testing.T, obj map[string]any) {
				assert.EqualValues(t, 1, obj["a"])
			},
		},
		{
			name:     "raw_quotes_in_value",
			input:    `{"explanation":"the word "limits" appears in paragraph 1"}`,
			strategy: "escape-raw-quotes",
			check: func(t *testing.T, obj map[string]any) {
				assert.Equal(t, `the word "limits" appears in paragraph 1`, obj["explanation"])
			},
		},
		{
			name:     "trailing_commas",
			input:    `{"a":[1,2,],"b":{"c":3,},}`,
			strategy: "strip-trailing-commas",
			check: func(t *testing.T, obj map[string]any) {
				assert.Contains(t, obj, "b")
			},
		},
		{
			name:     "truncated_object_balanced",
			input:    `{"results":[{"question_number":1,"is_correct":true`,
			strategy: "balance-close",
			check: func(t *testing.T, obj map[string]any) {
				results, ok := obj["results"].([]any)
				require.True(t, ok)
				require.Len(t, results, 1)
				item := results[0].(map[string]any)
				assert.EqualValues(t, 1, item["question_number"])
				assert.Equal(t, true, item["is_correct"])
			},
		},
		{
			name:     "trailing_garbage_after_object",
			input:    "{\"a\":1}\nSome closing remarks} from the model",
			strategy: "truncate-balanced",
			check: func(t *testing.T, obj map[string]any) {
				assert.EqualValues(t, 1, obj["a"])
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obj, strategy, err := chain.Run(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, strategy)
			tt.check(t, obj)
		})
	}
}

func TestRepairChainFailure(t *testing.T) {
	t.Parallel()

	chain := NewRepairChain()

	_, _, err := chain.Run("")
	require.Error(t, err)

	_, _, err = chain.Run("][")
	require.Error(t, err)
}

func TestBalanceClose(t *testing.T) {
	t.Parallel()

	out, err := balanceClose(`{"a":[1,2`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2]}`, out)

	out, err = balanceClose(`{"a":"unterminated`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"unterminated"}`, out)

	out, err = balanceClose(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
}
