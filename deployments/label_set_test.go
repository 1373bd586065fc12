package deployments

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LabelSet(t *testing.T) {
	t.Parallel()

	s := NewLabelSet("Deployment", "", "Core", "Deployment")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"Core", "Deployment"}, s.List())
	assert.Equal(t, "Core,Deployment", s.String())
	assert.True(t, s.Contains("Core"))
	assert.False(t, s.Contains("Upgrade"))
	assert.True(t, s.ContainsAny("Upgrade", "Core"))
	assert.False(t, s.ContainsAny())

	var zero LabelSet
	assert.Empty(t, zero.List())
	assert.True(t, zero.Equal(NewLabelSet()))
	zero.Add("x")
	assert.True(t, zero.Contains("x"))
}

func Test_LabelSet_Parse(t *testing.T) {
	t.Parallel()

	assert.True(t, ParseLabelSet("").Equal(NewLabelSet()))
	assert.True(t, ParseLabelSet("Core,Deployment").Equal(NewLabelSet("Deployment", "Core")))
}

func Test_LabelSet_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewLabelSet("b", "a"))
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))

	var got LabelSet
	require.NoError(t, json.Unmarshal([]byte(`["x","y"]`), &got))
	assert.True(t, got.Equal(NewLabelSet("y", "x")))
}
