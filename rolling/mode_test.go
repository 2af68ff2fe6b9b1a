package rolling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"reestimate_only", ReestimateOnly},
		{"Reestimate-Only", ReestimateOnly},
		{" recompute_model ", RecomputeModel},
		{"RECOMPUTE-MODEL", RecomputeModel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "reestimate", "recompute model"} {
		_, err := ParseMode(bad)
		assert.ErrorIs(t, err, ErrInvalidConfig, "input %q", bad)
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "reestimate_only", ReestimateOnly.String())
	assert.Equal(t, "recompute_model", RecomputeModel.String())
	assert.Equal(t, "Mode(0)", Mode(0).String())
	assert.False(t, Mode(0).Valid())
}

func TestModeYAML(t *testing.T) {
	type doc struct {
		Mode Mode `yaml:"mode"`
	}

	out, err := yaml.Marshal(doc{Mode: RecomputeModel})
	require.NoError(t, err)
	assert.Equal(t, "mode: recompute_model\n", string(out))

	var in doc
	require.NoError(t, yaml.Unmarshal([]byte("mode: reestimate-only\n"), &in))
	assert.Equal(t, ReestimateOnly, in.Mode)

	assert.Error(t, yaml.Unmarshal([]byte("mode: sometimes\n"), &in))
}
