package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, warnings, err := Parse("   \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestParseEmptyContentValidatesBase(t *testing.T) {
	base := Default()
	base.Output.Dir = ""

	_, _, err := Parse("", base)
	require.Error(t, err)
	require.Contains(t, err.Error(), "output.dir")
}

func TestParseRejectsNonObjectContent(t *testing.T) {
	_, _, err := Parse("output.dir = /tmp", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 1")
}
