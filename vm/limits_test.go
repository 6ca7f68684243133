package vm

import (
	"os"
	"testing"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/require"
)

func TestLimitsOverrideFromEnvironment(t *testing.T) {
	os.Setenv("GS_OPERAND_STACK_SIZE", "2048")
	defer os.Unsetenv("GS_OPERAND_STACK_SIZE")

	limits := DefaultLimits()
	require.NoError(t, env.Parse(&limits))
	require.Equal(t, 2048, limits.OperandStackSize)
	require.Equal(t, DefaultLimits().FrameStackSize, limits.FrameStackSize)
}
