package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGolden_CrossSessionRefresh(t *testing.T) {
	scenario, err := LoadScenario("testdata/cross-session-refresh.yaml")
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}
