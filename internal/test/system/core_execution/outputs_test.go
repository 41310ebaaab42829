package system

import (
	"context"
	"strings"
	"testing"

	"github.com/specialistvlad/cosimgo/internal/app"
	"github.com/specialistvlad/cosimgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: the recorder throttles by interval but keeps the first and last
// point, and the chart carries every column.
func TestCoreExecution_OutputInterval(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"main.hcl": `
simulation {
  stop_time           = 1
  step_size           = 0.125
  max_step_size       = 0.125
  min_output_interval = 0.5
}

slave "wave" {
  fmu        = "builtin:sine"
  parameters = { amplitude = 2, frequency = 0.5 }
}
`,
	}
	cfg := app.Config{OutputPath: "out.csv", ChartPath: "chart.html"}

	// --- Act ---
	result := testutil.RunProject(context.Background(), t, cfg, files)

	// --- Assert ---
	require.NoError(t, result.Err, result.LogOutput)

	lines := strings.Split(strings.TrimSpace(result.ReadFile(t, "out.csv")), "\n")
	times := make([]string, 0, len(lines)-1)
	for _, l := range lines[1:] {
		times = append(times, strings.SplitN(l, ",", 2)[0])
	}
	assert.Equal(t, []string{"0", "0.5", "1"}, times)
	assert.Contains(t, result.ReadFile(t, "chart.html"), "wave.y")
}
