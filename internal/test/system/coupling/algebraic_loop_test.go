package system

import (
	"context"
	"testing"

	"github.com/specialistvlad/cosimgo/internal/app"
	"github.com/specialistvlad/cosimgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: Newton coupling solves an algebraic loop within every step.
func TestCoupling_NewtonSolvesAlgebraicLoop(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{"main.hcl": loopProject("newton")}

	// --- Act ---
	result := testutil.RunProject(context.Background(), t, app.Config{OutputPath: "out.csv"}, files)

	// --- Assert ---
	require.NoError(t, result.Err, result.LogOutput)
	row := lastRow(t, result.ReadFile(t, "out.csv"))
	assert.InDelta(t, 2.0/3.0, row["a.y"], 1e-8)
	assert.InDelta(t, 4.0/3.0, row["b.y"], 1e-8)
	assert.NotContains(t, result.LogOutput, "Algebraic loop is coupled explicitly")
}

// Test for: explicit coupling runs a loop with a warning instead of failing.
func TestCoupling_ExplicitModesWarnAboutLoops(t *testing.T) {
	for _, mode := range []string{"jacobi", "seidel"} {
		t.Run(mode, func(t *testing.T) {
			files := map[string]string{"main.hcl": loopProject(mode)}

			result := testutil.RunProject(context.Background(), t, app.Config{OutputPath: "out.csv"}, files)

			require.NoError(t, result.Err, result.LogOutput)
			assert.Contains(t, result.LogOutput, "Algebraic loop is coupled explicitly")
			row := lastRow(t, result.ReadFile(t, "out.csv"))
			assert.Greater(t, row["b.y"], 1.0, "values move toward the fixed point")
		})
	}
}
