package system

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// lastRow parses the final CSV row into column -> value.
func lastRow(t *testing.T, csv string) map[string]float64 {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.GreaterOrEqual(t, len(lines), 2, "no data rows in %q", csv)

	header := strings.Split(lines[0], ",")
	fields := strings.Split(lines[len(lines)-1], ",")
	require.Len(t, fields, len(header))

	row := make(map[string]float64, len(header))
	for i, name := range header {
		v, err := strconv.ParseFloat(fields[i], 64)
		require.NoError(t, err, "column %s", name)
		row[name] = v
	}
	return row
}

// loopProject couples two gains into an algebraic loop:
// a.y = b.y/2 and b.y = a.y/2 + 1.
func loopProject(mode string) string {
	return `
simulation {
  stop_time      = 0.5
  step_size      = 0.1
  max_step_size  = 0.1
  master_mode    = "` + mode + `"
  max_iterations = 50
  rel_tol        = 1e-10
  abs_tol        = 1e-10
}

slave "a" {
  fmu        = "builtin:gain"
  parameters = { k = 0.5 }
}

slave "b" {
  fmu        = "builtin:gain"
  parameters = { k = 0.5, b = 1 }
}

connection {
  from = "a.y"
  to   = "b.u"
}

connection {
  from = "b.y"
  to   = "a.u"
}
`
}
