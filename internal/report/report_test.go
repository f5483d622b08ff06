package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `+------------------------------------------------------------------------------------------------+
| npu-smi 23.0.6                    Version: 23.0.6                                              |
+---------------------------+---------------+----------------------------------------------------+
| NPU   Name                | Health        | Power(W)    Temp(C)           Hugepages-Usage(page)|
| Chip                      | Bus-Id        | AICore(%)   Memory-Usage(MB)  HBM-Usage(MB)        |
+===========================+===============+====================================================+
| 0     910B4               | OK            | 88.2        39                0    / 0             |
| 0                         | 0000:C1:00.0  | 0           0    / 0          3043 / 32768         |
+===========================+===============+====================================================+
| 1     910B4               | OK            | 92.4        43                0    / 0             |
| 0                         | 0000:C2:00.0  | 24          0    / 0          30431/ 32768         |
+===========================+===============+====================================================+
| 2     910B4               | Warning       | 71.0        37                0    / 0             |
| 0                         | 0000:C3:00.0  | 0           0    / 0          2731 / 32768         |
+===========================+===============+====================================================+
+---------------------------+---------------+----------------------------------------------------+
| NPU     Chip              | Process id    | Process name             | Process memory(MB)      |
+===========================+===============+====================================================+
| 0       0                 | 2488494       | python3.9                | 687                     |
+===========================+===============+====================================================+
| 0       0                 | 2488495       | python3.9                | 1243                    |
+===========================+===============+====================================================+
| 1       0                 | 901425        | mindspore_serve          | 28921                   |
+===========================+===============+====================================================+
| No running processes found in NPU 2                                                            |
+===========================+===============+====================================================+
`

func TestParseSampleReport(t *testing.T) {
	snap := Parse(sampleReport)

	require.Len(t, snap.Devices, 3)
	assert.Equal(t, 0, snap.Stats.Drops())

	dev := snap.Devices[0]
	assert.Equal(t, 0, dev.ID)
	assert.Equal(t, "910B4", dev.Name)
	assert.Equal(t, "OK", dev.Health)
	assert.InDelta(t, 88.2, dev.Power, 0.001)
	assert.Equal(t, 39, dev.Temperature)
	assert.Equal(t, "0", dev.ChipID)
	assert.Equal(t, "0000:C1:00.0", dev.BusID)
	assert.Equal(t, 0, dev.AICore)
	assert.Equal(t, 3043, dev.HBMUsed)
	assert.Equal(t, 32768, dev.HBMTotal)

	// the second pair carries a glued "30431/ 32768" cell
	assert.Equal(t, 24, snap.Devices[1].AICore)
	assert.Equal(t, 30431, snap.Devices[1].HBMUsed)
	assert.Equal(t, 32768, snap.Devices[1].HBMTotal)
	assert.Equal(t, "0000:C2:00.0", snap.Devices[1].BusID)

	assert.Equal(t, "Warning", snap.Devices[2].Health)

	require.Len(t, snap.ProcessesByDevice, 3)
	require.Len(t, snap.ProcessesByDevice[0], 2)
	assert.Equal(t, "2488494", snap.ProcessesByDevice[0][0].PID)
	assert.Equal(t, "python3.9", snap.ProcessesByDevice[0][0].Name)
	assert.Equal(t, 687, snap.ProcessesByDevice[0][0].MemoryMB)
	assert.Equal(t, 1243, snap.ProcessesByDevice[0][1].MemoryMB)

	require.Len(t, snap.ProcessesByDevice[1], 1)
	assert.Equal(t, "mindspore_serve", snap.ProcessesByDevice[1][0].Name)
	assert.Equal(t, 28921, snap.ProcessesByDevice[1][0].MemoryMB)

	procs, ok := snap.ProcessesByDevice[2]
	require.True(t, ok, "idle device should still be registered")
	assert.NotNil(t, procs)
	assert.Empty(t, procs)
}

func TestParseEmptyInput(t *testing.T) {
	snap := Parse("")

	assert.Empty(t, snap.Devices)
	require.NotNil(t, snap.ProcessesByDevice)
	assert.Empty(t, snap.ProcessesByDevice)
	assert.Equal(t, 0, snap.Stats.Drops())
}

func TestParseGarbageInput(t *testing.T) {
	snap := Parse("not a report at all\njust some text\n12345\n")

	assert.Empty(t, snap.Devices)
	assert.Empty(t, snap.ProcessesByDevice)
}

func TestParseIsIdempotent(t *testing.T) {
	first := Parse(sampleReport)
	second := Parse(sampleReport)

	assert.Equal(t, first, second)
}

func TestSplitSections(t *testing.T) {
	devices, processes := splitSections("before marker\nProcess id and after")
	assert.Equal(t, "before marker\n", devices)
	assert.Equal(t, "Process id and after", processes)

	devices, processes = splitSections("no marker here")
	assert.Equal(t, "no marker here", devices)
	assert.Equal(t, "", processes)
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, segments("| a | b c | d |"))
	assert.Nil(t, segments("|   |  |"))
	assert.Equal(t, []string{"x"}, segments("x"))
}

func TestCellContent(t *testing.T) {
	assert.Equal(t, "0     910B4", cellContent("| 0     910B4               |"))
	assert.Equal(t, "", cellContent("|    |"))
	assert.Equal(t, "plain", cellContent("  plain  "))
}
