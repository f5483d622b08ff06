package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const freeFixture = `              total        used        free      shared  buff/cache   available
Mem:    540431499264 98784247808 12345678900        1024  1234567890 441647251456
Swap:     4294967296  1073741824  3221225472
`

func TestParseFreeOutput(t *testing.T) {
	info := &SystemInfo{}
	parseFreeOutput(freeFixture, info)

	assert.Equal(t, uint64(540431499264), info.MemoryTotal)
	assert.Equal(t, uint64(98784247808), info.MemoryUsed)
	assert.InDelta(t, 18.28, info.MemoryPercent, 0.01)
	assert.InDelta(t, 25.0, info.SwapPercent, 0.01)
}

func TestParseFreeOutputNoSwap(t *testing.T) {
	out := `              total        used        free
Mem:    1073741824  536870912  536870912
Swap:            0          0          0
`
	info := &SystemInfo{}
	parseFreeOutput(out, info)

	assert.InDelta(t, 50.0, info.MemoryPercent, 0.01)
	assert.Equal(t, 0.0, info.SwapPercent)
}

func TestParseFreeOutputGarbage(t *testing.T) {
	info := &SystemInfo{}
	parseFreeOutput("free: command not found\n", info)

	assert.Equal(t, uint64(0), info.MemoryTotal)
	assert.Equal(t, 0.0, info.MemoryPercent)
}

func TestParseLoadAvg(t *testing.T) {
	load1, load5, load15 := parseLoadAvg("0.52 0.58 0.59 2/1783 1914451\n")
	assert.InDelta(t, 0.52, load1, 0.001)
	assert.InDelta(t, 0.58, load5, 0.001)
	assert.InDelta(t, 0.59, load15, 0.001)

	load1, load5, load15 = parseLoadAvg("")
	assert.Equal(t, 0.0, load1)
	assert.Equal(t, 0.0, load5)
	assert.Equal(t, 0.0, load15)
}

func TestParseUptime(t *testing.T) {
	assert.InDelta(t, 90061.37, parseUptime("90061.37 350735.51\n").Seconds(), 0.01)
	assert.Equal(t, time.Duration(0), parseUptime(""))
	assert.Equal(t, time.Duration(0), parseUptime("not-a-number"))
}
