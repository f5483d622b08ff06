package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspectProcessesSkipsUnresolvable(t *testing.T) {
	// 4194305 is above the default linux pid_max; "ghost" is not a pid at all
	out := InspectProcesses([]string{"ghost", "4194305", ""})

	assert.Empty(t, out)
}

func TestInspectProcessesEmptyInput(t *testing.T) {
	out := InspectProcesses(nil)

	assert.NotNil(t, out)
	assert.Empty(t, out)
}
