package demo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssign(t *testing.T) {
	var out bytes.Buffer
	Assign(&out)
	assert.Equal(t, "== assign\n0\n1\n1\nreleased 1\n2\n2\nreleased 2\n", out.String())
}

func TestWeakExpiry(t *testing.T) {
	var out bytes.Buffer
	WeakExpiry(&out)
	assert.Equal(t, "== weak expiry\n"+
		"expired=false weak=1\n"+
		"released a\n"+
		"expired=true weak=1\n"+
		"lock empty=true\n", out.String())
}

func TestCycle(t *testing.T) {
	var out bytes.Buffer
	Cycle(&out)
	assert.Equal(t, "== cycle\n"+
		"parent=1 child=2\n"+
		"released parent\n"+
		"released child\n"+
		"live values=0 counters=0\n", out.String())
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	Run(&out)
	assert.Contains(t, out.String(), "== assign")
	assert.Contains(t, out.String(), "== cycle")
}
