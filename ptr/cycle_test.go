package ptr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type parent struct {
	name     string
	child    *Shared[child]
	released *[]string
}

func (p *parent) Release() {
	*p.released = append(*p.released, p.name)
	p.child.Release()
}

type child struct {
	name     string
	parent   *Weak[parent]
	released *[]string
}

func (c *child) Release() {
	*c.released = append(*c.released, c.name)
	c.parent.Release()
}

func TestParentChildCycleIsCollected(t *testing.T) {
	before := Stats()
	var released []string

	p := NewShared(&parent{name: "parent", released: &released})
	c := NewShared(&child{name: "child", released: &released})
	p.Get().child = c.Clone()
	c.Get().parent = p.Weak()

	assert.Equal(t, 2, c.UseCount())
	assert.Equal(t, 1, p.UseCount())

	back := c.Get().parent.Lock()
	assert.Equal(t, "parent", back.Get().name)
	back.Release()

	c.Release()
	assert.Empty(t, released)
	p.Release()

	assert.Equal(t, []string{"parent", "child"}, released)
	assert.Equal(t, before, Stats())
}

func TestChildOutlivesParent(t *testing.T) {
	before := Stats()
	var released []string

	p := NewShared(&parent{name: "parent", released: &released})
	c := NewShared(&child{name: "child", released: &released})
	p.Get().child = c.Clone()
	c.Get().parent = p.Weak()

	p.Release()
	assert.Equal(t, []string{"parent"}, released)
	assert.True(t, c.Get().parent.Expired())
	assert.True(t, c.Get().parent.Lock().Empty())
	assert.Equal(t, 1, c.UseCount())

	c.Release()
	assert.Equal(t, []string{"parent", "child"}, released)
	assert.Equal(t, before, Stats())
}
