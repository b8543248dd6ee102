// Package demo walks through the handle lifecycle and prints what it sees.
package demo

import (
	"fmt"
	"io"

	"github.com/chenx-dust/sharedptr/ptr"
)

// item announces its own release.
type item struct {
	name string
	out  io.Writer
}

func (i *item) Release() {
	fmt.Fprintf(i.out, "released %s\n", i.name)
}

type node struct {
	item
	child  *ptr.Shared[node]
	parent *ptr.Weak[node]
}

func (n *node) Release() {
	n.item.Release()
	if n.child != nil {
		n.child.Release()
	}
	if n.parent != nil {
		n.parent.Release()
	}
}

func Run(w io.Writer) {
	Assign(w)
	WeakExpiry(w)
	Cycle(w)
}

// Assign shows use counts across construction and assignment.
func Assign(w io.Writer) {
	fmt.Fprintln(w, "== assign")
	var sa ptr.Shared[item]
	fmt.Fprintln(w, sa.UseCount())

	sb := ptr.NewShared(&item{name: "1", out: w})
	sc := ptr.NewShared(&item{name: "2", out: w})
	fmt.Fprintln(w, sb.UseCount())
	fmt.Fprintln(w, sc.UseCount())

	sb.Assign(sc)
	fmt.Fprintln(w, sb.UseCount())
	fmt.Fprintln(w, sc.UseCount())

	sb.Release()
	sc.Release()
}

// WeakExpiry drops the only owner while a weak handle still observes it.
func WeakExpiry(w io.Writer) {
	fmt.Fprintln(w, "== weak expiry")
	a := ptr.NewShared(&item{name: "a", out: w})
	weak := a.Weak()
	fmt.Fprintf(w, "expired=%t weak=%d\n", weak.Expired(), weak.UseCount())

	a.Release()
	fmt.Fprintf(w, "expired=%t weak=%d\n", weak.Expired(), weak.UseCount())
	fmt.Fprintf(w, "lock empty=%t\n", weak.Lock().Empty())
	weak.Release()
}

// Cycle links a parent and child both ways and drops the outside owners.
func Cycle(w io.Writer) {
	fmt.Fprintln(w, "== cycle")
	parent := ptr.NewShared(&node{item: item{name: "parent", out: w}})
	child := ptr.NewShared(&node{item: item{name: "child", out: w}})
	parent.Get().child = child.Clone()
	child.Get().parent = parent.Weak()
	fmt.Fprintf(w, "parent=%d child=%d\n", parent.UseCount(), child.UseCount())

	child.Release()
	parent.Release()
	st := ptr.Stats()
	fmt.Fprintf(w, "live values=%d counters=%d\n", st.LiveValues, st.LiveCounters)
}
