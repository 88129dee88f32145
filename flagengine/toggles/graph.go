package toggles

import "fmt"

// analyzeDependencies resolves dependency names to indexes, marks toggles that sit on a dependency
// cycle and precomputes, per toggle, the order in which its ancestors must be evaluated. Traversals
// use explicit stacks over indexes so depth never depends on the call stack.
func (d *Document) analyzeDependencies() {
	n := len(d.toggles)
	d.parents = make([][]int, n)
	d.cyclic = make([]bool, n)
	d.order = make([][]int, n)

	for i := range d.toggles {
		t := &d.toggles[i]
		if len(t.Dependencies) == 0 {
			continue
		}
		d.parents[i] = make([]int, len(t.Dependencies))
		for j, dep := range t.Dependencies {
			p, ok := d.byName[dep.Feature]
			if !ok {
				p = -1
				d.warn(t.Name, fmt.Sprintf("depends on unknown toggle %q", dep.Feature))
			}
			d.parents[i][j] = p
		}
	}

	stamp := make([]int, n)
	var stack []int
	for i := range d.toggles {
		if len(d.parents[i]) == 0 {
			continue
		}
		// i is cyclic when it can reach itself through its parents
		mark := i + 1
		stack = appendParents(stack[:0], d.parents[i])
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if j == i {
				d.cyclic[i] = true
				d.warn(d.toggles[i].Name, "dependency cycle detected")
				break
			}
			if stamp[j] == mark {
				continue
			}
			stamp[j] = mark
			stack = appendParents(stack, d.parents[j])
		}
	}

	seen := make([]int, n)
	for i := range d.toggles {
		if len(d.parents[i]) == 0 || d.cyclic[i] {
			continue
		}
		d.order[i] = d.dependencyOrder(i, seen)
	}
}

func appendParents(stack, parents []int) []int {
	for _, p := range parents {
		if p >= 0 {
			stack = append(stack, p)
		}
	}
	return stack
}

// dependencyOrder returns the ancestors of i in post-order. Cyclic ancestors are included as leaves
// and not expanded, which keeps the traversed graph acyclic.
func (d *Document) dependencyOrder(i int, seen []int) []int {
	type frame struct {
		node int
		next int
	}
	mark := i + 1
	seen[i] = mark

	var order []int
	stack := []frame{{node: i}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		ps := d.parents[top.node]
		if top.next >= len(ps) || (d.cyclic[top.node] && top.node != i) {
			if top.node != i {
				order = append(order, top.node)
			}
			stack = stack[:len(stack)-1]
			continue
		}
		p := ps[top.next]
		top.next++
		if p < 0 || seen[p] == mark {
			continue
		}
		seen[p] = mark
		stack = append(stack, frame{node: p})
	}
	return order
}

// Parents returns the dependency indexes of toggle i, -1 marking a missing toggle.
func (d *Document) Parents(i int) []int {
	return d.parents[i]
}

// DependencyOrder returns the toggles that must be evaluated, in order, before toggle i.
func (d *Document) DependencyOrder(i int) []int {
	return d.order[i]
}

// IsCyclic reports whether toggle i sits on a dependency cycle.
func (d *Document) IsCyclic(i int) bool {
	return d.cyclic[i]
}
