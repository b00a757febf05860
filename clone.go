package mdk

import "github.com/pkg/errors"

// expandClones materializes the clone references recorded by the mapping
// workbook. Node clones copy the source node's attributes and replicate its
// entire instrument complement under re-derived designators; instrument
// clones copy attributes only. In both cases existing truthy attributes on
// the clone target win over the source's.
//
// Structural problems here are fatal, not warnings: a clone source with
// child nodes, an unknown child device, or a cycle in the child index means
// the workbook is wrong in a way no downstream consumer can absorb. A
// missing clone source is only a warning - the workbook routinely points at
// designators the current export no longer carries.
func (l *Loader) expandClones() error {
	if l.cloned {
		return nil
	}
	nodes := l.TypeAssets("node")
	insts := l.TypeAssets("instrument")

	var newInsts []Object
	for _, nodeID := range sortedIDs(nodes) {
		node := nodes[nodeID]
		cloneRD := node.Str("clone_rd")
		if cloneRD == "" {
			continue
		}
		src, ok := nodes[cloneRD]
		if !ok {
			l.warnf(nodeID, "node %s: clone node %s not found", nodeID, cloneRD)
			continue
		}
		l.Log.Debugf("cloning node %s from %s, recursively", nodeID, cloneRD)
		mergeMissing(node, src)

		cloned, err := l.cloneChildren(nodeID, cloneRD)
		if err != nil {
			return err
		}
		newInsts = append(newInsts, cloned...)
	}

	for _, instID := range sortedIDs(insts) {
		inst := insts[instID]
		cloneRD := inst.Str("clone_rd")
		if cloneRD == "" {
			continue
		}
		src, ok := insts[cloneRD]
		if !ok {
			l.warnf(instID, "instrument %s: clone instrument %s not found", instID, cloneRD)
			continue
		}
		l.Log.Debugf("cloning instrument %s from %s", instID, cloneRD)
		mergeMissing(inst, src)
	}

	if len(newInsts) > 0 {
		for _, inst := range newInsts {
			insts[inst.ID()] = inst
		}
		l.childDevices = l.buildChildDevices()
	}
	l.cloned = true
	return nil
}

// cloneChildren replicates the instrument subtree under cloneRD onto the
// node targetID. The walk is a worklist with a visited set; revisiting a
// device means the child index has a cycle.
func (l *Loader) cloneChildren(targetID, cloneRD string) ([]Object, error) {
	nodes := l.TypeAssets("node")
	insts := l.TypeAssets("instrument")

	var out []Object
	visited := map[string]bool{}
	worklist := append([]string{}, l.childDevices[cloneRD]...)
	for len(worklist) > 0 {
		chdev := worklist[0]
		worklist = worklist[1:]
		if visited[chdev] {
			return nil, errors.Errorf("node %s: cycle in child devices at %s", targetID, chdev)
		}
		visited[chdev] = true

		src, ok := insts[chdev]
		if !ok {
			if _, isNode := nodes[chdev]; isNode {
				return nil, errors.Errorf("node %s: cannot clone platform with child nodes (%s)", targetID, chdev)
			}
			return nil, errors.Errorf("node %s: child device %s not found", targetID, chdev)
		}
		if len(chdev) < 16 {
			return nil, errors.Errorf("node %s: child device id %q too short to re-derive", targetID, chdev)
		}
		clone := src.Copy()
		// New designator: target node prefix plus the source's port and
		// instrument suffix.
		clone["id"] = targetID + "-" + chdev[15:]
		l.Log.Debugf("cloning %s into %s", chdev, clone.ID())
		out = append(out, clone)

		worklist = append(worklist, l.childDevices[chdev]...)
	}
	return out, nil
}

// mergeMissing copies src attributes the destination does not already carry
// a truthy value for. The destination's id always survives.
func mergeMissing(dst, src Object) {
	for k, v := range src {
		if !dst.Set(k) {
			dst[k] = v
		}
	}
}
