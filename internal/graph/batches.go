package graph

// BatchIterator walks the graph in topological levels. Each call to Next
// yields the set of node IDs whose dependencies all appeared in earlier
// batches, in insertion order. The sequence is finite and can be restarted
// with Reset, which makes it usable for bulk scheduling and for tests.
type BatchIterator struct {
	g       *Graph
	emitted map[string]bool
}

// Batches returns a restartable iterator over topological levels.
func (g *Graph) Batches() *BatchIterator {
	return &BatchIterator{
		g:       g,
		emitted: make(map[string]bool),
	}
}

// Next returns the next batch and true, or nil and false when the sequence
// is exhausted. Nodes whose dependencies can never be satisfied (which only
// happens if the graph were cyclic) end the sequence rather than loop.
func (it *BatchIterator) Next() ([]string, bool) {
	it.g.mu.RLock()
	defer it.g.mu.RUnlock()

	var batch []string
	for _, id := range it.g.order {
		if it.emitted[id] {
			continue
		}
		eligible := true
		for _, depID := range it.g.edges[id] {
			if !it.emitted[depID] {
				eligible = false
				break
			}
		}
		if eligible {
			batch = append(batch, id)
		}
	}

	if len(batch) == 0 {
		return nil, false
	}
	for _, id := range batch {
		it.emitted[id] = true
	}
	return batch, true
}

// Reset restarts the iterator from the first batch.
func (it *BatchIterator) Reset() {
	it.emitted = make(map[string]bool)
}
