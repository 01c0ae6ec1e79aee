// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"sort"
	"sync"
	"time"
)

// Matcher runs the five-strategy User-Agent -> Signature pipeline of
// §4.G against one Dataset.
type Matcher struct {
	ds     *Dataset
	budget int // node-evaluation budget; 0 means unbounded (§5)

	rootOnce sync.Once
	root     *Node
	rootErr  error

	sortedOnce sync.Once
	sorted     []*Signature // every Signature, ordered by Signature.CompareTo
	sortedErr  error

	nodeSigMu   sync.Mutex
	nodeSigOnce bool
	nodeSigs    map[int64][]*Signature
}

// NewMatcher builds a Matcher over ds with the given node-evaluation
// budget (0 = unbounded, per Config.NodeEvaluationBudget default).
func NewMatcher(ds *Dataset, budget int) *Matcher {
	return &Matcher{ds: ds, budget: budget}
}

// sanitize replaces any non-ASCII byte with 0x20, per §4.G's input
// contract and §9's open question ("the spec forbids [non-ASCII
// numeric characters]; non-ASCII becomes 0x20 before matching").
func sanitize(ua []byte) []byte {
	out := make([]byte, len(ua))
	for i, b := range ua {
		if b >= 0x80 {
			out[i] = ' '
		} else {
			out[i] = b
		}
	}
	return out
}

// root lazily builds the synthetic position-0 root: the aggregated,
// byte-sorted Children of every stored Node whose ParentOffset is
// unset. The trie's real nodes start at position 0 as this root's
// children.
func (m *Matcher) root() (*Node, error) {
	m.rootOnce.Do(func() {
		var children []nodeChild
		for i := 0; i < m.ds.nodes.Count(); i++ {
			n, err := m.ds.nodes.GetByIndex(i)
			if err != nil {
				m.rootErr = err
				return
			}
			if n.ParentOffset == noParent {
				children = append(children, nodeChild{Byte: firstByte(n), Offset: n.Offset})
			}
		}
		sort.Slice(children, func(i, j int) bool { return children[i].Byte < children[j].Byte })
		m.root = &Node{ds: m.ds, Offset: -1, ParentOffset: noParent, Position: -1, Children: children}
	})
	return m.root, m.rootErr
}

func firstByte(n *Node) byte {
	if len(n.Characters) == 0 {
		return 0
	}
	return n.Characters[0]
}

// sortedSignatures lazily builds the full signature list ordered by
// Signature.CompareTo, used by the Exact strategy's binary search
// (§4.G step 2).
func (m *Matcher) sortedSignatures() ([]*Signature, error) {
	m.sortedOnce.Do(func() {
		n := m.ds.signatures.Count()
		sigs := make([]*Signature, n)
		for i := 0; i < n; i++ {
			s, err := m.ds.signatures.GetByIndex(i)
			if err != nil {
				m.sortedErr = err
				return
			}
			sigs[i] = s
		}
		sort.Slice(sigs, func(i, j int) bool { return sigs[i].CompareTo(sigs[j]) < 0 })
		m.sorted = sigs
	})
	return m.sorted, m.sortedErr
}

// nodeSignatures lazily builds the reverse index node-offset ->
// signatures referencing it, used by the Nearest strategy (§4.G step
// 4) to find candidates sharing at least one node with N*.
func (m *Matcher) nodeSignatures() (map[int64][]*Signature, error) {
	m.nodeSigMu.Lock()
	defer m.nodeSigMu.Unlock()
	if m.nodeSigs != nil {
		return m.nodeSigs, nil
	}
	idx := make(map[int64][]*Signature)
	n := m.ds.signatures.Count()
	for i := 0; i < n; i++ {
		s, err := m.ds.signatures.GetByIndex(i)
		if err != nil {
			return nil, err
		}
		for _, off := range s.NodeOffsets {
			idx[off] = append(idx[off], s)
		}
	}
	m.nodeSigs = idx
	return idx, nil
}

// discoveryResult is the outcome of walking the trie against a
// candidate UA.
type discoveryResult struct {
	nodes          []*Node
	numericDiff    int
	nodesEvaluated int
}

// discover walks the trie from position 0, binary-searching children
// by the byte at each position and jumping position+len(run) on a
// hit (§4.G step 1). When allowNumeric is set and a node's exact byte
// lookup fails but it has NumericChildren, the contiguous numeric run
// at that position is matched against the nearest numeric range
// instead (§4.G step 3, v3.2 only).
func (m *Matcher) discover(ua []byte, allowNumeric bool) (*discoveryResult, error) {
	root, err := m.root()
	if err != nil {
		return nil, err
	}

	res := &discoveryResult{}
	pos := 0
	cur := root
	for pos < len(ua) {
		res.nodesEvaluated++
		if m.budget > 0 && res.nodesEvaluated > m.budget {
			break
		}

		child, ok, err := cur.ChildAt(ua[pos])
		if err != nil {
			return nil, err
		}
		if ok && matchesRun(ua, pos, child.Characters) {
			res.nodes = append(res.nodes, child)
			pos += len(child.Characters)
			cur = child
			continue
		}

		if allowNumeric && len(cur.NumericChildren) > 0 {
			value, digits := parseNumber(ua, pos)
			if digits > 0 {
				nc, diff, found := bestNumericChild(cur.NumericChildren, value)
				if found {
					child, err := m.ds.nodes.GetByOffset(nc.Offset)
					if err != nil {
						return nil, err
					}
					res.nodes = append(res.nodes, child)
					res.numericDiff += diff
					pos += digits
					cur = child
					continue
				}
			}
		}
		break
	}
	return res, nil
}

// matchesRun reports whether run equals ua[pos:pos+len(run)].
func matchesRun(ua []byte, pos int, run []byte) bool {
	if pos+len(run) > len(ua) {
		return false
	}
	for i, c := range run {
		if ua[pos+i] != c {
			return false
		}
	}
	return true
}

// parseNumber reads consecutive ASCII digits starting at pos,
// returning the parsed value and digit count (0 if ua[pos] isn't a
// digit).
func parseNumber(ua []byte, pos int) (value, digits int) {
	for pos+digits < len(ua) && ua[pos+digits] >= '0' && ua[pos+digits] <= '9' {
		value = value*10 + int(ua[pos+digits]-'0')
		digits++
	}
	return value, digits
}

// bestNumericChild finds the NumericChild whose range contains value,
// or failing that the range with the smallest absolute distance.
func bestNumericChild(children []numericChild, value int) (numericChild, int, bool) {
	bestDiff := -1
	var best numericChild
	for _, c := range children {
		var diff int
		switch {
		case value >= int(c.Low) && value <= int(c.High):
			diff = 0
		case value < int(c.Low):
			diff = int(c.Low) - value
		default:
			diff = value - int(c.High)
		}
		if bestDiff == -1 || diff < bestDiff {
			bestDiff = diff
			best = c
		}
	}
	return best, bestDiff, bestDiff != -1
}

// nodeOffsets extracts the node-offset vector from a discovered node
// sequence.
func nodeOffsets(nodes []*Node) []int64 {
	out := make([]int64, len(nodes))
	for i, n := range nodes {
		out[i] = n.Offset
	}
	return out
}

// findExact binary-searches the CompareTo-ordered signature list for
// one whose NodeOffsets exactly equals target (§4.G step 2).
func (m *Matcher) findExact(target []int64) (*Signature, bool, error) {
	sigs, err := m.sortedSignatures()
	if err != nil {
		return nil, false, err
	}
	probe := &Signature{NodeOffsets: target}
	i := sort.Search(len(sigs), func(i int) bool { return sigs[i].CompareTo(probe) >= 0 })
	if i < len(sigs) && sigs[i].CompareTo(probe) == 0 {
		return sigs[i], true, nil
	}
	return nil, false, nil
}

// Match runs the full pipeline against userAgent (§4.G).
func (m *Matcher) Match(userAgent []byte) (*Match, error) {
	start := time.Now()
	ua := sanitize(userAgent)

	disc, err := m.discover(ua, false)
	if err != nil {
		return nil, err
	}

	budgetHit := m.budget > 0 && disc.nodesEvaluated > m.budget

	if !budgetHit {
		if sig, ok, err := m.findExact(nodeOffsets(disc.nodes)); err != nil {
			return nil, err
		} else if ok {
			return m.finish(sig, MethodExact, 0, disc.nodesEvaluated, 1, start, true), nil
		}
	}

	if !budgetHit && m.ds.header.IsV32() {
		numDisc, err := m.discover(ua, true)
		if err != nil {
			return nil, err
		}
		if sig, ok, err := m.findExact(nodeOffsets(numDisc.nodes)); err != nil {
			return nil, err
		} else if ok {
			complete := !(m.budget > 0 && numDisc.nodesEvaluated > m.budget)
			return m.finish(sig, MethodNumeric, numDisc.numericDiff, numDisc.nodesEvaluated, 1, start, complete), nil
		}
	}

	if len(disc.nodes) == 0 {
		sig, err := m.ds.DefaultSignature()
		if err != nil {
			return nil, err
		}
		return m.finish(sig, MethodNone, len(ua), disc.nodesEvaluated, 0, start, !budgetHit), nil
	}

	return m.nearestOrClosest(ua, disc, start)
}

// nearestOrClosest implements §4.G steps 4-5: Nearest scores
// candidates by how many of their nodes are absent from N*; Closest
// scores by byte-mismatch against the UA restricted to node
// positions. Both break ties by ascending Rank, then ascending
// signature index.
func (m *Matcher) nearestOrClosest(ua []byte, disc *discoveryResult, start time.Time) (*Match, error) {
	nodeSigs, err := m.nodeSignatures()
	if err != nil {
		return nil, err
	}

	target := nodeOffsets(disc.nodes)
	targetSet := make(map[int64]struct{}, len(target))
	for _, off := range target {
		targetSet[off] = struct{}{}
	}

	seen := make(map[int64]*Signature)
	for _, off := range target {
		for _, s := range nodeSigs[off] {
			seen[s.Offset] = s
		}
	}

	compared := 0
	bestScore := -1
	var candidates []*Signature
	for _, s := range seen {
		compared++
		missing := 0
		for _, off := range s.NodeOffsets {
			if _, ok := targetSet[off]; !ok {
				missing++
			}
		}
		switch {
		case bestScore == -1 || missing < bestScore:
			bestScore = missing
			candidates = candidates[:0]
			candidates = append(candidates, s)
		case missing == bestScore:
			candidates = append(candidates, s)
		}
	}

	if len(candidates) > 0 {
		best := pickByRank(candidates)
		complete := !(m.budget > 0 && disc.nodesEvaluated > m.budget)
		return m.finish(best, MethodNearest, bestScore, disc.nodesEvaluated, compared, start, complete), nil
	}

	// Closest: no signature shares any node with N*; fall back to
	// scoring every signature by byte mismatch against the UA,
	// restricted to that signature's node-covered positions.
	n := m.ds.signatures.Count()
	bestScore = -1
	candidates = candidates[:0]
	for i := 0; i < n; i++ {
		s, err := m.ds.signatures.GetByIndex(i)
		if err != nil {
			return nil, err
		}
		compared++
		score, err := closenessScore(s, ua)
		if err != nil {
			return nil, err
		}
		switch {
		case bestScore == -1 || score < bestScore:
			bestScore = score
			candidates = candidates[:0]
			candidates = append(candidates, s)
		case score == bestScore:
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		sig, err := m.ds.DefaultSignature()
		if err != nil {
			return nil, err
		}
		return m.finish(sig, MethodNone, len(ua), disc.nodesEvaluated, compared, start, true), nil
	}
	best := pickByRank(candidates)
	return m.finish(best, MethodClosest, bestScore, disc.nodesEvaluated, compared, start, true), nil
}

// closenessScore counts byte mismatches between ua and a signature's
// reconstructed String(), restricted to the positions the signature's
// nodes cover.
func closenessScore(s *Signature, ua []byte) (int, error) {
	nodes, err := s.Nodes()
	if err != nil {
		return 0, err
	}
	score := 0
	for _, n := range nodes {
		pos := int(n.Position)
		for i, c := range n.Characters {
			p := pos + i
			if p >= len(ua) || ua[p] != c {
				score++
			}
		}
	}
	return score, nil
}

// pickByRank breaks ties across equal-score candidates by ascending
// Rank, then ascending file offset, both deterministic (§4.G "Ties...
// always broken by rank ascending; across equal ranks by signature
// offset ascending").
func pickByRank(candidates []*Signature) *Signature {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Rank < best.Rank || (c.Rank == best.Rank && c.Offset < best.Offset) {
			best = c
		}
	}
	return best
}

func (m *Matcher) finish(sig *Signature, method Method, diff, nodesEvaluated, sigsCompared int, start time.Time, complete bool) *Match {
	return &Match{
		Signature:          sig,
		Method:             method,
		Difference:         diff,
		NodesEvaluated:     nodesEvaluated,
		SignaturesCompared: sigsCompared,
		Elapsed:            time.Since(start),
		IsComplete:         complete,
		ds:                 m.ds,
	}
}
