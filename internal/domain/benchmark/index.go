package benchmark

import (
	"hash/fnv"
	"sync"
)

// Index is an order-statistic treap over one risk score per member.
//
// Ordering: score ASC, then user ID ASC, so in-order traversal runs from the
// safest member to the riskiest one. Priorities are derived from the user ID,
// which keeps the tree shape deterministic for a given member set.
type Index struct {
	mu   sync.RWMutex
	root *node
	byID map[string]int
}

// Member is one indexed score.
type Member struct {
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

type node struct {
	id    string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byID: make(map[string]int)}
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aScore, aID) sorts before (bScore, bID).
func less(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore < bScore
	}
	return aID < bID
}

func priority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score int) *node {
	if n == nil {
		return &node{id: id, score: score, prio: priority(id), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score int) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

func countAtOrBelow(n *node, score int) int {
	count := 0
	for n != nil {
		if n.score <= score {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

func collect(n *node, out *[]Member) {
	if n == nil {
		return
	}
	collect(n.left, out)
	*out = append(*out, Member{UserID: n.id, Score: n.score})
	collect(n.right, out)
}

// Set stores a member's score, replacing any previous one.
func (x *Index) Set(userID string, score int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if old, ok := x.byID[userID]; ok {
		if old == score {
			return
		}
		x.root = deleteNode(x.root, userID, old)
	}
	x.byID[userID] = score
	x.root = insert(x.root, userID, score)
}

// Remove drops a member. It reports whether the member was present.
func (x *Index) Remove(userID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	old, ok := x.byID[userID]
	if !ok {
		return false
	}
	delete(x.byID, userID)
	x.root = deleteNode(x.root, userID, old)
	return true
}

// Score returns a member's score.
func (x *Index) Score(userID string) (int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	s, ok := x.byID[userID]
	return s, ok
}

// Len returns the number of members.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return nsize(x.root)
}

// CountAtOrBelow counts members whose score is <= score in O(log n).
func (x *Index) CountAtOrBelow(score int) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return countAtOrBelow(x.root, score)
}

// Min returns the safest member; ties go to the lowest user ID.
func (x *Index) Min() (Member, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := x.root
	if n == nil {
		return Member{}, false
	}
	for n.left != nil {
		n = n.left
	}
	return Member{UserID: n.id, Score: n.score}, true
}

// Ascending returns all members from safest to riskiest.
func (x *Index) Ascending() []Member {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Member, 0, nsize(x.root))
	collect(x.root, &out)
	return out
}

// Sum returns the total of all scores.
func (x *Index) Sum() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	total := 0
	for _, s := range x.byID {
		total += s
	}
	return total
}
