package benchmark

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestIndex(t *testing.T) {
	convey.Convey("Given an index", t, func() {
		x := NewIndex()

		convey.Convey("When it is empty", func() {
			_, ok := x.Min()
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(x.Len(), convey.ShouldEqual, 0)
			convey.So(x.CountAtOrBelow(100), convey.ShouldEqual, 0)
		})

		convey.Convey("When scores are set and replaced", func() {
			x.Set("b", 40)
			x.Set("a", 40)
			x.Set("c", 10)
			x.Set("b", 70)

			convey.So(x.Len(), convey.ShouldEqual, 3)
			convey.So(x.Ascending(), convey.ShouldResemble, []Member{{"c", 10}, {"a", 40}, {"b", 70}})
			convey.So(x.CountAtOrBelow(40), convey.ShouldEqual, 2)
			convey.So(x.Sum(), convey.ShouldEqual, 120)

			m, _ := x.Min()
			convey.So(m.UserID, convey.ShouldEqual, "c")

			convey.So(x.Remove("c"), convey.ShouldBeTrue)
			convey.So(x.Remove("c"), convey.ShouldBeFalse)
			m, _ = x.Min()
			convey.So(m.UserID, convey.ShouldEqual, "a")
		})

		convey.Convey("When many random members churn", func() {
			r := rand.New(rand.NewSource(3))
			ref := map[string]int{}
			for i := 0; i < 2000; i++ {
				id := fmt.Sprintf("u%d", r.Intn(300))
				if r.Intn(4) == 0 {
					x.Remove(id)
					delete(ref, id)
					continue
				}
				s := r.Intn(101)
				x.Set(id, s)
				ref[id] = s
			}

			convey.So(x.Len(), convey.ShouldEqual, len(ref))
			convey.So(sizeOK(x.root), convey.ShouldBeTrue)
			asc := x.Ascending()
			convey.So(sort.SliceIsSorted(asc, func(i, j int) bool {
				return less(asc[i].Score, asc[i].UserID, asc[j].Score, asc[j].UserID)
			}), convey.ShouldBeTrue)
			for _, probe := range []int{0, 25, 50, 99, 100} {
				want := 0
				for _, s := range ref {
					if s <= probe {
						want++
					}
				}
				convey.So(x.CountAtOrBelow(probe), convey.ShouldEqual, want)
			}
		})
	})
}

func sizeOK(n *node) bool {
	if n == nil {
		return true
	}
	if n.size != 1+nsize(n.left)+nsize(n.right) {
		return false
	}
	if n.left != nil && n.left.prio > n.prio {
		return false
	}
	if n.right != nil && n.right.prio > n.prio {
		return false
	}
	return sizeOK(n.left) && sizeOK(n.right)
}
