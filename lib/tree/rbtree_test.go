package tree

import (
	"bytes"
	"errors"
	"math"
	randv2 "math/rand/v2"
	"slices"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/benz9527/xrbt/lib/xlog"
)

func requireValid[K int | int64 | uint64](t *testing.T, tree RBTree[K]) {
	t.Helper()
	require.NoError(t, RootColorValidate(tree))
	require.NoError(t, RedViolationValidate(tree))
	require.NoError(t, BlackViolationValidate(tree))
	require.NoError(t, OrderViolationValidate(tree))
}

func recoverValue(fn func()) (r any) {
	defer func() {
		r = recover()
	}()
	fn()
	return nil
}

func TestNilNode(t *testing.T) {
	var nilNode RBNode[uint64] = nil
	require.True(t, nilNode == nil)

	var nilNode2 *rbNode[uint64] = nil
	nilNode = nilNode2
	require.True(t, nilNode != nil)
	require.Nil(t, nilNode)

	leaf := &rbNode[uint64]{key: 1}
	require.Nil(t, leaf.Left())
	require.Nil(t, leaf.Right())
}

func TestRbtreeInsert_TopDownSplit(t *testing.T) {
	type checkData struct {
		color RBColor
		key   uint64
	}

	tree := newRBTree[uint64]()
	check := func(expected []checkData) {
		t.Helper()
		visited := 0
		tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
			require.Equal(t, expected[idx].color, color)
			require.Equal(t, expected[idx].key, key)
			visited++
			return true
		})
		require.Equal(t, len(expected), visited)
		require.Equal(t, int64(len(expected)), tree.Len())
		requireValid[uint64](t, tree)
	}

	tree.Insert(52)
	check([]checkData{
		{Black, 52},
	})

	tree.Insert(47)
	check([]checkData{
		{Red, 47}, {Black, 52},
	})

	tree.Insert(3)
	check([]checkData{
		{Red, 3}, {Black, 47}, {Red, 52},
	})
	require.Equal(t, uint64(47), tree.Root().Key())

	// The root 4-node is split on the way down.
	tree.Insert(4)
	check([]checkData{
		{Black, 3}, {Red, 4}, {Black, 47}, {Black, 52},
	})

	tree.Insert(5)
	check([]checkData{
		{Red, 3}, {Black, 4}, {Red, 5}, {Black, 47}, {Black, 52},
	})
	require.Equal(t, "[4,47,black,52]", tree.Root().String())
	require.Equal(t, "[3,4,black,5]", tree.Root().Left().String())
}

func TestRBTree_InsertIntoEmpty(t *testing.T) {
	tree := NewRBTree[int]()
	tree.Insert(5)
	root := tree.Root()
	require.NotNil(t, root)
	require.Equal(t, 5, root.Key())
	require.Equal(t, Black, root.Color())
	require.Nil(t, root.Left())
	require.Nil(t, root.Right())
	require.Equal(t, "[null,5,black,null]", root.String())
}

func TestRBTree_InsertSmallSequence(t *testing.T) {
	tree := NewRBTree[int]()
	for _, k := range []int{1, 2, 3, -5} {
		tree.Insert(k)
		requireValid[int](t, tree)
	}
	require.Equal(t, int64(4), tree.Len())
	require.NoError(t, Validate(tree))
}

func TestRBTree_InsertDuplicate(t *testing.T) {
	tree := NewRBTree[int]()
	for i := 0; i < 3; i++ {
		tree.Insert(7)
		tree.Insert(3)
	}
	require.Equal(t, int64(2), tree.Len())
	require.Len(t, tree.ToArray(), 2)
	requireValid[int](t, tree)
}

func TestRBTree_DeleteMin(t *testing.T) {
	tree := NewRBTree[int]()
	for _, k := range []int{1, 2, 0, 4, 5, 3} {
		tree.Insert(k)
	}
	require.Equal(t, "1;black;0;4\n0;black;null;null\n4;red;2;5\n2;black;null;3\n3;red;null;null\n5;black;null;null\n", tree.Serialize())

	key, ok := tree.DeleteMin()
	require.True(t, ok)
	require.Equal(t, 0, key)
	require.Equal(t, int64(5), tree.Len())
	requireValid[int](t, tree)
	require.Equal(t, map[int]struct{}{1: {}, 2: {}, 3: {}, 4: {}, 5: {}}, tree.ToSet())
	require.Equal(t, "4;black;2;5\n2;red;1;3\n1;black;null;null\n3;black;null;null\n5;black;null;null\n", tree.Serialize())

	// Internal key, its right child is a 2-node to be merged.
	key, ok = tree.Delete(4)
	require.True(t, ok)
	require.Equal(t, 4, key)
	requireValid[int](t, tree)
	require.Equal(t, "2;black;1;3\n1;black;null;null\n3;black;null;5\n5;red;null;null\n", tree.Serialize())

	for _, exp := range []int{1, 2, 3, 5} {
		key, ok = tree.DeleteMin()
		require.True(t, ok)
		require.Equal(t, exp, key)
		requireValid[int](t, tree)
	}
	_, ok = tree.DeleteMin()
	require.False(t, ok)
	require.Nil(t, tree.Root())
	require.Equal(t, int64(0), tree.Len())
}

func TestRBTree_DeleteMinSequential(t *testing.T) {
	tree := NewRBTree[int64]()
	total := int64(2048)
	for i := total - 1; i >= 0; i-- {
		tree.Insert(i)
	}
	for i := int64(0); i < total; i++ {
		key, ok := tree.DeleteMin()
		require.True(t, ok)
		require.Equal(t, i, key)
		if i%64 == 0 {
			requireValid[int64](t, tree)
		}
	}
	require.Equal(t, int64(0), tree.Len())
}

func TestRBTree_DeleteAbsent(t *testing.T) {
	tree := NewRBTree[int]()
	_, ok := tree.Delete(1)
	require.False(t, ok)

	for i := 0; i < 64; i += 2 {
		tree.Insert(i)
	}
	for i := -1; i < 66; i += 2 {
		_, ok = tree.Delete(i)
		require.False(t, ok)
		requireValid[int](t, tree)
	}
	require.Equal(t, int64(32), tree.Len())
	require.Len(t, tree.ToSet(), 32)
}

func TestRBTree_DeletePermutation(t *testing.T) {
	rng := randv2.New(randv2.NewPCG(20241019, 1000))
	keys := lo.Range(1000)
	keys = lo.Map(keys, func(k int, _ int) int { return k + 1 })
	rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})

	tree := NewRBTree[int]()
	model := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		tree.Insert(k)
		model[k] = struct{}{}
	}
	require.Equal(t, model, tree.ToSet())
	requireValid[int](t, tree)

	rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	for _, k := range keys {
		removed, ok := tree.Delete(k)
		require.True(t, ok)
		require.Equal(t, k, removed)
		delete(model, k)

		requireValid[int](t, tree)
		require.Equal(t, model, tree.ToSet())
		require.Equal(t, int64(len(model)), tree.Len())
	}
	require.Nil(t, tree.Root())
	require.Empty(t, tree.ToArray())
}

// The tree is driven by random actions next to a reference set and
// both must agree after every action.
func TestRBTree_ModelBased(t *testing.T) {
	type testcase struct {
		name     string
		seed     uint64
		steps    int
		keySpace int
		desc     bool
	}
	testcases := []testcase{
		{name: "dense asc", seed: 1, steps: 4000, keySpace: 64},
		{name: "sparse asc", seed: 2, steps: 4000, keySpace: 4096},
		{name: "dense desc", seed: 3, steps: 4000, keySpace: 64, desc: true},
		{name: "sparse desc", seed: 4, steps: 2000, keySpace: 1 << 20, desc: true},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			rng := randv2.New(randv2.NewPCG(tc.seed, uint64(tc.keySpace)))
			opts := make([]RBTreeOpt[int], 0, 1)
			if tc.desc {
				opts = append(opts, WithRBTreeDesc[int]())
			}
			tree := NewRBTree[int](opts...)
			model := map[int]struct{}{}

			sortedModel := func() []int {
				keys := lo.Keys(model)
				if tc.desc {
					slices.SortFunc(keys, func(a, b int) int { return b - a })
				} else {
					slices.Sort(keys)
				}
				return keys
			}

			for step := 0; step < tc.steps; step++ {
				key := rng.IntN(tc.keySpace)
				switch op := rng.IntN(10); {
				case op < 5:
					tree.Insert(key)
					model[key] = struct{}{}
				case op < 7:
					removed, ok := tree.Delete(key)
					_, exists := model[key]
					require.Equal(tt, exists, ok)
					if ok {
						require.Equal(tt, key, removed)
					}
					delete(model, key)
				case op < 8:
					removed, ok := tree.DeleteMin()
					require.Equal(tt, len(model) > 0, ok)
					if ok {
						require.Equal(tt, sortedModel()[0], removed)
						delete(model, removed)
					}
				case op < 9:
					found, ok := tree.Search(key)
					_, exists := model[key]
					require.Equal(tt, exists, ok)
					if ok {
						require.Equal(tt, key, found)
					}
				default:
					succ, ok := tree.Successor(key)
					keys := sortedModel()
					exp, expOK := lo.Find(keys, func(k int) bool {
						if tc.desc {
							return k < key
						}
						return k > key
					})
					require.Equal(tt, expOK, ok)
					require.Equal(tt, exp, succ)
				}

				require.NoError(tt, Validate(tree))
				require.Equal(tt, int64(len(model)), tree.Len())
				require.Equal(tt, model, tree.ToSet())
			}

			inorder := make([]int, 0, tree.Len())
			tree.Foreach(func(idx int64, color RBColor, key int) bool {
				inorder = append(inorder, key)
				return true
			})
			require.Equal(tt, sortedModel(), inorder)
		})
	}
}

func TestRBTree_InsertNaN(t *testing.T) {
	tree := NewRBTree[float64]()
	tree.Insert(1.5)
	r := recoverValue(func() {
		tree.Insert(math.NaN())
	})
	require.Equal(t, ErrUnorderedKey, r)

	// Rejected before any change, the tree stays usable.
	require.Equal(t, int64(1), tree.Len())
	tree.Insert(-2)
	require.Equal(t, int64(2), tree.Len())
	decoded, err := Deserialize[float64](tree.Serialize())
	require.NoError(t, err)
	require.Equal(t, tree.Serialize(), decoded.Serialize())
}

func TestRBTree_Queries(t *testing.T) {
	tree := NewRBTree[int]()
	_, ok := tree.Min()
	require.False(t, ok)
	_, ok = tree.Max()
	require.False(t, ok)
	_, ok = tree.Search(1)
	require.False(t, ok)
	_, ok = tree.Successor(1)
	require.False(t, ok)

	for _, k := range []int{10, 20, 30, 40, 50} {
		tree.Insert(k)
	}
	minKey, ok := tree.Min()
	require.True(t, ok)
	require.Equal(t, 10, minKey)
	maxKey, ok := tree.Max()
	require.True(t, ok)
	require.Equal(t, 50, maxKey)

	type testcase struct {
		key  int
		succ int
		ok   bool
	}
	for _, tc := range []testcase{
		{key: 5, succ: 10, ok: true},
		{key: 10, succ: 20, ok: true},
		{key: 25, succ: 30, ok: true},
		{key: 49, succ: 50, ok: true},
		{key: 50},
		{key: 99},
	} {
		succ, ok := tree.Successor(tc.key)
		require.Equal(t, tc.ok, ok, "successor of %d", tc.key)
		require.Equal(t, tc.succ, succ, "successor of %d", tc.key)
	}

	found, ok := tree.Search(30)
	require.True(t, ok)
	require.Equal(t, 30, found)
	_, ok = tree.Search(31)
	require.False(t, ok)
}

func TestRBTree_Desc(t *testing.T) {
	tree := NewRBTree[int64](WithRBTreeDesc[int64]())
	total := int64(100)
	for i := int64(0); i < total; i++ {
		tree.Insert(i)
	}
	tree.Foreach(func(idx int64, color RBColor, key int64) bool {
		require.Equal(t, total-1-idx, key)
		return true
	})
	requireValid[int64](t, tree)

	first, ok := tree.Min()
	require.True(t, ok)
	require.Equal(t, int64(99), first)
	succ, ok := tree.Successor(50)
	require.True(t, ok)
	require.Equal(t, int64(49), succ)

	key, ok := tree.DeleteMin()
	require.True(t, ok)
	require.Equal(t, int64(99), key)
	requireValid[int64](t, tree)
}

func TestRBTree_ForeachEarlyStop(t *testing.T) {
	tree := NewRBTree[int]()
	for i := 0; i < 10; i++ {
		tree.Insert(i)
	}
	visited := 0
	tree.Foreach(func(idx int64, color RBColor, key int) bool {
		visited++
		return key < 4
	})
	require.Equal(t, 5, visited)
}

func TestRBTree_ToArrayPreorder(t *testing.T) {
	tree := NewRBTree[int]()
	for _, k := range []int{52, 47, 3, 4, 5} {
		tree.Insert(k)
	}
	keys := lo.Map(tree.ToArray(), func(n RBNode[int], _ int) int {
		return n.Key()
	})
	require.Equal(t, []int{47, 4, 3, 5, 52}, keys)
}

func TestRBTreeRandomInsertAndRemove_SequentialNumber_Release(t *testing.T) {
	insertTotal := uint64(100_000)
	tree := newRBTree[uint64]()

	rand := uint64(randv2.Uint32() % 1_000)
	for i := uint64(0); i < insertTotal; i++ {
		tree.Insert(i)
		if i%1000 == rand {
			require.NoError(t, RedViolationValidate[uint64](tree))
			require.NoError(t, BlackViolationValidate[uint64](tree))
		}
	}
	tree.Foreach(func(idx int64, color RBColor, key uint64) bool {
		require.Equal(t, uint64(idx), key)
		return true
	})

	for i := uint64(0); i < insertTotal; i += 3 {
		removed, ok := tree.Delete(i)
		require.True(t, ok)
		require.Equal(t, i, removed)
		if i%999 == 0 {
			require.NoError(t, RedViolationValidate[uint64](tree))
			require.NoError(t, BlackViolationValidate[uint64](tree))
		}
	}
	require.Equal(t, int64(insertTotal-insertTotal/3-1), tree.Len())

	tree.Release()
	require.Equal(t, int64(0), tree.Len())
	require.Nil(t, tree.Root())
}

func TestRBTree_PoisonedAfterEngineFault(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := xlog.NewXLogger(
		xlog.WithXLoggerOutput(buf),
		xlog.WithXLoggerLevel(xlog.LogLevelDebug),
	)
	tree := newRBTree[int](WithRBTreeLogger[int](logger))
	// Black right child under a black root without a left sibling.
	tree.root = &rbNode[int]{key: 5, color: Black, right: &rbNode[int]{key: 7, color: Black}}
	tree.count = 2

	r := recoverValue(func() {
		tree.DeleteMin()
	})
	require.NotNil(t, r)
	err, ok := r.(error)
	require.True(t, ok)
	require.Contains(t, err.Error(), "DeleteMin aborted")

	require.Equal(t, int64(0), tree.Len())
	require.Contains(t, buf.String(), "tree poisoned")
	require.Contains(t, buf.String(), `"op":"DeleteMin"`)
	require.Contains(t, buf.String(), "errorStack")

	for _, fn := range []func(){
		func() { tree.Insert(1) },
		func() { tree.Search(1) },
		func() { tree.Delete(1) },
		func() { tree.Serialize() },
		func() { tree.Root() },
	} {
		again := recoverValue(fn)
		require.NotNil(t, again)
		require.True(t, errors.Is(again.(error), err))
	}
}

func TestRBTree_ToArrayCycle(t *testing.T) {
	tree := newRBTree[int]()
	root := &rbNode[int]{key: 2, color: Black}
	root.left = &rbNode[int]{key: 1, color: Black, right: root}
	tree.root, tree.count = root, 2

	require.Error(t, CycleValidate[int](tree))
	r := recoverValue(func() {
		tree.ToArray()
	})
	require.NotNil(t, r)
	require.Contains(t, r.(error).Error(), "cycle detected")
	require.Panics(t, func() {
		tree.Len()
		tree.Foreach(func(int64, RBColor, int) bool { return true })
	})
}

func BenchmarkRBTree_Random(b *testing.B) {
	b.StopTimer()
	tree := NewRBTree[int]()

	rngArr := make([]int, 0, b.N)
	for i := 0; i < b.N; i++ {
		rngArr = append(rngArr, randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(rngArr[i])
	}
}

func BenchmarkRBTree_Serial(b *testing.B) {
	b.StopTimer()
	tree := NewRBTree[int]()

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(i)
	}
}

func BenchmarkRBTree_InsertAndDeleteMin(b *testing.B) {
	b.StopTimer()
	tree := NewRBTree[int]()
	for i := 0; i < 1<<16; i++ {
		tree.Insert(randv2.Int())
	}

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tree.Insert(randv2.Int())
		tree.DeleteMin()
	}
}
