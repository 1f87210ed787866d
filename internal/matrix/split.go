package matrix

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions row indices into train and test sets so each
// label keeps its share of the test partition. ceil(testSize*n) rows go to
// test, apportioned across classes by largest remainder. The result depends
// only on y, testSize and seed.
func StratifiedSplit(y []float64, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %v outside (0, 1)", testSize)
	}
	n := len(y)
	byClass := make(map[float64][]int)
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}
	classes := make([]float64, 0, len(byClass))
	for c, rows := range byClass {
		if len(rows) < 2 {
			return nil, nil, fmt.Errorf("class %v has %d row(s); stratification needs at least 2", c, len(rows))
		}
		classes = append(classes, c)
	}
	sort.Float64s(classes)

	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < len(classes) {
		nTest = len(classes)
	}

	// Largest-remainder apportionment, ties broken by class order.
	alloc := make([]int, len(classes))
	rem := make([]float64, len(classes))
	assigned := 0
	for i, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(n)
		alloc[i] = int(math.Floor(exact))
		rem[i] = exact - float64(alloc[i])
		assigned += alloc[i]
	}
	order := make([]int, len(classes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rem[order[a]] > rem[order[b]] })
	for k := 0; assigned < nTest && k < len(order); k++ {
		alloc[order[k]]++
		assigned++
	}
	for i, c := range classes {
		size := len(byClass[c])
		if alloc[i] < 1 {
			alloc[i] = 1
		}
		if alloc[i] > size-1 {
			alloc[i] = size - 1
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for i, c := range classes {
		rows := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(rows), func(a, b int) { rows[a], rows[b] = rows[b], rows[a] })
		test = append(test, rows[:alloc[i]]...)
		train = append(train, rows[alloc[i]:]...)
	}
	rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
	rng.Shuffle(len(test), func(a, b int) { test[a], test[b] = test[b], test[a] })
	return train, test, nil
}
