package dataset

import (
	"fmt"
	"math/rand"
)

// Fold is one train/test split of a cross-validation.
type Fold struct {
	Train *Dataset
	Test  *Dataset
}

// Folds splits the instances into k folds after a seeded shuffle. Fold i tests
// on the instances in positions [i*n/k, (i+1)*n/k) of the permutation and
// trains on the rest. k larger than the number of instances is lowered to the
// number of instances (leave-one-out).
func (d *Dataset) Folds(k int, seed int64) ([]Fold, error) {
	n := d.Len()

	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 instances to split, got %d", ErrEmpty, n)
	}

	if k < 2 {
		return nil, fmt.Errorf("%w: need at least 2 folds, got %d", ErrShape, k)
	}

	if k > n {
		k = n
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)

	folds := make([]Fold, k)

	for i := 0; i < k; i++ {
		begin, end := i*n/k, (i+1)*n/k

		train := make([]int, 0, n-(end-begin))
		train = append(train, perm[:begin]...)
		train = append(train, perm[end:]...)

		folds[i] = Fold{
			Train: d.Subset(train),
			Test:  d.Subset(perm[begin:end]),
		}
	}

	return folds, nil
}
