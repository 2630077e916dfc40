package search

// permutations invokes fn with every mixed-radix counter value in
// lexicographic order: limits [2, 3] yields [0 0], [0 1], [0 2], [1 0], ...
// The callback may stop the iteration by returning false. Any zero limit
// yields no permutations.
func permutations(limits []int, fn func(pick []int) bool) {
	for _, limit := range limits {
		if limit == 0 {
			return
		}
	}

	current := make([]int, len(limits))
	for {
		if !fn(current) {
			return
		}

		i := len(current) - 1
		for ; i >= 0; i-- {
			if current[i] < limits[i]-1 {
				current[i]++
				for j := i + 1; j < len(current); j++ {
					current[j] = 0
				}
				break
			}
			current[i] = 0
		}
		if i < 0 {
			return
		}
	}
}
