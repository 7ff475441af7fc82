package eval

// WordEditDistance computes the Levenshtein edit distance between two word
// sequences using a single-row DP to save memory.
func WordEditDistance(a, b []string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	cur := make([]int, lb+1)

	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			m := prev[j] + 1 // deletion
			if ins := cur[j-1] + 1; ins < m {
				m = ins
			}
			if sub := prev[j-1] + cost; sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

// alignWords runs the full DP with backtrace and returns the substitutions,
// insertions (words only in hyp), and deletions (words only in ref) of one
// minimal alignment. Ties prefer substitution, then deletion.
func alignWords(ref, hyp []string) (subs []Substitution, insertions, deletions []string) {
	lr, lh := len(ref), len(hyp)
	d := make([][]int, lr+1)
	for i := range d {
		d[i] = make([]int, lh+1)
		d[i][0] = i
	}
	for j := 0; j <= lh; j++ {
		d[0][j] = j
	}
	for i := 1; i <= lr; i++ {
		for j := 1; j <= lh; j++ {
			cost := 1
			if ref[i-1] == hyp[j-1] {
				cost = 0
			}
			m := d[i-1][j-1] + cost
			if del := d[i-1][j] + 1; del < m {
				m = del
			}
			if ins := d[i][j-1] + 1; ins < m {
				m = ins
			}
			d[i][j] = m
		}
	}

	i, j := lr, lh
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && ref[i-1] == hyp[j-1] && d[i][j] == d[i-1][j-1]:
			i--
			j--
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1]+1:
			subs = append(subs, Substitution{Reference: ref[i-1], Hypothesis: hyp[j-1]})
			i--
			j--
		case i > 0 && d[i][j] == d[i-1][j]+1:
			deletions = append(deletions, ref[i-1])
			i--
		default:
			insertions = append(insertions, hyp[j-1])
			j--
		}
	}
	return subs, insertions, deletions
}
