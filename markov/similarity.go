package markov

import "go-harmony/melody"

// ExactMatch is the fraction of positions holding the same note, over the
// shorter of the two sequences.
func ExactMatch(a, b []melody.Note) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	same := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(n)
}

// Levenshtein is the edit distance between two note sequences.
func Levenshtein(a, b []melody.Note) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// EditSimilarity is 1 - distance/maxLen; two empty sequences are identical.
func EditSimilarity(a, b []melody.Note) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}

func ngrams(notes []melody.Note, n int) map[Context]struct{} {
	set := make(map[Context]struct{})
	for i := 0; i+n <= len(notes); i++ {
		set[NewContext(notes[i:i+n]...)] = struct{}{}
	}
	return set
}

// NGramJaccard is the Jaccard index of the sets of n-grams. An empty union
// scores 1.
func NGramJaccard(a, b []melody.Note, n int) float64 {
	sa, sb := ngrams(a, n), ngrams(b, n)
	inter := 0
	for g := range sa {
		if _, ok := sb[g]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

// Scores are the five similarity measures between a generated sequence
// and the original.
type Scores struct {
	Exact float64
	Edit  float64
	Gram3 float64
	Gram4 float64
	Gram5 float64
}

// Compare scores generated against original.
func Compare(original, generated []melody.Note) Scores {
	return Scores{
		Exact: ExactMatch(original, generated),
		Edit:  EditSimilarity(original, generated),
		Gram3: NGramJaccard(original, generated, 3),
		Gram4: NGramJaccard(original, generated, 4),
		Gram5: NGramJaccard(original, generated, 5),
	}
}

func (s Scores) values() [5]float64 {
	return [5]float64{s.Exact, s.Edit, s.Gram3, s.Gram4, s.Gram5}
}

func (s Scores) add(o Scores) Scores {
	return Scores{s.Exact + o.Exact, s.Edit + o.Edit, s.Gram3 + o.Gram3, s.Gram4 + o.Gram4, s.Gram5 + o.Gram5}
}

func (s Scores) scale(f float64) Scores {
	return Scores{s.Exact * f, s.Edit * f, s.Gram3 * f, s.Gram4 * f, s.Gram5 * f}
}

// Weights of the five scores in the figure of merit, in Scores field order.
var Weights = [5]float64{0.2, 0.1, 0.3, 0.2, 0.2}

// Merit rewards every score for being close to 0.5.
func (s Scores) Merit() float64 {
	total := 0.0
	for i, v := range s.values() {
		d := v - 0.5
		if d < 0 {
			d = -d
		}
		total += Weights[i] * (1 - 2*d)
	}
	return total
}

// TooSimilar reports output that mostly copies the original.
func (s Scores) TooSimilar() bool {
	return s.Edit > 0.95 || s.Gram4 > 0.99 || s.Gram5 > 0.80
}

// TooRandom reports output with little of the original's structure.
func (s Scores) TooRandom() bool {
	return s.Edit < 0.20 || s.Gram3 < 0.25 || s.Gram4 < 0.20 || s.Gram5 < 0.15
}
