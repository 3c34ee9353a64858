package theory

import "sort"

// NoKey is returned when no major key contains every observed pitch class.
const NoKey = 0

// NoteStat is the occurrence count of one pitch class.
type NoteStat struct {
	PitchClass int
	Count      int
	Percent    float64
}

// KeyCandidate is a major key whose scale covers the melody.
type KeyCandidate struct {
	Key       int
	RootCount int
}

// KeyResult is the outcome of DetectKey.
type KeyResult struct {
	Best         int
	Found        bool
	MostFrequent int
	Stats        []NoteStat // sorted by count, descending
	Candidates   []KeyCandidate
}

// DetectKey finds the major key of a set of notes. A key qualifies only if
// its Ionian scale contains every observed pitch class. Among several, the
// most frequent pitch class wins if it qualifies, otherwise the candidate
// whose root occurs most often.
func DetectKey(notes []int) KeyResult {
	var counts [12]int
	total := 0
	for _, n := range notes {
		if n < 0 {
			continue
		}
		counts[PitchClass(n)]++
		total++
	}

	res := KeyResult{Best: NoKey, MostFrequent: NoKey}
	for pc, c := range counts {
		if c == 0 {
			continue
		}
		res.Stats = append(res.Stats, NoteStat{
			PitchClass: pc,
			Count:      c,
			Percent:    float64(c) / float64(total) * 100,
		})
	}
	sort.SliceStable(res.Stats, func(i, j int) bool {
		return res.Stats[i].Count > res.Stats[j].Count
	})
	if len(res.Stats) > 0 {
		res.MostFrequent = res.Stats[0].PitchClass
	}

	for key := 0; key < 12; key++ {
		set := NewScaleSet(key, Ionian)
		fits := true
		for _, st := range res.Stats {
			if !set[st.PitchClass] {
				fits = false
				break
			}
		}
		if fits {
			res.Candidates = append(res.Candidates, KeyCandidate{Key: key, RootCount: counts[key]})
		}
	}

	switch len(res.Candidates) {
	case 0:
		return res
	case 1:
		res.Best = res.Candidates[0].Key
		res.Found = true
		return res
	}

	res.Found = true
	for _, c := range res.Candidates {
		if c.Key == res.MostFrequent {
			res.Best = c.Key
			return res
		}
	}
	best := res.Candidates[0]
	for _, c := range res.Candidates[1:] {
		if c.RootCount > best.RootCount {
			best = c
		}
	}
	res.Best = best.Key
	return res
}
