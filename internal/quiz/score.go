package quiz

// Outcome is the tally of one completed run over a flattened sequence.
// Correct+Wrong == Total always holds.
type Outcome struct {
	Correct int
	Wrong   int
	Total   int
}

// Score walks the answer log and the correct-label key pairwise. Trailing
// positions the student never answered count as wrong, never as correct.
func Score(answers, key []Label) Outcome {
	out := Outcome{Total: len(key)}
	for i, want := range key {
		if i < len(answers) && answers[i] == want {
			out.Correct++
		}
	}
	out.Wrong = out.Total - out.Correct
	return out
}

// Percentage returns the correct share in [0,1]. An empty run scores 0.
func (o Outcome) Percentage() float64 {
	if o.Total == 0 {
		return 0
	}
	return float64(o.Correct) / float64(o.Total)
}
