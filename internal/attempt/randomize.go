package attempt

import "math/rand"

// Permutation pins the shuffled question and option order for one attempt.
// Questions[i] is the original index of the question displayed at slot i;
// Options[i][j] is the original option index displayed at slot j of the
// question originally at index i.
type Permutation struct {
	Questions []int   `json:"questions"`
	Options   [][]int `json:"options"`
}

// NewPermutation draws an unbiased shuffle of the test's question order and
// of each question's option order.
func NewPermutation(rng *rand.Rand, test *Test) Permutation {
	p := Permutation{
		Questions: rng.Perm(len(test.Questions)),
		Options:   make([][]int, len(test.Questions)),
	}
	for i := range test.Questions {
		p.Options[i] = rng.Perm(len(test.Questions[i].Options))
	}
	return p
}

// Matches reports whether the permutation still fits the test's shape.
// A test edited between sessions (question added, option removed) fails
// this check and forces a fresh shuffle.
func (p Permutation) Matches(test *Test) bool {
	if len(p.Questions) != len(test.Questions) || len(p.Options) != len(test.Questions) {
		return false
	}
	for i := range test.Questions {
		if len(p.Options[i]) != len(test.Questions[i].Options) {
			return false
		}
	}
	return true
}

// ResumeOrShuffle reuses a saved permutation verbatim when it still matches
// the test, otherwise generates a fresh one.
func ResumeOrShuffle(rng *rand.Rand, test *Test, saved *Permutation) Permutation {
	if saved != nil && saved.Matches(test) {
		return *saved
	}
	return NewPermutation(rng, test)
}

// RandomizedQuestion is one question as displayed: options already
// reordered, with the mapping back to original indices retained so
// answers can be translated to the canonical key.
type RandomizedQuestion struct {
	OriginalIndex int
	Prompt        string
	Options       []string
	// OptionMap[j] is the original option index shown at displayed slot j.
	OptionMap []int
}

// Randomize projects the test through the permutation. Deriving twice from
// the same permutation yields an identical view.
func Randomize(test *Test, p Permutation) []RandomizedQuestion {
	out := make([]RandomizedQuestion, len(p.Questions))
	for slot, orig := range p.Questions {
		q := test.Questions[orig]
		optMap := p.Options[orig]
		opts := make([]string, len(optMap))
		for j, o := range optMap {
			opts[j] = q.Options[o]
		}
		out[slot] = RandomizedQuestion{
			OriginalIndex: orig,
			Prompt:        q.Prompt,
			Options:       opts,
			OptionMap:     optMap,
		}
	}
	return out
}
