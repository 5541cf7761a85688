package attempt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTest(n, options int) *Test {
	t := &Test{
		ID:               "test-1",
		Title:            "Arrays Week 1",
		Week:             1,
		TimeLimitMinutes: 10,
		MarksPerQuestion: 1,
	}
	for i := 0; i < n; i++ {
		q := Question{Prompt: "q", CorrectOption: 0}
		for j := 0; j < options; j++ {
			q.Options = append(q.Options, "opt")
		}
		t.Questions = append(t.Questions, q)
	}
	return t
}

func assertIsPermutation(t *testing.T, perm []int, n int) {
	t.Helper()
	require.Len(t, perm, n)
	seen := make([]bool, n)
	for _, v := range perm {
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, n)
		require.False(t, seen[v], "duplicate index %d", v)
		seen[v] = true
	}
}

func TestNewPermutationCoversAllIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	test := sampleTest(7, 4)

	for trial := 0; trial < 50; trial++ {
		p := NewPermutation(rng, test)
		assertIsPermutation(t, p.Questions, 7)
		require.Len(t, p.Options, 7)
		for i := range p.Options {
			assertIsPermutation(t, p.Options[i], 4)
		}
	}
}

func TestRandomizeIsDeterministicForOnePermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	test := sampleTest(5, 3)
	for i := range test.Questions {
		test.Questions[i].Prompt = string(rune('a' + i))
		for j := range test.Questions[i].Options {
			test.Questions[i].Options[j] = string(rune('A'+i)) + string(rune('0'+j))
		}
	}

	p := NewPermutation(rng, test)
	first := Randomize(test, p)
	second := Randomize(test, p)

	assert.Equal(t, first, second)
}

func TestRandomizeReverseMapping(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	test := sampleTest(4, 4)
	p := NewPermutation(rng, test)

	for slot, q := range Randomize(test, p) {
		assert.Equal(t, p.Questions[slot], q.OriginalIndex)
		original := test.Questions[q.OriginalIndex]
		for displayed, origOpt := range q.OptionMap {
			assert.Equal(t, original.Options[origOpt], q.Options[displayed])
		}
	}
}

func TestPermutationMatches(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	test := sampleTest(3, 4)
	p := NewPermutation(rng, test)

	assert.True(t, p.Matches(test))

	edited := sampleTest(4, 4)
	assert.False(t, p.Matches(edited))

	fewerOptions := sampleTest(3, 3)
	assert.False(t, p.Matches(fewerOptions))
}

func TestResumeOrShuffle(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	test := sampleTest(3, 2)

	saved := NewPermutation(rng, test)
	reused := ResumeOrShuffle(rng, test, &saved)
	assert.Equal(t, saved, reused)

	// A stale permutation for an edited test forces a fresh shuffle.
	edited := sampleTest(5, 2)
	fresh := ResumeOrShuffle(rng, edited, &saved)
	assertIsPermutation(t, fresh.Questions, 5)

	noSaved := ResumeOrShuffle(rng, test, nil)
	assertIsPermutation(t, noSaved.Questions, 3)
}
