package fragnorm

import (
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestRegularProbabilities(t *testing.T) {
	profile := Profile{100: 10, 200: 20}

	p1, err := RegularProbabilities(Histogram{100: 40, 200: 20}, profile)
	assert.NoError(t, err)
	expect.EQ(t, p1, ProbabilityMap{100: 0.25, 200: 1.0})

	p2, err := RegularProbabilities(Histogram{100: 10, 200: 30}, profile)
	assert.NoError(t, err)
	expect.EQ(t, p2[100], 1.0)
	expect.True(t, p2[200] > 0.666 && p2[200] < 0.667)
}

func TestRegularProbabilitiesZeroForced(t *testing.T) {
	regular := []Histogram{{100: 40, 200: 20, 300: 5}, {100: 10, 200: 30}}
	profile, err := NewMinimumCountProfile(regular, nil)
	assert.NoError(t, err)
	probs, err := RegularProbabilities(regular[0], profile)
	assert.NoError(t, err)
	expect.EQ(t, probs[300], 0.0)
	for _, hist := range regular {
		probs, err := RegularProbabilities(hist, profile)
		assert.NoError(t, err)
		for size := range hist {
			p, err := probs.Lookup(size)
			assert.NoError(t, err)
			expect.GE(t, p, 0.0)
			expect.LE(t, p, 1.0)
		}
	}
}

func TestRegularProbabilitiesDegenerate(t *testing.T) {
	_, err := RegularProbabilities(Histogram{100: 0}, Profile{100: 0})
	expect.True(t, IsKind(err, DegenerateProbability))
}

func TestLookupMissingSize(t *testing.T) {
	probs := ProbabilityMap{100: 0.5}
	p, err := probs.Lookup(100)
	assert.NoError(t, err)
	expect.EQ(t, p, 0.5)
	_, err = probs.Lookup(101)
	expect.True(t, IsKind(err, DegenerateProbability))
	expect.HasSubstr(t, err.Error(), "101")
}

func TestPlanControl(t *testing.T) {
	control := Histogram{100: 1000, 200: 500}
	profile := Profile{100: 10, 200: 20}
	plan, err := PlanControl(control, profile)
	assert.NoError(t, err)
	expect.EQ(t, plan.TotalReference, int64(30))
	expect.EQ(t, plan.TotalControl, int64(1500))
	// Size 100 alone would allow 1000*30/10 = 3000 pairs, size 200 allows
	// 500*30/20 = 750.
	expect.EQ(t, plan.MinTotalReads, int64(750))
	expect.EQ(t, plan.BindingSize, 200)
	expect.EQ(t, plan.Targets, map[int]int64{100: 250, 200: 500})
	expect.EQ(t, plan.ExpectedRetained(), int64(750))

	probs, err := plan.Probabilities()
	assert.NoError(t, err)
	expect.EQ(t, probs, ProbabilityMap{100: 0.25, 200: 1.0})

	same, err := ControlProbabilities(control, profile)
	assert.NoError(t, err)
	expect.EQ(t, same, probs)
}

func TestPlanControlTotalBinds(t *testing.T) {
	// The control already has the profile's shape, so nothing binds below its
	// own total.
	plan, err := PlanControl(Histogram{100: 30, 200: 60}, Profile{100: 1, 200: 2})
	assert.NoError(t, err)
	expect.EQ(t, plan.MinTotalReads, int64(90))
	expect.EQ(t, plan.BindingSize, -1)
	probs, err := plan.Probabilities()
	assert.NoError(t, err)
	expect.EQ(t, probs, ProbabilityMap{100: 1.0, 200: 1.0})
}

func TestPlanControlProperties(t *testing.T) {
	controls := []Histogram{
		{100: 1000, 200: 500},
		{100: 7, 150: 3000, 200: 11, 300: 1},
		{120: 13, 121: 17, 122: 19, 400: 100000},
	}
	profiles := []Profile{
		{100: 10, 200: 20},
		{100: 3, 150: 0, 200: 9, 300: 1},
		{120: 5, 121: 5, 122: 4, 400: 2, 401: 8},
	}
	for i, control := range controls {
		plan, err := PlanControl(control, profiles[i])
		assert.NoError(t, err)
		expect.LE(t, plan.MinTotalReads, plan.TotalControl)
		expect.LE(t, plan.ExpectedRetained(), plan.TotalControl)
		probs, err := plan.Probabilities()
		assert.NoError(t, err)
		for size := range control {
			p, err := probs.Lookup(size)
			assert.NoError(t, err)
			expect.GE(t, p, 0.0)
			expect.LE(t, p, 1.0)
			if profiles[i][size] == 0 {
				expect.EQ(t, p, 0.0)
			}
		}
	}
}

func TestPlanControlEmptyReference(t *testing.T) {
	_, err := PlanControl(Histogram{100: 5}, Profile{100: 0, 200: 0})
	expect.True(t, IsKind(err, EmptyReferenceTotal))
	_, err = ControlProbabilities(Histogram{100: 5}, Profile{})
	expect.True(t, IsKind(err, EmptyReferenceTotal))
}
