package eligibility_test

import (
	"testing"

	"github.com/maxwell903/sdr-lead-rotation/internal/eligibility"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

type fakeOOO map[string]bool

func (f fakeOOO) IsOOO(repID string, day, month, year int) bool { return f[repID] }

func rep(id string, canHandle1kPlus bool, maxUnits *int, pts ...types.PropertyType) types.Rep {
	return types.Rep{
		ID:     id,
		Status: types.RepActive,
		Parameters: types.RepParameters{
			PropertyTypes:   types.NewPropertyTypeSet(pts...),
			MaxUnits:        maxUnits,
			CanHandle1kPlus: canHandle1kPlus,
		},
	}
}

func TestFilterExcludesOOO(t *testing.T) {
	candidates := []types.Rep{rep("A", true, nil, types.PropertyMF), rep("B", true, nil, types.PropertyMF)}
	lead := eligibility.Lead{PropertyTypes: types.NewPropertyTypeSet(types.PropertyMF), UnitCount: 500, Day: 26, Month: 9, Year: 2026}

	out := eligibility.Filter(candidates, lead, fakeOOO{"A": true}, eligibility.AnyMatch)
	if len(out) != 1 || out[0].ID != "B" {
		t.Errorf("Filter() = %+v, want only B", out)
	}
}

func TestFilterRequires1kPlusCapability(t *testing.T) {
	candidates := []types.Rep{rep("A", false, nil, types.PropertyMF), rep("B", true, nil, types.PropertyMF)}
	lead := eligibility.Lead{PropertyTypes: types.NewPropertyTypeSet(types.PropertyMF), UnitCount: 1500}

	out := eligibility.Filter(candidates, lead, nil, eligibility.AnyMatch)
	if len(out) != 1 || out[0].ID != "B" {
		t.Errorf("Filter() = %+v, want only B", out)
	}
}

func TestFilterRespectsMaxUnits(t *testing.T) {
	cap := 1200
	candidates := []types.Rep{rep("A", true, &cap, types.PropertyMF)}
	lead := eligibility.Lead{PropertyTypes: types.NewPropertyTypeSet(types.PropertyMF), UnitCount: 1300}

	out := eligibility.Filter(candidates, lead, nil, eligibility.AnyMatch)
	if len(out) != 0 {
		t.Errorf("Filter() = %+v, want empty (exceeds max_units)", out)
	}
}

func TestFilterPropertyTypeAnyVsAll(t *testing.T) {
	candidates := []types.Rep{rep("A", true, nil, types.PropertyMF)}
	lead := eligibility.Lead{PropertyTypes: types.NewPropertyTypeSet(types.PropertyMF, types.PropertySFH), UnitCount: 500}

	if out := eligibility.Filter(candidates, lead, nil, eligibility.AnyMatch); len(out) != 1 {
		t.Errorf("AnyMatch Filter() = %+v, want A included (shares MF)", out)
	}
	if out := eligibility.Filter(candidates, lead, nil, eligibility.AllMatch); len(out) != 0 {
		t.Errorf("AllMatch Filter() = %+v, want empty (A lacks SFH)", out)
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	candidates := []types.Rep{
		rep("A", true, nil, types.PropertyMF),
		rep("B", true, nil, types.PropertyMF),
		rep("C", true, nil, types.PropertyMF),
	}
	lead := eligibility.Lead{PropertyTypes: types.NewPropertyTypeSet(types.PropertyMF), UnitCount: 500}

	out := eligibility.Filter(candidates, lead, fakeOOO{"B": true}, eligibility.AnyMatch)
	if len(out) != 2 || out[0].ID != "A" || out[1].ID != "C" {
		t.Errorf("Filter() = %+v, want [A C] in base order", out)
	}
}
