package resolver_test

import (
	"errors"
	"testing"

	"github.com/maxwell903/sdr-lead-rotation/internal/eligibility"
	"github.com/maxwell903/sdr-lead-rotation/internal/resolver"
	"github.com/maxwell903/sdr-lead-rotation/internal/rotationerr"
	"github.com/maxwell903/sdr-lead-rotation/internal/sequence"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

func rep(id string) types.Rep {
	return types.Rep{
		ID:     id,
		Status: types.RepActive,
		Parameters: types.RepParameters{
			PropertyTypes: types.NewPropertyTypeSet(types.PropertyMF),
		},
	}
}

func seq(ids ...string) []sequence.Entry {
	out := make([]sequence.Entry, len(ids))
	for i, id := range ids {
		out[i] = sequence.Entry{RepID: id, Position: i + 1}
	}
	return out
}

func noMark(string) (resolver.Mark, bool) { return resolver.Mark{}, false }

func TestResolveWalksSequenceForFirstEligible(t *testing.T) {
	base := []types.Rep{rep("A"), rep("B"), rep("C")}
	req := resolver.Request{PropertyTypes: types.NewPropertyTypeSet(types.PropertyMF), UnitCount: 500}

	repID, err := resolver.Resolve(req, base, seq("A", "B", "C"), nil, nil, eligibility.AnyMatch, noMark)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if repID != "A" {
		t.Errorf("Resolve() = %s, want A", repID)
	}
}

func TestResolveSkipsIneligibleIntoOverlay(t *testing.T) {
	base := []types.Rep{rep("A"), rep("B")}
	req := resolver.Request{PropertyTypes: types.NewPropertyTypeSet(types.PropertyMF), UnitCount: 500}

	// D is at the front of the replacement queue but not in base, so it is
	// never eligible; resolver should fall through to the sequence.
	repID, err := resolver.Resolve(req, base, seq("A", "B"), []string{"D"}, nil, eligibility.AnyMatch, noMark)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if repID != "A" {
		t.Errorf("Resolve() = %s, want A", repID)
	}
}

func TestResolveNoEligibleRep(t *testing.T) {
	req := resolver.Request{PropertyTypes: types.NewPropertyTypeSet(types.PropertyCommercial), UnitCount: 500}
	_, err := resolver.Resolve(req, []types.Rep{rep("A")}, seq("A"), nil, nil, eligibility.AnyMatch, noMark)
	if !errors.Is(err, rotationerr.ErrNoEligibleRep) {
		t.Errorf("Resolve() error = %v, want ErrNoEligibleRep", err)
	}
}

func TestResolveLocksToMarkRep(t *testing.T) {
	req := resolver.Request{UnitCount: 500, ReplacesLeadID: "L1"}
	lookup := func(id string) (resolver.Mark, bool) {
		if id == "L1" {
			return resolver.Mark{RepID: "Z", Lane: types.LaneSub1k, Open: true}, true
		}
		return resolver.Mark{}, false
	}

	repID, err := resolver.Resolve(req, nil, nil, nil, nil, eligibility.AnyMatch, lookup)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if repID != "Z" {
		t.Errorf("Resolve() = %s, want Z (locked to mark rep)", repID)
	}
}

func TestResolveRejectsLaneCrossingReplacement(t *testing.T) {
	req := resolver.Request{UnitCount: 1500, ReplacesLeadID: "L1"}
	lookup := func(id string) (resolver.Mark, bool) {
		return resolver.Mark{RepID: "Z", Lane: types.LaneSub1k, Open: true}, true
	}

	_, err := resolver.Resolve(req, nil, nil, nil, nil, eligibility.AnyMatch, lookup)
	if !errors.Is(err, rotationerr.ErrLaneMismatch) {
		t.Errorf("Resolve() error = %v, want ErrLaneMismatch", err)
	}
}

func TestResolveRejectsClosedMark(t *testing.T) {
	req := resolver.Request{UnitCount: 500, ReplacesLeadID: "L1"}
	lookup := func(id string) (resolver.Mark, bool) {
		return resolver.Mark{RepID: "Z", Lane: types.LaneSub1k, Open: false}, true
	}

	_, err := resolver.Resolve(req, nil, nil, nil, nil, eligibility.AnyMatch, lookup)
	if !errors.Is(err, rotationerr.ErrMarkAlreadyClosed) {
		t.Errorf("Resolve() error = %v, want ErrMarkAlreadyClosed", err)
	}
}
