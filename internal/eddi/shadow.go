package eddi

import "aspis/internal/ir"

// ShadowMap is the symmetric original<->shadow relation over SSA values
// that the duplicator builds up across the whole module: once a pair is
// registered here it stays valid for the rest of the pass, and both
// globals and argument shadows are looked up through it regardless of
// which function produced them.
type ShadowMap struct {
	pairs map[*ir.Value]*ir.Value
}

// NewShadowMap returns an empty map.
func NewShadowMap() *ShadowMap {
	return &ShadowMap{pairs: map[*ir.Value]*ir.Value{}}
}

// Pair registers (v, shadow) and its symmetric counterpart. A value never
// pairs with itself; callers are expected to already have excluded that
// case (constants, and clones erased for being textually identical).
func (s *ShadowMap) Pair(v, shadow *ir.Value) {
	if v == nil || shadow == nil || v == shadow {
		return
	}
	s.pairs[v] = shadow
	s.pairs[shadow] = v
}

// Shadow returns v's registered counterpart, if any.
func (s *ShadowMap) Shadow(v *ir.Value) (*ir.Value, bool) {
	if v == nil {
		return nil, false
	}
	sv, ok := s.pairs[v]
	return sv, ok
}

// Unpair retracts a mapping in both directions. Used when a cloned
// store/atomicrmw/cmpxchg turns out textually identical to its original
// (no operand had a shadow) and is erased rather than kept.
func (s *ShadowMap) Unpair(v *ir.Value) {
	if v == nil {
		return
	}
	if sv, ok := s.pairs[v]; ok {
		delete(s.pairs, v)
		delete(s.pairs, sv)
	}
}

// Len reports the number of registered pairs.
func (s *ShadowMap) Len() int { return len(s.pairs) / 2 }
