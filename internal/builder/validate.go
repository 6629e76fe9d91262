package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/buildgraph/internal/diag"
	"github.com/specialistvlad/buildgraph/internal/itemtype"
	"github.com/specialistvlad/buildgraph/internal/step"
)

// checkSteps runs the per-step structural checks.
func (s *state) checkSteps() {
	for _, d := range s.g.steps {
		if d.Body == nil {
			s.report(diag.Errorf(diag.KindMalformedStep, []string{d.ID}, nil, "step '%s' has no body", d.ID))
		}
		if d.IsIsolated() {
			s.report(diag.Warnf(diag.KindEmptyStep, []string{d.ID}, nil, "step '%s' declares no consumes and no produces", d.ID))
			continue
		}

		consumed := make(map[string]bool, len(d.Consumes))
		for _, c := range d.Consumes {
			name := c.Type.Name()
			if !s.checkType(d.ID, c.Type) {
				continue
			}
			if consumed[name] {
				s.report(diag.Errorf(diag.KindMalformedStep, []string{d.ID}, []string{name}, "step '%s' consumes item '%s' twice", d.ID, name))
				s.markBroken(d.ID, name)
				continue
			}
			consumed[name] = true
			if err := step.CheckConsume(c.Type.Kind(), c.Modifier); err != nil {
				s.report(diag.Errorf(diag.KindModifierMismatch, []string{d.ID}, []string{name}, "step '%s' consumes '%s': %v", d.ID, name, err))
				s.markBroken(d.ID, name)
			}
		}

		produced := make(map[string]bool, len(d.Produces))
		for _, p := range d.Produces {
			name := p.Type.Name()
			if !s.checkType(d.ID, p.Type) {
				continue
			}
			if produced[name] {
				s.report(diag.Errorf(diag.KindMalformedStep, []string{d.ID}, []string{name}, "step '%s' produces item '%s' twice", d.ID, name))
				s.markBroken(d.ID, name)
				continue
			}
			produced[name] = true
			if err := step.CheckProduce(p.Type.Kind(), p.Modifier); err != nil {
				s.report(diag.Errorf(diag.KindModifierMismatch, []string{d.ID}, []string{name}, "step '%s' produces '%s': %v", d.ID, name, err))
				s.markBroken(d.ID, name)
			}
		}
	}
}

func (s *state) checkType(stepID string, t itemtype.Type) bool {
	err := itemtype.ValidateLeaf(t)
	if err == nil {
		return true
	}
	kind := diag.KindMalformedStep
	if errors.Is(err, itemtype.ErrNotLeaf) {
		kind = diag.KindNonLeafType
	}
	s.report(diag.Errorf(kind, []string{stepID}, []string{t.Name()}, "step '%s': %v", stepID, err))
	s.markBroken(stepID, t.Name())
	return false
}

// classify registers each item type on first reference and rejects any
// later reference that disagrees with it.
func (s *state) classify() {
	firstBy := make(map[string]string)
	reported := make(map[string]bool)

	visit := func(stepID string, t itemtype.Type) bool {
		name := t.Name()
		if s.isBroken(stepID, name) {
			return false
		}
		it, ok := s.g.items[name]
		if !ok {
			s.g.items[name] = &Item{Type: t}
			s.g.itemOrder = append(s.g.itemOrder, name)
			firstBy[name] = stepID
			return true
		}
		if itemtype.Same(it.Type, t) {
			return true
		}
		key := name + "\x00" + stepID
		if !reported[key] {
			reported[key] = true
			first := firstBy[name]
			s.report(diag.Errorf(diag.KindReclassified, []string{first, stepID}, []string{name},
				"item '%s' is declared as %s by step '%s' but as %s by step '%s'",
				name, describe(it.Type), first, describe(t), stepID))
		}
		s.markBroken(stepID, name)
		return false
	}

	for _, d := range s.g.steps {
		for _, p := range d.Produces {
			if visit(d.ID, p.Type) {
				it := s.g.items[p.Type.Name()]
				it.Producers = append(it.Producers, d.ID)
			}
		}
		for _, c := range d.Consumes {
			if visit(d.ID, c.Type) {
				it := s.g.items[c.Type.Name()]
				it.Consumers = append(it.Consumers, d.ID)
			}
		}
	}
}

func describe(t itemtype.Type) string {
	if t.Payload() == nil {
		return t.Kind().String()
	}
	return fmt.Sprintf("%s of %s", t.Kind(), t.Payload())
}

// resolveProducers enforces FINAL sealing and the single-producer rule of
// SIMPLE items, applying overrides where they disambiguate.
func (s *state) resolveProducers() {
	for _, name := range s.g.itemOrder {
		it := s.g.items[name]
		if len(it.Producers) == 0 {
			continue
		}

		var sealer string
		for _, p := range it.Producers {
			if pd, _ := s.g.byID[p].ProduceOf(name); pd.Modifier == step.Final {
				sealer = p
				break
			}
		}
		if sealer != "" {
			it.Sealer = sealer
			for _, p := range it.Producers {
				if p == sealer {
					continue
				}
				s.report(diag.Errorf(diag.KindFinalViolation, []string{sealer, p}, []string{name},
					"item '%s' is sealed by FINAL producer '%s'; step '%s' may not also produce it", name, sealer, p))
			}
			continue
		}

		if it.Type.Kind() != itemtype.KindSimple || len(it.Producers) < 2 {
			continue
		}

		var overriders []string
		for _, p := range it.Producers {
			if s.g.byID[p].Override {
				overriders = append(overriders, p)
			}
		}
		if len(overriders) != 1 {
			msg := fmt.Sprintf("duplicate producer for %s: %s", name, strings.Join(it.Producers, ", "))
			if len(overriders) > 1 {
				msg += fmt.Sprintf(" (%d of them claim override)", len(overriders))
			}
			s.report(diag.Errorf(diag.KindDuplicateProducer, append([]string{}, it.Producers...), []string{name}, "%s", msg))
			continue
		}

		winner := overriders[0]
		it.Winner = winner
		for _, p := range it.Producers {
			if p == winner {
				continue
			}
			if s.g.shadowed[p] == nil {
				s.g.shadowed[p] = make(map[string]string)
			}
			s.g.shadowed[p][name] = winner
			s.report(diag.Infof(diag.KindOverrideApplied, []string{winner, p}, []string{name},
				"step '%s' overrides the output of '%s' for item '%s'", winner, p, name))
		}
	}
}

// effectiveProducers returns the producers of an item whose output is not
// shadowed by an override.
func (s *state) effectiveProducers(it *Item) []string {
	if it.Winner != "" {
		return []string{it.Winner}
	}
	return it.Producers
}

func (s *state) checkConsumers() {
	for _, d := range s.g.steps {
		for _, c := range d.Consumes {
			name := c.Type.Name()
			if s.isBroken(d.ID, name) || c.Modifier != step.Required {
				continue
			}
			it := s.g.items[name]
			if len(s.effectiveProducers(it)) == 0 {
				s.report(diag.Errorf(diag.KindMissingProducer, []string{d.ID}, []string{name},
					"step '%s' requires item '%s' but no step produces it", d.ID, name))
			}
		}
	}
}
