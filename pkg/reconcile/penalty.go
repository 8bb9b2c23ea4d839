package reconcile

import (
	"fmt"
	"sort"
)

// PenaltyKind distinguishes flat deductions from tiered ones.
type PenaltyKind string

const (
	PenaltyKindFlat      PenaltyKind = "flat"
	PenaltyKindVariation PenaltyKind = "variation"
)

// PenaltyItem is a single line of the penalty breakdown. Items are never summed.
type PenaltyItem struct {
	Kind          PenaltyKind `json:"kind"`
	SourceID      uint        `json:"source_id"`
	Percentage    float64     `json:"percentage"`
	Justification string      `json:"justification"`
}

// PenaltyDecision is the outcome of aggregating penalty sources for a lateness.
type PenaltyDecision struct {
	DaysLate      int           `json:"days_late"`
	Flat          []FlatPenalty `json:"flat_penalties"`
	SelectedRange *PenaltyRange `json:"selected_range"`
	Items         []PenaltyItem `json:"items"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// Penalized reports whether any penalty line applies.
func (d PenaltyDecision) Penalized() bool {
	return len(d.Items) > 0
}

// AggregatePenalties selects the applicable flat penalties and tier for daysLate.
// On-time work is never penalized.
func AggregatePenalties(daysLate int, sources PenaltySources) PenaltyDecision {
	if daysLate < 0 {
		daysLate = 0
	}

	decision := PenaltyDecision{
		DaysLate: daysLate,
		Flat:     []FlatPenalty{},
		Items:    []PenaltyItem{},
	}
	if daysLate == 0 {
		return decision
	}

	for _, flat := range sources.Flat {
		decision.Flat = append(decision.Flat, flat)
		decision.Items = append(decision.Items, PenaltyItem{
			Kind:          PenaltyKindFlat,
			SourceID:      flat.ID,
			Percentage:    flat.Percentage,
			Justification: flatJustification(flat),
		})
	}

	if sources.Variation != nil {
		selected, warning := selectRange(daysLate, sources.Variation.ID, sources.Ranges)
		if warning != "" {
			decision.Warnings = append(decision.Warnings, warning)
		}
		if selected != nil {
			decision.SelectedRange = selected
			decision.Items = append(decision.Items, PenaltyItem{
				Kind:       PenaltyKindVariation,
				SourceID:   selected.ID,
				Percentage: selected.Percentage,
				Justification: fmt.Sprintf("%s: %d or more days late (%d days late)",
					variationName(*sources.Variation), selected.DaysLate, daysLate),
			})
		}
	}

	return decision
}

// selectRange picks the tier with the greatest lower bound not above daysLate.
// Ties on the bound resolve to the highest percentage and yield a warning.
func selectRange(daysLate int, variationID uint, ranges []PenaltyRange) (*PenaltyRange, string) {
	candidates := make([]PenaltyRange, 0, len(ranges))
	for _, r := range ranges {
		if r.VariationPenaltyID != 0 && variationID != 0 && r.VariationPenaltyID != variationID {
			continue
		}
		if r.DaysLate <= daysLate {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, ""
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DaysLate != candidates[j].DaysLate {
			return candidates[i].DaysLate > candidates[j].DaysLate
		}
		return candidates[i].Percentage > candidates[j].Percentage
	})

	best := candidates[0]
	warning := ""
	if len(candidates) > 1 && candidates[1].DaysLate == best.DaysLate {
		warning = fmt.Sprintf("variation penalty %d has multiple ranges starting at %d days late; using %.2f%%",
			variationID, best.DaysLate, best.Percentage)
	}
	return &best, warning
}

func flatJustification(p FlatPenalty) string {
	if p.Description != "" {
		return p.Description
	}
	return fmt.Sprintf("late submission penalty of %.2f%%", p.Percentage)
}

func variationName(v VariationPenalty) string {
	if v.Name != "" {
		return v.Name
	}
	return "late penalty"
}
