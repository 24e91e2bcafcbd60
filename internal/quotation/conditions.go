package quotation

import (
	"fmt"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
)

// Conditions maps a condition id to its state for one calculation.
type Conditions map[int64]domain.ConditionSelection

// MergeConditions starts from the trip selections and applies cotation
// overrides (condition id -> selected option id). Overrides are always
// active. labels resolves option ids to display labels and may be nil.
func MergeConditions(trip []domain.ConditionSelection, overrides map[int64]int64, labels map[int64]string) Conditions {
	merged := make(Conditions, len(trip)+len(overrides))
	for _, c := range trip {
		merged[c.ConditionID] = c
	}
	for conditionID, optionID := range overrides {
		opt := optionID
		merged[conditionID] = domain.ConditionSelection{
			ConditionID:         conditionID,
			SelectedOptionID:    &opt,
			SelectedOptionLabel: labels[optionID],
			IsActive:            true,
		}
	}
	return merged
}

// ShouldInclude decides whether an item of a conditional formula is priced.
// Excluded items come with a readable reason.
func ShouldInclude(item domain.Item, formula domain.Formula, conds Conditions) (bool, string) {
	if formula.ConditionID == nil || item.ConditionOptionID == nil {
		return true, ""
	}

	sel, ok := conds[*formula.ConditionID]
	if !ok {
		return false, fmt.Sprintf("Item '%s' excluded (condition not enabled on this trip)", item.Name)
	}
	if !sel.IsActive {
		return false, fmt.Sprintf("Item '%s' excluded (condition disabled)", item.Name)
	}
	if sel.SelectedOptionID == nil || *sel.SelectedOptionID != *item.ConditionOptionID {
		return false, fmt.Sprintf("Item '%s' excluded (option '%s' ≠ selection '%s')",
			item.Name, orUnknown(item.ConditionOptionLabel), orUnknown(sel.SelectedOptionLabel))
	}
	return true, ""
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
