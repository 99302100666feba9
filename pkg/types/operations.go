package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type OperationAction string

const (
	ActionAdd    OperationAction = "add"
	ActionRemove OperationAction = "remove"
	ActionModify OperationAction = "modify"
)

func (a OperationAction) Valid() bool {
	switch a {
	case ActionAdd, ActionRemove, ActionModify:
		return true
	}
	return false
}

// PanelOperation is one edit proposed by the model for an existing dashboard.
type PanelOperation struct {
	Action  OperationAction `json:"action" jsonschema:"required" jsonschema_extras:"description=One of add remove or modify."`
	PanelID int             `json:"panelId,omitempty" jsonschema_extras:"description=Target panel id. Required for remove and modify."`
	Panel   map[string]any  `json:"panel,omitempty" jsonschema_extras:"description=Panel JSON for add, or the fields to overwrite for modify."`
	Reason  string          `json:"reason,omitempty" jsonschema_extras:"description=Short explanation shown to the user."`
}

func (o PanelOperation) Validate() error {
	if !o.Action.Valid() {
		return fmt.Errorf("unknown action %q", o.Action)
	}
	switch o.Action {
	case ActionAdd:
		if len(o.Panel) == 0 {
			return fmt.Errorf("add operation requires a panel")
		}
	case ActionRemove:
		if o.PanelID <= 0 {
			return fmt.Errorf("remove operation requires a panelId")
		}
	case ActionModify:
		if o.PanelID <= 0 {
			return fmt.Errorf("modify operation requires a panelId")
		}
		if len(o.Panel) == 0 {
			return fmt.Errorf("modify operation for panel %d has no fields", o.PanelID)
		}
	}
	return nil
}

// OperationsFromValue lifts a decoded model reply into operations. It accepts a
// bare array or an object carrying an "operations" array. Entries that cannot
// be used are skipped and reported as warnings.
func OperationsFromValue(v any) ([]PanelOperation, []string) {
	var (
		ops      []PanelOperation
		warnings []string
	)

	items, ok := v.([]any)
	if !ok {
		obj, isObj := v.(map[string]any)
		if !isObj {
			return nil, []string{"operations must be an array"}
		}
		if items, ok = obj["operations"].([]any); !ok {
			return nil, []string{`object has no "operations" array`}
		}
	}

	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("operation %d is not an object, skipped", i+1))
			continue
		}
		op := PanelOperation{
			Action: OperationAction(strings.ToLower(strings.TrimSpace(stringField(m, "action")))),
			Reason: stringField(m, "reason"),
		}
		if id, ok := intField(m["panelId"]); ok {
			op.PanelID = id
		} else if id, ok := intField(m["panel_id"]); ok {
			op.PanelID = id
		}
		if p, ok := m["panel"].(map[string]any); ok {
			op.Panel = p
		} else if p, ok := m["changes"].(map[string]any); ok {
			op.Panel = p
		}
		if err := op.Validate(); err != nil {
			warnings = append(warnings, fmt.Sprintf("operation %d skipped: %v", i+1, err))
			continue
		}
		ops = append(ops, op)
	}
	return ops, warnings
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
