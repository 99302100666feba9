package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOperationsFromValue_Array(t *testing.T) {
	v := []any{
		map[string]any{"action": "add", "panel": map[string]any{"title": "New"}, "reason": "more detail"},
		map[string]any{"action": "Remove", "panelId": "3"},
		map[string]any{"action": "modify", "panelId": json.Number("2"), "changes": map[string]any{"title": "Renamed"}},
	}

	ops, warnings := OperationsFromValue(v)
	require.Empty(t, warnings)
	require.Len(t, ops, 3)
	require.Equal(t, ActionAdd, ops[0].Action)
	require.Equal(t, "more detail", ops[0].Reason)
	require.Equal(t, ActionRemove, ops[1].Action)
	require.Equal(t, 3, ops[1].PanelID)
	require.Equal(t, 2, ops[2].PanelID)
	require.Equal(t, "Renamed", ops[2].Panel["title"])
}

func TestOperationsFromValue_Object(t *testing.T) {
	v := map[string]any{"operations": []any{
		map[string]any{"action": "remove", "panel_id": float64(7)},
	}}

	ops, warnings := OperationsFromValue(v)
	require.Empty(t, warnings)
	require.Len(t, ops, 1)
	require.Equal(t, 7, ops[0].PanelID)
}

func TestOperationsFromValue_SkipsInvalid(t *testing.T) {
	v := []any{
		"not an object",
		map[string]any{"action": "explode", "panelId": 1},
		map[string]any{"action": "remove"},
		map[string]any{"action": "modify", "panelId": 4},
		map[string]any{"action": "add", "panel": map[string]any{"title": "ok"}},
	}

	ops, warnings := OperationsFromValue(v)
	require.Len(t, ops, 1)
	require.Len(t, warnings, 4)
	require.Contains(t, warnings[0], "not an object")
	require.Contains(t, warnings[1], `unknown action "explode"`)
	require.Contains(t, warnings[2], "requires a panelId")
	require.Contains(t, warnings[3], "has no fields")
}

func TestOperationsFromValue_WrongShape(t *testing.T) {
	ops, warnings := OperationsFromValue("text")
	require.Nil(t, ops)
	require.Equal(t, []string{"operations must be an array"}, warnings)

	ops, warnings = OperationsFromValue(map[string]any{"ops": []any{}})
	require.Nil(t, ops)
	require.Len(t, warnings, 1)
}
