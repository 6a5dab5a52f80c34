package dto

import (
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/pkg/helpers"
)

// --- Request types ---

type SwitchLayoutRequest struct {
	Name string `json:"name"`
}

type DuplicateLayoutRequest struct {
	Name string `json:"name"`
}

// CreateLayoutRequest is a new layout. Grid sizes left out of the body get the
// defaults; sizes that are sent are kept as-is and validated on save.
type CreateLayoutRequest struct {
	Name             string          `json:"name"`
	IsDefault        bool            `json:"isDefault"`
	Widgets          []models.Widget `json:"widgets"`
	GridCols         *int            `json:"gridCols,omitempty"`
	GridRowHeight    *int            `json:"gridRowHeight,omitempty"`
	Margin           []float64       `json:"margin,omitempty"`
	ContainerPadding []float64       `json:"containerPadding,omitempty"`
	Breakpoints      map[string]int  `json:"breakpoints,omitempty"`
	Cols             map[string]int  `json:"cols,omitempty"`
}

func (r CreateLayoutRequest) Layout() models.Layout {
	l := models.NewLayout(r.Name)
	l.IsDefault = r.IsDefault
	if r.Widgets != nil {
		l.Widgets = r.Widgets
	}
	l.GridCols = helpers.ValueOr(r.GridCols, l.GridCols)
	l.GridRowHeight = helpers.ValueOr(r.GridRowHeight, l.GridRowHeight)
	l.Margin = r.Margin
	l.ContainerPadding = r.ContainerPadding
	l.Breakpoints = r.Breakpoints
	l.Cols = r.Cols
	return l
}

type UpdateWidgetsRequest struct {
	Widgets []models.Widget `json:"widgets"`
}

// UpdateLayoutRequest is a partial layout update; nil fields keep their current value.
// Widgets are replaced through UpdateWidgetsRequest instead.
type UpdateLayoutRequest struct {
	Name             *string        `json:"name,omitempty"`
	IsDefault        *bool          `json:"isDefault,omitempty"`
	GridCols         *int           `json:"gridCols,omitempty"`
	GridRowHeight    *int           `json:"gridRowHeight,omitempty"`
	Margin           []float64      `json:"margin,omitempty"`
	ContainerPadding []float64      `json:"containerPadding,omitempty"`
	Breakpoints      map[string]int `json:"breakpoints,omitempty"`
	Cols             map[string]int `json:"cols,omitempty"`
}

// GlobalSettingsPatch merges into the stored settings; nil fields keep their current value.
type GlobalSettingsPatch struct {
	Theme           *string `json:"theme,omitempty"`
	AutoSave        *bool   `json:"autoSave,omitempty"`
	RefreshInterval *int    `json:"refreshInterval,omitempty"`
	CompactMode     *bool   `json:"compactMode,omitempty"`
}

type RegisterUserRequest struct {
	DisplayName string `json:"displayName"`
}

// --- Response types ---

// WidgetTypeInfo describes a widget type and the sizing defaults applied to it.
type WidgetTypeInfo struct {
	Type        string `json:"type"`
	MinW        int    `json:"minW"`
	MinH        int    `json:"minH"`
	MaxW        int    `json:"maxW"`
	MaxH        int    `json:"maxH"`
	Resizable   bool   `json:"isResizable"`
	Draggable   bool   `json:"isDraggable"`
	Description string `json:"description"`
}
