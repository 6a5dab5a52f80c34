package models

import "time"

// Widget types accepted by the dashboard grid.
const (
	WidgetTypeChart    = "chart"
	WidgetTypeTable    = "table"
	WidgetTypeCard     = "card"
	WidgetTypeCalendar = "calendar"
	WidgetTypeGraph    = "graph"
	WidgetTypeMetric   = "metric"
	WidgetTypeText     = "text"
	WidgetTypeImage    = "image"
	WidgetTypeCustom   = "custom"
)

// Themes accepted in GlobalSettings.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
)

// WidgetConfig is widget specific and opaque to the backend. Values are strings,
// float64 numbers, bools, nil, []any or map[string]any once a document has been saved.
type WidgetConfig map[string]any

// Widget is a single positioned cell on a layout grid.
type Widget struct {
	ID          string       `firestore:"id" json:"id"`
	Type        string       `firestore:"type" json:"type"`
	X           int          `firestore:"x" json:"x"`
	Y           int          `firestore:"y" json:"y"`
	W           int          `firestore:"w" json:"w"`
	H           int          `firestore:"h" json:"h"`
	MinW        *int         `firestore:"minW,omitempty" json:"minW,omitempty"`
	MinH        *int         `firestore:"minH,omitempty" json:"minH,omitempty"`
	MaxW        *int         `firestore:"maxW,omitempty" json:"maxW,omitempty"`
	MaxH        *int         `firestore:"maxH,omitempty" json:"maxH,omitempty"`
	IsResizable *bool        `firestore:"isResizable,omitempty" json:"isResizable,omitempty"`
	IsDraggable *bool        `firestore:"isDraggable,omitempty" json:"isDraggable,omitempty"`
	Title       string       `firestore:"title,omitempty" json:"title,omitempty"`
	Config      WidgetConfig `firestore:"config" json:"config"`
}

// Layout is a named arrangement of widgets. Margin and ContainerPadding hold
// [horizontal, vertical] pixel values.
type Layout struct {
	Name             string         `firestore:"name" json:"name"`
	IsDefault        bool           `firestore:"isDefault" json:"isDefault"`
	Widgets          []Widget       `firestore:"widgets" json:"widgets"`
	GridCols         int            `firestore:"gridCols" json:"gridCols"`
	GridRowHeight    int            `firestore:"gridRowHeight" json:"gridRowHeight"`
	Margin           []float64      `firestore:"margin" json:"margin"`
	ContainerPadding []float64      `firestore:"containerPadding" json:"containerPadding"`
	Breakpoints      map[string]int `firestore:"breakpoints" json:"breakpoints"`
	Cols             map[string]int `firestore:"cols" json:"cols"`
}

type GlobalSettings struct {
	Theme           string `firestore:"theme" json:"theme"`
	AutoSave        bool   `firestore:"autoSave" json:"autoSave"`
	RefreshInterval int    `firestore:"refreshInterval" json:"refreshInterval"` // seconds
	CompactMode     bool   `firestore:"compactMode" json:"compactMode"`
}

// Preferences is the per-user dashboard document stored in Firestore.
type Preferences struct {
	UserID           string         `firestore:"userId" json:"userId"`
	Layouts          []Layout       `firestore:"layouts" json:"layouts"`
	ActiveLayoutName string         `firestore:"activeLayoutName" json:"activeLayoutName"`
	GlobalSettings   GlobalSettings `firestore:"globalSettings" json:"globalSettings"`
	CreatedAt        time.Time      `firestore:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time      `firestore:"updatedAt" json:"updatedAt"`
}
