package models

const (
	DefaultLayoutName      = "Default"
	DefaultGridCols        = 12
	DefaultGridRowHeight   = 150
	DefaultWidgetMinSize   = 1
	DefaultWidgetMaxSize   = 12
	DefaultRefreshInterval = 300
)

// WidgetTypes lists every accepted widget type in display order.
var WidgetTypes = []string{
	WidgetTypeChart,
	WidgetTypeTable,
	WidgetTypeCard,
	WidgetTypeCalendar,
	WidgetTypeGraph,
	WidgetTypeMetric,
	WidgetTypeText,
	WidgetTypeImage,
	WidgetTypeCustom,
}

func DefaultMargin() []float64 { return []float64{10, 10} }

func DefaultContainerPadding() []float64 { return []float64{10, 10} }

func DefaultBreakpoints() map[string]int {
	return map[string]int{"lg": 1200, "md": 996, "sm": 768, "xs": 480, "xxs": 0}
}

func DefaultCols() map[string]int {
	return map[string]int{"lg": 12, "md": 10, "sm": 6, "xs": 4, "xxs": 2}
}

func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		Theme:           ThemeLight,
		AutoSave:        true,
		RefreshInterval: DefaultRefreshInterval,
		CompactMode:     false,
	}
}

// NewLayout returns an empty layout with the default grid size. Spacing, breakpoints
// and columns are filled in when the document is saved.
func NewLayout(name string) Layout {
	return Layout{
		Name:          name,
		Widgets:       []Widget{},
		GridCols:      DefaultGridCols,
		GridRowHeight: DefaultGridRowHeight,
	}
}

// DefaultPreferences builds the document a user gets on first read: one default
// layout with a welcome card and a stats metric.
func DefaultPreferences(userID string) *Preferences {
	layout := NewLayout(DefaultLayoutName)
	layout.IsDefault = true
	layout.Widgets = []Widget{
		{
			ID:     "welcome-widget",
			Type:   WidgetTypeCard,
			X:      0,
			Y:      0,
			W:      6,
			H:      2,
			Title:  "Welcome",
			Config: WidgetConfig{"message": "Welcome to your dashboard!"},
		},
		{
			ID:     "stats-widget",
			Type:   WidgetTypeMetric,
			X:      6,
			Y:      0,
			W:      6,
			H:      2,
			Title:  "Quick Stats",
			Config: WidgetConfig{},
		},
	}

	return &Preferences{
		UserID:           userID,
		Layouts:          []Layout{layout},
		ActiveLayoutName: DefaultLayoutName,
		GlobalSettings:   DefaultGlobalSettings(),
	}
}
