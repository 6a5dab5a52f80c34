package store

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/pkg/helpers"
)

const (
	maxLayoutNameLength = 50
	minGridCols         = 1
	maxGridCols         = 24
	minGridRowHeight    = 50
	minRefreshInterval  = 30
	maxRefreshInterval  = 3600
)

var validWidgetTypes = map[string]bool{
	models.WidgetTypeChart:    true,
	models.WidgetTypeTable:    true,
	models.WidgetTypeCard:     true,
	models.WidgetTypeCalendar: true,
	models.WidgetTypeGraph:    true,
	models.WidgetTypeMetric:   true,
	models.WidgetTypeText:     true,
	models.WidgetTypeImage:    true,
	models.WidgetTypeCustom:   true,
}

// preparePreferences brings a document into its persisted shape and checks every
// document invariant. Both backends call it before writing anything.
func preparePreferences(p *models.Preferences) error {
	if p == nil {
		return errs.NewValidationError("preferences document is required")
	}
	applyDefaults(p)
	demoteExtraDefaults(p)
	if err := normalizeConfigs(p); err != nil {
		return err
	}
	return validatePreferences(p)
}

func touch(p *models.Preferences, now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errs.NewFieldValidationError("userId", "is required")
	}
	if strings.Contains(userID, "/") {
		return errs.NewFieldValidationError("userId", "must not contain '/'")
	}
	return nil
}

// --- Defaults ---

// applyDefaults fills only fields whose absence is visible (nil slices, maps and
// pointers). Scalar settings are defaulted when a document or layout is constructed,
// so an explicit zero reaches validation.
func applyDefaults(p *models.Preferences) {
	for i := range p.Layouts {
		l := &p.Layouts[i]
		l.Name = strings.TrimSpace(l.Name)
		if l.Margin == nil {
			l.Margin = models.DefaultMargin()
		}
		if l.ContainerPadding == nil {
			l.ContainerPadding = models.DefaultContainerPadding()
		}
		if l.Breakpoints == nil {
			l.Breakpoints = models.DefaultBreakpoints()
		}
		if l.Cols == nil {
			l.Cols = models.DefaultCols()
		}
		if l.Widgets == nil {
			l.Widgets = []models.Widget{}
		}
		for j := range l.Widgets {
			applyWidgetDefaults(&l.Widgets[j])
		}
	}
}

func applyWidgetDefaults(w *models.Widget) {
	w.Title = strings.TrimSpace(w.Title)
	if w.MinW == nil {
		w.MinW = helpers.Ptr(models.DefaultWidgetMinSize)
	}
	if w.MinH == nil {
		w.MinH = helpers.Ptr(models.DefaultWidgetMinSize)
	}
	if w.MaxW == nil {
		w.MaxW = helpers.Ptr(models.DefaultWidgetMaxSize)
	}
	if w.MaxH == nil {
		w.MaxH = helpers.Ptr(models.DefaultWidgetMaxSize)
	}
	if w.IsResizable == nil {
		w.IsResizable = helpers.Ptr(true)
	}
	if w.IsDraggable == nil {
		w.IsDraggable = helpers.Ptr(true)
	}
	if w.Config == nil {
		w.Config = models.WidgetConfig{}
	}
}

// demoteExtraDefaults keeps the first layout flagged as default and clears the flag on the rest.
func demoteExtraDefaults(p *models.Preferences) {
	seen := false
	for i := range p.Layouts {
		if !p.Layouts[i].IsDefault {
			continue
		}
		if seen {
			p.Layouts[i].IsDefault = false
		}
		seen = true
	}
}

// --- Validation ---

func validatePreferences(p *models.Preferences) error {
	if err := validateUserID(p.UserID); err != nil {
		return err
	}
	if len(p.Layouts) == 0 {
		return errs.NewFieldValidationError("layouts", "at least one layout is required")
	}

	names := make(map[string]bool, len(p.Layouts))
	for i := range p.Layouts {
		l := &p.Layouts[i]
		if err := validateLayout(fmt.Sprintf("layouts[%d]", i), l); err != nil {
			return err
		}
		if names[l.Name] {
			return errs.NewFieldValidationError(fmt.Sprintf("layouts[%d].name", i),
				fmt.Sprintf("duplicate layout name %q", l.Name))
		}
		names[l.Name] = true
	}

	if !names[p.ActiveLayoutName] {
		return errs.NewFieldValidationError("activeLayoutName",
			fmt.Sprintf("%q does not match any layout", p.ActiveLayoutName))
	}

	return validateGlobalSettings(p.GlobalSettings)
}

func validateLayout(field string, l *models.Layout) error {
	if l.Name == "" {
		return errs.NewFieldValidationError(field+".name", "is required")
	}
	if utf8.RuneCountInString(l.Name) > maxLayoutNameLength {
		return errs.NewFieldValidationError(field+".name",
			fmt.Sprintf("must be at most %d characters", maxLayoutNameLength))
	}
	if l.GridCols < minGridCols || l.GridCols > maxGridCols {
		return errs.NewFieldValidationError(field+".gridCols",
			fmt.Sprintf("must be between %d and %d", minGridCols, maxGridCols))
	}
	if l.GridRowHeight < minGridRowHeight {
		return errs.NewFieldValidationError(field+".gridRowHeight",
			fmt.Sprintf("must be at least %d", minGridRowHeight))
	}
	if err := validatePair(field+".margin", l.Margin); err != nil {
		return err
	}
	if err := validatePair(field+".containerPadding", l.ContainerPadding); err != nil {
		return err
	}
	for bp, width := range l.Breakpoints {
		if width < 0 {
			return errs.NewFieldValidationError(field+".breakpoints."+bp, "must not be negative")
		}
	}
	for bp, cols := range l.Cols {
		if cols < 1 {
			return errs.NewFieldValidationError(field+".cols."+bp, "must be at least 1")
		}
	}

	ids := make(map[string]bool, len(l.Widgets))
	for j := range l.Widgets {
		w := &l.Widgets[j]
		wf := fmt.Sprintf("%s.widgets[%d]", field, j)
		if err := validateWidget(wf, w); err != nil {
			return err
		}
		if ids[w.ID] {
			return errs.NewFieldValidationError(wf+".id", fmt.Sprintf("duplicate widget id %q", w.ID))
		}
		ids[w.ID] = true
	}
	return nil
}

func validatePair(field string, v []float64) error {
	if len(v) != 2 {
		return errs.NewFieldValidationError(field, "must be an array of two non-negative numbers")
	}
	for _, n := range v {
		if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return errs.NewFieldValidationError(field, "must be an array of two non-negative numbers")
		}
	}
	return nil
}

func validateWidget(field string, w *models.Widget) error {
	if strings.TrimSpace(w.ID) == "" {
		return errs.NewFieldValidationError(field+".id", "is required")
	}
	if !validWidgetTypes[w.Type] {
		return errs.NewFieldValidationError(field+".type", fmt.Sprintf("unknown widget type %q", w.Type))
	}
	if w.X < 0 || w.Y < 0 {
		return errs.NewFieldValidationError(field, "x and y must not be negative")
	}
	if w.W < 1 || w.H < 1 {
		return errs.NewFieldValidationError(field, "w and h must be at least 1")
	}
	minW, minH := helpers.Value(w.MinW), helpers.Value(w.MinH)
	if minW < 1 || minH < 1 {
		return errs.NewFieldValidationError(field, "minW and minH must be at least 1")
	}
	if w.W < minW || w.H < minH {
		return errs.NewFieldValidationError(field, fmt.Sprintf("size %dx%d is below the minimum %dx%d", w.W, w.H, minW, minH))
	}
	if maxW, maxH := helpers.Value(w.MaxW), helpers.Value(w.MaxH); w.W > maxW || w.H > maxH {
		return errs.NewFieldValidationError(field, fmt.Sprintf("size %dx%d is above the maximum %dx%d", w.W, w.H, maxW, maxH))
	}
	return nil
}

func validateGlobalSettings(gs models.GlobalSettings) error {
	switch gs.Theme {
	case models.ThemeLight, models.ThemeDark, models.ThemeAuto:
	default:
		return errs.NewFieldValidationError("globalSettings.theme", "must be one of: light, dark, auto")
	}
	if gs.RefreshInterval < minRefreshInterval || gs.RefreshInterval > maxRefreshInterval {
		return errs.NewFieldValidationError("globalSettings.refreshInterval",
			fmt.Sprintf("must be between %d and %d seconds", minRefreshInterval, maxRefreshInterval))
	}
	return nil
}

// --- Widget config ---

func normalizeConfigs(p *models.Preferences) error {
	for i := range p.Layouts {
		for j := range p.Layouts[i].Widgets {
			w := &p.Layouts[i].Widgets[j]
			field := fmt.Sprintf("layouts[%d].widgets[%d].config", i, j)
			cfg, err := normalizeConfigMap(field, reflect.ValueOf(map[string]any(w.Config)))
			if err != nil {
				return err
			}
			w.Config = models.WidgetConfig(cfg)
		}
	}
	return nil
}

// normalizeConfigValue reduces an arbitrary value to the JSON/Firestore compatible
// subset: nil, string, bool, float64, []any and map[string]any.
func normalizeConfigValue(field string, v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string, bool:
		return val, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, errs.NewFieldValidationError(field, "must be a finite number")
		}
		return val, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return normalizeConfigValue(field, rv.Float())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalizeConfigValue(field, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}, nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := normalizeConfigValue(fmt.Sprintf("%s[%d]", field, i), rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case reflect.Map:
		return normalizeConfigMap(field, rv)
	}
	return nil, errs.NewFieldValidationError(field, fmt.Sprintf("unsupported value of type %T", v))
}

func normalizeConfigMap(field string, rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, errs.NewFieldValidationError(field, "map keys must be strings")
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		item, err := normalizeConfigValue(field+"."+key, iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		out[key] = item
	}
	return out, nil
}
