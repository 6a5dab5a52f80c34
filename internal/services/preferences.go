package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GregMSThompson/dashboard-backend/internal/dto"
	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/metrics"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/pkg/helpers"
	"github.com/GregMSThompson/dashboard-backend/pkg/logger"
)

// preferencesStore persists whole preference documents. Load returns nil, nil when
// the user has no document.
type preferencesStore interface {
	Load(ctx context.Context, userID string) (*models.Preferences, error)
	Save(ctx context.Context, p *models.Preferences) error
	CreateDefault(ctx context.Context, userID string) (*models.Preferences, error)
}

// preferencesService runs every mutation as one load, modify, save cycle. There is
// no version check, so concurrent writes for the same user are last-writer-wins.
type preferencesService struct {
	store preferencesStore
}

func NewPreferencesService(store preferencesStore) *preferencesService {
	return &preferencesService{store: store}
}

// --- Public service methods ---

// GetPreferences returns the user's document, creating the default one on first read.
func (s *preferencesService) GetPreferences(ctx context.Context, uid string) (p *models.Preferences, err error) {
	defer observe("get_preferences", time.Now(), &err)
	log := logger.FromContext(ctx)

	p, err = s.store.Load(ctx, uid)
	if err != nil || p != nil {
		return p, err
	}

	p, err = s.store.CreateDefault(ctx, uid)
	var exists *errs.AlreadyExistsError
	if errors.As(err, &exists) {
		// another request created it between our load and create
		p, err = s.store.Load(ctx, uid)
		if err == nil && p == nil {
			err = notFound(uid)
		}
		return p, err
	}
	if err != nil {
		log.Error("failed to create default preferences", "error", err)
		return nil, err
	}

	log.Info("default preferences created")
	return p, nil
}

// GetActiveLayout returns nil without an error when the user has no document yet.
func (s *preferencesService) GetActiveLayout(ctx context.Context, uid string) (l *models.Layout, err error) {
	defer observe("get_active_layout", time.Now(), &err)

	p, err := s.store.Load(ctx, uid)
	if err != nil || p == nil {
		return nil, err
	}
	i := findLayout(p, p.ActiveLayoutName)
	if i < 0 {
		return nil, nil
	}
	return &p.Layouts[i], nil
}

func (s *preferencesService) SwitchLayout(ctx context.Context, uid, layoutName string) (p *models.Preferences, err error) {
	defer observe("switch_layout", time.Now(), &err)

	p, err = s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	if findLayout(p, layoutName) < 0 {
		return nil, layoutNotFound(uid, layoutName)
	}

	p.ActiveLayoutName = layoutName
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("active layout switched", "layout", layoutName)
	return p, nil
}

func (s *preferencesService) CreateLayout(ctx context.Context, uid string, layout models.Layout) (p *models.Preferences, err error) {
	defer observe("create_layout", time.Now(), &err)

	p, err = s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := addLayout(p, layout); err != nil {
		return nil, err
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("layout created", "layout", layout.Name)
	return p, nil
}

// DuplicateLayout copies the source layout's widgets and grid settings under a new,
// non-default name.
func (s *preferencesService) DuplicateLayout(ctx context.Context, uid, sourceName, newName string) (p *models.Preferences, err error) {
	defer observe("duplicate_layout", time.Now(), &err)

	p, err = s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	i := findLayout(p, sourceName)
	if i < 0 {
		return nil, errs.NewNotFoundError(fmt.Sprintf("source layout %q not found for user %q", sourceName, uid))
	}

	copied := cloneLayout(p.Layouts[i])
	copied.Name = newName
	copied.IsDefault = false
	if err := addLayout(p, copied); err != nil {
		return nil, err
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("layout duplicated", "source", sourceName, "layout", newName)
	return p, nil
}

// UpdateLayout applies a partial update to a layout's name, default flag and grid settings.
func (s *preferencesService) UpdateLayout(ctx context.Context, uid, layoutName string, req dto.UpdateLayoutRequest) (p *models.Preferences, err error) {
	defer observe("update_layout", time.Now(), &err)

	p, err = s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	i := findLayout(p, layoutName)
	if i < 0 {
		return nil, layoutNotFound(uid, layoutName)
	}
	l := &p.Layouts[i]

	if req.Name != nil {
		newName := strings.TrimSpace(*req.Name)
		if newName != l.Name {
			if findLayout(p, newName) >= 0 {
				return nil, layoutExists(uid, newName)
			}
			if p.ActiveLayoutName == l.Name {
				p.ActiveLayoutName = newName
			}
			l.Name = newName
		}
	}
	if req.IsDefault != nil {
		if *req.IsDefault {
			for j := range p.Layouts {
				p.Layouts[j].IsDefault = false
			}
		}
		l.IsDefault = *req.IsDefault
	}
	l.GridCols = helpers.ValueOr(req.GridCols, l.GridCols)
	l.GridRowHeight = helpers.ValueOr(req.GridRowHeight, l.GridRowHeight)
	if req.Margin != nil {
		l.Margin = slices.Clone(req.Margin)
	}
	if req.ContainerPadding != nil {
		l.ContainerPadding = slices.Clone(req.ContainerPadding)
	}
	if req.Breakpoints != nil {
		l.Breakpoints = maps.Clone(req.Breakpoints)
	}
	if req.Cols != nil {
		l.Cols = maps.Clone(req.Cols)
	}

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("layout updated", "layout", layoutName)
	return p, nil
}

// DeleteLayout refuses to remove the last layout. Removing the active layout makes
// the first remaining layout active.
func (s *preferencesService) DeleteLayout(ctx context.Context, uid, layoutName string) (p *models.Preferences, err error) {
	defer observe("delete_layout", time.Now(), &err)

	p, err = s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(p.Layouts) <= 1 {
		return nil, errs.NewFieldValidationError("layouts", "cannot delete the last layout")
	}
	i := findLayout(p, layoutName)
	if i < 0 {
		return nil, layoutNotFound(uid, layoutName)
	}

	p.Layouts = slices.Delete(p.Layouts, i, i+1)
	if p.ActiveLayoutName == layoutName {
		p.ActiveLayoutName = p.Layouts[0].Name
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("layout deleted", "layout", layoutName, "active_layout", p.ActiveLayoutName)
	return p, nil
}

// UpdateWidgetLayout replaces the whole widget collection of a layout.
func (s *preferencesService) UpdateWidgetLayout(ctx context.Context, uid, layoutName string, widgets []models.Widget) (p *models.Preferences, err error) {
	defer observe("update_widget_layout", time.Now(), &err)

	p, err = s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	i := findLayout(p, layoutName)
	if i < 0 {
		return nil, layoutNotFound(uid, layoutName)
	}

	if widgets == nil {
		widgets = []models.Widget{}
	}
	p.Layouts[i].Widgets = widgets
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("widget layout updated", "layout", layoutName, "widgets", len(widgets))
	return p, nil
}

// AddWidget appends a widget to a layout, assigning an id when the caller left it empty.
func (s *preferencesService) AddWidget(ctx context.Context, uid, layoutName string, widget models.Widget) (p *models.Preferences, err error) {
	defer observe("add_widget", time.Now(), &err)

	p, err = s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	i := findLayout(p, layoutName)
	if i < 0 {
		return nil, layoutNotFound(uid, layoutName)
	}
	l := &p.Layouts[i]

	if widget.ID == "" {
		widget.ID = uuid.NewString()
	}
	if findWidget(l, widget.ID) >= 0 {
		return nil, errs.NewAlreadyExistsError(
			fmt.Sprintf("widget %q already exists in layout %q for user %q", widget.ID, layoutName, uid))
	}

	l.Widgets = append(l.Widgets, widget)
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("widget added", "layout", layoutName, "widget_id", widget.ID, "type", widget.Type)
	return p, nil
}

func (s *preferencesService) RemoveWidget(ctx context.Context, uid, layoutName, widgetID string) (p *models.Preferences, err error) {
	defer observe("remove_widget", time.Now(), &err)

	p, err = s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	i := findLayout(p, layoutName)
	if i < 0 {
		return nil, layoutNotFound(uid, layoutName)
	}
	l := &p.Layouts[i]
	j := findWidget(l, widgetID)
	if j < 0 {
		return nil, errs.NewNotFoundError(
			fmt.Sprintf("widget %q not found in layout %q for user %q", widgetID, layoutName, uid))
	}

	l.Widgets = slices.Delete(l.Widgets, j, j+1)
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("widget removed", "layout", layoutName, "widget_id", widgetID)
	return p, nil
}

// UpdateGlobalSettings merges the provided fields into the stored settings.
func (s *preferencesService) UpdateGlobalSettings(ctx context.Context, uid string, patch dto.GlobalSettingsPatch) (p *models.Preferences, err error) {
	defer observe("update_global_settings", time.Now(), &err)

	p, err = s.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	gs := &p.GlobalSettings
	gs.Theme = helpers.ValueOr(patch.Theme, gs.Theme)
	gs.AutoSave = helpers.ValueOr(patch.AutoSave, gs.AutoSave)
	gs.RefreshInterval = helpers.ValueOr(patch.RefreshInterval, gs.RefreshInterval)
	gs.CompactMode = helpers.ValueOr(patch.CompactMode, gs.CompactMode)

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("global settings updated", "theme", gs.Theme, "refresh_interval", gs.RefreshInterval)
	return p, nil
}

// --- Private helpers ---

// load is for mutations, which require an existing document.
func (s *preferencesService) load(ctx context.Context, uid string) (*models.Preferences, error) {
	p, err := s.store.Load(ctx, uid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound(uid)
	}
	return p, nil
}

func (s *preferencesService) save(ctx context.Context, p *models.Preferences) error {
	err := s.store.Save(ctx, p)
	if err == nil {
		if logger.IsDebugEnabled(ctx) {
			logger.FromContext(ctx).Debug("preferences saved", "preferences", p)
		}
		return nil
	}
	var dbErr *errs.DatabaseError
	if errors.As(err, &dbErr) {
		logger.FromContext(ctx).Error("failed to save preferences", "operation", dbErr.Operation, "error", err)
	}
	return err
}

func observe(operation string, start time.Time, err *error) {
	metrics.RecordOperation(operation, start, *err)
}

func addLayout(p *models.Preferences, layout models.Layout) error {
	if findLayout(p, strings.TrimSpace(layout.Name)) >= 0 {
		return layoutExists(p.UserID, layout.Name)
	}
	p.Layouts = append(p.Layouts, layout)
	return nil
}

func findLayout(p *models.Preferences, name string) int {
	return slices.IndexFunc(p.Layouts, func(l models.Layout) bool { return l.Name == name })
}

func findWidget(l *models.Layout, id string) int {
	return slices.IndexFunc(l.Widgets, func(w models.Widget) bool { return w.ID == id })
}

func notFound(uid string) error {
	return errs.NewNotFoundError(fmt.Sprintf("preferences for user %q not found", uid))
}

func layoutNotFound(uid, name string) error {
	return errs.NewNotFoundError(fmt.Sprintf("layout %q not found for user %q", name, uid))
}

func layoutExists(uid, name string) error {
	return errs.NewAlreadyExistsError(fmt.Sprintf("layout %q already exists for user %q", name, uid))
}

// --- Deep copy ---

func cloneLayout(l models.Layout) models.Layout {
	out := l
	out.Margin = slices.Clone(l.Margin)
	out.ContainerPadding = slices.Clone(l.ContainerPadding)
	out.Breakpoints = maps.Clone(l.Breakpoints)
	out.Cols = maps.Clone(l.Cols)
	out.Widgets = make([]models.Widget, len(l.Widgets))
	for i, w := range l.Widgets {
		out.Widgets[i] = cloneWidget(w)
	}
	return out
}

func cloneWidget(w models.Widget) models.Widget {
	out := w
	out.MinW = helpers.Clone(w.MinW)
	out.MinH = helpers.Clone(w.MinH)
	out.MaxW = helpers.Clone(w.MaxW)
	out.MaxH = helpers.Clone(w.MaxH)
	out.IsResizable = helpers.Clone(w.IsResizable)
	out.IsDraggable = helpers.Clone(w.IsDraggable)
	if w.Config != nil {
		out.Config = models.WidgetConfig(cloneValue(map[string]any(w.Config)).(map[string]any))
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case models.WidgetConfig:
		return cloneValue(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
