package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/dashboard-backend/internal/dto"
	"github.com/GregMSThompson/dashboard-backend/internal/middleware"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/internal/response"
)

type PreferencesService interface {
	GetPreferences(ctx context.Context, uid string) (*models.Preferences, error)
	GetActiveLayout(ctx context.Context, uid string) (*models.Layout, error)
	SwitchLayout(ctx context.Context, uid, layoutName string) (*models.Preferences, error)
	CreateLayout(ctx context.Context, uid string, layout models.Layout) (*models.Preferences, error)
	DuplicateLayout(ctx context.Context, uid, sourceName, newName string) (*models.Preferences, error)
	UpdateLayout(ctx context.Context, uid, layoutName string, req dto.UpdateLayoutRequest) (*models.Preferences, error)
	DeleteLayout(ctx context.Context, uid, layoutName string) (*models.Preferences, error)
	UpdateWidgetLayout(ctx context.Context, uid, layoutName string, widgets []models.Widget) (*models.Preferences, error)
	AddWidget(ctx context.Context, uid, layoutName string, widget models.Widget) (*models.Preferences, error)
	RemoveWidget(ctx context.Context, uid, layoutName, widgetID string) (*models.Preferences, error)
	UpdateGlobalSettings(ctx context.Context, uid string, patch dto.GlobalSettingsPatch) (*models.Preferences, error)
}

type preferencesHandlers struct {
	ResponseHandler response.ResponseHandler
	PreferencesSvc  PreferencesService
}

func NewPreferencesHandlers(deps *Deps) *preferencesHandlers {
	return &preferencesHandlers{
		ResponseHandler: deps.ResponseHandler,
		PreferencesSvc:  deps.PreferencesSvc,
	}
}

func (h *preferencesHandlers) PreferencesRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetPreferences)
	r.Patch("/settings", h.UpdateGlobalSettings)
	r.Get("/widget-types", h.GetWidgetTypes)

	r.Get("/layouts/active", h.GetActiveLayout) // must be before /{name}
	r.Put("/layouts/active", h.SwitchLayout)
	r.Post("/layouts", h.CreateLayout)
	r.Patch("/layouts/{name}", h.UpdateLayout)
	r.Delete("/layouts/{name}", h.DeleteLayout)
	r.Post("/layouts/{name}/duplicate", h.DuplicateLayout)

	r.Put("/layouts/{name}/widgets", h.UpdateWidgetLayout)
	r.Post("/layouts/{name}/widgets", h.AddWidget)
	r.Delete("/layouts/{name}/widgets/{widgetId}", h.RemoveWidget)
	return r
}

func (h *preferencesHandlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	prefs, err := h.PreferencesSvc.GetPreferences(r.Context(), uid)
	h.respond(w, r, http.StatusOK, prefs, err)
}

// GetActiveLayout responds with null data when the user has no document yet.
func (h *preferencesHandlers) GetActiveLayout(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	layout, err := h.PreferencesSvc.GetActiveLayout(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if layout == nil {
		h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil) // untyped nil, not (*models.Layout)(nil)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, layout)
}

func (h *preferencesHandlers) SwitchLayout(w http.ResponseWriter, r *http.Request) {
	var req dto.SwitchLayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	prefs, err := h.PreferencesSvc.SwitchLayout(r.Context(), uid, req.Name)
	h.respond(w, r, http.StatusOK, prefs, err)
}

func (h *preferencesHandlers) CreateLayout(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	prefs, err := h.PreferencesSvc.CreateLayout(r.Context(), uid, req.Layout())
	h.respond(w, r, http.StatusCreated, prefs, err)
}

func (h *preferencesHandlers) DuplicateLayout(w http.ResponseWriter, r *http.Request) {
	source := pathParam(r, "name")
	var req dto.DuplicateLayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	prefs, err := h.PreferencesSvc.DuplicateLayout(r.Context(), uid, source, req.Name)
	h.respond(w, r, http.StatusCreated, prefs, err)
}

func (h *preferencesHandlers) UpdateLayout(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req dto.UpdateLayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	prefs, err := h.PreferencesSvc.UpdateLayout(r.Context(), uid, name, req)
	h.respond(w, r, http.StatusOK, prefs, err)
}

func (h *preferencesHandlers) DeleteLayout(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	uid := middleware.UID(r.Context())
	prefs, err := h.PreferencesSvc.DeleteLayout(r.Context(), uid, name)
	h.respond(w, r, http.StatusOK, prefs, err)
}

func (h *preferencesHandlers) UpdateWidgetLayout(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req dto.UpdateWidgetsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	prefs, err := h.PreferencesSvc.UpdateWidgetLayout(r.Context(), uid, name, req.Widgets)
	h.respond(w, r, http.StatusOK, prefs, err)
}

func (h *preferencesHandlers) AddWidget(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var widget models.Widget
	if err := decodeJSON(r, &widget); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	prefs, err := h.PreferencesSvc.AddWidget(r.Context(), uid, name, widget)
	h.respond(w, r, http.StatusCreated, prefs, err)
}

func (h *preferencesHandlers) RemoveWidget(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	widgetID := pathParam(r, "widgetId")
	uid := middleware.UID(r.Context())
	prefs, err := h.PreferencesSvc.RemoveWidget(r.Context(), uid, name, widgetID)
	h.respond(w, r, http.StatusOK, prefs, err)
}

func (h *preferencesHandlers) UpdateGlobalSettings(w http.ResponseWriter, r *http.Request) {
	var patch dto.GlobalSettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	prefs, err := h.PreferencesSvc.UpdateGlobalSettings(r.Context(), uid, patch)
	h.respond(w, r, http.StatusOK, prefs, err)
}

// GetWidgetTypes returns the catalog of widget types with the sizing defaults a new
// widget receives.
func (h *preferencesHandlers) GetWidgetTypes(w http.ResponseWriter, r *http.Request) {
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, widgetTypeCatalog)
}

func (h *preferencesHandlers) respond(w http.ResponseWriter, r *http.Request, status int, prefs *models.Preferences, err error) {
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, status, prefs)
}

var widgetTypeDescriptions = map[string]string{
	models.WidgetTypeChart:    "Chart of a data series",
	models.WidgetTypeTable:    "Tabular data",
	models.WidgetTypeCard:     "Free-form content card",
	models.WidgetTypeCalendar: "Calendar of upcoming events",
	models.WidgetTypeGraph:    "Node and edge graph",
	models.WidgetTypeMetric:   "Single headline value",
	models.WidgetTypeText:     "Static text block",
	models.WidgetTypeImage:    "Image",
	models.WidgetTypeCustom:   "Client defined widget",
}

var widgetTypeCatalog = buildWidgetTypeCatalog()

func buildWidgetTypeCatalog() []dto.WidgetTypeInfo {
	catalog := make([]dto.WidgetTypeInfo, 0, len(models.WidgetTypes))
	for _, t := range models.WidgetTypes {
		catalog = append(catalog, dto.WidgetTypeInfo{
			Type:        t,
			MinW:        models.DefaultWidgetMinSize,
			MinH:        models.DefaultWidgetMinSize,
			MaxW:        models.DefaultWidgetMaxSize,
			MaxH:        models.DefaultWidgetMaxSize,
			Resizable:   true,
			Draggable:   true,
			Description: widgetTypeDescriptions[t],
		})
	}
	return catalog
}
