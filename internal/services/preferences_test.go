package services

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/GregMSThompson/dashboard-backend/internal/dto"
	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/pkg/helpers"
)

// --- Fakes ---

// fakePreferencesStore keeps documents as JSON so every Load hands out a fresh copy,
// the same way a real store would.
type fakePreferencesStore struct {
	docs      map[string][]byte
	loadErr   error
	saveErr   error
	createErr error
	loads     int
	saves     int
	creates   int
	onCreate  func(uid string)
}

func newFakePreferencesStore() *fakePreferencesStore {
	return &fakePreferencesStore{docs: make(map[string][]byte)}
}

func (f *fakePreferencesStore) Load(_ context.Context, uid string) (*models.Preferences, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	raw, ok := f.docs[uid]
	if !ok {
		return nil, nil
	}
	var p models.Preferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (f *fakePreferencesStore) Save(_ context.Context, p *models.Preferences) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.put(p)
}

func (f *fakePreferencesStore) CreateDefault(_ context.Context, uid string) (*models.Preferences, error) {
	f.creates++
	if f.onCreate != nil {
		f.onCreate(uid)
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.docs[uid]; ok {
		return nil, errs.NewAlreadyExistsError("preferences already exist")
	}
	p := models.DefaultPreferences(uid)
	if err := f.put(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (f *fakePreferencesStore) put(p *models.Preferences) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	f.docs[p.UserID] = raw
	return nil
}

func (f *fakePreferencesStore) seed(t *testing.T, p *models.Preferences) {
	t.Helper()
	if err := f.put(p); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (f *fakePreferencesStore) stored(t *testing.T, uid string) *models.Preferences {
	t.Helper()
	p, err := f.Load(context.Background(), uid)
	if err != nil || p == nil {
		t.Fatalf("expected stored document for %s, got %v (err %v)", uid, p, err)
	}
	return p
}

func seededStore(t *testing.T, uid string) *fakePreferencesStore {
	t.Helper()
	store := newFakePreferencesStore()
	store.seed(t, models.DefaultPreferences(uid))
	return store
}

func widgetIDs(l *models.Layout) []string {
	ids := make([]string, 0, len(l.Widgets))
	for _, w := range l.Widgets {
		ids = append(ids, w.ID)
	}
	return ids
}

func layoutByName(t *testing.T, p *models.Preferences, name string) *models.Layout {
	t.Helper()
	i := findLayout(p, name)
	if i < 0 {
		t.Fatalf("layout %q not found", name)
	}
	return &p.Layouts[i]
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}

func assertConflict(t *testing.T, err error) {
	t.Helper()
	var ae *errs.AlreadyExistsError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AlreadyExistsError, got %T: %v", err, err)
	}
}

// --- GetPreferences ---

func TestGetPreferences_CreatesDefaultOnce(t *testing.T) {
	store := newFakePreferencesStore()
	svc := NewPreferencesService(store)
	ctx := helpers.TestCtx()

	p, err := svc.GetPreferences(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.creates != 1 || store.saves != 0 {
		t.Fatalf("expected exactly one create and no saves, got creates=%d saves=%d", store.creates, store.saves)
	}
	if len(p.Layouts) != 1 || p.Layouts[0].Name != "Default" || !p.Layouts[0].IsDefault {
		t.Fatalf("unexpected layouts: %+v", p.Layouts)
	}
	if p.ActiveLayoutName != "Default" {
		t.Fatalf("active layout = %q", p.ActiveLayoutName)
	}
	if got := widgetIDs(&p.Layouts[0]); !reflect.DeepEqual(got, []string{"welcome-widget", "stats-widget"}) {
		t.Fatalf("unexpected seeded widgets: %v", got)
	}

	// a second read returns the stored document without creating another
	if _, err := svc.GetPreferences(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.creates != 1 {
		t.Fatalf("expected a single create, got %d", store.creates)
	}
}

func TestGetPreferences_ConcurrentCreateLoadsWinner(t *testing.T) {
	store := newFakePreferencesStore()
	winner := models.DefaultPreferences("u1")
	winner.ActiveLayoutName = "Default"
	winner.GlobalSettings.Theme = models.ThemeDark
	store.onCreate = func(uid string) { store.seed(t, winner) }
	svc := NewPreferencesService(store)

	p, err := svc.GetPreferences(helpers.TestCtx(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.GlobalSettings.Theme != models.ThemeDark {
		t.Fatalf("expected the concurrently created document, got theme %q", p.GlobalSettings.Theme)
	}
	if store.loads != 2 {
		t.Fatalf("expected a reload after the conflict, got %d loads", store.loads)
	}
}

func TestGetPreferences_StorageFaultPropagates(t *testing.T) {
	store := newFakePreferencesStore()
	fault := errs.NewDatabaseError("read", "unavailable", errors.New("deadline exceeded"))
	store.loadErr = fault
	svc := NewPreferencesService(store)

	_, err := svc.GetPreferences(helpers.TestCtx(), "u1")
	if err != fault {
		t.Fatalf("expected storage fault unchanged, got %v", err)
	}
	if store.creates != 0 {
		t.Fatal("must not create a document when the load failed")
	}
}

// --- Active layout ---

func TestGetActiveLayout_NoDocument(t *testing.T) {
	svc := NewPreferencesService(newFakePreferencesStore())

	l, err := svc.GetActiveLayout(helpers.TestCtx(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != nil {
		t.Fatalf("expected nil layout, got %+v", l)
	}
}

func TestSwitchLayoutThenGetActiveLayout(t *testing.T) {
	store := seededStore(t, "u1")
	svc := NewPreferencesService(store)
	ctx := helpers.TestCtx()

	for _, name := range []string{"Work", "Home"} {
		if _, err := svc.CreateLayout(ctx, "u1", models.NewLayout(name)); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	for _, name := range []string{"Home", "Default", "Work"} {
		if _, err := svc.SwitchLayout(ctx, "u1", name); err != nil {
			t.Fatalf("switch to %s: %v", name, err)
		}
		l, err := svc.GetActiveLayout(ctx, "u1")
		if err != nil {
			t.Fatalf("get active: %v", err)
		}
		if l == nil || l.Name != name {
			t.Fatalf("active layout = %+v, want %s", l, name)
		}
	}
}

func TestSwitchLayout_NotFound(t *testing.T) {
	ctx := helpers.TestCtx()

	_, err := NewPreferencesService(newFakePreferencesStore()).SwitchLayout(ctx, "u1", "Default")
	assertNotFound(t, err)

	store := seededStore(t, "u1")
	_, err = NewPreferencesService(store).SwitchLayout(ctx, "u1", "Missing")
	assertNotFound(t, err)
	if store.saves != 0 {
		t.Fatal("nothing should be saved when the layout is missing")
	}
}

// --- Layouts ---

func TestCreateLayout_ConflictLeavesDocumentUnchanged(t *testing.T) {
	store := seededStore(t, "u1")
	before := store.docs["u1"]
	svc := NewPreferencesService(store)

	_, err := svc.CreateLayout(helpers.TestCtx(), "u1", models.NewLayout("Default"))
	assertConflict(t, err)

	if store.saves != 0 {
		t.Fatalf("expected no save, got %d", store.saves)
	}
	if string(store.docs["u1"]) != string(before) {
		t.Fatal("stored document changed after a conflicting create")
	}
}

func TestCreateLayout_ConflictIgnoresSurroundingSpace(t *testing.T) {
	svc := NewPreferencesService(seededStore(t, "u1"))

	_, err := svc.CreateLayout(helpers.TestCtx(), "u1", models.NewLayout("  Default "))
	assertConflict(t, err)
}

func TestCreateLayout_NoDocument(t *testing.T) {
	svc := NewPreferencesService(newFakePreferencesStore())

	_, err := svc.CreateLayout(helpers.TestCtx(), "u1", models.NewLayout("Work"))
	assertNotFound(t, err)
}

func TestDuplicateLayout(t *testing.T) {
	store := seededStore(t, "u1")
	svc := NewPreferencesService(store)
	ctx := helpers.TestCtx()

	p, err := svc.DuplicateLayout(ctx, "u1", "Default", "Default Copy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src := layoutByName(t, p, "Default")
	cp := layoutByName(t, p, "Default Copy")
	if cp.IsDefault {
		t.Fatal("duplicate must not be default")
	}
	if !src.IsDefault {
		t.Fatal("source must stay default")
	}
	if !reflect.DeepEqual(src.Widgets, cp.Widgets) {
		t.Fatalf("widgets differ:\nsrc %+v\ncopy %+v", src.Widgets, cp.Widgets)
	}
	if cp.GridCols != src.GridCols || cp.GridRowHeight != src.GridRowHeight {
		t.Fatal("grid settings not copied")
	}

	// mutating the copy leaves the source alone
	if _, err := svc.RemoveWidget(ctx, "u1", "Default Copy", "welcome-widget"); err != nil {
		t.Fatalf("remove from copy: %v", err)
	}
	stored := store.stored(t, "u1")
	if got := widgetIDs(layoutByName(t, stored, "Default")); len(got) != 2 {
		t.Fatalf("source layout changed: %v", got)
	}
}

func TestDuplicateLayout_Errors(t *testing.T) {
	ctx := helpers.TestCtx()
	svc := NewPreferencesService(seededStore(t, "u1"))

	_, err := svc.DuplicateLayout(ctx, "u1", "Missing", "Copy")
	assertNotFound(t, err)

	_, err = svc.DuplicateLayout(ctx, "u1", "Default", "Default")
	assertConflict(t, err)
}

func TestCloneLayoutIsDeep(t *testing.T) {
	src := models.Layout{
		Name:        "Main",
		Margin:      []float64{1, 2},
		Breakpoints: map[string]int{"lg": 1200},
		Widgets: []models.Widget{{
			ID:     "w1",
			MinW:   helpers.Ptr(2),
			Config: models.WidgetConfig{"series": []any{map[string]any{"color": "red"}}},
		}},
	}

	cp := cloneLayout(src)
	cp.Margin[0] = 99
	cp.Breakpoints["lg"] = 1
	*cp.Widgets[0].MinW = 7
	cp.Widgets[0].Config["series"].([]any)[0].(map[string]any)["color"] = "blue"

	if src.Margin[0] != 1 || src.Breakpoints["lg"] != 1200 || *src.Widgets[0].MinW != 2 {
		t.Fatalf("source mutated: %+v", src)
	}
	if src.Widgets[0].Config["series"].([]any)[0].(map[string]any)["color"] != "red" {
		t.Fatal("nested config shared between copies")
	}
}

func TestUpdateLayout_RenameFollowsActive(t *testing.T) {
	store := seededStore(t, "u1")
	svc := NewPreferencesService(store)

	p, err := svc.UpdateLayout(helpers.TestCtx(), "u1", "Default", dto.UpdateLayoutRequest{
		Name:     helpers.Ptr("Overview"),
		GridCols: helpers.Ptr(24),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ActiveLayoutName != "Overview" {
		t.Fatalf("active layout = %q, want Overview", p.ActiveLayoutName)
	}
	l := layoutByName(t, p, "Overview")
	if l.GridCols != 24 || l.GridRowHeight != models.DefaultGridRowHeight {
		t.Fatalf("unexpected grid settings: cols=%d rowHeight=%d", l.GridCols, l.GridRowHeight)
	}
}

func TestUpdateLayout_DefaultFlagMovesAndRenameConflicts(t *testing.T) {
	store := seededStore(t, "u1")
	svc := NewPreferencesService(store)
	ctx := helpers.TestCtx()

	if _, err := svc.CreateLayout(ctx, "u1", models.NewLayout("Work")); err != nil {
		t.Fatalf("create: %v", err)
	}
	p, err := svc.UpdateLayout(ctx, "u1", "Work", dto.UpdateLayoutRequest{IsDefault: helpers.Ptr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if layoutByName(t, p, "Default").IsDefault || !layoutByName(t, p, "Work").IsDefault {
		t.Fatalf("default flag did not move: %+v", p.Layouts)
	}

	_, err = svc.UpdateLayout(ctx, "u1", "Work", dto.UpdateLayoutRequest{Name: helpers.Ptr("Default")})
	assertConflict(t, err)

	_, err = svc.UpdateLayout(ctx, "u1", "Missing", dto.UpdateLayoutRequest{})
	assertNotFound(t, err)
}

func TestDeleteLayout_LastLayoutRejected(t *testing.T) {
	store := seededStore(t, "u1")
	svc := NewPreferencesService(store)

	_, err := svc.DeleteLayout(helpers.TestCtx(), "u1", "Default")
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if got := len(store.stored(t, "u1").Layouts); got != 1 {
		t.Fatalf("layouts = %d, want 1", got)
	}
}

func TestDeleteLayout_ActiveReassigned(t *testing.T) {
	store := seededStore(t, "u1")
	svc := NewPreferencesService(store)
	ctx := helpers.TestCtx()

	if _, err := svc.CreateLayout(ctx, "u1", models.NewLayout("Work")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SwitchLayout(ctx, "u1", "Work"); err != nil {
		t.Fatalf("switch: %v", err)
	}

	p, err := svc.DeleteLayout(ctx, "u1", "Work")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(p.Layouts) != 1 || p.ActiveLayoutName != "Default" {
		t.Fatalf("unexpected document after delete: active=%q layouts=%d", p.ActiveLayoutName, len(p.Layouts))
	}

	// deleting a non-active layout leaves the active one alone
	if _, err := svc.CreateLayout(ctx, "u1", models.NewLayout("Spare")); err != nil {
		t.Fatalf("create: %v", err)
	}
	p, err = svc.DeleteLayout(ctx, "u1", "Spare")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if p.ActiveLayoutName != "Default" {
		t.Fatalf("active layout = %q", p.ActiveLayoutName)
	}
}

func TestDeleteLayout_NotFound(t *testing.T) {
	svc := NewPreferencesService(seededStore(t, "u1"))
	ctx := helpers.TestCtx()

	if _, err := svc.CreateLayout(ctx, "u1", models.NewLayout("Work")); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.DeleteLayout(ctx, "u1", "Missing")
	assertNotFound(t, err)
}

func TestDeleteLayout_LastLayoutCheckedBeforeName(t *testing.T) {
	svc := NewPreferencesService(seededStore(t, "u1"))

	_, err := svc.DeleteLayout(helpers.TestCtx(), "u1", "Missing")
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}

// --- Widgets ---

func TestAddThenRemoveWidgetRoundTrip(t *testing.T) {
	store := seededStore(t, "u1")
	svc := NewPreferencesService(store)
	ctx := helpers.TestCtx()
	before := store.stored(t, "u1").Layouts[0].Widgets

	widget := models.Widget{ID: "chart-1", Type: models.WidgetTypeChart, X: 0, Y: 2, W: 4, H: 3}
	p, err := svc.AddWidget(ctx, "u1", "Default", widget)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := widgetIDs(&p.Layouts[0]); len(got) != 3 || got[2] != "chart-1" {
		t.Fatalf("widget not appended: %v", got)
	}

	p, err = svc.RemoveWidget(ctx, "u1", "Default", "chart-1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !reflect.DeepEqual(p.Layouts[0].Widgets, before) {
		t.Fatalf("widgets not restored:\nbefore %+v\nafter  %+v", before, p.Layouts[0].Widgets)
	}
}

func TestAddWidget_AssignsID(t *testing.T) {
	svc := NewPreferencesService(seededStore(t, "u1"))

	p, err := svc.AddWidget(helpers.TestCtx(), "u1", "Default", models.Widget{Type: models.WidgetTypeText, W: 1, H: 1})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id := p.Layouts[0].Widgets[2].ID; id == "" {
		t.Fatal("expected a generated widget id")
	}
}

func TestAddWidget_Errors(t *testing.T) {
	ctx := helpers.TestCtx()
	svc := NewPreferencesService(seededStore(t, "u1"))

	_, err := svc.AddWidget(ctx, "u1", "Default", models.Widget{ID: "welcome-widget", Type: models.WidgetTypeCard, W: 1, H: 1})
	assertConflict(t, err)

	_, err = svc.AddWidget(ctx, "u1", "Missing", models.Widget{ID: "x", Type: models.WidgetTypeCard, W: 1, H: 1})
	assertNotFound(t, err)

	_, err = NewPreferencesService(newFakePreferencesStore()).AddWidget(ctx, "u1", "Default", models.Widget{ID: "x"})
	assertNotFound(t, err)
}

func TestAddWidget_NestedConfigRoundTrips(t *testing.T) {
	store := seededStore(t, "u1")
	svc := NewPreferencesService(store)
	ctx := helpers.TestCtx()

	cfg := models.WidgetConfig{
		"source": "sales",
		"limit":  float64(25),
		"live":   true,
		"series": []any{
			map[string]any{"name": "north", "color": "#ff0000", "points": []any{1.5, 2.0, nil}},
			"fallback",
		},
		"axes": map[string]any{"x": map[string]any{"label": "Month", "ticks": []any{}}},
	}
	if _, err := svc.AddWidget(ctx, "u1", "Default", models.Widget{ID: "sales", Type: models.WidgetTypeChart, W: 6, H: 4, Config: cfg}); err != nil {
		t.Fatalf("add: %v", err)
	}

	stored := store.stored(t, "u1")
	got := stored.Layouts[0].Widgets[2].Config
	if !reflect.DeepEqual(got, cfg) {
		t.Fatalf("config changed through save/load:\nwant %#v\ngot  %#v", cfg, got)
	}
}

func TestRemoveWidget_NotFound(t *testing.T) {
	ctx := helpers.TestCtx()
	svc := NewPreferencesService(seededStore(t, "u1"))

	_, err := svc.RemoveWidget(ctx, "u1", "Default", "nope")
	assertNotFound(t, err)

	_, err = svc.RemoveWidget(ctx, "u1", "Missing", "welcome-widget")
	assertNotFound(t, err)
}

func TestUpdateWidgetLayout(t *testing.T) {
	store := seededStore(t, "u1")
	svc := NewPreferencesService(store)
	ctx := helpers.TestCtx()

	widgets := []models.Widget{
		{ID: "a", Type: models.WidgetTypeTable, X: 0, Y: 0, W: 12, H: 4},
		{ID: "b", Type: models.WidgetTypeCalendar, X: 0, Y: 4, W: 6, H: 3},
	}
	p, err := svc.UpdateWidgetLayout(ctx, "u1", "Default", widgets)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := widgetIDs(&p.Layouts[0]); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("widgets = %v", got)
	}

	p, err = svc.UpdateWidgetLayout(ctx, "u1", "Default", nil)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if p.Layouts[0].Widgets == nil || len(p.Layouts[0].Widgets) != 0 {
		t.Fatalf("expected an empty widget list, got %#v", p.Layouts[0].Widgets)
	}

	_, err = svc.UpdateWidgetLayout(ctx, "u1", "Missing", widgets)
	assertNotFound(t, err)
}

// --- Global settings ---

func TestUpdateGlobalSettings_Merges(t *testing.T) {
	store := seededStore(t, "u1")
	svc := NewPreferencesService(store)

	p, err := svc.UpdateGlobalSettings(helpers.TestCtx(), "u1", dto.GlobalSettingsPatch{
		Theme:       helpers.Ptr(models.ThemeDark),
		CompactMode: helpers.Ptr(true),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := models.GlobalSettings{
		Theme:           models.ThemeDark,
		AutoSave:        true,
		RefreshInterval: models.DefaultRefreshInterval,
		CompactMode:     true,
	}
	if p.GlobalSettings != want {
		t.Fatalf("settings = %+v, want %+v", p.GlobalSettings, want)
	}
}

func TestUpdateGlobalSettings_NoDocument(t *testing.T) {
	svc := NewPreferencesService(newFakePreferencesStore())

	_, err := svc.UpdateGlobalSettings(helpers.TestCtx(), "u1", dto.GlobalSettingsPatch{AutoSave: helpers.Ptr(false)})
	assertNotFound(t, err)
}

func TestMutation_SaveErrorPropagates(t *testing.T) {
	store := seededStore(t, "u1")
	fault := errs.NewDatabaseError("update", "unavailable", errors.New("connection reset"))
	store.saveErr = fault
	svc := NewPreferencesService(store)

	_, err := svc.SwitchLayout(helpers.TestCtx(), "u1", "Default")
	if err != fault {
		t.Fatalf("expected storage fault unchanged, got %v", err)
	}
	if store.saves != 1 {
		t.Fatalf("expected a single save attempt, got %d", store.saves)
	}
}
