package store

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

func TestPreferencesStoreWithEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("firestore client error: %v", err)
	}
	defer client.Close()

	store := NewPreferencesStore(client, "")
	uid := "user-" + uuid.NewString()

	p, err := store.Load(ctx, uid)
	if err != nil || p != nil {
		t.Fatalf("expected no document, got %+v (err %v)", p, err)
	}

	created, err := store.CreateDefault(ctx, uid)
	if err != nil {
		t.Fatalf("create default error: %v", err)
	}

	_, err = store.CreateDefault(ctx, uid)
	var ae *errs.AlreadyExistsError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AlreadyExistsError, got %T: %v", err, err)
	}

	created.Layouts[0].Widgets = append(created.Layouts[0].Widgets, models.Widget{
		ID:   "chart",
		Type: models.WidgetTypeChart,
		W:    4,
		H:    3,
		Config: models.WidgetConfig{
			"limit":  5,
			"series": []any{map[string]any{"name": "a", "values": []any{1.5, 2}}},
		},
	})
	if err := store.Save(ctx, created); err != nil {
		t.Fatalf("save error: %v", err)
	}

	loaded, err := store.Load(ctx, uid)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	want := models.WidgetConfig{
		"limit":  float64(5),
		"series": []any{map[string]any{"name": "a", "values": []any{1.5, float64(2)}}},
	}
	if got := loaded.Layouts[0].Widgets[2].Config; !reflect.DeepEqual(got, want) {
		t.Fatalf("config changed through save/load:\nwant %#v\ngot  %#v", want, got)
	}
	if loaded.ActiveLayoutName != models.DefaultLayoutName {
		t.Fatalf("unexpected active layout: %q", loaded.ActiveLayoutName)
	}
}
