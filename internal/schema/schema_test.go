package schema

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nidhogg/skillbook/internal/dict"
)

const widgets Family = "widgets"

func newWidgetRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.SetCurrent(widgets, 3)
	if err := r.RegisterEach(widgets, 1, func(item dict.Dict) (dict.Dict, error) {
		item["color"] = "red"
		return item, nil
	}); err != nil {
		t.Fatalf("register v1: %v", err)
	}
	if err := r.RegisterEach(widgets, 2, func(item dict.Dict) (dict.Dict, error) {
		item["size"] = 1.0
		return item, nil
	}); err != nil {
		t.Fatalf("register v2: %v", err)
	}
	return r
}

func TestMigrateAppliesEveryStepInOrder(t *testing.T) {
	r := newWidgetRegistry(t)
	in := VersionedBlob{SchemaVersion: 1, Payload: []interface{}{
		map[string]interface{}{"id": 0.0},
		map[string]interface{}{"id": 1.0},
	}}

	out, steps, err := r.Migrate(widgets, in)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if out.SchemaVersion != 3 {
		t.Errorf("version = %d, want 3", out.SchemaVersion)
	}
	want := []Step{{widgets, 1, 2}, {widgets, 2, 3}}
	if !reflect.DeepEqual(steps, want) {
		t.Errorf("steps = %v, want %v", steps, want)
	}
	items := out.Payload.([]interface{})
	for i, raw := range items {
		item := raw.(map[string]interface{})
		if item["id"] != float64(i) || item["color"] != "red" || item["size"] != 1.0 {
			t.Errorf("item %d = %v", i, item)
		}
	}
	if _, touched := in.Payload.([]interface{})[0].(map[string]interface{})["color"]; touched {
		t.Error("input blob was modified")
	}
}

func TestMigrateAtCurrentIsNoop(t *testing.T) {
	r := newWidgetRegistry(t)
	in := VersionedBlob{SchemaVersion: 3, Payload: []interface{}{}}
	out, steps, err := r.Migrate(widgets, in)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(steps) != 0 || out.SchemaVersion != 3 || !reflect.DeepEqual(out, in) {
		t.Errorf("expected no-op, got %v %v", out, steps)
	}
}

func TestMigrateRejectsOutOfRangeVersions(t *testing.T) {
	r := newWidgetRegistry(t)
	for _, v := range []int{0, -1, 4} {
		_, _, err := r.Migrate(widgets, VersionedBlob{SchemaVersion: v})
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("version %d: expected ErrUnsupportedVersion, got %v", v, err)
		}
	}
}

func TestMissingConverterFails(t *testing.T) {
	r := NewRegistry()
	r.SetCurrent(widgets, 3)
	_ = r.RegisterEach(widgets, 1, func(item dict.Dict) (dict.Dict, error) { return item, nil })

	if err := r.Verify(); !errors.Is(err, ErrNoConverter) {
		t.Fatalf("Verify: expected ErrNoConverter, got %v", err)
	}
	in := VersionedBlob{SchemaVersion: 1, Payload: []interface{}{}}
	out, _, err := r.Migrate(widgets, in)
	if !errors.Is(err, ErrNoConverter) {
		t.Fatalf("Migrate: expected ErrNoConverter, got %v", err)
	}
	if out.SchemaVersion != 1 {
		t.Errorf("partially migrated blob exposed at v%d", out.SchemaVersion)
	}
}

func TestRegisterIsAppendOnly(t *testing.T) {
	r := newWidgetRegistry(t)
	err := r.Register(widgets, 1, func(p interface{}) (interface{}, error) { return p, nil })
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("expected ErrAlreadyRegistered, got %v", err)
	}
	if err := r.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestRegisterEachRejectsNonList(t *testing.T) {
	r := newWidgetRegistry(t)
	_, _, err := r.Migrate(widgets, VersionedBlob{SchemaVersion: 1, Payload: map[string]interface{}{}})
	if err == nil {
		t.Error("expected error for object payload")
	}
}
