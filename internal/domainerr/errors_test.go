package domainerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKinds(t *testing.T) {
	v := Validationf("Invalid language code: %s", "xx")
	if !IsValidation(v) || IsOperation(v) {
		t.Fatalf("expected validation kind, got %q", KindOf(v))
	}
	if v.Error() != "Invalid language code: xx" {
		t.Errorf("got %q", v.Error())
	}

	o := Operationf("delete_misconception", "There is no misconception with the given id.")
	if !IsOperation(o) {
		t.Fatalf("expected operation kind, got %q", KindOf(o))
	}
	if o.Error() != "delete_misconception: There is no misconception with the given id." {
		t.Errorf("got %q", o.Error())
	}
	if MessageOf(o) != "There is no misconception with the given id." {
		t.Errorf("got message %q", MessageOf(o))
	}
}

func TestMigrationWrapsCause(t *testing.T) {
	cause := errors.New("no converter")
	err := fmt.Errorf("load skill: %w", Migration("migrate", cause))
	if !IsMigration(err) {
		t.Fatalf("expected migration kind through wrapping")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if Migration("migrate", nil) != nil {
		t.Error("expected nil for nil cause")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("expected empty kind for plain errors")
	}
}
