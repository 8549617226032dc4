package errors_test

import (
	"testing"

	"github.com/mdarezzo/massundelete/internal/errors"
)

func TestFatal(t *testing.T) {
	for _, v := range []struct {
		err      error
		expected bool
	}{
		{errors.Fatal("broken"), true},
		{errors.Fatalf("broken %d", 42), true},
		{errors.New("error"), false},
	} {
		if errors.IsFatal(v.err) != v.expected {
			t.Fatalf("IsFatal for %q, expected: %v, got: %v", v.err, v.expected, errors.IsFatal(v.err))
		}
	}
}

func TestFatalErrorWrapping(t *testing.T) {
	underlying := errors.New("no such container")
	fatal := errors.Fatalf("unable to open backend: %v", underlying)

	if fatal.Error() != "Fatal: unable to open backend: no such container" {
		t.Errorf("unexpected error message: %v", fatal.Error())
	}

	if !errors.Is(fatal, underlying) {
		t.Error("fatal error should wrap the underlying error")
	}

	if !errors.IsFatal(fatal) {
		t.Error("error should be marked as fatal")
	}
}
