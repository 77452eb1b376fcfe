package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})
	Logf("sink degraded")
	if got != "sink degraded" {
		t.Errorf("custom logger not invoked, got %q", got)
	}

	// nil installs a no-op rather than a nil function
	SetLogger(nil)
	Logf("should be swallowed")

	called := false
	SetLogger(func(string, ...interface{}) { called = true })
	Logf("x")
	if !called {
		t.Error("replacement logger after nil was not invoked")
	}
}

func TestLogfDefaultNotNil(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf must have a default")
	}
}
