package plugin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// testPlugin implements Plugin + AfterResolve + AfterCheck.
type testPlugin struct {
	afterResolveCalled bool
	afterCheckCalled   bool
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnAfterResolve(_ context.Context, _ any) error {
	t.afterResolveCalled = true
	return nil
}

func (t *testPlugin) OnAfterCheck(_ context.Context, _, _ any) error {
	t.afterCheckCalled = true
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

type failingPlugin struct{}

func (f *failingPlugin) Name() string { return "failing" }

func (f *failingPlugin) OnCacheInvalidated(_ context.Context, _, _ string) error {
	return errors.New("boom")
}

type orderPlugin struct {
	name string
	log  *[]string
}

func (o *orderPlugin) Name() string { return o.name }

func (o *orderPlugin) OnBeforeResolve(_ context.Context, _ any) error {
	*o.log = append(*o.log, o.name)
	return nil
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	reg.EmitAfterResolve(ctx, nil)
	if !tp.afterResolveCalled {
		t.Fatal("OnAfterResolve was not called")
	}

	reg.EmitAfterCheck(ctx, nil, nil)
	if !tp.afterCheckCalled {
		t.Fatal("OnAfterCheck was not called")
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeResolve(ctx, nil)
	reg.EmitResolveFailed(ctx, nil, errors.New("x"))
	reg.EmitCacheInvalidated(ctx, "t1", "u1")
	reg.EmitShutdown(ctx)
}

func TestRegistryOrder(t *testing.T) {
	var calls []string
	reg := NewRegistry(nil)
	reg.Register(&orderPlugin{name: "first", log: &calls})
	reg.Register(&orderPlugin{name: "second", log: &calls})

	reg.EmitBeforeResolve(context.Background(), nil)

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("expected [first second], got %v", calls)
	}
}

func TestRegistryHookErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))
	reg.Register(&failingPlugin{})

	reg.EmitCacheInvalidated(context.Background(), "t1", "")

	out := buf.String()
	if !strings.Contains(out, "plugin hook error") || !strings.Contains(out, "plugin=failing") {
		t.Fatalf("expected hook error to be logged, got %q", out)
	}
}
