package registry_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/internal/flowtest"
	"github.com/meikuraledutech/flow/registry"
)

func writePackage(t *testing.T, dir, name string, pkg flow.Package) {
	t.Helper()
	data, err := json.Marshal(pkg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644))
}

func TestBuiltIn(t *testing.T) {
	pkg := registry.BuiltIn()
	assert.Equal(t, registry.BuiltInName, pkg.Name)
	assert.Equal(t, registry.BuiltInVersion, pkg.Version)

	types := pkg.Crates["primitives"].Types
	assert.Len(t, types, 16)
	for _, name := range []string{"i32", "u64", "f64", "bool", "char", "usize"} {
		def, ok := types[name]
		require.True(t, ok, name)
		assert.Contains(t, def.Constructors, "Default")
		assert.Contains(t, def.Constructors, flow.JSONConstructor)
	}
}

func TestNewHoldsBuiltInOnly(t *testing.T) {
	r := registry.New("")
	require.NoError(t, r.Load())

	pkgs, err := r.ListPackages(context.Background())
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, registry.BuiltInName, pkgs[0].Name)

	cat := r.Catalog()
	assert.True(t, cat.Has("i32"))
	assert.Nil(t, cat.Active())
}

func TestLoadFolder(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, flowtest.StdPackage, flowtest.Std())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r := registry.New(dir)
	require.NoError(t, r.Load())

	pkgs, err := r.ListPackages(context.Background())
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, registry.BuiltInName, pkgs[0].Name)
	assert.Equal(t, flowtest.StdPackage, pkgs[1].Name)

	pkg, err := r.GetPackage(context.Background(), flowtest.StdPackage)
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Equal(t, "0.1.0", pkg.Version)

	missing, err := r.GetPackage(context.Background(), "broken")
	require.NoError(t, err)
	assert.Nil(t, missing)

	cat := r.Catalog()
	assert.True(t, cat.Has(flowtest.Timer))
	def, ok := cat.Lookup(flowtest.Timer)
	require.True(t, ok)
	assert.Equal(t, []string{"U"}, def.TypeParameters)
}

func TestLoadMissingFolder(t *testing.T) {
	r := registry.New(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, r.Load())
}

func TestAdd(t *testing.T) {
	r := registry.New("")
	assert.True(t, r.Add(flowtest.Std()))
	assert.False(t, r.Add(flow.Package{Name: registry.BuiltInName, Version: "9.9.9"}))

	pkg, err := r.GetPackage(context.Background(), registry.BuiltInName)
	require.NoError(t, err)
	assert.Equal(t, registry.BuiltInVersion, pkg.Version)
}

func TestCatalogIsRebuiltOnChange(t *testing.T) {
	dir := t.TempDir()
	r := registry.New(dir)

	first := r.Catalog()
	assert.Same(t, first, r.Catalog())
	assert.False(t, first.Has(flowtest.Timer))

	require.True(t, r.Add(flowtest.Std()))
	added := r.Catalog()
	assert.NotSame(t, first, added)
	assert.True(t, added.Has(flowtest.Timer))

	require.NoError(t, r.Load())
	assert.False(t, r.Catalog().Has(flowtest.Timer), "Load replaces added packages with the folder contents")
	assert.True(t, r.Catalog().Has("i32"))
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	r := registry.New(dir)
	require.NoError(t, r.Load())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	data, err := json.Marshal(flowtest.Std())
	require.NoError(t, err)
	// rewritten on every poll in case the first write lands before the watch is set up
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, flowtest.StdPackage+".json"), data, 0o644)
		pkg, _ := r.GetPackage(context.Background(), flowtest.StdPackage)
		return pkg != nil
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchWithoutFolder(t *testing.T) {
	assert.Error(t, registry.New("").Watch(context.Background()))
}
