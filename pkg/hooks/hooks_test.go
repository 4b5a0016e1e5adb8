package hooks_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/hooks"
)

func writeScript(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, "hook.tengo")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestTengoExecutor(t *testing.T) {
	executor := hooks.NewTengoExecutor()

	t.Run("context module is available", func(t *testing.T) {
		dir := t.TempDir()
		script := writeScript(t, dir, `
ctx := import("context")
os := import("os")
err := ""
if ctx.component != "MyExt" || ctx.operation != "install" || ctx.package_id == "" {
	err = "unexpected context"
}
os.mkdir_all(ctx.component_dir + "/" + ctx.hook, 493)
`)
		hc := hooks.HookContext{
			Hook:         hooks.PostInstall,
			PackageID:    "11111111-1111-1111-1111-111111111111",
			PackageName:  "My Extension",
			Component:    "MyExt",
			Operation:    hooks.OperationInstall,
			ComponentDir: dir,
		}

		require.NoError(t, executor.Execute(context.Background(), script, hc))
		assert.DirExists(t, filepath.Join(dir, "postInstall"))
	})

	t.Run("runtime error fails the hook", func(t *testing.T) {
		script := writeScript(t, t.TempDir(), `x := undefined_function()`)
		err := executor.Execute(context.Background(), script, hooks.HookContext{Hook: hooks.PostInstall})
		assert.ErrorIs(t, err, errutils.ErrHookExecution)
	})

	t.Run("err variable fails the hook", func(t *testing.T) {
		script := writeScript(t, t.TempDir(), `err := "refusing to install"`)
		err := executor.Execute(context.Background(), script, hooks.HookContext{Hook: hooks.PreUninstall})
		require.ErrorIs(t, err, errutils.ErrHookExecution)
		assert.Contains(t, err.Error(), "refusing to install")
	})

	t.Run("missing script", func(t *testing.T) {
		err := executor.Execute(context.Background(), filepath.Join(t.TempDir(), "missing.tengo"), hooks.HookContext{})
		assert.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		script := writeScript(t, t.TempDir(), `for { }`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, executor.Execute(ctx, script, hooks.HookContext{}))
	})
}
