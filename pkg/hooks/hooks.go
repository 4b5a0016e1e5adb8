//go:generate mockgen -destination=./mocks/hooks.go . Executor

// Package hooks runs the Tengo scripts a component can ship to react to being
// installed or uninstalled.
package hooks

import (
	"context"
	"fmt"
	"os"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/glorpus-work/extpack/internal/logger"
	"github.com/glorpus-work/extpack/pkg/errutils"
)

// HookType names the point in a component's lifecycle a script runs at.
type HookType string

const (
	PostInstall  HookType = "postInstall"
	PreUninstall HookType = "preUninstall"
)

// Operations reported to scripts.
const (
	OperationInstall   = "install"
	OperationUninstall = "uninstall"
)

// HookContext is exposed to scripts as the "context" module.
type HookContext struct {
	Hook           HookType
	PackageID      string
	PackageName    string
	PackageVersion string
	Component      string
	Operation      string
	ComponentDir   string
	ExtensionsRoot string
}

// Executor runs hook scripts.
type Executor interface {
	Execute(ctx context.Context, scriptPath string, hc HookContext) error
}

// TengoExecutor runs scripts with the Tengo standard library.
type TengoExecutor struct {
	modules []string
}

// NewTengoExecutor creates an executor exposing all Tengo stdlib modules.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{modules: stdlib.AllModuleNames()}
}

// Execute compiles and runs the script at scriptPath. A script fails when it does not
// compile, raises a runtime error, or sets a non-empty string variable named err.
func (e *TengoExecutor) Execute(ctx context.Context, scriptPath string, hc HookContext) error {
	scriptContent, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read hook script %s: %w", scriptPath, err)
	}

	logger.Debug("Executing hook script", logger.Fields{
		"hook":      hc.Hook,
		"hook_path": scriptPath,
		"component": hc.Component,
		"operation": hc.Operation,
	})

	moduleMap := stdlib.GetModuleMap(e.modules...)
	moduleMap.AddBuiltinModule("context", map[string]tengo.Object{
		"hook":            &tengo.String{Value: string(hc.Hook)},
		"package_id":      &tengo.String{Value: hc.PackageID},
		"package_name":    &tengo.String{Value: hc.PackageName},
		"package_version": &tengo.String{Value: hc.PackageVersion},
		"component":       &tengo.String{Value: hc.Component},
		"operation":       &tengo.String{Value: hc.Operation},
		"component_dir":   &tengo.String{Value: hc.ComponentDir},
		"extensions_root": &tengo.String{Value: hc.ExtensionsRoot},
	})

	script := tengo.NewScript(scriptContent)
	script.SetImports(moduleMap)

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", hc.Hook, scriptPath, errutils.ErrHookExecution, err)
	}

	if v, ok := compiled.Get("err").Value().(string); ok && v != "" {
		return fmt.Errorf("%s %s: %w: %s", hc.Hook, scriptPath, errutils.ErrHookExecution, v)
	}

	logger.Debug("Hook script executed successfully", logger.Fields{
		"hook":      hc.Hook,
		"component": hc.Component,
	})
	return nil
}
