package modver_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/extpack/internal/testutil"
	"github.com/glorpus-work/extpack/pkg/errutils"
	"github.com/glorpus-work/extpack/pkg/modver"
)

func TestReadVersion(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		data        []byte
		expected    string
		expectedErr error
	}{
		{
			name:     "wasm with version section",
			file:     "MyExt.wasm",
			data:     testutil.WasmModule("2.1"),
			expected: "2.1.0.0",
		},
		{
			name:     "wasm extension is case-insensitive",
			file:     "MyExt.WASM",
			data:     testutil.WasmModule("3.0.0.7"),
			expected: "3.0.0.7",
		},
		{
			name:        "wasm without version section",
			file:        "MyExt.wasm",
			data:        testutil.WasmModuleWithoutVersion(),
			expectedErr: errutils.ErrNoVersion,
		},
		{
			name:        "wasm with garbage version",
			file:        "MyExt.wasm",
			data:        testutil.WasmModule("not-a-version"),
			expectedErr: errutils.ErrCorruptVersion,
		},
		{
			name:        "invalid wasm binary",
			file:        "MyExt.wasm",
			data:        []byte("definitely not wasm"),
			expectedErr: errutils.ErrCorruptVersion,
		},
		{
			name:     "stamped native module",
			file:     "MyExt.so",
			data:     testutil.NativeModule("1.4.2"),
			expected: "1.4.2.0",
		},
		{
			name:        "native module without stamp",
			file:        "MyExt.dll",
			data:        testutil.NativeModuleWithoutVersion(),
			expectedErr: errutils.ErrNoVersion,
		},
		{
			name:        "native module with empty stamp",
			file:        "MyExt.so",
			data:        []byte(modver.StampMarker + "\x00"),
			expectedErr: errutils.ErrCorruptVersion,
		},
	}

	inspector := modver.NewInspector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inspector.ReadVersion(context.Background(), tt.file, bytes.NewReader(tt.data), int64(len(tt.data)))
			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestReadVersionRejectsOversizedModule(t *testing.T) {
	_, err := modver.NewInspector().ReadVersion(context.Background(), "big.so", bytes.NewReader(nil), modver.MaxModuleSize+1)
	assert.ErrorIs(t, err, errutils.ErrCorruptVersion)
}

func TestReadFileVersion(t *testing.T) {
	dir := t.TempDir()
	modPath := filepath.Join(dir, "MyExt.wasm")
	require.NoError(t, os.WriteFile(modPath, testutil.WasmModule("2.0.0.0"), 0o644))

	got, err := modver.NewInspector().ReadFileVersion(context.Background(), modPath)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0.0", got)

	_, err = modver.NewInspector().ReadFileVersion(context.Background(), filepath.Join(dir, "missing.wasm"))
	assert.Error(t, err)
}
