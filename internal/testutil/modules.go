// Package testutil builds extension packages and module fixtures for tests.
package testutil

import (
	"bytes"

	"github.com/glorpus-work/extpack/pkg/modver"
)

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// WasmModule returns a minimal WebAssembly module whose version custom section holds v.
func WasmModule(v string) []byte {
	return WasmModuleWithSection(modver.WasmSection, []byte(v))
}

// WasmModuleWithSection returns a minimal WebAssembly module carrying one custom section.
func WasmModuleWithSection(name string, data []byte) []byte {
	var payload bytes.Buffer
	payload.Write(uleb128(uint64(len(name))))
	payload.WriteString(name)
	payload.Write(data)

	var buf bytes.Buffer
	buf.Write(wasmHeader)
	buf.WriteByte(0x00) // custom section id
	buf.Write(uleb128(uint64(payload.Len())))
	buf.Write(payload.Bytes())
	return buf.Bytes()
}

// WasmModuleWithoutVersion returns a valid, empty WebAssembly module.
func WasmModuleWithoutVersion() []byte {
	return append([]byte(nil), wasmHeader...)
}

// NativeModule returns opaque bytes carrying a version stamp the way a native build would embed it.
func NativeModule(v string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01})
	buf.WriteString("some linked code")
	buf.WriteByte(0x00)
	buf.WriteString(modver.StampMarker + v)
	buf.WriteByte(0x00)
	buf.WriteString("trailing data 9.9.9.9")
	return buf.Bytes()
}

// NativeModuleWithoutVersion returns opaque bytes without any version stamp.
func NativeModuleWithoutVersion() []byte {
	return []byte{0xca, 0xfe, 0xba, 0xbe, 0x00, 0x42}
}

func uleb128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}
