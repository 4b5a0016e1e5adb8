// Package platform provides constants and utilities for handling platform-specific
// information such as operating systems and the file extensions of loadable modules.
package platform

const (
	// OSWindows represents the Windows operating system.
	OSWindows = "windows"
	// OSLinux represents the Linux operating system.
	OSLinux = "linux"
	// OSDarwin represents the macOS operating system.
	OSDarwin = "darwin"

	// ExtWasm is the extension of WebAssembly modules, loadable on every platform.
	ExtWasm = ".wasm"
	// ExtSharedObject is the extension of ELF shared objects.
	ExtSharedObject = ".so"
	// ExtDLL is the extension of Windows dynamic-link libraries.
	ExtDLL = ".dll"
	// ExtDylib is the extension of Mach-O dynamic libraries.
	ExtDylib = ".dylib"
)
