package imports

import (
	"github.com/stealthrocket/wasi-aot/abi"
	"github.com/tetratelabs/wazero"
	"golang.org/x/exp/slices"
)

// DetectNamespaces returns the WASI namespaces imported by a compiled module,
// in the order of abi.Namespaces.
func DetectNamespaces(module wazero.CompiledModule) []string {
	var namespaces []string
	for _, ns := range abi.Namespaces {
		for _, f := range module.ImportedFunctions() {
			if moduleName, _, ok := f.Import(); ok && moduleName == ns {
				namespaces = append(namespaces, ns)
				break
			}
		}
	}
	return namespaces
}

// UnsupportedImports returns the names of the functions that a compiled
// module imports from the WASI namespaces but that the host modules do not
// export. Instantiating such a module fails.
func UnsupportedImports(module wazero.CompiledModule) []string {
	exports := abi.New(nil).Exports(abi.SnapshotPreview1)

	var names []string
	for _, f := range module.ImportedFunctions() {
		moduleName, name, ok := f.Import()
		if !ok || !slices.Contains(abi.Namespaces, moduleName) {
			continue
		}
		if _, ok := exports[name]; !ok {
			names = append(names, moduleName+"."+name)
		}
	}
	slices.Sort(names)
	return names
}
