// Package importer rebuilds a module tree from a script module archive.
//
// Loading proceeds in four steps:
//
//  1. The trailing metadata record is read and transcoded into a validated
//     metadata.ModelDef.
//  2. The tensor table is materialized. Every tensor is a view over a shared
//     tensor.Storage; tensors whose data references the same record key alias
//     one Storage, which is fetched from the archive exactly once.
//  3. The descriptor tree is checked: every parameter must reference the
//     tensor table and every code arena must exist with its declared size.
//  4. The module tree is walked in pre-order, left to right. Each module is
//     obtained from a caller-supplied ModuleFactory, its children are built,
//     its parameters are registered in declaration order, and its code arena
//     is handed to the CodeLoader together with the tensor table.
//
// Any failure aborts the load and is returned to the caller. Archive errors
// surface before the factory is first called; no partial tree is returned by
// Load or LoadFrom.
//
// Example:
//
//	root, err := importer.Load("model.pt", importer.Options{})
//	if err != nil {
//	    return err
//	}
//	for name, t := range root.StateDict() {
//	    fmt.Println(name, t.Shape())
//	}
package importer
