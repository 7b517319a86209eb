// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loader loads script module archives into module trees.
//
// This package wraps the internal importer and exports a clean public API:
//
//	import "github.com/ZephyrSails/pytorch/loader"
//
//	// Load into a fresh tree
//	root, err := loader.Load("path/to/model.pt", loader.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for name, t := range root.StateDict() {
//	    fmt.Println(name, t.Shape())
//	}
//
//	// Or drive an existing tree through a factory
//	err = loader.ImportModule(myFactory, "path/to/model.pt", loader.Options{
//	    CodeLoader: myCodeLoader,
//	})
package loader

import (
	"io"

	"github.com/ZephyrSails/pytorch/internal/importer"
	"github.com/ZephyrSails/pytorch/internal/metadata"
	"github.com/ZephyrSails/pytorch/internal/serialization"
	"github.com/ZephyrSails/pytorch/nn"
)

// RootModuleName is the name of the root module created by Load.
const RootModuleName = importer.RootModuleName

// Options configures a load.
type Options = importer.Options

// Module is the handle populated by the importer.
type Module = importer.Module

// ModuleFactory resolves module paths to handles.
type ModuleFactory = importer.ModuleFactory

// ModuleFactoryFunc adapts a function to ModuleFactory.
type ModuleFactoryFunc = importer.ModuleFactoryFunc

// CodeLoader consumes module code arenas.
type CodeLoader = importer.CodeLoader

// CodeLoaderFunc adapts a function to CodeLoader.
type CodeLoaderFunc = importer.CodeLoaderFunc

// CodeHolder is implemented by modules that can store their code arena.
type CodeHolder = importer.CodeHolder

// TreeFactory is a create-if-absent factory over an nn.Module tree.
type TreeFactory = importer.TreeFactory

// Default code loaders.
var (
	RetainCode  = importer.RetainCode
	DiscardCode = importer.DiscardCode
)

// Errors returned while loading. Use errors.As to inspect them.
type (
	ArchiveOpenError           = serialization.ArchiveOpenError
	ArchiveReadError           = serialization.ArchiveReadError
	MetadataTranscodeError     = metadata.MetadataTranscodeError
	SchemaValidationError      = metadata.SchemaValidationError
	StorageSizeMismatchError   = importer.StorageSizeMismatchError
	CodeArenaSizeMismatchError = importer.CodeArenaSizeMismatchError
	InvalidTensorIDError       = importer.InvalidTensorIDError
)

// ErrCodeNotSupported is returned by RetainCode for modules that cannot hold code.
var ErrCodeNotSupported = importer.ErrCodeNotSupported

// NewTreeFactory creates a factory whose empty path resolves to root.
func NewTreeFactory(root *nn.Module) *TreeFactory {
	return importer.NewTreeFactory(root)
}

// Load loads the archive at path into a fresh module tree.
func Load(path string, opts Options) (*nn.Module, error) {
	return importer.Load(path, opts)
}

// LoadFrom loads the archive starting at the current position of r.
// The caller keeps ownership of r.
func LoadFrom(r io.ReadSeeker, opts Options) (*nn.Module, error) {
	return importer.LoadFrom(r, opts)
}

// ImportModule loads the archive at path into the tree behind factory.
func ImportModule(factory ModuleFactory, path string, opts Options) error {
	return importer.ImportModule(factory, path, opts)
}

// ImportModuleFrom loads the archive starting at the current position of r
// into the tree behind factory. The caller keeps ownership of r.
func ImportModuleFrom(factory ModuleFactory, r io.ReadSeeker, opts Options) error {
	return importer.ImportModuleFrom(factory, r, opts)
}
