package native

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/moclojer/chrondb/errors"
	"github.com/moclojer/chrondb/setup"
)

// Library holds the opened shared library and its resolved entry points.
// It is read-only after Load and safe to share across all worker threads;
// serialization of calls is the broker's job, not the loader's.
type Library struct {
	createIsolate   func(params, isolateOut, threadOut unsafe.Pointer) int32
	tearDownIsolate func(thread uintptr) int32
	open            func(thread uintptr, dataPath, indexPath unsafe.Pointer) int32
	closeDB         func(thread uintptr, handle int32) int32
	put             func(thread uintptr, handle int32, id, doc, branch unsafe.Pointer) uintptr
	get             func(thread uintptr, handle int32, id, branch unsafe.Pointer) uintptr
	del             func(thread uintptr, handle int32, id, branch unsafe.Pointer) int32
	listByPrefix    func(thread uintptr, handle int32, prefix, branch unsafe.Pointer) uintptr
	listByTable     func(thread uintptr, handle int32, table, branch unsafe.Pointer) uintptr
	history         func(thread uintptr, handle int32, id, branch unsafe.Pointer) uintptr
	query           func(thread uintptr, handle int32, queryJSON, branch unsafe.Pointer) uintptr
	freeString      func(thread uintptr, ptr uintptr)
	lastError       func(thread uintptr) uintptr
}

var loadOnce = sync.OnceValues(load)

// Load returns the process-wide library, provisioning and opening it on
// first use. Both success and failure are memoized: once resolved, later
// calls are O(1) and return the same result.
func Load() (*Library, error) {
	return loadOnce()
}

func load() (*Library, error) {
	if err := setup.EnsureInstalled(); err != nil {
		return nil, err
	}

	path, ok := setup.FindLibrary()
	if !ok {
		return nil, errors.LoadFailed(fmt.Sprintf("library %q not found", setup.LibName()), nil)
	}

	handle, err := openLibrary(path)
	if err != nil {
		return nil, errors.LoadFailed(fmt.Sprintf("open library %s", path), err)
	}

	lib := &Library{}
	symbols := []struct {
		fptr any
		name string
	}{
		{&lib.createIsolate, "graal_create_isolate"},
		{&lib.tearDownIsolate, "graal_tear_down_isolate"},
		{&lib.open, "chrondb_open"},
		{&lib.closeDB, "chrondb_close"},
		{&lib.put, "chrondb_put"},
		{&lib.get, "chrondb_get"},
		{&lib.del, "chrondb_delete"},
		{&lib.listByPrefix, "chrondb_list_by_prefix"},
		{&lib.listByTable, "chrondb_list_by_table"},
		{&lib.history, "chrondb_history"},
		{&lib.query, "chrondb_query"},
		{&lib.freeString, "chrondb_free_string"},
		{&lib.lastError, "chrondb_last_error"},
	}
	for _, s := range symbols {
		addr, err := loadSymbol(handle, s.name)
		if err != nil {
			return nil, errors.LoadFailed(fmt.Sprintf("symbol %s not found", s.name), err)
		}
		purego.RegisterFunc(s.fptr, addr)
	}

	return lib, nil
}
