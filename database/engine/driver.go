// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"sort"
)

// Driver defines a structure for backend drivers to use when they registered
// themselves as a backend which implements the Engine interface.
type Driver struct {
	// DbType is the identifier used to uniquely identify a specific
	// database driver.  There can be only one driver with the same name.
	DbType string

	// Create is the function that will be invoked with the database path
	// to create a new database.  It fails if the database already exists.
	Create func(dbPath string) (Engine, error)

	// Open is the function that will be invoked with the database path
	// to open an existing database.
	Open func(dbPath string) (Engine, error)
}

// drivers holds all of the registered database backends.
var drivers = make(map[string]*Driver)

// RegisterDriver adds a backend database driver to available interfaces.
// An error is returned if a driver with the same type was already
// registered.
func RegisterDriver(driver Driver) error {
	if _, exists := drivers[driver.DbType]; exists {
		return fmt.Errorf("driver %q is already registered",
			driver.DbType)
	}

	drivers[driver.DbType] = &driver
	return nil
}

// SupportedDrivers returns a sorted slice of strings that represent the
// database drivers that have been registered and are therefore supported.
func SupportedDrivers() []string {
	supportedDBs := make([]string, 0, len(drivers))
	for _, drv := range drivers {
		supportedDBs = append(supportedDBs, drv.DbType)
	}
	sort.Strings(supportedDBs)
	return supportedDBs
}

// Create initializes and opens a database for the specified type.
func Create(dbType, dbPath string) (Engine, error) {
	drv, exists := drivers[dbType]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrDbUnknownType, dbType)
	}

	return drv.Create(dbPath)
}

// Open opens an existing database for the specified type.
func Open(dbType, dbPath string) (Engine, error) {
	drv, exists := drivers[dbType]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrDbUnknownType, dbType)
	}

	return drv.Open(dbPath)
}
