package store

import "sync"

// libnetcdf is not thread-safe in its default build, so every go-netcdf call
// in this module runs under netcdfMu.
var netcdfMu sync.Mutex

// LockNetCDF acquires the process-wide libnetcdf lock and returns the
// function that releases it:
//
//	defer store.LockNetCDF()()
func LockNetCDF() (unlock func()) {
	netcdfMu.Lock()
	return netcdfMu.Unlock
}
