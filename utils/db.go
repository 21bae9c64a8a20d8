package utils

import (
	"sync"

	"gorm.io/gorm"
)

// Process-wide database handle, set once at startup. Packages that are not
// constructed with a handle of their own (middleware) read it through GetDB.
var (
	dbMu sync.RWMutex
	db   *gorm.DB
)

// InitDB stores the shared handle. The first call wins; later calls are
// ignored so nothing can swap the connection out from under running handlers.
func InitDB(database *gorm.DB) {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db == nil {
		db = database
	}
}

// GetDB returns the shared handle, or nil before InitDB has run.
func GetDB() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}
