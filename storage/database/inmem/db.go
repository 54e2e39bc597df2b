// Package inmemdb provides map-backed repositories for tests and local
// development. Data does not survive the process.
package inmemdb

import (
	"sync"

	"github.com/classoptima/backend/core/banner"
	"github.com/classoptima/backend/core/menu"
	"github.com/classoptima/backend/core/payment"
	"github.com/classoptima/backend/core/permission"
	"github.com/classoptima/backend/core/role"
	"github.com/classoptima/backend/core/user"
)

type (
	DB struct {
		user         *table[user.User]
		role         *table[role.Role]
		menu         *table[menu.Menu]
		submenu      *table[menu.Submenu]
		permission   *table[permission.Permission]
		payment      *table[payment.Payment]
		history      *table[payment.HistoryEntry]
		notification *table[payment.Notification]
		banner       *table[banner.Banner]
	}

	table[T any] struct {
		sync.RWMutex
		rows    map[int]*T
		pkCount int
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[int]*T)}
}

func (t *table[T]) nextPK() int {
	t.pkCount++
	return t.pkCount
}

func (t *table[T]) query() []T {
	rows := make([]T, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, *r)
	}
	return rows
}

func Open() (*DB, error) {
	db := &DB{
		user:         newTable[user.User](),
		role:         newTable[role.Role](),
		menu:         newTable[menu.Menu](),
		submenu:      newTable[menu.Submenu](),
		permission:   newTable[permission.Permission](),
		payment:      newTable[payment.Payment](),
		history:      newTable[payment.HistoryEntry](),
		notification: newTable[payment.Notification](),
		banner:       newTable[banner.Banner](),
	}
	return db, nil
}
