//go:build sqlite_vec && cgo

package sqlitevec

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Auto-register the vec0 extension with every connection the
	// mattn/go-sqlite3 (cgo) driver opens in this process.
	vec.Auto()
}
