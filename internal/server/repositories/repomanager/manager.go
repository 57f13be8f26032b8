// Package repomanager vends catalog repository implementations bound to a
// database handle, so services can run several repositories inside one
// transaction via dbx.WithTx.
package repomanager

import (
	"github.com/ava-vs/chunkvault/internal/dbx"
	"github.com/ava-vs/chunkvault/internal/server/repositories/keygrants"
	"github.com/ava-vs/chunkvault/internal/server/repositories/products"
	"github.com/ava-vs/chunkvault/internal/server/repositories/receipts"
	"github.com/ava-vs/chunkvault/internal/server/repositories/transfers"
)

// RepositoryManager vends repositories bound to the provided DBTX
// (*sql.DB or *sql.Tx).
type RepositoryManager interface {
	Products(db dbx.DBTX) products.Repository
	Transfers(db dbx.DBTX) transfers.Repository
	KeyGrants(db dbx.DBTX) keygrants.Repository
	Receipts(db dbx.DBTX) receipts.Repository
}
