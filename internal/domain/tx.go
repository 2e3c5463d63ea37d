package domain

import "context"

// Transactor runs fn inside one database transaction carried by ctx. Repositories
// called with that ctx join the transaction; fn returning an error rolls it back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
