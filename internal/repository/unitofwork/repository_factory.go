package unitofwork

import "context"

type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
	// InTransaction runs fn in one transaction, committing when fn returns nil.
	InTransaction(ctx context.Context, fn func(uow UnitOfWork) error) error
}
