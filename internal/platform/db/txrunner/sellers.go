package txrunner

import (
	"context"
	"database/sql"

	"github.com/agrolink/geo-discovery-service/internal/app/discovery"
	outboxdb "github.com/agrolink/geo-discovery-service/internal/platform/db/outbox"
	sellersdb "github.com/agrolink/geo-discovery-service/internal/platform/db/sellers"
	"github.com/agrolink/geo-discovery-service/internal/platform/db/uow"
)

type Option func(*SellersTxRunner)

// WithAfterCommit registers a hook invoked after a successful commit,
// used to invalidate read caches.
func WithAfterCommit(fn func(ctx context.Context)) Option {
	return func(r *SellersTxRunner) { r.afterCommit = fn }
}

// SellersTxRunner runs seller location writes and their outbox events
// in one transaction.
type SellersTxRunner struct {
	u           *uow.UnitOfWork
	afterCommit func(ctx context.Context)
}

func NewSellersTxRunner(u *uow.UnitOfWork, opts ...Option) *SellersTxRunner {
	r := &SellersTxRunner{u: u}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SellersTxRunner) WithinTx(
	ctx context.Context,
	fn func(ctx context.Context, writer discovery.LocationWriter, outbox discovery.OutboxRepository) error) error {
	err := r.u.WithinTxRoot(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(sc uow.Scope) error {
		sellersRepo := sellersdb.New(sc.Executor())
		obRepo := outboxdb.New(sc.Executor())
		return fn(ctx, sellersRepo, obRepo)
	})
	if err == nil && r.afterCommit != nil {
		r.afterCommit(ctx)
	}
	return err
}
