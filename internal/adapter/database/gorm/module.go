package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/roomrate/internal/adapter/database"
)

// Module provides the connection resolver and the transaction manager factory.
// Concrete providers come from the dialect subpackages.
var Module = fx.Options(
	fx.Provide(NewGormTransactionManagerFactory),
	fx.Provide(
		NewGormDBConnectionResolver,
		func(r *GormDBConnectionResolver) database.DBConnectionResolver { return r },
	),
	fx.Invoke(func(lc fx.Lifecycle, r *GormDBConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return r.CloseAll() },
		})
	}),
)
