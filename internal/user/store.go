package user

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	userrepo "github.com/chiremba/chiremba-api/internal/user/repo"
	"github.com/chiremba/chiremba-api/pkg/database"
)

// OpenStore connects the account store selected by cfg.Driver. Postgres is
// migrated and Mongo gets its indexes before the store is returned. The
// returned close func releases the underlying connection.
func OpenStore(ctx context.Context, cfg database.Config) (Store, func(context.Context) error, error) {
	switch cfg.Driver {
	case database.DriverPostgres:
		sqlDB, err := database.Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		db := sqlx.NewDb(sqlDB, "postgres")
		return userrepo.NewUserRepo(db), func(context.Context) error { return db.Close() }, nil
	case database.DriverMongo:
		client, err := database.ConnectMongo(cfg)
		if err != nil {
			return nil, nil, err
		}
		r := userrepo.NewMongoRepo(client.Database(cfg.MongoDatabase).Collection("users"))
		if err := r.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		return r, client.Disconnect, nil
	case database.DriverMemory:
		return userrepo.NewMemoryRepo(), func(context.Context) error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
	}
}
