package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agri-cli/internal/config"
	"github.com/sells-group/agri-cli/internal/inference"
	"github.com/sells-group/agri-cli/internal/store"
)

// initStore opens and migrates the configured run history store. It returns
// a nil store when run history is disabled.
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)

	switch sc.Driver {
	case "none":
		return nil, nil
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "agri.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newLoader builds the artifact loader from configuration.
func newLoader(ac config.ArtifactsConfig) *inference.Loader {
	return inference.NewLoader(ac.Dir, artifactFiles(ac))
}

func artifactFiles(ac config.ArtifactsConfig) inference.Files {
	files := inference.DefaultFiles
	if ac.ClassifierFile != "" {
		files.Classifier = ac.ClassifierFile
	}
	if ac.RegressorFile != "" {
		files.Regressor = ac.RegressorFile
	}
	if ac.MetadataFile != "" {
		files.Metadata = ac.MetadataFile
	}
	return files
}
