package inference

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/agri-cli/internal/fetcher"
)

// Files names the three artifact files inside the artifact directory.
type Files struct {
	Classifier string
	Regressor  string
	Metadata   string
}

// DefaultFiles are the artifact file names used when none are configured.
var DefaultFiles = Files{
	Classifier: "suitability_model.json",
	Regressor:  "yield_model.json",
	Metadata:   "metadata.json",
}

// Names returns the file names in classifier, regressor, metadata order.
func (f Files) Names() []string {
	return []string{f.Classifier, f.Regressor, f.Metadata}
}

// Artifacts is the loaded, immutable model bundle.
type Artifacts struct {
	Classifier Model
	Regressor  Model
	Metadata   Metadata
}

// Loader loads artifacts from a directory once and caches them for the life
// of the process. A failed load is not cached.
type Loader struct {
	fsys  fs.FS
	dir   string
	files Files

	arts atomic.Pointer[Artifacts]

	mu     sync.Mutex
	onLoad func(error)
}

// NewLoader returns a Loader reading from dir on disk.
func NewLoader(dir string, files Files) *Loader {
	return NewLoaderFS(os.DirFS(dir), dir, files)
}

// NewLoaderFS returns a Loader reading from fsys. dir is used in messages.
func NewLoaderFS(fsys fs.FS, dir string, files Files) *Loader {
	return &Loader{fsys: fsys, dir: dir, files: files}
}

// OnLoad registers fn to be called after every load attempt that touches
// the filesystem, with the attempt's error.
func (l *Loader) OnLoad(fn func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLoad = fn
}

// Dir returns the artifact directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Loaded reports whether artifacts are cached.
func (l *Loader) Loaded() bool {
	return l.arts.Load() != nil
}

// Missing returns the artifact files absent from the directory.
func (l *Loader) Missing() ([]string, error) {
	var missing []string
	for _, name := range l.files.Names() {
		_, err := fs.Stat(l.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "inference: stat %s", name)
		}
	}
	return missing, nil
}

// Load returns the cached artifacts, reading them on first call. Concurrent
// first calls block on a single load; once cached, calls take no lock.
func (l *Loader) Load(ctx context.Context) (*Artifacts, error) {
	if arts := l.arts.Load(); arts != nil {
		return arts, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if arts := l.arts.Load(); arts != nil {
		return arts, nil
	}

	arts, err := l.read(ctx)
	if l.onLoad != nil {
		l.onLoad(err)
	}
	if err != nil {
		return nil, err
	}

	l.arts.Store(arts)
	zap.L().Info("model artifacts loaded",
		zap.String("dir", l.dir),
		zap.Strings("numeric_features", arts.Metadata.NumericFeatures),
		zap.Strings("categorical_features", arts.Metadata.CategoricalFeatures),
	)
	return arts, nil
}

func (l *Loader) read(ctx context.Context) (*Artifacts, error) {
	missing, err := l.Missing()
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &MissingArtifactError{Dir: l.dir, Missing: missing}
	}

	var (
		meta       *Metadata
		classifier *LinearModel
		regressor  *LinearModel
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := fetcher.DecodeJSONFile[Metadata](l.fsys, l.files.Metadata)
		if err != nil {
			return &InvalidArtifactError{File: l.files.Metadata, Reason: "decode", Err: err}
		}
		meta = m
		return nil
	})
	g.Go(func() error {
		m, err := fetcher.DecodeJSONFile[LinearModel](l.fsys, l.files.Classifier)
		if err != nil {
			return &InvalidArtifactError{File: l.files.Classifier, Reason: "decode", Err: err}
		}
		classifier = m
		return nil
	})
	g.Go(func() error {
		m, err := fetcher.DecodeJSONFile[LinearModel](l.fsys, l.files.Regressor)
		if err != nil {
			return &InvalidArtifactError{File: l.files.Regressor, Reason: "decode", Err: err}
		}
		regressor = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(meta.Required()) == 0 {
		return nil, &InvalidArtifactError{File: l.files.Metadata, Reason: "no features declared"}
	}
	if err := classifier.Validate(meta); err != nil {
		return nil, &InvalidArtifactError{File: l.files.Classifier, Reason: "features", Err: err}
	}
	if classifier.Kind != KindLogistic {
		return nil, &InvalidArtifactError{File: l.files.Classifier, Reason: "classifier must be logistic"}
	}
	if err := regressor.Validate(meta); err != nil {
		return nil, &InvalidArtifactError{File: l.files.Regressor, Reason: "features", Err: err}
	}
	if regressor.Kind != KindLinear {
		return nil, &InvalidArtifactError{File: l.files.Regressor, Reason: "regressor must be linear"}
	}

	return &Artifacts{Classifier: classifier, Regressor: regressor, Metadata: *meta}, nil
}
