package fetcher

import (
	"encoding/json"
	"io"
	"io/fs"

	"github.com/rotisserie/eris"
)

// DecodeJSONObject decodes a single JSON object from a reader. Unknown fields
// are ignored.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	return &obj, nil
}

// DecodeJSONFile opens name in fsys and decodes it as a single JSON object.
func DecodeJSONFile[T any](fsys fs.FS, name string) (*T, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, eris.Wrapf(err, "json: open %s", name)
	}
	defer f.Close() //nolint:errcheck

	obj, err := DecodeJSONObject[T](f)
	if err != nil {
		return nil, eris.Wrapf(err, "json: %s", name)
	}
	return obj, nil
}
