package main

import (
	"bytes"
	"context"
	"mime/multipart"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agri-cli/internal/inference"
	"github.com/sells-group/agri-cli/internal/monitoring"
	"github.com/sells-group/agri-cli/internal/store"
)

// fixtureModels holds a valid classifier, regressor, and metadata.
const fixtureModels = "../internal/inference/testdata/models"

var validUpload = strings.Join([]string{
	"Farm_ID,Crop_Type,Farm_Area(acres),Irrigation_Type,Fertilizer_Used(tons),Pesticide_Used(kg),Soil_Type,Season,Water_Usage(cubic meters)",
	"FARM_0001,Wheat,10,Canal,1.0,2.0,Loamy,Rabi,600",
	"FARM_0002,Rice,25.5,Flood,3.2,8.1,Clay,Kharif,4200",
	"FARM_0003,Maize,4,Drip,0.2,1.5,Sandy,Zaid,150",
}, "\n")

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// newTestServer builds a server over artifactsDir with a SQLite run store.
func newTestServer(t *testing.T, artifactsDir string) *server {
	t.Helper()

	metrics, err := monitoring.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	loader := inference.NewLoader(artifactsDir, inference.DefaultFiles)
	loader.OnLoad(metrics.RecordArtifactLoad)
	st := newTestStore(t)

	return &server{
		loader: loader,
		pred: &predictor{
			loader:  loader,
			store:   st,
			metrics: metrics,
		},
		store:     st,
		metrics:   metrics,
		maxUpload: 1 << 20,
	}
}

// multipartBody encodes content as the upload field, plus extra form values.
func multipartBody(t *testing.T, filename, content string, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile(uploadField, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
