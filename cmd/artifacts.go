package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/agri-cli/internal/config"
	"github.com/sells-group/agri-cli/internal/fetcher"
	"github.com/sells-group/agri-cli/internal/inference"
)

var artifactsPullFrom string

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Inspect and fetch model artifacts",
	Long:  "Commands for showing the feature metadata, checking, and downloading the classifier, regressor, and metadata files.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("artifacts")
	},
}

// -- artifacts show --

var artifactsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the feature metadata as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		arts, err := newLoader(cfg.Artifacts).Load(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "artifacts show")
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(arts.Metadata)
	},
}

// -- artifacts check --

var artifactsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the artifacts exist and load",
	RunE: func(cmd *cobra.Command, _ []string) error {
		loader := newLoader(cfg.Artifacts)
		files := artifactFiles(cfg.Artifacts)

		missing, err := loader.Missing()
		if err != nil {
			return eris.Wrap(err, "artifacts check")
		}
		formatArtifactStatus(cmd.OutOrStdout(), loader.Dir(), files, missing)
		if len(missing) > 0 {
			return &inference.MissingArtifactError{Dir: loader.Dir(), Missing: missing}
		}

		if _, err := loader.Load(cmd.Context()); err != nil {
			return eris.Wrap(err, "artifacts check")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "artifacts OK")
		return nil
	},
}

// -- artifacts pull --

var artifactsPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download the artifacts from a base URL",
	Long: `Downloads the classifier, regressor, and metadata files into the artifact
directory. The base may be an http(s), ftp, or file URL, or a local directory.

Examples:
  agri-cli artifacts pull --from https://models.example.com/agri/v3
  agri-cli artifacts pull --from ftp://models.example.com/agri/v3`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		base := artifactsPullFrom
		if base == "" {
			base = cfg.Artifacts.SourceURL
		}
		if base == "" {
			return eris.New("artifacts pull: --from or artifacts.source_url is required")
		}

		if err := pullArtifacts(cmd.Context(), base, cfg.Artifacts); err != nil {
			return err
		}

		// Validate what was pulled.
		if _, err := newLoader(cfg.Artifacts).Load(cmd.Context()); err != nil {
			return eris.Wrap(err, "artifacts pull: validate")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "artifacts pulled into %s\n", cfg.Artifacts.Dir)
		return nil
	},
}

// pullArtifacts downloads the three artifact files concurrently. Each file is
// written to a temporary sibling and renamed only after every download
// succeeded.
func pullArtifacts(ctx context.Context, base string, ac config.ArtifactsConfig) error {
	f, err := fetcher.ForURL(base)
	if err != nil {
		return eris.Wrap(err, "artifacts pull")
	}
	if err := os.MkdirAll(ac.Dir, 0o755); err != nil {
		return eris.Wrap(err, "artifacts pull: create dir")
	}

	names := artifactFiles(ac).Names()
	tmps := make([]string, len(names))
	defer func() {
		for _, tmp := range tmps {
			if tmp != "" {
				_ = os.Remove(tmp)
			}
		}
	}()

	g, gCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		src, err := fetcher.JoinURL(base, name)
		if err != nil {
			return eris.Wrapf(err, "artifacts pull: %s", name)
		}
		tmps[i] = filepath.Join(ac.Dir, "."+name+".part")

		g.Go(func() error {
			n, err := f.DownloadToFile(gCtx, src, tmps[i])
			if err != nil {
				return eris.Wrapf(err, "artifacts pull: %s", name)
			}
			zap.L().Info("artifact downloaded",
				zap.String("file", name),
				zap.String("source", src),
				zap.Int64("bytes", n),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, name := range names {
		if err := os.Rename(tmps[i], filepath.Join(ac.Dir, name)); err != nil {
			return eris.Wrapf(err, "artifacts pull: install %s", name)
		}
		tmps[i] = ""
	}
	return nil
}

// formatArtifactStatus writes one line per artifact file.
func formatArtifactStatus(out io.Writer, dir string, files inference.Files, missing []string) {
	absent := make(map[string]bool, len(missing))
	for _, m := range missing {
		absent[m] = true
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Directory:\t%s\n", dir)
	roles := []string{"Classifier", "Regressor", "Metadata"}
	for i, name := range files.Names() {
		state := "present"
		if absent[name] {
			state = "MISSING"
		}
		_, _ = fmt.Fprintf(w, "%s:\t%s\t%s\n", roles[i], name, state)
	}
	_ = w.Flush()
}

func init() {
	artifactsPullCmd.Flags().StringVar(&artifactsPullFrom, "from", "", "base URL or directory (default artifacts.source_url)")

	artifactsCmd.AddCommand(artifactsShowCmd)
	artifactsCmd.AddCommand(artifactsCheckCmd)
	artifactsCmd.AddCommand(artifactsPullCmd)
	rootCmd.AddCommand(artifactsCmd)
}
