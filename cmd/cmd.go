package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/bevcs/internal/backends"
	"github.com/thiagokokada/bevcs/internal/buildinfo"
	"github.com/thiagokokada/bevcs/internal/config"
	"github.com/thiagokokada/bevcs/internal/invoke"
	"github.com/thiagokokada/bevcs/internal/logging"
	"github.com/thiagokokada/bevcs/internal/vcs"
)

func Run() error {
	return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// app holds the persistent flags and the state derived from them.
type app struct {
	verbose    bool
	jsonOutput bool
	configPath string
	backend    string
	dir        string

	cfg      config.Config
	registry *vcs.Registry
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd(&app{})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "bevcs",
		Short: "Uniform access to version-controlled trees",
		Long: `bevcs reads, writes and commits files through whichever version-control
backend manages a tree (git, hg, or none at all), addressing revisions by
slice-style indices and materializing read-only snapshots.`,
		Version:       buildinfo.VersionWithTags(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&a.jsonOutput, "json", false, "output logs in JSON format")
	flags.StringVar(&a.configPath, "config", "", "config file (default <dir>/"+config.FileName+")")
	flags.StringVar(&a.backend, "backend", "", "backend name: git, hg or None (default: detect)")
	flags.StringVarP(&a.dir, "dir", "C", ".", "tree to operate on")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newInitCmd(a),
		newRootDirCmd(a),
		newDetectCmd(a),
		newBackendsCmd(a),
		newCatCmd(a),
		newWriteCmd(a),
		newMkdirCmd(a),
		newRmCmd(a),
		newCommitCmd(a),
		newRevCmd(a),
		newDupCmd(a),
		newDiffCmd(a),
		newWhoamiCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	logging.Setup(a.verbose, a.jsonOutput, cmd.ErrOrStderr())
	logging.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	dir, err := filepath.Abs(a.dir)
	if err != nil {
		return err
	}
	a.dir = dir
	cfg, err := config.Resolve(a.configPath, dir)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	a.cfg = cfg
	a.registry = backends.Default(invoke.New(a.verbose || cfg.VerboseInvoke))
	return nil
}

// open returns an adapter rooted at the tree selected by --dir.
func (a *app) open() (*vcs.Adapter, error) {
	return backends.Open(a.registry, a.cfg.Backend, a.dir, a.cfg.AdapterOptions()...)
}

// path resolves a command argument against --dir.
func (a *app) path(arg string) string {
	if filepath.IsAbs(arg) {
		return arg
	}
	return filepath.Join(a.dir, arg)
}

// revision turns a --rev value into a revision handle: integers are
// slice-style indices, anything else is passed to the backend verbatim.
func revision(ad *vcs.Adapter, raw string) (vcs.Revision, error) {
	if raw == "" {
		return vcs.NoRevision, nil
	}
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return vcs.Revision(raw), nil
	}
	rev, err := ad.RevisionID(idx)
	if err != nil {
		return vcs.NoRevision, err
	}
	if rev == vcs.NoRevision && ad.Backend().Versioned() {
		return vcs.NoRevision, fmt.Errorf("no revision at index %d", idx)
	}
	return rev, nil
}

// withAdapter opens an adapter, runs fn and releases the adapter.
func (a *app) withAdapter(fn func(ad *vcs.Adapter) error) (err error) {
	ad, err := a.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ad.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(ad)
}
