package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-git/go-git/v5/utils/binary"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/bevcs/internal/backends"
	"github.com/thiagokokada/bevcs/internal/buildinfo"
	"github.com/thiagokokada/bevcs/internal/logging"
	"github.com/thiagokokada/bevcs/internal/render"
	"github.com/thiagokokada/bevcs/internal/vcs"
	"github.com/thiagokokada/bevcs/internal/watch"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a repository for --backend (default: first installed) at --dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var b vcs.Backend
			if a.cfg.Backend == "" {
				b = a.registry.Installed()
			} else {
				var err error
				if b, err = backends.Choose(a.registry, a.cfg.Backend, a.dir); err != nil {
					return err
				}
			}
			ad, err := vcs.New(b, a.cfg.AdapterOptions()...)
			if err != nil {
				return err
			}
			defer ad.Close()
			if err := os.MkdirAll(a.dir, 0o755); err != nil {
				return err
			}
			if err := ad.Init(a.dir); err != nil {
				return err
			}
			logging.UserSuccess("initialized %s repository at %s", ad.Name(), ad.RootDir())
			return nil
		},
	}
}

func newRootDirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Print the repository root containing --dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAdapter(func(ad *vcs.Adapter) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), ad.RootDir())
				return err
			})
		},
	}
}

func newDetectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Print the backend controlling --dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := a.registry.Detect(a.dir)
			defer b.Cleanup()
			_, err := fmt.Fprintln(cmd.OutOrStdout(), b.Name())
			return err
		},
	}
}

func newBackendsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List known backends and whether their clients are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, b := range a.registry.All() {
				client := b.Client()
				if client == "" {
					client = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Name(), client, b.Installed())
				if err := b.Cleanup(); err != nil {
					return err
				}
			}
			return tw.Flush()
		},
	}
}

func newCatCmd(a *app) *cobra.Command {
	var rev, color string
	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file, optionally as of an earlier revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := render.ParseMode(color)
			if err != nil {
				return err
			}
			path := a.path(args[0])
			return a.withAdapter(func(ad *vcs.Adapter) error {
				r, err := revision(ad, rev)
				if err != nil {
					return err
				}
				data, err := ad.ReadFile(path, vcs.ReadOptions{Revision: r, AllowNoVCS: true})
				if err != nil {
					return err
				}
				if mode == render.ModeNever || isBinaryOutput(data) {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				text, err := ad.ReadText(path, vcs.ReadOptions{Revision: r, AllowNoVCS: true})
				if err != nil {
					return err
				}
				return render.Source(cmd.OutOrStdout(), path, text, mode)
			})
		},
	}
	cmd.Flags().StringVarP(&rev, "rev", "r", "", "revision index (negative counts from the newest) or id")
	cmd.Flags().StringVar(&color, "color", "never", "highlighting: auto, light, dark or never")
	return cmd
}

func newWriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "write <path>",
		Short: "Write standard input to a file and register it with the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			path := a.path(args[0])
			return a.withAdapter(func(ad *vcs.Adapter) error {
				return ad.WriteFile(path, data, vcs.WriteOptions{})
			})
		},
	}
}

func newMkdirCmd(a *app) *cobra.Command {
	var noParents bool
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory and register it with the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.path(args[0])
			return a.withAdapter(func(ad *vcs.Adapter) error {
				return ad.Mkdir(path, vcs.MkdirOptions{CheckParents: !noParents})
			})
		},
	}
	cmd.Flags().BoolVar(&noParents, "no-parents", false, "fail instead of creating missing parents")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a file, or a directory tree with -r, from disk and backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.path(args[0])
			return a.withAdapter(func(ad *vcs.Adapter) error {
				if recursive {
					return ad.RecursiveRemove(path)
				}
				return ad.Remove(path)
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove a directory and everything below it")
	return cmd
}

func newCommitCmd(a *app) *cobra.Command {
	var summary, body string
	var allowEmpty bool
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit every pending change and print the new revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAdapter(func(ad *vcs.Adapter) error {
				rev, err := ad.Commit(summary, vcs.CommitOptions{Body: body, AllowEmpty: allowEmpty})
				if err != nil {
					return err
				}
				if rev == vcs.NoRevision {
					logging.UserWarning("%s backend does not record revisions", ad.Name())
					return nil
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rev)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&summary, "message", "m", "", "commit summary (first line)")
	cmd.Flags().StringVar(&body, "body", "", "commit body")
	cmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "succeed even when nothing changed")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newRevCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rev [--] <index>",
		Short: "Print the revision id at a slice-style index (0 is the first, -1 the newest)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}
			return a.withAdapter(func(ad *vcs.Adapter) error {
				rev, err := ad.LookupRevision(&idx)
				if err != nil {
					return err
				}
				if rev == vcs.NoRevision {
					return fmt.Errorf("no revision at index %d", idx)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rev)
				return err
			})
		},
	}
}

func newDupCmd(a *app) *cobra.Command {
	var rev string
	cmd := &cobra.Command{
		Use:   "dup <dest>",
		Short: "Materialize the tree, optionally as of a revision, into a new directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := a.path(args[0])
			return a.withAdapter(func(ad *vcs.Adapter) error {
				r, err := revision(ad, rev)
				if err != nil {
					return err
				}
				dir, err := ad.DuplicateRepo(r)
				if err != nil {
					return err
				}
				if err := vcs.CopyTree(dir, dest); err != nil {
					return err
				}
				if err := ad.VerifyDuplicateRepo(); err != nil {
					return err
				}
				logging.UserSuccess("duplicated %s into %s", ad.RootDir(), dest)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&rev, "rev", "r", "", "revision index or id (default: working tree)")
	return cmd
}

func newDiffCmd(a *app) *cobra.Command {
	var rev, color string
	cmd := &cobra.Command{
		Use:   "diff <path>",
		Short: "Show changes to a file since a revision (default: the newest)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := render.ParseMode(color)
			if err != nil {
				return err
			}
			path := a.path(args[0])
			return a.withAdapter(func(ad *vcs.Adapter) error {
				if rev == "" {
					rev = "-1"
				}
				r, err := revision(ad, rev)
				if err != nil {
					return err
				}
				text, err := ad.Diff(path, r)
				if err != nil || text == "" {
					return err
				}
				return render.Diff(cmd.OutOrStdout(), text, mode)
			})
		},
	}
	cmd.Flags().StringVarP(&rev, "rev", "r", "", "revision index or id to compare against")
	cmd.Flags().StringVar(&color, "color", "auto", "highlighting: auto, light, dark or never")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	var set string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print, or with --set store, the identity used for commits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withAdapter(func(ad *vcs.Adapter) error {
				if set != "" {
					if err := ad.SetUserID(set); err != nil {
						return err
					}
					logging.UserSuccess("%s identity set to %s", ad.Name(), set)
					return nil
				}
				id, err := ad.UserID()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&set, "set", "", `identity to store, as "Name <email>"`)
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var delay time.Duration
	var summary string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Commit changes below the root after they settle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("delay") {
				delay = a.cfg.WatchDelay.Duration
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.withAdapter(func(ad *vcs.Adapter) error {
				w, err := watch.New(ad.RootDir(), delay, func(paths []string) {
					autoCommit(ad, summary, paths)
				})
				if err != nil {
					return err
				}
				logging.UserInfo("watching %s (%s backend), press Ctrl+C to stop", ad.RootDir(), ad.Name())
				<-ctx.Done()
				return w.Close()
			})
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 0, "quiet period before committing (default from config)")
	cmd.Flags().StringVarP(&summary, "message", "m", "Automatic commit", "commit summary")
	return cmd
}

// autoCommit registers the changed paths and commits them.
func autoCommit(ad *vcs.Adapter, summary string, paths []string) {
	for _, p := range paths {
		var err error
		info, statErr := os.Lstat(p)
		switch {
		case errors.Is(statErr, os.ErrNotExist):
			err = ad.Remove(p)
		case statErr != nil:
			err = statErr
		case info.IsDir():
			continue
		default:
			err = ad.Add(p)
		}
		if err != nil {
			logging.UserWarning("%s: %v", p, err)
		}
	}
	rev, err := ad.Commit(summary, vcs.CommitOptions{Body: fmt.Sprintf("%d paths changed", len(paths))})
	switch {
	case errors.Is(err, vcs.ErrEmptyCommit):
		return
	case err != nil:
		logging.UserError("commit: %v", err)
	case rev != vcs.NoRevision:
		logging.UserSuccess("committed %s (%d paths)", rev, len(paths))
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skip the root pre-run so a broken config never hides the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Summary())
			return err
		},
	}
}

func isBinaryOutput(data []byte) bool {
	bin, err := binary.IsBinary(bytes.NewReader(data))
	return err == nil && bin
}
