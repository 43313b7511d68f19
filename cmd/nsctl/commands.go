package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/fedfs/internal/namespace"
	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

func (a *app) lsCmd() *cobra.Command {
	var (
		recursive bool
		prefix    string
		plain     bool
	)
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory, annotating mount points",
		Args:  positional(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			entries, err := a.client.ListEnriched(cmd.Context(), path, types.ListOptions{
				Recursive: types.Bool(recursive),
				Prefix:    prefix,
			})
			if err != nil {
				return err
			}
			if plain {
				for _, e := range entries {
					name := e.Path
					if e.IsDirectory {
						name += "/"
					}
					fmt.Fprintln(a.out, name)
				}
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tSIZE\tMODIFIED\tPATH\tBACKEND")
			for _, e := range entries {
				kind, size, modified := "file", "-", "-"
				if e.IsDirectory {
					kind = "dir"
				}
				if e.Size != nil {
					size = fmt.Sprintf("%d", *e.Size)
				}
				if e.ModifiedAt != nil {
					modified = e.ModifiedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", kind, size, modified, e.Path, e.BackendType)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "List recursively")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only names starting with prefix")
	cmd.Flags().BoolVar(&plain, "plain", false, "Paths only")
	return cmd
}

func (a *app) catCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.client.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = a.out.Write(data)
			return err
		},
	}
}

func (a *app) putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <path> [local-file]",
		Short: "Write a file from a local file or stdin",
		Args:  positional(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 2 {
				data, err = os.ReadFile(args[1])
			} else {
				data, err = io.ReadAll(a.in)
			}
			if err != nil {
				return err
			}
			if err := a.client.Write(cmd.Context(), args[0], data); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote %d bytes to %s\n", len(data), args[0])
			return nil
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete files, continuing past failures",
		Args:  positional(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.client.DeleteMany(cmd.Context(), args)
			a.printBatch("Deleted", result)
			return err
		},
	}
}

func (a *app) printBatch(verb string, result types.BatchResult) {
	for _, p := range result.Succeeded {
		fmt.Fprintf(a.out, "%s: %s\n", verb, p)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(a.errOut, "Failed: %s (%s): %s\n", f.Path, f.Kind, f.Message)
	}
}

func (a *app) mkdirCmd() *cobra.Command {
	var parents, existOK bool
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.Mkdir(cmd.Context(), args[0], types.MkdirOptions{
				Parents: types.Bool(parents),
				ExistOK: existOK,
			})
		},
	}
	cmd.Flags().BoolVarP(&parents, "parents", "p", true, "Create missing parents")
	cmd.Flags().BoolVar(&existOK, "exist-ok", false, "Succeed if the directory exists")
	return cmd
}

func (a *app) rmdirCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rmdir <path>",
		Short: "Remove a directory",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.Rmdir(cmd.Context(), args[0], recursive)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Remove contents too")
	return cmd
}

func (a *app) mvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <old> <new>",
		Short: "Rename a file, across mounts if needed",
		Args:  positional(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.Rename(cmd.Context(), args[0], args[1])
		},
	}
}

func (a *app) mountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mounts",
		Short: "List active mounts",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			mounts, err := a.client.ListMounts(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MOUNT POINT\tBACKEND\tPRIORITY\tMODE")
			for _, m := range mounts {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", m.MountPoint, m.BackendType, m.Priority, mode(m.ReadOnly))
			}
			return tw.Flush()
		},
	}
}

func (a *app) savedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saved",
		Short: "List saved mount configurations",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			saved, err := a.client.ListSavedMounts(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MOUNT POINT\tBACKEND\tMODE\tDESCRIPTION")
			for _, m := range saved {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.MountPoint, m.BackendType, mode(m.ReadOnly), m.Description)
			}
			return tw.Flush()
		},
	}
}

func mode(readOnly bool) string {
	if readOnly {
		return "ro"
	}
	return "rw"
}

func (a *app) saveCmd() *cobra.Command {
	var (
		mount     types.SavedMount
		rawConfig string
	)
	cmd := &cobra.Command{
		Use:   "save <mount-point>",
		Short: "Create or update a saved mount",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			mount.MountPoint = args[0]
			if rawConfig != "" {
				if err := rpc.Unmarshal([]byte(rawConfig), &mount.BackendConfig); err != nil {
					return fmt.Errorf("parse --config: %w", err)
				}
			}
			saved, err := a.client.Mounts().Save(cmd.Context(), mount)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %s (%s)\n", saved.MountPoint, saved.BackendType)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mount.BackendType, "type", "t", "", "Backend type")
	cmd.Flags().StringVar(&rawConfig, "config", "", "Backend configuration as a JSON object")
	cmd.Flags().BoolVar(&mount.ReadOnly, "readonly", false, "Reject writes")
	cmd.Flags().IntVar(&mount.Priority, "priority", 0, "Mount priority")
	cmd.Flags().StringVar(&mount.Description, "description", "", "Free-form description")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// applyCmd saves every mount in a mounts file and loads the autoload ones
func (a *app) applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <mounts-file>",
		Short: "Save mounts from a YAML, TOML or JSON file",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := config.LoadMountsFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var failures []types.ItemFailure
			for _, spec := range file.Mounts {
				if _, err := a.client.Mounts().Save(ctx, spec.Saved()); err != nil {
					failures = append(failures, types.Failure(spec.MountPoint, err))
					continue
				}
				fmt.Fprintf(a.out, "Saved %s\n", spec.MountPoint)
				if !spec.Autoload {
					continue
				}
				if _, err := a.client.Mounts().Load(ctx, spec.MountPoint); err != nil {
					failures = append(failures, types.Failure(spec.MountPoint, err))
					continue
				}
				fmt.Fprintf(a.out, "Loaded %s\n", spec.MountPoint)
			}
			if len(failures) > 0 {
				a.printBatch("", types.BatchResult{Failures: failures})
				return types.PartialFailure("apply", failures)
			}
			return nil
		},
	}
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <mount-point>",
		Short: "Activate a saved mount",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.client.Mounts().Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Loaded %s (activation %s)\n", args[0], token)
			return nil
		},
	}
}

func (a *app) unmountCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "unmount <mount-point>...",
		Aliases: []string{"unload"},
		Short:   "Deactivate mounts, keeping their saved configuration",
		Args:    positional(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.client.Mounts().UnloadMany(cmd.Context(), args)
			a.printBatch("Unmounted", result)
			return err
		},
	}
}

func (a *app) forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <mount-point>",
		Short: "Delete a saved mount configuration",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := a.client.Mounts().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintf(a.out, "Nothing saved at %s\n", args[0])
				return nil
			}
			fmt.Fprintf(a.out, "Forgot %s\n", args[0])
			return nil
		},
	}
}

func (a *app) syncCmd() *cobra.Command {
	var dryRun, recursive bool
	cmd := &cobra.Command{
		Use:   "sync <mount-point>",
		Short: "Reconcile a mount with its backend",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.client.Sync().Sync(cmd.Context(), args[0], types.SyncOptions{
				Recursive: types.Bool(recursive),
				DryRun:    dryRun,
			})
			if err != nil && !types.IsKind(err, types.KindPartialFailure) {
				return err
			}
			prefix := "Synced"
			if dryRun {
				prefix = "Dry run"
			}
			fmt.Fprintf(a.out, "%s %s: scanned=%d created=%d updated=%d deleted=%d errors=%d\n",
				prefix, args[0], result.FilesScanned, result.FilesCreated, result.FilesUpdated, result.FilesDeleted, result.Errors)
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without changing anything")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "Descend into subdirectories")
	return cmd
}

func (a *app) globCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "glob <pattern>",
		Short: "Match paths under a directory",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := a.client.Glob(cmd.Context(), args[0], root)
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Fprintln(a.out, m)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", "/", "Directory to match under")
	return cmd
}

func (a *app) grepCmd() *cobra.Command {
	var opts types.GrepOptions
	cmd := &cobra.Command{
		Use:   "grep <regex>",
		Short: "Search file contents",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := a.client.Grep(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Fprintf(a.out, "%s:%d:%s\n", m.Path, m.Line, strings.TrimRight(m.Content, "\r"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.IgnoreCase, "ignore-case", "i", false, "Case insensitive")
	cmd.Flags().StringVar(&opts.Path, "path", "/", "File or directory to search")
	cmd.Flags().StringVar(&opts.FilePattern, "include", "", "Only files whose name matches this glob")
	cmd.Flags().IntVar(&opts.MaxResults, "max", 0, "Maximum matches (server default when 0)")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream change events until interrupted",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := namespace.NewWatcher(a.cfg.URL, a.cfg.APIKey, a.log)
			if err != nil {
				return err
			}
			return w.Watch(cmd.Context(), func(e types.Event) {
				fmt.Fprintf(a.out, "%s\t%s\t%s\n", e.Time.Format("15:04:05.000"), e.Op, e.Path)
			})
		},
	}
}
