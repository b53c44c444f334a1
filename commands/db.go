package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inkpost/app/config"
	"inkpost/app/repositories"

	"github.com/dustin/go-humanize"
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
)

const outputFlag = "output"

var errBadgerOnly = errors.New("backup and restore need the badger store driver")

func newDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the content store",
	}
	cmd.AddCommand(newDBInitCommand())
	cmd.AddCommand(newDBCleanCommand())
	cmd.AddCommand(newDBBackupCommand())
	cmd.AddCommand(newDBRestoreCommand())
	return cmd
}

// newDBInitCommand creates an empty store
func newDBInitCommand() *cobra.Command {
	flags := withConfigFlag(map[string]cobraflags.Flag{})
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags, nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			exists, err := storeExists(cfg.Store)
			if err != nil {
				return err
			}
			if exists {
				fmt.Fprintln(out, "Store already exists. Use 'db clean' first if you want to reinitialize.")
				return nil
			}

			st, err := openStore(cfg.Store, logger)
			if err != nil {
				return fmt.Errorf("initialize store: %w", err)
			}
			if err := st.Close(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Store initialized at %s (%s)\n", cfg.Store.Path, cfg.Store.Driver)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

// newDBCleanCommand removes the store after confirmation
func newDBCleanCommand() *cobra.Command {
	flags := withConfigFlag(map[string]cobraflags.Flag{})
	var yes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(flags, nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			exists, err := storeExists(cfg.Store)
			if err != nil {
				return err
			}
			if !exists {
				fmt.Fprintln(out, "Store is already clean (does not exist)")
				return nil
			}

			if !yes && !confirm(cmd.InOrStdin(), out, "Are you sure you want to clean the store? This cannot be undone.") {
				fmt.Fprintln(out, "Operation cancelled")
				return nil
			}
			if err := removeStore(cfg.Store); err != nil {
				return fmt.Errorf("clean store: %w", err)
			}
			fmt.Fprintln(out, "Store cleaned successfully")
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// newDBBackupCommand streams a badger snapshot to a file
func newDBBackupCommand() *cobra.Command {
	flags := withConfigFlag(map[string]cobraflags.Flag{
		outputFlag: &cobraflags.StringFlag{
			Name:  outputFlag,
			Value: "",
			Usage: "Backup file to write (default data/backups/backup_<unix time>.db)",
		},
	})

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags, nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.DriverBadger {
				return errBadgerOnly
			}
			out := cmd.OutOrStdout()

			exists, err := storeExists(cfg.Store)
			if err != nil {
				return err
			}
			if !exists {
				fmt.Fprintln(out, "No store exists to back up")
				return nil
			}

			target := flags[outputFlag].GetString()
			if target == "" {
				target = filepath.Join("data", "backups", fmt.Sprintf("backup_%d.db", time.Now().Unix()))
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create backup directory: %w", err)
			}

			st, err := openStore(cfg.Store, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			f, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create backup file: %w", err)
			}
			if _, err := repositories.Backup(st.badger, f); err != nil {
				_ = f.Close()
				return fmt.Errorf("back up store: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}

			size := "unknown size"
			if info, err := os.Stat(target); err == nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
			fmt.Fprintf(out, "Store backed up successfully to %s (%s)\n", target, size)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

// newDBRestoreCommand replaces the store with the contents of a backup
func newDBRestoreCommand() *cobra.Command {
	flags := withConfigFlag(map[string]cobraflags.Flag{})
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore the store from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags, nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.DriverBadger {
				return errBadgerOnly
			}
			out := cmd.OutOrStdout()
			backupFile := args[0]

			if _, err := os.Stat(backupFile); err != nil {
				return fmt.Errorf("backup file: %w", err)
			}

			exists, err := storeExists(cfg.Store)
			if err != nil {
				return err
			}
			if exists {
				if !yes && !confirm(cmd.InOrStdin(), out, "Existing store found. Do you want to replace it?") {
					fmt.Fprintln(out, "Operation cancelled")
					return nil
				}
				if err := removeStore(cfg.Store); err != nil {
					return fmt.Errorf("remove existing store: %w", err)
				}
			}

			st, err := openStore(cfg.Store, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			f, err := os.Open(backupFile)
			if err != nil {
				return fmt.Errorf("open backup file: %w", err)
			}
			defer f.Close()

			if err := repositories.Restore(st.badger, f); err != nil {
				return fmt.Errorf("restore store: %w", err)
			}
			fmt.Fprintln(out, "Store restored successfully")
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Replace an existing store without asking")
	return cmd
}

// confirm asks a yes/no question on out and reads the answer from in.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
