package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/rmacfarlane24/archivist-sub002/internal/app"
	"github.com/rmacfarlane24/archivist-sub002/internal/config"
	"github.com/rmacfarlane24/archivist-sub002/internal/snapshot"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Capture", "Restore").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on stderr and reads a passphrase without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pw), nil
}

var rootCmd = &cobra.Command{
	Use:   "archivist",
	Short: "Drive catalog snapshot manager",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data Dir:     %s\n", cfg.DataDir)
		fmt.Printf("Snapshot Dir: %s\n", cfg.SnapshotDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Data Dir:       %s\n", cfg.DataDir)
		fmt.Printf("Snapshot Dir:   %s\n", cfg.SnapshotDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Retention Days: %d\n", cfg.RetentionDays)
		fmt.Printf("Vault Type:     %s\n", cfg.Vault.Type)
		return nil
	},
}

// drive command
var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Manage cataloged drives",
}

var driveAddCmd = &cobra.Command{
	Use:   "add NAME PATH",
	Short: "Register a drive in the catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddDrive")
		if err != nil {
			return err
		}
		defer a.Close()

		drive, err := a.CreateDrive(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("adding drive: %w", err)
		}

		fmt.Printf("Drive added: %s (%s)\n", drive.Name, drive.ID)
		return nil
	},
}

var driveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged drives",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListDrives")
		if err != nil {
			return err
		}
		defer a.Close()

		drives, err := a.Drives(cmd.Context())
		if err != nil {
			return err
		}

		if len(drives) == 0 {
			fmt.Println("No drives cataloged.")
			return nil
		}

		for _, d := range drives {
			fmt.Printf("%s  %-20s  %-10s  %d file(s)\n", d.ID, d.Name, d.Status, d.FileCount)
		}
		return nil
	},
}

var driveRemoveCmd = &cobra.Command{
	Use:   "remove DRIVE_ID",
	Short: "Remove a drive, snapshotting it first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveDrive")
		if err != nil {
			return err
		}
		defer a.Close()

		snapshotTaken, err := a.RemoveDrive(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("removing drive: %w", err)
		}

		if !snapshotTaken {
			fmt.Println("Warning: no pre-removal snapshot could be taken.")
		}
		fmt.Printf("Drive removed: %s\n", args[0])
		return nil
	},
}

// capture commands
var captureCmd = &cobra.Command{
	Use:   "capture DRIVE_ID",
	Short: "Snapshot a drive's database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Capture")
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := a.CaptureDrive(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("snapshot of drive %s failed, see log", args[0])
		}

		fmt.Printf("Snapshot captured for drive %s\n", args[0])
		return nil
	},
}

var captureCatalogCmd = &cobra.Command{
	Use:   "capture-catalog",
	Short: "Snapshot the catalog database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CaptureCatalog")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.CaptureCatalog(cmd.Context()) {
			return fmt.Errorf("catalog snapshot failed, see log")
		}

		fmt.Println("Catalog snapshot captured.")
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListSnapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		snaps := a.Engine().ListSnapshots(cmd.Context())
		if len(snaps) == 0 {
			fmt.Println("No snapshots found.")
			return nil
		}

		for _, s := range snaps {
			name := s.DriveName
			if name == "" {
				name = s.DriveID
			}
			if s.Kind == snapshot.KindCatalog {
				name = "(catalog)"
			}
			fmt.Printf("%-50s  %-20s  %s  %d bytes\n",
				s.ID, name, s.CapturedAt.Format("2006-01-02 15:04:05"), s.SizeBytes)
		}
		return nil
	},
}

// recover command
var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "View snapshots grouped by drive",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Recover")
		if err != nil {
			return err
		}
		defer a.Close()

		groups := a.Engine().GroupByDrive(cmd.Context())
		if len(groups) == 0 {
			fmt.Println("No drive snapshots found.")
			return nil
		}

		for _, g := range groups {
			name := g.DriveName
			if name == "" {
				name = g.DriveID
			}
			fmt.Printf("%s (%s): %d snapshot(s), latest %s\n",
				name, g.DriveID, g.Count, g.Latest.CapturedAt.Format("2006-01-02 15:04:05"))
			for _, s := range g.Snapshots {
				fmt.Printf("  %s  seq=%d  %s\n",
					s.ID, s.Sequence, s.CapturedAt.Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

// browse command
var browseCmd = &cobra.Command{
	Use:   "browse SNAPSHOT_ID [PARENT_PATH]",
	Short: "Browse a snapshot's contents",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		a, err := newApp("Browse")
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			entries := a.Engine().ListRoot(cmd.Context(), args[0])
			printEntries(entries)
			return nil
		}

		page := a.Engine().ListChildren(cmd.Context(), args[0], args[1], limit, offset)
		printEntries(page.Entries)
		if page.HasMore {
			fmt.Printf("... more entries, rerun with --offset %d\n", offset+limit)
		}
		return nil
	},
}

// tree command
var treeCmd = &cobra.Command{
	Use:   "tree SNAPSHOT_ID",
	Short: "Dump a snapshot's full file tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Tree")
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.Engine().FullTree(cmd.Context(), args[0])
		if len(entries) == 0 {
			fmt.Println("No entries found.")
			return nil
		}
		for _, e := range entries {
			indent := ""
			for i := 0; i < e.Depth; i++ {
				indent += "  "
			}
			marker := ""
			if e.IsDirectory {
				marker = "/"
			}
			fmt.Printf("%s%s%s\n", indent, e.Name, marker)
		}
		return nil
	},
}

func printEntries(entries []snapshot.FileEntry) {
	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return
	}
	for _, e := range entries {
		kind := "file"
		if e.IsDirectory {
			kind = "dir"
		}
		fmt.Printf("%-4s  %10d  %s  %s\n",
			kind, e.Size, e.Modified.Format("2006-01-02 15:04:05"), e.Path)
	}
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore SNAPSHOT_ID",
	Short: "Restore a drive snapshot into the live catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Restore(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored drive %s (%s)\n", result.DriveName, result.DriveID)
		for _, f := range result.FilesWritten {
			fmt.Printf("  wrote %s\n", f)
		}
		return nil
	},
}

// delete command
var deleteCmd = &cobra.Command{
	Use:   "delete SNAPSHOT_ID",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.Engine().DeleteSnapshot(cmd.Context(), args[0]) {
			return fmt.Errorf("deleting snapshot %s failed, see log", args[0])
		}

		fmt.Printf("Snapshot deleted: %s\n", args[0])
		return nil
	},
}

// cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete snapshots older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		a, err := newApp("Cleanup")
		if err != nil {
			return err
		}
		defer a.Close()

		removed := a.Engine().CleanupOlderThan(cmd.Context(), days)
		fmt.Printf("Removed %d snapshot(s) older than %d day(s)\n", removed, days)
		return nil
	},
}

// usage command
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show snapshot storage usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Usage")
		if err != nil {
			return err
		}
		defer a.Close()

		u := a.Engine().UsageSummary(cmd.Context())
		fmt.Printf("%d snapshot(s), %d bytes\n", u.FileCount, u.TotalSizeBytes)
		return nil
	},
}

// validate command
var validateCmd = &cobra.Command{
	Use:   "validate SNAPSHOT_ID",
	Short: "Check that a snapshot is a readable database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Validate")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, s := range a.Engine().ListSnapshots(cmd.Context()) {
			if s.ID != args[0] {
				continue
			}
			if a.Engine().Validate(cmd.Context(), s) {
				fmt.Printf("Snapshot %s is valid.\n", s.ID)
				return nil
			}
			return fmt.Errorf("snapshot %s failed validation", s.ID)
		}
		return fmt.Errorf("no snapshot with id %s", args[0])
	},
}

// vault command group
var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the offsite vault",
}

var vaultValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Verify vault access",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("VaultValidate")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Engine().VaultSnapshots(); err != nil {
			return fmt.Errorf("vault check failed: %w", err)
		}

		fmt.Println("Vault is accessible.")
		return nil
	},
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exported snapshots in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("VaultList")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.Engine().VaultSnapshots()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("Vault is empty.")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var vaultSetupKeysCmd = &cobra.Command{
	Use:   "setup-keys",
	Short: "Generate the export encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Encryptor().IsConfigured() {
			return fmt.Errorf("encryption keys already exist")
		}

		passphrase, err := readPassphrase("Passphrase for new private key: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.Encryptor().Setup(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export SNAPSHOT_ID",
	Short: "Copy a snapshot to the offsite vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		objectName, err := a.Engine().ExportSnapshot(args[0])
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Printf("Exported as %s\n", objectName)
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import OBJECT_NAME",
	Short: "Retrieve an exported snapshot from the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Import")
		if err != nil {
			return err
		}
		defer a.Close()

		var decrypt snapshot.DecryptionContext
		if strings.HasSuffix(args[0], ".age") {
			passphrase, err := readPassphrase("Passphrase for private key: ")
			if err != nil {
				return err
			}
			decrypt, err = a.Encryptor().Unlock(passphrase)
			if err != nil {
				return fmt.Errorf("unlocking private key: %w", err)
			}
		}

		id, err := a.Engine().ImportSnapshot(args[0], decrypt)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Printf("Imported snapshot %s\n", id)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// drive subcommands
	driveCmd.AddCommand(driveAddCmd)
	driveCmd.AddCommand(driveListCmd)
	driveCmd.AddCommand(driveRemoveCmd)

	// vault subcommands
	vaultCmd.AddCommand(vaultValidateCmd)
	vaultCmd.AddCommand(vaultListCmd)
	vaultCmd.AddCommand(vaultSetupKeysCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(driveCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(captureCatalogCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().IntP("limit", "n", 100, "Maximum entries per page")
	browseCmd.Flags().Int("offset", 0, "Entries to skip")
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().IntP("days", "d", 30, "Delete snapshots older than this many days")
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
