package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var attachmentOut string

var attachmentCmd = &cobra.Command{
	Use:   "attachment",
	Short: "Inspect and fetch stored attachments",
}

var attachmentGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Write an attachment payload to a file or stdout",
	Long: `Write the stored payload of an attachment.
By default the file is written to the current directory under its
original name. Use -o - for stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return attachmentGetRun(cmd.Context(), args[0])
	},
}

func init() {
	attachmentGetCmd.Flags().StringVarP(&attachmentOut, "output", "o", "", "Destination path, or - for stdout")
	attachmentCmd.AddCommand(attachmentGetCmd)
	rootCmd.AddCommand(attachmentCmd)
}

func attachmentGetRun(ctx context.Context, key string) error {
	a, err := getDeps(ctx)
	if err != nil {
		return err
	}

	dl, err := a.files.Open(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = dl.Close() }()

	if attachmentOut == "-" {
		_, err := io.Copy(ui.Out, dl.Content)
		return err
	}

	dest := attachmentOut
	if dest == "" {
		dest = filepath.Base(dl.Record.OriginalName)
	}
	if dryRun {
		ui.DryRunMsg("Would write %s to %s", humanize.Bytes(uint64(max(dl.Record.Size, 0))), dest)
		return nil
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := io.Copy(f, dl.Content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	ui.Success("Wrote %s (%s)", dest, humanize.Bytes(uint64(n)))
	return nil
}
