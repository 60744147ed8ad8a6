package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rehber/rehber/internal/export"
	"github.com/rehber/rehber/internal/models"
)

var (
	exportFormat   string
	exportEncoding string
	exportOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the address book as vCard, CSV or JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		comps, err := buildComponents(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer comps.close(cmd.Context())

		list, err := comps.contacts.List(cmd.Context(), "")
		if err != nil {
			return err
		}

		var (
			write func(io.Writer) error
			name  string
		)
		switch exportFormat {
		case "vcf":
			enc, err := export.ParseEncoding(exportEncoding)
			if err != nil {
				return err
			}
			write = func(w io.Writer) error { return export.VCard(w, list, enc) }
			name = export.VCardFileName
		case "csv":
			write = func(w io.Writer) error { return export.CSV(w, list) }
			name = export.CSVFileName
		case "json":
			write = func(w io.Writer) error { return export.JSON(w, list) }
			name = export.JSONFileName
		default:
			return fmt.Errorf("unknown format %q (want vcf, csv or json)", exportFormat)
		}

		if exportOut == "-" {
			return write(cmd.OutOrStdout())
		}
		path := exportOut
		if path == "" {
			path = name
		} else if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			path = filepath.Join(path, name)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := write(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d contacts to %s\n", len(list), path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Add contacts from a JSON export, backing up the store first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var list []models.Contact
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("%s: expected a JSON array of contacts: %w", args[0], err)
		}

		comps, err := buildComponents(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer comps.close(cmd.Context())

		n, err := comps.contacts.Import(cmd.Context(), list)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d contacts\n", n)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "vcf", "Output format: vcf, csv or json")
	exportCmd.Flags().StringVarP(&exportEncoding, "encoding", "e", "utf-8", "vCard encoding: utf-8, iso-8859-9 or iso-8859-15")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file or directory, - for stdout")
}
