package main

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/shule/core/site"
)

func (cli *commandLine) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Evict the admission inquiries older than the retention period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli.store.Hydrate(cmd.Context())
			removed, err := cli.sweeper.Sweep(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "sweeping admission inquiries")
			}
			cli.printf("removed %d admission inquiries\n", removed)
			return nil
		},
	}
}

func (cli *commandLine) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the admission inquiries as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli.store.Hydrate(cmd.Context())

			var buf bytes.Buffer
			if err := cli.admissionSvc.WriteCSV(&buf); err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err := cli.out.Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return errors.Wrap(err, "writing export")
			}
			cli.printf("exported %d admission inquiries to %s\n", len(cli.store.State().Data.AdmissionInquiries), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", site.ExportFilename, `The destination file ("-" for stdout)`)
	return cmd
}
