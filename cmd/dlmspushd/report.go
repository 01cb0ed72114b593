package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/cybroslabs/dlms-push-listener/config"
	"github.com/cybroslabs/dlms-push-listener/sink"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Reports over saved data",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "autoconnect [file...]",
		Short: "Check that meters announce themselves every 12 hours",
		Long:  "Without files all autoconnect_*.json files of load_data_dir are read.",
		RunE: func(cmd *cobra.Command, args []string) error {
			files := args
			if len(files) == 0 {
				cfg := config.Load(configFile, nil)
				var err error
				files, err = filepath.Glob(filepath.Join(cfg.LoadDataDir, sink.PrefixAutoconnect+"*.json"))
				if err != nil {
					return err
				}
			}
			return reportAutoconnect(cmd.OutOrStdout(), files)
		},
	})
	return cmd
}

func reportAutoconnect(w io.Writer, files []string) error {
	var records []sink.AutoconnectRecord
	for _, fn := range files {
		r, err := sink.Load[sink.AutoconnectRecord](fn)
		if err != nil {
			return err
		}
		records = append(records, r...)
	}

	invalid := 0
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SN\tRECEIVED AT\tIP\tPORT\tSTATUS")
	for _, g := range sink.AnalyzeAutoconnects(records) {
		for _, e := range g.Entries {
			status := "ok"
			if !e.Valid {
				status = "off schedule"
				invalid++
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", g.SerialNumber, e.ReceivedAt, e.IP, e.Port, status)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d announcements, %d off schedule\n", len(records), invalid)
	return err
}
