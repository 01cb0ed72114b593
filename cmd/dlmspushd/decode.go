package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/codec"
	"github.com/cybroslabs/dlms-push-listener/enrich"
	"github.com/cybroslabs/dlms-push-listener/fields"
	"github.com/cybroslabs/dlms-push-listener/message"
	"github.com/cybroslabs/dlms-push-listener/push"
	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	var noVerify bool
	cmd := &cobra.Command{
		Use:   "decode [hex]",
		Short: "Decode a captured frame",
		Long:  "decode prints the annotated XML of a frame and the push extracted from it. Without an argument frames are read from stdin, one per line.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := codec.NewHDLCDecoder(!noVerify)
			if len(args) == 0 {
				return runInteractive(cmd.InOrStdin(), cmd.OutOrStdout(), d)
			}
			return decode(cmd.OutOrStdout(), d, args[0])
		},
	}
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "ignore HCS/FCS mismatches")
	return cmd
}

func runInteractive(in io.Reader, out io.Writer, d codec.Decoder) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	fmt.Fprintln(out, "Paste a hex frame and press Enter (Ctrl+D to exit).")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := decode(out, d, line); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

type decodedDayPush struct {
	*push.DayPush
	Profile        push.Profile `json:"profile"`
	IntervalsValid bool         `json:"intervals_valid"`
}

func decode(w io.Writer, d codec.Decoder, s string) error {
	clean := fields.CleanHex(s)
	if clean == "" {
		return fmt.Errorf("%w: empty hex string", base.ErrInvalidInput)
	}
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return fmt.Errorf("%w: %w", base.ErrInvalidInput, err)
	}
	if a, ok := message.ParseAutoconnect(raw); ok {
		return printJSON(w, struct {
			SerialNumber string `json:"sn"`
			IP           string `json:"ip"`
			Port         uint16 `json:"port"`
		}{a.SerialNumber, a.IP, a.Port})
	}

	root, err := d.Decode(raw)
	if err != nil {
		return err
	}
	if root == nil {
		return fmt.Errorf("%w: empty tree", base.ErrXmlDecodeFailure)
	}
	t := enrich.Enrich(root)
	x, err := t.XML()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, x)

	if root.Find("DataNotification") == nil {
		return nil
	}
	res, err := push.Extract(t)
	if err != nil {
		return err
	}
	if dp, ok := res.(*push.DayPush); ok {
		profile := push.ClassifyDayPush(dp)
		return printJSON(w, decodedDayPush{DayPush: dp, Profile: profile, IntervalsValid: push.ValidateDayPushIntervals(dp, profile)})
	}
	return printJSON(w, res)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
