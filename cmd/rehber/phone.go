package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rehber/rehber/internal/phone"
)

var phoneJSON bool

var phoneCmd = &cobra.Command{
	Use:   "phone",
	Short: "Format and check phone numbers",
}

var phoneFormatCmd = &cobra.Command{
	Use:   "format <number>...",
	Short: "Print the formatted form of each number",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if phoneJSON {
			results := make([]phone.Result, len(args))
			for i, a := range args {
				results[i] = phone.Analyze(a)
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		for _, a := range args {
			fmt.Fprintln(out, phone.Format(a))
		}
		return nil
	},
}

var phoneValidateCmd = &cobra.Command{
	Use:   "validate <number>...",
	Short: "Check that every number carries a known country code",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := phone.Validate(args)
		var verr *phone.ValidationError
		if errors.As(err, &verr) {
			return errors.New(verr.Message())
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

var phoneCountriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List the supported country codes and masks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PREFIX\tMASK\tCOUNTRY")
		for _, c := range phone.Countries() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Prefix, c.Mask, c.Label)
		}
		return tw.Flush()
	},
}

func init() {
	phoneFormatCmd.Flags().BoolVar(&phoneJSON, "json", false, "Print the full analysis as JSON")
	phoneCmd.AddCommand(phoneFormatCmd, phoneValidateCmd, phoneCountriesCmd)
}
