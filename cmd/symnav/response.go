package main

import (
	"fmt"

	"symnav/internal/envelope"
	"symnav/internal/output"

	"github.com/spf13/cobra"
)

// writeResponse prints resp in the --format the user asked for.
func writeResponse(cmd *cobra.Command, resp *envelope.Response) error {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	out, err := FormatResponse(resp, format)
	if err != nil {
		return fmt.Errorf("format output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
