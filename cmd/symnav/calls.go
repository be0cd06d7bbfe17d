package main

import (
	"context"

	"symnav/internal/envelope"
	"symnav/internal/index"
	"symnav/internal/locator"
	"symnav/internal/query"
	"symnav/internal/xref"

	"github.com/spf13/cobra"
)

var (
	callersFlags queryFlags
	calleesFlags queryFlags
)

var callersCmd = &cobra.Command{
	Use:   "callers <name>",
	Short: "List the methods that call a method",
	Long: `List the methods, constructors and accessors whose bodies call the
given method.

Examples:
  symnav callers GetById --file Services/UserService.cs`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalls(cmd, args[0], xref.DirectionCallers, &callersFlags)
	},
}

var calleesCmd = &cobra.Command{
	Use:   "callees <name>",
	Short: "List the methods a method calls",
	Long: `List the methods, constructors and accessors the given method calls,
resolved from its body.

Examples:
  symnav callees GetUser`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalls(cmd, args[0], xref.DirectionCallees, &calleesFlags)
	},
}

func init() {
	callersFlags.register(callersCmd)
	calleesFlags.register(calleesCmd)
	rootCmd.AddCommand(callersCmd)
	rootCmd.AddCommand(calleesCmd)
}

// CallsResultCLI lists one direction of calls around a method.
type CallsResultCLI struct {
	Direction xref.Direction       `json:"direction"`
	Subject   *index.Declaration   `json:"subject"`
	Calls     []*index.Declaration `json:"calls"`
}

func runCalls(cmd *cobra.Command, name string, dir xref.Direction, flags *queryFlags) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := flags.query(name, s.root)
	if err != nil {
		return err
	}
	find := s.engine.Callers
	if dir == xref.DirectionCallees {
		find = s.engine.Callees
	}
	return writeCalls(cmd, ctx, dir, q, find)
}

func writeCalls(cmd *cobra.Command, ctx context.Context, dir xref.Direction, q locator.Query, find func(context.Context, locator.Query) (*query.CallsResponse, error)) error {
	resp, err := find(ctx, q)
	if err != nil {
		return err
	}
	data := &CallsResultCLI{Direction: dir, Subject: resp.Subject, Calls: resp.Calls}
	return writeResponse(cmd, envelope.New().Data(data).FromMeta(resp.Meta).Build())
}
