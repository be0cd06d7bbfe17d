package main

import (
	"symnav/internal/envelope"
	"symnav/internal/index"

	"github.com/spf13/cobra"
)

var (
	hierarchyFlags       queryFlags
	implementationsFlags queryFlags
)

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <name>",
	Short: "Show the type hierarchy around a type",
	Long: `Show the base types, direct subtypes, implemented interfaces and
implementations of a type. Cyclic base chains are reported as warnings.

Examples:
  symnav hierarchy AdminUserService
  symnav hierarchy UserService --kind class`,
	Args: cobra.ExactArgs(1),
	RunE: runHierarchy,
}

var implementationsCmd = &cobra.Command{
	Use:     "implementations <name>",
	Aliases: []string{"impls"},
	Short:   "List the implementations of an interface, class or member",
	Long: `List the types implementing an interface or deriving from a class, or
the members implementing or overriding a member.

Examples:
  symnav implementations IUserService
  symnav implementations GetById --file Services/IUserService.cs`,
	Args: cobra.ExactArgs(1),
	RunE: runImplementations,
}

func init() {
	hierarchyFlags.register(hierarchyCmd)
	implementationsFlags.register(implementationsCmd)
	rootCmd.AddCommand(hierarchyCmd)
	rootCmd.AddCommand(implementationsCmd)
}

// ImplementationsResultCLI lists the implementations of a declaration.
type ImplementationsResultCLI struct {
	Subject         *index.Declaration   `json:"subject"`
	Implementations []*index.Declaration `json:"implementations"`
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := hierarchyFlags.query(args[0], s.root)
	if err != nil {
		return err
	}
	resp, err := s.engine.Hierarchy(ctx, q)
	if err != nil {
		return err
	}
	return writeResponse(cmd, envelope.New().Data(resp.View).FromMeta(resp.Meta).Build())
}

func runImplementations(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := implementationsFlags.query(args[0], s.root)
	if err != nil {
		return err
	}
	resp, err := s.engine.Implementations(ctx, q)
	if err != nil {
		return err
	}
	data := &ImplementationsResultCLI{Subject: resp.Subject, Implementations: resp.Implementations}
	return writeResponse(cmd, envelope.New().Data(data).FromMeta(resp.Meta).Build())
}
