package main

import (
	"symnav/internal/errors"
	"symnav/internal/locator"
	"symnav/internal/paths"

	"github.com/spf13/cobra"
)

// queryFlags are the declaration filters shared by the symbol commands.
type queryFlags struct {
	kind      string
	namespace string
	file      string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.kind, "kind", "k", "", "Declaration kind (type, class, interface, method, constructor, property, field, event, namespace)")
	cmd.Flags().StringVarP(&f.namespace, "namespace", "n", "", "Namespace the declaration lives in")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Path suffix, absolute path or file URI of the declaring file")
}

// query builds the locator query for name.
func (f *queryFlags) query(name, root string) (locator.Query, error) {
	file, err := paths.WorkspaceFile(f.file, root)
	if err != nil {
		return locator.Query{}, errors.New(errors.InvalidArgument, "invalid --file", err)
	}
	return locator.Query{
		Name:      name,
		Kind:      f.kind,
		Namespace: f.namespace,
		File:      file,
	}, nil
}
