package main

import (
	"os"
	"path/filepath"

	"symnav/internal/config"
	"symnav/internal/envelope"
	"symnav/internal/errors"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default symnav configuration",
	Long:  "Creates .symnav/config.toml with the default configuration in the workspace root",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

// InitResultCLI reports where the configuration was written.
type InitResultCLI struct {
	ConfigPath string `json:"configPath"`
	Created    bool   `json:"created"`
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := getWorkspaceRoot()
	if err != nil {
		return err
	}
	if info, statErr := os.Stat(root); statErr != nil || !info.IsDir() {
		return errors.New(errors.FileNotFound, "workspace "+root+" is not a directory", statErr)
	}

	configPath := filepath.Join(root, config.Dir, "config.toml")
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// already initialized is success
		return writeResponse(cmd, envelope.Operational(&InitResultCLI{ConfigPath: configPath}))
	}

	written, err := config.DefaultConfig().Save(root)
	if err != nil {
		return errors.New(errors.InternalError, "write "+configPath, err)
	}
	return writeResponse(cmd, envelope.Operational(&InitResultCLI{ConfigPath: written, Created: true}))
}
