package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cityforge.dev/internal/sim/actions"
)

func newSchemaCmd() *cobra.Command {
	var validate string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the action script JSON Schema, or validate a script against it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if validate != "" {
				s, err := actions.LoadScript(validate)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: ok, %d entries\n", validate, len(s.Entries))
				return nil
			}
			b, err := actions.SchemaJSON()
			if err != nil {
				return err
			}
			_, err = out.Write(b)
			return err
		},
	}
	cmd.Flags().StringVar(&validate, "validate", "", "script file to validate")
	return cmd
}
