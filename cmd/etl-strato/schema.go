package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theoremus-urban-solutions/etl-strato/task"
)

var (
	schemaType string
	schemaFlow string
)

// schemaCmd prints the JSON schema the platform uses to render the task form
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the environment JSON schema",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().StringVar(&schemaType, "type", string(task.SchemaInput), "Schema type: input|output")
	schemaCmd.Flags().StringVar(&schemaFlow, "flow", string(task.FlowIncoming), "Data flow: incoming|outgoing")
}

func runSchema(cmd *cobra.Command, args []string) error {
	typ, err := task.ParseSchemaType(schemaType)
	if err != nil {
		return err
	}
	flow, err := task.ParseFlow(schemaFlow)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(task.Schema(typ, flow), "", "  ")
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
