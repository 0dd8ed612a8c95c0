package cli

import (
	"fmt"
	"os"

	"cad-service/internal/cad/engine"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "run <script.toml>",
		Short: "Execute a TOML modelling script",
		Long: "Execute [[step]] entries in order (plane, sketch, element, edit, import, extrude, " +
			"primitive, boolean, tessellate, plot). A step with as = \"name\" can be referenced later as \"$name\".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			script, err := ParseScript(data)
			if err != nil {
				return err
			}

			e := engine.New(engineOptions())
			if err := NewRunner(e, cmd.OutOrStdout()).Run(script); err != nil {
				return err
			}
			if !summary {
				return nil
			}
			for _, id := range e.ShapeIDs() {
				info, err := e.ShapeInfo(id)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "shape %s source=%s volume=%.4f faces=%d\n",
					info.ID, info.Source, info.Volume, info.FaceCount); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print volume and face count of every shape after the script")

	return cmd
}
