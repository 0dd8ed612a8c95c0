package cli

import (
	"fmt"

	"cad-service/internal/cad/engine"

	"github.com/spf13/cobra"
)

func newPrimitiveCmd() *cobra.Command {
	var (
		step    Step
		quality float64
	)

	cmd := &cobra.Command{
		Use:   "primitive <box|cylinder|cone|sphere>",
		Short: "Build one primitive and print its tessellation statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := primitiveParams(step)
			if err != nil {
				return err
			}
			e := engine.New(engineOptions())
			id, err := e.CreatePrimitive(args[0], p)
			if err != nil {
				return err
			}
			info, err := e.ShapeInfo(id)
			if err != nil {
				return err
			}
			m := e.Tessellate(id, quality)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s volume=%.4f vertices=%d faces=%d quality=%g\n",
				id, info.Source, info.Volume, m.Metadata.VertexCount, m.Metadata.FaceCount, m.Metadata.Quality)
			return err
		},
	}

	f := cmd.Flags()
	f.Float64SliceVar(&step.Origin, "origin", nil, "origin x,y,z")
	f.Float64SliceVar(&step.Axis, "axis", nil, "axis x,y,z (default +Z)")
	f.Float64Var(&step.Width, "width", 0, "box size along X")
	f.Float64Var(&step.Height, "height", 0, "box size along Y, cylinder or cone height")
	f.Float64Var(&step.Depth, "depth", 0, "box size along Z")
	f.Float64Var(&step.Radius, "radius", 0, "radius (cone base)")
	f.Float64Var(&step.Radius2, "radius2", 0, "cone top radius")
	f.Float64Var(&quality, "quality", 0, "tessellation deflection (0 uses the configured default)")

	return cmd
}
