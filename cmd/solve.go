/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/geomech/mantle/InputParameters"
	"github.com/geomech/mantle/function"
	"github.com/geomech/mantle/mesh"
	"github.com/geomech/mantle/stokes"
)

// solveCmd represents the solve command
var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a unit square Stokes benchmark with a layered viscosity",
	Long: `
Solves buoyancy driven Stokes flow on the unit square with a step
viscosity profile and a sinusoidal density perturbation, the SolCx
style benchmark configuration, reporting solver statistics.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		paramFile, _ := cmd.Flags().GetString("inputParametersFile")
		prof, _ := cmd.Flags().GetBool("profile")
		if prof {
			defer profile.Start(profile.CPUProfile).Stop()
		}
		sp := InputParameters.DefaultParameters()
		if len(paramFile) != 0 {
			var data []byte
			if data, err = os.ReadFile(paramFile); err != nil {
				fmt.Printf("error: %s\n", err.Error())
				os.Exit(1)
			}
			if err = sp.Parse(data); err != nil {
				fmt.Printf("error: %s\n", err.Error())
				os.Exit(1)
			}
		}
		sp.Print()
		if err = RunSolve(sp); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file for input parameters like:\n\t- NX, NY\n\t- ViscosityContrast\n\t- Penalty")
	solveCmd.Flags().Bool("profile", false, "write a CPU profile for the solve")
}

// RunSolve assembles and solves the layered viscosity benchmark described by
// the input parameters.
func RunSolve(sp *InputParameters.StokesParameters) (err error) {
	m := mesh.NewCartesian(sp.NX, sp.NY, 0, 1, 0, 1)

	// step viscosity: 1 left of the jump, the contrast value right of it
	viscosity := function.NewMathUnary(function.NewAt(function.NewCoord(), 0), "stepViscosity",
		func(x float64) float64 {
			if x < sp.ViscosityXC {
				return 1
			}
			return sp.ViscosityContrast
		})
	// sinusoidal buoyancy acting in y
	bodyForce := &benchmarkForce{}

	asm := &stokes.Assembler{
		Mesh:      m,
		Viscosity: viscosity,
		BodyForce: bodyForce,
		BCs:       stokes.BoundaryBCs(m),
	}
	sys, err := asm.Assemble()
	if err != nil {
		return
	}

	cfg := stokes.DefaultConfig()
	cfg.Inner.Method = sp.InnerMethod
	cfg.Inner.RTol = sp.InnerRTol
	cfg.Outer.Method = sp.OuterMethod
	cfg.Outer.RTol = sp.OuterRTol
	cfg.Penalty = sp.Penalty
	cfg.RestoreC = sp.RestoreK
	cfg.RemoveNullSpace = sp.RemoveNullSpace
	cfg.Verbose = true

	solver, err := stokes.NewSolver(sys, cfg)
	if err != nil {
		return
	}
	if sp.NonLinear {
		solver.SetOperatorSource(asm)
	}
	if err = solver.Solve(sp.NonLinear, sp.NonLinearTol, sp.NonLinearMaxIts, sp.KillNonConvergent); err != nil {
		return
	}
	solver.PrintStats()

	// scatter the solution into field storage for downstream evaluation
	vField := mesh.NewMeshVariable(m, 2)
	pField := mesh.NewElementVariable(m, 1)
	asm.ScatterVelocity(solver.U, vField)
	asm.ScatterPressure(solver.P, pField)
	fmt.Printf("velocity extrema: [%10.4e, %10.4e]\n", solver.U.Min(), solver.U.Max())
	fmt.Printf("pressure extrema: [%10.4e, %10.4e]\n", solver.P.Min(), solver.P.Max())
	return
}

// benchmarkForce is the SolCx style buoyancy: f = (0, -sin(pi y) cos(pi x)).
type benchmarkForce struct{}

func (b *benchmarkForce) GetFunction(sample function.Input) (function.Closure, error) {
	coord, err := function.NewCoord().GetFunction(sample)
	if err != nil {
		return nil, err
	}
	out := function.NewIO(2, function.Vector)
	return func(in function.Input) (*function.IO, error) {
		x, err := coord(in)
		if err != nil {
			return nil, err
		}
		out.Data[0] = 0
		out.Data[1] = -math.Sin(math.Pi*x.Data[1]) * math.Cos(math.Pi*x.Data[0])
		return out, nil
	}, nil
}
