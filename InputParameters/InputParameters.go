package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type StokesParameters struct {
	Title             string  `yaml:"Title"`
	NX                int     `yaml:"NX"`
	NY                int     `yaml:"NY"`
	ViscosityContrast float64 `yaml:"ViscosityContrast"` // layer viscosity ratio eta_B/eta_A
	ViscosityXC       float64 `yaml:"ViscosityXC"`       // x position of the viscosity jump
	InnerMethod       string  `yaml:"InnerMethod"`       // "cholesky", "lu", "cg" or "fgmres"
	OuterMethod       string  `yaml:"OuterMethod"`       // "fgmres" or "cg"
	InnerRTol         float64 `yaml:"InnerRTol"`
	OuterRTol         float64 `yaml:"OuterRTol"`
	Penalty           float64 `yaml:"Penalty"`
	RestoreK          bool    `yaml:"RestoreK"` // restore the penalized block after the solve
	RemoveNullSpace   bool    `yaml:"RemoveNullSpace"`
	NonLinear         bool    `yaml:"NonLinear"`
	NonLinearTol      float64 `yaml:"NonLinearTol"`
	NonLinearMaxIts   int     `yaml:"NonLinearMaxIts"`
	KillNonConvergent bool    `yaml:"KillNonConvergent"`
}

func DefaultParameters() *StokesParameters {
	return &StokesParameters{
		Title:             "Stokes solve",
		NX:                32,
		NY:                32,
		ViscosityContrast: 1,
		ViscosityXC:       0.5,
		InnerMethod:       "cholesky",
		OuterMethod:       "fgmres",
		InnerRTol:         1.e-10,
		OuterRTol:         1.e-7,
		RemoveNullSpace:   true,
		NonLinearTol:      1.e-2,
		NonLinearMaxIts:   500,
	}
}

func (sp *StokesParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, sp)
}

func (sp *StokesParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", sp.Title)
	fmt.Printf("[%d x %d]\t\t= Resolution\n", sp.NX, sp.NY)
	fmt.Printf("%8.5f\t\t= Viscosity Contrast\n", sp.ViscosityContrast)
	fmt.Printf("[%s]\t\t\t= Inner Method\n", sp.InnerMethod)
	fmt.Printf("[%s]\t\t= Outer Method\n", sp.OuterMethod)
	fmt.Printf("%8.1e\t\t= Inner RTol\n", sp.InnerRTol)
	fmt.Printf("%8.1e\t\t= Outer RTol\n", sp.OuterRTol)
	fmt.Printf("%8.5f\t\t= Penalty\n", sp.Penalty)
	fmt.Printf("[%v]\t\t\t= Remove Null Space\n", sp.RemoveNullSpace)
	if sp.NonLinear {
		fmt.Printf("[%8.1e, %d]\t= Non Linear Tol, Max Its\n", sp.NonLinearTol, sp.NonLinearMaxIts)
	}
}
