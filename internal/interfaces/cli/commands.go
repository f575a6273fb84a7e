package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CTS-Broker/pkg/client"
)

func newFilterCmd() *cobra.Command {
	var calc string
	cmd := &cobra.Command{
		Use:   "filter <smiles>",
		Short: "Standardize a SMILES string",
		Long: "Run the generic filter pipeline on a SMILES string. With --calc the\n" +
			"structure is validated for that calculator and its stages are applied.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, backend, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			var res *client.FilterResult
			if calc != "" {
				res, err = backend.FilterForCalculator(ctx, args[0], calc)
			} else {
				res, err = backend.FilterSMILES(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return PrintResult(cmd, filterView{res})
		},
	}
	cmd.Flags().StringVar(&calc, "calc", "", "calculator whose filter stages to apply (chemaxon, epi, sparc, measured, test)")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var calc string
	cmd := &cobra.Command{
		Use:   "validate <smiles>",
		Short: "Check whether a structure is acceptable",
		Long: "Without --calc, run the exclusion check and the generic filter. With\n" +
			"--calc, run that calculator's gates and report any rejection.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, backend, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if calc == "" {
				v, err := backend.Validate(ctx, args[0])
				if err != nil {
					return err
				}
				return PrintResult(cmd, validityView{v})
			}
			g, err := backend.ValidateForCalculator(ctx, args[0], calc)
			if err != nil {
				return err
			}
			return PrintResult(cmd, gateView{g})
		},
	}
	cmd.Flags().StringVar(&calc, "calc", "", "calculator whose gates to apply")
	return cmd
}

func newPchemCmd() *cobra.Command {
	req := &client.PchemRequest{}
	cmd := &cobra.Command{
		Use:   "pchem <smiles>",
		Short: "Request a physicochemical property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, backend, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			r := *req
			r.Chemical = args[0]
			r.RunType = "single"
			resp, err := backend.Pchem(ctx, &r)
			if err != nil {
				return err
			}
			return PrintResult(cmd, pchemView{resp})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Calc, "calc", "", "calculator (required)")
	f.StringVar(&req.Prop, "prop", "", "property key, e.g. water_sol, kow_no_ph (required)")
	f.StringVar(&req.Method, "method", "", "calculation method where the calculator has several")
	f.Float64Var(&req.PH, "ph", 0, "pH for pH dependent properties")
	f.Float64Var(&req.Mass, "mass", 0, "molecular mass, when already known")
	_ = cmd.MarkFlagRequired("calc")
	_ = cmd.MarkFlagRequired("prop")
	return cmd
}

func newCalculatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calculators",
		Short: "List the configured calculators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, backend, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			calcs, err := backend.Calculators(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, catalogView(calcs))
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, versionView{Version: Version, Commit: GitCommit, BuildDate: BuildDate})
		},
	}
}

type filterView struct{ *client.FilterResult }

func (v filterView) String() string { return v.FilteredSMILES }

func (v filterView) TableHeaders() []string { return []string{"SMILES", "FILTERED", "CALC"} }

func (v filterView) TableRows() [][]string {
	return [][]string{{v.SMILES, v.FilteredSMILES, v.Calculator}}
}

type validityView struct{ *client.Validity }

func (v validityView) String() string {
	if !v.Valid {
		return "invalid " + v.SMILES
	}
	return "valid " + v.ProcessedSMILES
}

func (v validityView) TableHeaders() []string { return []string{"SMILES", "VALID", "PROCESSED"} }

func (v validityView) TableRows() [][]string {
	return [][]string{{v.SMILES, strconv.FormatBool(v.Valid), v.ProcessedSMILES}}
}

type gateView struct{ *client.GateResult }

func (v gateView) String() string {
	if v.Valid {
		return fmt.Sprintf("valid for %s", v.Calculator)
	}
	return fmt.Sprintf("rejected by %s: %s (%s)", v.Calculator, v.Reason, v.Code)
}

func (v gateView) TableHeaders() []string { return []string{"SMILES", "CALC", "VALID", "CODE", "REASON"} }

func (v gateView) TableRows() [][]string {
	return [][]string{{v.SMILES, v.Calculator, strconv.FormatBool(v.Valid), v.Code, v.Reason}}
}

type pchemView struct{ *client.PchemResponse }

func (v pchemView) String() string {
	if !v.Valid {
		return fmt.Sprintf("%s %s: error: %v", v.Calc, v.Prop, v.Data)
	}
	return fmt.Sprintf("%s %s: %v", v.Calc, v.Prop, v.Data)
}

func (v pchemView) TableHeaders() []string {
	return []string{"CALC", "PROP", "METHOD", "VALID", "DATA", "FILTERED"}
}

func (v pchemView) TableRows() [][]string {
	return [][]string{{v.Calc, v.Prop, v.Method, strconv.FormatBool(v.Valid), fmt.Sprint(v.Data), v.FilteredSMILES}}
}

type catalogView []client.CalculatorInfo

func (v catalogView) String() string {
	var sb strings.Builder
	for i, c := range v {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s: %s", c.Name, strings.Join(c.Props, ", "))
	}
	return sb.String()
}

func (v catalogView) TableHeaders() []string {
	return []string{"NAME", "SKIP_MASS", "CLEAR_STEREO", "REJECT_BRACKETS", "PROPS"}
}

func (v catalogView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, c := range v {
		rows = append(rows, []string{
			c.Name,
			strconv.FormatBool(c.Policy.SkipMassCheck),
			strconv.FormatBool(c.Policy.ClearStereo),
			strconv.FormatBool(c.Policy.RejectBrackets),
			strings.Join(c.Props, ","),
		})
	}
	return rows
}

type versionView struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

func (v versionView) String() string {
	return fmt.Sprintf("ctsbroker %s (commit: %s, built: %s)", v.Version, v.Commit, v.BuildDate)
}
