// Command vectc is the vector IR transformation CLI.
//
// Usage:
//
//	vectc <command> [options] <input>
//
// Examples:
//
//	vectc canon kernel.vec                   # Canonicalize and print
//	vectc lower --contract matmul kernel.vec # Lower with a strategy
//	vectc lower --config opts.yaml kernel.vec
//	vectc run --fn dot --arg 1,2,3,4 --arg 5,6,7,8 --arg 0 kernel.vec
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/vecir"
	"github.com/gogpu/vecir/interp"
	"github.com/gogpu/vecir/ir"
	"github.com/gogpu/vecir/text"
	"github.com/gogpu/vecir/transform"
)

const vectcVersion = "0.1.0-dev"

// config mirrors the YAML configuration file accepted by -config.
type config struct {
	ContractLowering  string `yaml:"contract-lowering"`
	TransposeLowering string `yaml:"transpose-lowering"`
	TransferSplit     string `yaml:"transfer-split"`
	SplitTransfers    bool   `yaml:"split-transfers"`
}

func (c config) options() (vecir.LowerOptions, error) {
	opts := vecir.DefaultOptions()
	opts.SplitTransfers = c.SplitTransfers
	if c.ContractLowering != "" {
		strategy, err := transform.ParseContractLowering(c.ContractLowering)
		if err != nil {
			return opts, err
		}
		opts.Transform = opts.Transform.WithContractLowering(strategy)
	}
	if c.TransposeLowering != "" {
		strategy, err := transform.ParseTransposeLowering(c.TransposeLowering)
		if err != nil {
			return opts, err
		}
		opts.Transform = opts.Transform.WithTransposeLowering(strategy)
	}
	if c.TransferSplit != "" {
		strategy, err := transform.ParseTransferSplit(c.TransferSplit)
		if err != nil {
			return opts, err
		}
		opts.Transform = opts.Transform.WithTransferSplit(strategy)
	}
	return opts, nil
}

var (
	configPath string
	outputPath string

	flagContract      string
	flagTranspose     string
	flagTransferSplit string
	flagSplitXfers    bool

	runFuncName string
	runArgs     []string
)

func main() {
	root := &cobra.Command{
		Use:           "vectc",
		Short:         "vector IR transformation tool",
		Version:       vectcVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML options file")
	root.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")

	canon := &cobra.Command{
		Use:   "canon <input>",
		Short: "canonicalize a module and print it",
		Args:  cobra.ExactArgs(1),
		RunE:  runCanon,
	}

	lower := &cobra.Command{
		Use:   "lower <input>",
		Short: "lower a module under the configured strategies",
		Args:  cobra.ExactArgs(1),
		RunE:  runLower,
	}
	lower.Flags().StringVar(&flagContract, "contract", "", "contract lowering: dot, matmul, outerproduct")
	lower.Flags().StringVar(&flagTranspose, "transpose", "", "transpose lowering: eltwise, flat")
	lower.Flags().StringVar(&flagTransferSplit, "transfer-split", "", "masked transfer handling: none, vector-transfer, linalg-copy, force-unmasked")
	lower.Flags().BoolVar(&flagSplitXfers, "split-transfers", false, "split transfers along consuming slices")

	run := &cobra.Command{
		Use:   "run <input>",
		Short: "evaluate a function on concrete inputs",
		Args:  cobra.ExactArgs(1),
		RunE:  runEval,
	}
	run.Flags().StringVar(&runFuncName, "fn", "", "function to evaluate (default: first)")
	run.Flags().StringArrayVar(&runArgs, "arg", nil, "argument values, comma separated floats, one flag per argument")

	root.AddCommand(canon, lower, run)

	if err := root.Execute(); err != nil {
		var parseErr *text.ParseError
		if errors.As(err, &parseErr) {
			fmt.Fprintln(os.Stderr, parseErr.FormatWithContext())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func loadOptions() (vecir.LowerOptions, error) {
	var cfg config
	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return vecir.LowerOptions{}, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return vecir.LowerOptions{}, fmt.Errorf("config %s: %w", configPath, err)
		}
	}
	// Flags override the config file.
	if flagContract != "" {
		cfg.ContractLowering = flagContract
	}
	if flagTranspose != "" {
		cfg.TransposeLowering = flagTranspose
	}
	if flagTransferSplit != "" {
		cfg.TransferSplit = flagTransferSplit
	}
	if flagSplitXfers {
		cfg.SplitTransfers = true
	}
	return cfg.options()
}

func parseInput(path string) (*ir.Module, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return vecir.Parse(string(source))
}

func emit(out string) error {
	if outputPath == "" {
		_, err := os.Stdout.WriteString(out)
		return err
	}
	return os.WriteFile(outputPath, []byte(out), 0644)
}

func runCanon(cmd *cobra.Command, args []string) error {
	module, err := parseInput(args[0])
	if err != nil {
		return err
	}
	vecir.Canonicalize(module)
	return emit(vecir.Print(module))
}

func runLower(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions()
	if err != nil {
		return err
	}
	module, err := parseInput(args[0])
	if err != nil {
		return err
	}
	if err := vecir.Lower(module, opts); err != nil {
		return err
	}
	return emit(vecir.Print(module))
}

func runEval(cmd *cobra.Command, args []string) error {
	module, err := parseInput(args[0])
	if err != nil {
		return err
	}
	if len(module.Funcs) == 0 {
		return fmt.Errorf("%s: no functions in module", args[0])
	}
	fn := module.Funcs[0]
	if runFuncName != "" {
		if fn = module.Func(runFuncName); fn == nil {
			return fmt.Errorf("no function @%s", runFuncName)
		}
	}

	values, err := evalArgs(fn, runArgs)
	if err != nil {
		return err
	}
	result, err := interp.Run(fn, values)
	if err != nil {
		return err
	}
	return emit(formatValue(result) + "\n")
}

// evalArgs converts one comma separated float list per parameter into
// runtime values. Memref parameters are not supported from the CLI.
func evalArgs(fn *ir.Function, args []string) ([]interp.Value, error) {
	params := fn.Params
	if len(args) != len(params) {
		return nil, fmt.Errorf("function @%s takes %d arguments, got %d", fn.Name, len(params), len(args))
	}
	values := make([]interp.Value, len(params))
	for i, raw := range args {
		fields := strings.Split(raw, ",")
		vals := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			vals[j] = v
		}
		switch pt := params[i].(type) {
		case ir.ScalarType:
			if len(vals) != 1 {
				return nil, fmt.Errorf("argument %d: scalar parameter takes one value", i)
			}
			values[i] = interp.FloatValue(vals[0], pt)
		case ir.VectorType:
			values[i] = interp.FloatVector(pt, vals...)
		default:
			return nil, fmt.Errorf("argument %d: cannot build a %s from the command line", i, ir.TypeString(pt))
		}
	}
	return values, nil
}

func formatValue(v interp.Value) string {
	if v.Type == nil {
		return "()"
	}
	floats := v.Floats()
	fields := make([]string, len(floats))
	for i, f := range floats {
		fields[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(fields, ", ")
}
