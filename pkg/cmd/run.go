// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Koukyosyumei/zkFuzz/pkg/ast"
	"github.com/Koukyosyumei/zkFuzz/pkg/executor"
	"github.com/Koukyosyumei/zkFuzz/pkg/field"
	"github.com/Koukyosyumei/zkFuzz/pkg/report"
	"github.com/Koukyosyumei/zkFuzz/pkg/solver"
	"github.com/Koukyosyumei/zkFuzz/pkg/stats"
	"github.com/Koukyosyumei/zkFuzz/pkg/symbolic"
)

// FrontendName is the registration key the external DSL front-end must use.
const FrontendName = "circom"

func run(cmd *cobra.Command, input string) error {
	start := time.Now()
	//
	fld, err := resolveField(cmd)
	if err != nil {
		return err
	}
	//
	parser, err := ast.LookupParser(FrontendName)
	if err != nil {
		return err
	}
	//
	circuit, err := parser.Parse(input)
	if err != nil {
		// Front-end errors propagate unchanged; they are fatal.
		return err
	}
	//
	if GetFlag(cmd, "show_stats_of_ast") {
		stats.CollectAST(circuit).Print(os.Stdout)
	}
	//
	if GetFlag(cmd, "print_ast") {
		printAST(os.Stdout, circuit)
	}
	//
	whitelist, err := readWhitelist(GetString(cmd, "path_to_whitelist"))
	if err != nil {
		return err
	}
	//
	setting := executor.DefaultSetting(fld)
	setting.SymbolicTemplateParams = GetFlag(cmd, "symbolic_template_params")
	setting.PropagateSubstitution = GetFlag(cmd, "propagate_substitution")
	setting.Whitelist = whitelist
	//
	exe := executor.New(circuit, setting)
	//
	states, err := exe.Execute()
	if err != nil {
		return err
	}
	//
	for _, w := range exe.Warnings() {
		log.Warnf("analyzer limitation: %s: %s", w.Kind, w.Message)
	}
	//
	mode := GetString(cmd, "search_mode")
	//
	cex, res, cfg, err := search(cmd, mode, fld, exe, states)
	if err != nil {
		return err
	}
	//
	printSummary(fld, mode, states, cex, time.Since(start))
	//
	if GetFlag(cmd, "print_stats") || GetFlag(cmd, "print_stats_csv") {
		printStats(cmd, exe, states)
	}
	//
	if cex != nil {
		fmt.Print(cex)
		//
		if GetFlag(cmd, "save_output") {
			r := report.New(input, circuit.Main, mode, time.Since(start), cex, cfg, res)
			//
			if err := (report.FileSink{}).Emit(r); err != nil {
				return err
			}
		}
	}
	//
	return nil
}

// search dispatches the configured counterexample hunt over every finalized
// state, stopping at the first hit.  Unsatisfiable states are excluded.
func search(cmd *cobra.Command, mode string, fld *field.Field, exe *executor.Executor,
	states []*symbolic.State) (*solver.CounterExample, *solver.Result, solver.Config, error) {
	//
	cfg := solver.DefaultConfig(fld)
	//
	switch mode {
	case "none":
		return nil, nil, cfg, nil
	case "quick":
		for _, s := range states {
			if cex := solver.BruteForce(exe.Arena(), fld, s, states,
				exe.InputSignals(), exe.OutputSignals()); cex != nil {
				return cex, nil, cfg, nil
			}
		}
		//
		return nil, nil, cfg, nil
	case "ga":
		cfg, err := solver.LoadConfig(GetString(cmd, "path_to_mutation_setting"), fld)
		if err != nil {
			return nil, nil, cfg, err
		}
		// Cancellation is external: an interrupt stops the search of the
		// current state and of every remaining one.  A classified
		// counterexample always ends a search at once, so a cancelled run
		// has none pending and reports that none was found.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		//
		var last *solver.Result
		//
		for _, s := range states {
			engine := solver.NewEngine(exe.Arena(), fld, s,
				exe.InputSignals(), exe.OutputSignals(), cfg)
			engine.HeuristicsRange = GetInt64(cmd, "heuristics_range")
			//
			last = engine.Search(ctx)
			if last.CounterExample != nil {
				return last.CounterExample, last, cfg, nil
			}
		}
		//
		return nil, last, cfg, nil
	default:
		return nil, nil, cfg, fmt.Errorf("search_mode=%s is not supported", mode)
	}
}

// resolveField picks the prime: --debug_prime wins over the -p preset.
func resolveField(cmd *cobra.Command) (*field.Field, error) {
	if s := GetString(cmd, "debug_prime"); s != "" {
		p, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid prime %q", s)
		}
		//
		return field.New(p)
	}
	//
	p, err := field.Preset(GetString(cmd, "prime"))
	if err != nil {
		return nil, err
	}
	//
	return field.New(p)
}

func printSummary(fld *field.Field, mode string, states []*symbolic.State,
	cex *solver.CounterExample, elapsed time.Duration) {
	//
	var trace, side int
	for _, s := range states {
		trace += len(s.Trace)
		side += len(s.Side)
	}
	//
	rate := 0.0
	if trace > 0 {
		rate = float64(side) / float64(trace) * 100
	}
	//
	verdict := "no counterexample found"
	if mode == "none" {
		verdict = "search disabled"
	} else if cex != nil {
		verdict = cex.FlagType()
	}
	//
	fmt.Println("execution summary")
	fmt.Printf("  prime            : %s\n", fld.Modulus())
	fmt.Printf("  total paths      : %d\n", len(states))
	fmt.Printf("  compression rate : %.2f%% (%d/%d)\n", rate, side, trace)
	fmt.Printf("  verdict          : %s\n", verdict)
	fmt.Printf("  execution time   : %s\n", elapsed)
}

func printStats(cmd *cobra.Command, exe *executor.Executor, states []*symbolic.State) {
	var (
		ts = stats.NewConstraintStats()
		ss = stats.NewConstraintStats()
	)
	//
	for _, s := range states {
		for _, c := range s.Trace {
			ts.Update(exe.Arena(), c.Expr)
		}
		//
		for _, c := range s.Side {
			ss.Update(exe.Arena(), c.Expr)
		}
	}
	//
	if GetFlag(cmd, "print_stats_csv") {
		stats.WriteCSV(os.Stdout, map[string]*stats.ConstraintStats{
			"trace": ts,
			"side":  ss,
		})
		//
		return
	}
	//
	width := 64
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
	}
	//
	stats.PrintSummary(os.Stdout, "trace constraint statistics", ts, width)
	stats.PrintSummary(os.Stdout, "side constraint statistics", ss, width)
}
