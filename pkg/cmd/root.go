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
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is filled when building with make, but *not* when installing via
// "go install".
var Version string

// rootCmd reports its version under --version and otherwise analyzes one
// circuit, read from the input path or from ./circuit.circom when none is
// given.
var rootCmd = &cobra.Command{
	Use:   "zkfuzz [flags] [input]",
	Short: "A trace/constraint consistency debugger for zero-knowledge circuits.",
	Long: `zkfuzz symbolically executes a circuit, collecting the trace constraints
	of its witness generator and the side constraints of its proof system,
	then hunts for assignments on which the two disagree.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "version") {
			fmt.Print("zkfuzz ")
			if Version != "" {
				// Built via "make"
				fmt.Printf("%s", Version)
			} else if info, ok := debug.ReadBuildInfo(); ok {
				// Built via "go install"
				fmt.Printf("%s", info.Main.Version)
			} else {
				// Unknown, perhaps "go run"
				fmt.Printf("(unknown version)")
			}
			//
			fmt.Println()
			//
			return
		}
		//
		input := "./circuit.circom"
		if len(args) == 1 {
			input = args[0]
		}
		//
		if err := run(cmd, input); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.  This is called by main.main().
func Execute() {
	configureLogging()
	//
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configureLogging maps the RUST_LOG convention of the original tool onto
// logrus levels.
func configureLogging() {
	switch os.Getenv("RUST_LOG") {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "Report version of this executable")
	rootCmd.Flags().String("search_mode", "none",
		"counterexample search: none, quick (bounded brute force) or ga (mutation engine)")
	rootCmd.Flags().String("debug_prime", "", "prime modulus, overriding the curve preset")
	rootCmd.Flags().StringP("prime", "p", "bn128",
		"curve preset: bn128, bls12381, goldilocks, grumpkin, pallas, vesta or secq256r1")
	rootCmd.Flags().Bool("symbolic_template_params", false,
		"treat main template parameters as free symbols")
	rootCmd.Flags().Bool("propagate_substitution", false,
		"aggressively inline computed signal values during simplification")
	rootCmd.Flags().Bool("print_ast", false, "print the parsed AST")
	rootCmd.Flags().Bool("print_stats", false, "print constraint statistics")
	rootCmd.Flags().Bool("print_stats_csv", false, "print constraint statistics as CSV")
	rootCmd.Flags().Bool("show_stats_of_ast", false, "print AST statistics")
	rootCmd.Flags().String("path_to_mutation_setting", "",
		"JSON file tuning the mutation engine")
	rootCmd.Flags().String("path_to_whitelist", "",
		"file listing template names exempt from analysis")
	rootCmd.Flags().Int64("heuristics_range", 100,
		"width of the near-modulus band mutation constants are drawn from")
	rootCmd.Flags().Bool("save_output", false,
		"write counterexamples to <input>_<suffix>_counterexample.json")
}
