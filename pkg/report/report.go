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

// Package report serializes counterexamples and their search diagnostics.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Koukyosyumei/zkFuzz/pkg/solver"
)

// FlagInfo is the serialized verdict.
type FlagInfo struct {
	Type              string `json:"type"`
	ExpectedOutput    string `json:"expected_output,omitempty"`
	ViolatedCondition string `json:"violated_condition,omitempty"`
}

// MutationTestLog captures how the search arrived at the counterexample.
type MutationTestLog struct {
	Generation      int                    `json:"generation"`
	RandomSeed      uint64                 `json:"random_seed"`
	FitnessScoreLog []solver.GenerationLog `json:"fitness_score_log"`
}

// Auxiliary bundles the search configuration and its log.
type Auxiliary struct {
	MutationTestConfig solver.Config   `json:"mutation_test_config"`
	MutationTestLog    MutationTestLog `json:"mutation_test_log"`
}

// Report is the counterexample document written on --save_output.  Field
// values are decimal strings of canonical representatives.
type Report struct {
	TargetPath      string            `json:"target_path"`
	MainTemplate    string            `json:"main_template"`
	SearchMode      string            `json:"search_mode"`
	ExecutionTime   string            `json:"execution_time"`
	Flag            FlagInfo          `json:"flag"`
	TargetOutput    string            `json:"target_output"`
	Assignment      map[string]string `json:"assignment"`
	AuxiliaryResult Auxiliary         `json:"auxiliary_result"`
}

// New assembles a report from a search outcome.
func New(targetPath, mainTemplate, searchMode string, elapsed time.Duration,
	cex *solver.CounterExample, cfg solver.Config, res *solver.Result) *Report {
	//
	r := &Report{
		TargetPath:    targetPath,
		MainTemplate:  mainTemplate,
		SearchMode:    searchMode,
		ExecutionTime: elapsed.String(),
		Flag: FlagInfo{
			Type:              cex.FlagType(),
			ViolatedCondition: cex.ViolatedCondition,
		},
		TargetOutput: string(cex.TargetOutput),
		Assignment:   make(map[string]string, len(cex.Assignment)),
		AuxiliaryResult: Auxiliary{
			MutationTestConfig: cfg,
		},
	}
	//
	if cex.ExpectedOutput != nil {
		r.Flag.ExpectedOutput = cex.ExpectedOutput.String()
	}
	//
	for name, value := range cex.Assignment {
		r.Assignment[string(name)] = value.String()
	}
	//
	if res != nil {
		r.AuxiliaryResult.MutationTestLog = MutationTestLog{
			Generation:      res.Generations,
			RandomSeed:      res.Seed,
			FitnessScoreLog: res.FitnessLog,
		}
	}
	//
	return r
}

// Sink consumes finished reports.
type Sink interface {
	Emit(r *Report) error
}

// FileSink writes each report next to the analyzed circuit as
// <input>_<random suffix>_counterexample.json.
type FileSink struct{}

// Emit implementation for the Sink interface.
func (FileSink) Emit(r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	//
	suffix := uuid.New().String()[:8]
	path := fmt.Sprintf("%s_%s_counterexample.json", r.TargetPath, suffix)
	//
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	//
	log.Infof("counterexample written to %s", path)
	//
	return nil
}
