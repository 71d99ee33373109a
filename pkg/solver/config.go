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
package solver

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/Koukyosyumei/zkFuzz/pkg/field"
)

// ValueRange is a half-open sampling interval [Lo, Hi) of input constants,
// serialized as a pair of decimal strings so bounds near the modulus stay
// exact.
type ValueRange struct {
	Lo *big.Int
	Hi *big.Int
}

// UnmarshalJSON decodes a ["lo","hi"] pair.
func (r *ValueRange) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	//
	lo, ok := new(big.Int).SetString(pair[0], 10)
	if !ok {
		return fmt.Errorf("invalid range bound %q", pair[0])
	}
	//
	hi, ok := new(big.Int).SetString(pair[1], 10)
	if !ok {
		return fmt.Errorf("invalid range bound %q", pair[1])
	}
	//
	r.Lo, r.Hi = lo, hi
	//
	return nil
}

// MarshalJSON encodes the range back into its string-pair form.
func (r ValueRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{r.Lo.String(), r.Hi.String()})
}

// Config is the tunable surface of the mutation engine, loadable from the
// JSON file named by --path_to_mutation_setting.
type Config struct {
	ProgramPopulationSize                  int          `json:"program_population_size"`
	InputPopulationSize                    int          `json:"input_population_size"`
	MaxGenerations                         int          `json:"max_generations"`
	InputInitializationMethod              string       `json:"input_initialization_method"`
	MutationRate                           float64      `json:"mutation_rate"`
	CrossoverRate                          float64      `json:"crossover_rate"`
	OperatorMutationRate                   float64      `json:"operator_mutation_rate"`
	InputUpdateInterval                    int          `json:"input_update_interval"`
	InputGenerationMaxIteration            int          `json:"input_generation_max_iteration"`
	InputGenerationCrossoverRate           float64      `json:"input_generation_crossover_rate"`
	InputGenerationMutationRate            float64      `json:"input_generation_mutation_rate"`
	InputGenerationSinglepointMutationRate float64      `json:"input_generation_singlepoint_mutation_rate"`
	RandomValueRanges                      []ValueRange `json:"random_value_ranges"`
	RandomValueProbs                       []float64    `json:"random_value_probs"`
	FitnessFunction                        string       `json:"fitness_function"`
	Seed                                   uint64       `json:"seed"`
}

// DefaultConfig returns the built-in settings: a small band around zero and
// a band just below the modulus, sampled with equal weight.
func DefaultConfig(fld *field.Field) Config {
	p := fld.Modulus()
	//
	return Config{
		ProgramPopulationSize:                  30,
		InputPopulationSize:                    30,
		MaxGenerations:                         300,
		InputInitializationMethod:              "random",
		MutationRate:                           0.3,
		CrossoverRate:                          0.5,
		OperatorMutationRate:                   0.2,
		InputUpdateInterval:                    1,
		InputGenerationMaxIteration:            10,
		InputGenerationCrossoverRate:           0.5,
		InputGenerationMutationRate:            0.3,
		InputGenerationSinglepointMutationRate: 0.5,
		RandomValueRanges: []ValueRange{
			{Lo: big.NewInt(-10), Hi: big.NewInt(10)},
			{Lo: new(big.Int).Sub(p, big.NewInt(100)), Hi: new(big.Int).Set(p)},
		},
		RandomValueProbs: []float64{0.5, 0.5},
		FitnessFunction:  "error",
	}
}

// LoadConfig reads settings from the given JSON file, falling back to the
// defaults when the path is empty or the file does not exist.  Fields
// omitted from the file keep their default.
func LoadConfig(path string, fld *field.Field) (Config, error) {
	cfg := DefaultConfig(fld)
	//
	if path == "" {
		return cfg, nil
	}
	//
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("mutation setting file not found, using defaults")
			return cfg, nil
		}
		//
		return cfg, err
	}
	//
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	//
	if len(cfg.RandomValueRanges) != len(cfg.RandomValueProbs) {
		return cfg, fmt.Errorf("%d sampling ranges but %d weights",
			len(cfg.RandomValueRanges), len(cfg.RandomValueProbs))
	}
	//
	return cfg, nil
}
