// Package simulation прогоняет турнир целиком на in-memory хранилище со случайными,
// но воспроизводимыми результатами.
package simulation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Dosada05/tournament-engine/models"
	"gopkg.in/yaml.v3"
)

// Scenario describes one simulated tournament. Participants lists ids explicitly;
// ParticipantCount is used when it is empty and enrolls ids 1..N.
type Scenario struct {
	Name             string                 `yaml:"name"`
	Format           models.Format          `yaml:"format"`
	WinnerCount      int                    `yaml:"winner_count"`
	Seed             *int64                 `yaml:"seed"`
	Participants     []int                  `yaml:"participants"`
	ParticipantCount int                    `yaml:"participant_count"`
	GameConfig       map[string]interface{} `yaml:"game_config"`
	RewardConfig     map[string]interface{} `yaml:"reward_config"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if sc.Name == "" {
		sc.Name = "simulation"
	}
	if _, err := models.ParseFormat(string(sc.Format)); err != nil {
		return nil, err
	}
	if len(sc.Participants) == 0 {
		if sc.ParticipantCount <= 0 {
			return nil, fmt.Errorf("scenario needs participants or participant_count")
		}
		for id := 1; id <= sc.ParticipantCount; id++ {
			sc.Participants = append(sc.Participants, id)
		}
	}
	return &sc, nil
}

// rawConfig re-encodes a YAML section as the JSON document the services take.
func rawConfig(section map[string]interface{}) (json.RawMessage, error) {
	if section == nil {
		return nil, nil
	}
	raw, err := json.Marshal(section)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scenario config: %w", err)
	}
	return raw, nil
}
