// Package runtime wires the components of one conversation run: scenario
// loading, worker construction, supervision, and shutdown. It contains no
// domain rules.
package runtime

import (
	"fmt"
	"os"

	"agent-lab/domain"
	agenterrors "agent-lab/errors"
	"agent-lab/state"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Scenario is the per-run configuration file: the participating roles, the
// agreed state schema, and the task seeding the conversation. Loaded once
// before the run starts; never mutated afterwards.
type Scenario struct {
	Task      string         `yaml:"task" validate:"required"`
	MaxRounds int            `yaml:"max_rounds" validate:"min=1"`
	Roles     []RoleConfig   `yaml:"roles" validate:"min=1,dive"`
	State     map[string]any `yaml:"state" validate:"required"`
}

type RoleConfig struct {
	Name          string `yaml:"name" validate:"required"`
	Description   string `yaml:"description" validate:"required"`
	SystemMessage string `yaml:"system_message" validate:"required"`
}

func LoadScenario(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(raw)
}

func ParseScenario(raw []byte) (Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(raw, &scenario); err != nil {
		return Scenario{}, fmt.Errorf("parsing scenario: %w", err)
	}

	if len(scenario.Roles) == 0 {
		return Scenario{}, agenterrors.ErrEmptyScenario
	}
	if err := validator.New().Struct(scenario); err != nil {
		return Scenario{}, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

func (s Scenario) DomainRoles() []domain.Role {
	return lo.Map(s.Roles, func(r RoleConfig, _ int) domain.Role {
		return domain.Role{
			Name:          r.Name,
			Description:   r.Description,
			SystemMessage: r.SystemMessage,
		}
	})
}

func (s Scenario) Schema() state.Schema {
	return state.Schema(s.State)
}
