package bridge

import (
	"encoding/json"
	"fmt"

	"go-harmony/debug"
)

// MaxEnemies caps the enemies read from one update.
const MaxEnemies = 256

// Enemy is a nearby mob.
type Enemy struct {
	Type     string  `json:"type"`
	Distance float64 `json:"distance"`
}

// Environment is where the player is. Tags are optional.
type Environment struct {
	Type string   `json:"type"`
	Tags []string `json:"tags,omitempty"`
}

// GameState is one validated update from the game.
type GameState struct {
	PlayerHealth float64     `json:"playerHealth"`
	Enemies      []Enemy     `json:"enemies"`
	Environment  Environment `json:"environment"`

	// Raw is the whole decoded document, for rule filters.
	Raw map[string]any `json:"-"`
}

// ParseGameState decodes a state document. Fields with the wrong type fall
// back to their defaults and out-of-range values are clamped, each with a
// warning. Only a document that is not a JSON object is an error.
func ParseGameState(data []byte) (GameState, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return GameState{}, fmt.Errorf("bridge: parse game state: %w", err)
	}
	if raw == nil {
		return GameState{}, fmt.Errorf("bridge: game state is not an object")
	}
	log := debug.For("bridge")

	gs := GameState{PlayerHealth: 1, Raw: raw}

	if v, ok := raw["playerHealth"]; ok {
		hp, isNum := v.(float64)
		if !isNum {
			log.Warn("playerHealth has the wrong type, using 1", "value", v)
			hp = 1
		}
		if hp < 0 || hp > 1 {
			log.Warn("playerHealth out of range, clamped", "value", hp)
			hp = min(max(hp, 0), 1)
		}
		gs.PlayerHealth = hp
	}

	if list, ok := raw["enemies"].([]any); ok {
		for _, item := range list {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			typ, _ := obj["type"].(string)
			if typ == "" {
				continue
			}
			d, _ := obj["distance"].(float64)
			gs.Enemies = append(gs.Enemies, Enemy{Type: typ, Distance: max(d, 0)})
			if len(gs.Enemies) == MaxEnemies {
				if len(list) > MaxEnemies {
					log.Warn("enemies truncated", "limit", MaxEnemies, "received", len(list))
				}
				break
			}
		}
	}

	switch env := raw["environment"].(type) {
	case string:
		gs.Environment.Type = env
	case map[string]any:
		gs.Environment.Type, _ = env["type"].(string)
		if tags, ok := env["tags"].([]any); ok {
			for _, t := range tags {
				if s, ok := t.(string); ok && s != "" {
					gs.Environment.Tags = append(gs.Environment.Tags, s)
				}
			}
		}
	case nil:
	default:
		log.Warn("environment has the wrong type, ignored", "value", env)
	}
	return gs, nil
}

// Value is the filter input for a single enemy.
func (e Enemy) Value() map[string]any {
	return map[string]any{"type": e.Type, "distance": e.Distance}
}
