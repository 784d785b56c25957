package chat

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// Catalogue holds every user-facing reply text.
type Catalogue struct {
	Help           string            `yaml:"help"`
	ConfirmDelete  string            `yaml:"confirm_delete"`
	ConfirmAction  string            `yaml:"confirm_action"`
	Cleared        string            `yaml:"cleared"`
	ClearMissing   string            `yaml:"clear_missing"`
	Cancelled      string            `yaml:"cancelled"`
	NothingPending string            `yaml:"nothing_pending"`
	Added          string            `yaml:"added"`
	Created        string            `yaml:"created"`
	NoContent      string            `yaml:"no_content"`
	Placements     map[string]string `yaml:"placements"`
	Switched       string            `yaml:"switched"`
	NoSwitchTarget string            `yaml:"no_switch_target"`
	SwitchMissing  string            `yaml:"switch_missing"`
	DocMissing     string            `yaml:"doc_missing"`
	Reset          string            `yaml:"reset"`
	Goodbye        string            `yaml:"goodbye"`
	NotUnderstood  string            `yaml:"not_understood"`
	Unsupported    string            `yaml:"unsupported"`
}

// DefaultCatalogue returns the built-in texts.
func DefaultCatalogue() *Catalogue {
	c, err := ParseCatalogue(defaultMessages)
	if err != nil {
		panic(fmt.Sprintf("chat: built-in messages.yaml: %v", err))
	}
	return c
}

// LoadCatalogue reads a catalogue file. Keys missing from the file keep
// their built-in text.
func LoadCatalogue(path string) (*Catalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chat: read catalogue: %w", err)
	}
	c := DefaultCatalogue()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("chat: parse catalogue %s: %w", path, err)
	}
	return c, c.validate()
}

// ParseCatalogue decodes a complete catalogue.
func ParseCatalogue(raw []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("chat: parse catalogue: %w", err)
	}
	return &c, c.validate()
}

func (c *Catalogue) validate() error {
	required := map[string]string{
		"help":            c.Help,
		"confirm_delete":  c.ConfirmDelete,
		"confirm_action":  c.ConfirmAction,
		"cleared":         c.Cleared,
		"clear_missing":   c.ClearMissing,
		"cancelled":       c.Cancelled,
		"nothing_pending": c.NothingPending,
		"added":           c.Added,
		"not_understood":  c.NotUnderstood,
		"reset":           c.Reset,
		"goodbye":         c.Goodbye,
	}
	for k, v := range required {
		if v == "" {
			return fmt.Errorf("chat: catalogue is missing %q", k)
		}
	}
	for _, k := range []string{"start", "end", "after", "fallback"} {
		if c.Placements[k] == "" {
			return fmt.Errorf("chat: catalogue is missing placements.%s", k)
		}
	}
	return nil
}
