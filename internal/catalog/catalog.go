// Package catalog loads the static weekly event calendar.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aion-timer/backend/internal/schedule"
)

//go:embed events.yaml
var defaultEvents []byte

// fileEvent is the on-disk shape of an event. Either Time or OpenTimes is set.
type fileEvent struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Day       dayList  `yaml:"day"`
	Time      string   `yaml:"time"`
	OpenTimes []string `yaml:"open_times"`
	Duration  *int     `yaml:"duration"`
	Image     string   `yaml:"image"`
}

type file struct {
	Events []fileEvent `yaml:"events"`
}

// dayList accepts either a single weekday or a list of weekdays.
type dayList []int

func (d *dayList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var day int
		if err := value.Decode(&day); err != nil {
			return fmt.Errorf("day: %w", err)
		}
		*d = dayList{day}
		return nil
	}

	var days []int
	if err := value.Decode(&days); err != nil {
		return fmt.Errorf("day: %w", err)
	}
	*d = days
	return nil
}

// Catalog is the immutable set of event definitions for the process.
type Catalog struct {
	defs []schedule.Definition
	byID map[string]int
}

// Default returns the built-in catalog.
func Default(logger *slog.Logger) (*Catalog, error) {
	return Parse(defaultEvents, logger)
}

// Load reads a catalog from a YAML file. An empty path loads the built-in catalog.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	if path == "" {
		return Default(logger)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading events file %q: %w", path, err)
	}

	return Parse(data, logger)
}

// Parse decodes YAML event data and normalizes it into definitions.
// Malformed openings and weekdays are logged and kept; missing or duplicate
// ids are rejected.
func Parse(data []byte, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing events: %w", err)
	}

	c := &Catalog{
		defs: make([]schedule.Definition, 0, len(f.Events)),
		byID: make(map[string]int, len(f.Events)),
	}

	for i, ev := range f.Events {
		if ev.ID == "" {
			return nil, fmt.Errorf("event #%d has no id", i+1)
		}
		if _, dup := c.byID[ev.ID]; dup {
			return nil, fmt.Errorf("duplicate event id %q", ev.ID)
		}

		def := normalize(ev)
		for _, problem := range def.Problems() {
			logger.Warn("event configuration problem", "event_id", def.ID, "error", problem)
		}

		c.byID[def.ID] = len(c.defs)
		c.defs = append(c.defs, def)
	}

	if len(c.defs) == 0 {
		return nil, errors.New("no events defined")
	}

	logger.Info("event catalog loaded", "events", len(c.defs))
	return c, nil
}

// normalize collapses the single-time and multi-time forms into one openings list.
func normalize(ev fileEvent) schedule.Definition {
	def := schedule.Definition{
		ID:    ev.ID,
		Name:  ev.Name,
		Days:  append([]int(nil), ev.Day...),
		Image: ev.Image,
	}

	if len(ev.OpenTimes) > 0 {
		def.Openings = append([]string(nil), ev.OpenTimes...)
		if ev.Duration != nil {
			def.DurationMinutes = *ev.Duration
		}
		return def
	}

	if ev.Time != "" {
		def.Openings = []string{ev.Time}
	}
	def.DurationMinutes = schedule.DefaultDurationMinutes
	if ev.Duration != nil {
		def.DurationMinutes = *ev.Duration
	}

	return def
}

// All returns a copy of every definition in catalog order.
func (c *Catalog) All() []schedule.Definition {
	out := make([]schedule.Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Get returns the definition with the given id.
func (c *Catalog) Get(id string) (schedule.Definition, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return schedule.Definition{}, false
	}
	return c.defs[idx], true
}

// Has reports whether id names a known event.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// IDs returns every event id in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.defs))
	for i, def := range c.defs {
		ids[i] = def.ID
	}
	return ids
}

// Len returns the number of events.
func (c *Catalog) Len() int {
	return len(c.defs)
}
