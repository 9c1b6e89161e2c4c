package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/ck-zhang/runner/internal/entry"
)

const (
	appName        = "runner"
	configFileName = "config.toml"
	DefaultGroup   = "default"
)

var (
	ErrUnknownGroup = errors.New("unknown group")
	ErrInvalid      = errors.New("invalid configuration")
)

type General struct {
	DefaultGroup  string `toml:"default_group"`
	Terminal      string `toml:"terminal"`
	HistorySize   int    `toml:"history_size"`
	HistoryWeight int    `toml:"history_weight"`
	ScriptsDir    string `toml:"scripts_dir"`
	IconSize      int    `toml:"icon_size"`
}

type Theme struct {
	Width               int     `toml:"width"`
	Height              int     `toml:"height"`
	Padding             float64 `toml:"padding"`
	Spacing             float64 `toml:"spacing"`
	BorderRadius        float64 `toml:"border_radius"`
	BorderWidth         float64 `toml:"border_width"`
	FontSize            float64 `toml:"font_size"`
	ItemHeight          float64 `toml:"item_height"`
	Background          string  `toml:"background"`
	BorderColor         string  `toml:"border_color"`
	Text                string  `toml:"text"`
	Placeholder         string  `toml:"placeholder"`
	SelectionBackground string  `toml:"selection_background"`
	SelectionText       string  `toml:"selection_text"`
	NumberColor         string  `toml:"number_color"`
}

type Item struct {
	ID       string            `toml:"id"`
	Name     string            `toml:"name"`
	Command  string            `toml:"command"`
	Icon     string            `toml:"icon"`
	Terminal bool              `toml:"terminal"`
	Env      map[string]string `toml:"env"`
}

type Group struct {
	Sources   []string          `toml:"sources"`
	Whitelist []string          `toml:"whitelist"`
	Blacklist []string          `toml:"blacklist"`
	Env       map[string]string `toml:"env"`
	Items     []Item            `toml:"items"`
}

type Config struct {
	General General          `toml:"general"`
	Theme   Theme            `toml:"theme"`
	Groups  map[string]Group `toml:"groups"`

	// Path is where the configuration was read from; empty for defaults.
	Path string `toml:"-"`
}

func Default() *Config {
	return &Config{
		General: General{
			DefaultGroup:  DefaultGroup,
			HistorySize:   50,
			HistoryWeight: 10,
			ScriptsDir:    filepath.Join(xdg.ConfigHome, appName, "scripts"),
			IconSize:      22,
		},
		Theme: Theme{
			Width:               600,
			Height:              400,
			Padding:             20,
			Spacing:             10,
			BorderRadius:        12,
			BorderWidth:         1.5,
			FontSize:            16,
			ItemHeight:          30,
			Background:          "1e1e1eff",
			BorderColor:         "3c3c50ff",
			Text:                "c8c8c8ff",
			Placeholder:         "646464ff",
			SelectionBackground: "3c3c50ff",
			SelectionText:       "ffffffff",
			NumberColor:         "646464ff",
		},
		Groups: map[string]Group{
			DefaultGroup: {Sources: []string{"desktop", "bin", "scripts", "history"}},
		},
	}
}

// Resolve picks the configuration path: explicit flag, RUNNER_CONFIG, then
// the XDG config directory. The returned path may not exist.
func Resolve(explicit string) string {
	if explicit != "" {
		return expandHome(explicit)
	}
	if v := os.Getenv("RUNNER_CONFIG"); v != "" {
		return expandHome(v)
	}
	if p, err := xdg.SearchConfigFile(filepath.Join(appName, configFileName)); err == nil {
		return p
	}
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalid, path)
	}
	// Groups from the file replace the built-in default group entirely.
	cfg.Groups = nil
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s: unknown keys: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = Default().Groups
	}
	cfg.Path = path
	cfg.General.ScriptsDir = expandHome(cfg.General.ScriptsDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.General.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("general.history_size must not be negative"))
	}
	if c.General.IconSize <= 0 {
		errs = append(errs, fmt.Errorf("general.icon_size must be positive"))
	}
	if _, ok := c.Groups[c.General.DefaultGroup]; !ok {
		errs = append(errs, fmt.Errorf("general.default_group %q is not defined", c.General.DefaultGroup))
	}
	errs = append(errs, c.Theme.validate()...)
	for _, name := range c.GroupNames() {
		g := c.Groups[name]
		if _, err := g.Kinds(); err != nil {
			errs = append(errs, fmt.Errorf("groups.%s: %w", name, err))
		}
		if _, err := CompilePatterns(g.Whitelist); err != nil {
			errs = append(errs, fmt.Errorf("groups.%s.whitelist: %w", name, err))
		}
		if _, err := CompilePatterns(g.Blacklist); err != nil {
			errs = append(errs, fmt.Errorf("groups.%s.blacklist: %w", name, err))
		}
		for i, it := range g.Items {
			if strings.TrimSpace(it.Name) == "" || strings.TrimSpace(it.Command) == "" {
				errs = append(errs, fmt.Errorf("groups.%s.items[%d]: name and command are required", name, i))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (t Theme) validate() []error {
	var errs []error
	if t.Width <= 0 || t.Height <= 0 {
		errs = append(errs, fmt.Errorf("theme width and height must be positive"))
	}
	if t.FontSize <= 0 || t.ItemHeight <= 0 {
		errs = append(errs, fmt.Errorf("theme font_size and item_height must be positive"))
	}
	if t.Padding < 0 || t.Spacing < 0 || t.BorderRadius < 0 || t.BorderWidth < 0 {
		errs = append(errs, fmt.Errorf("theme padding, spacing, border_radius and border_width must not be negative"))
	}
	colors := map[string]string{
		"background":           t.Background,
		"border_color":         t.BorderColor,
		"text":                 t.Text,
		"placeholder":          t.Placeholder,
		"selection_background": t.SelectionBackground,
		"selection_text":       t.SelectionText,
		"number_color":         t.NumberColor,
	}
	keys := make([]string, 0, len(colors))
	for k := range colors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := ParseColor(colors[k]); err != nil {
			errs = append(errs, fmt.Errorf("theme.%s: %w", k, err))
		}
	}
	return errs
}

// GroupNames returns the configured group names sorted.
func (c *Config) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for n := range c.Groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Group selects the active group; an empty name selects the default group.
func (c *Config) Group(name string) (string, Group, error) {
	if name == "" {
		name = c.General.DefaultGroup
	}
	g, ok := c.Groups[name]
	if !ok {
		return "", Group{}, fmt.Errorf("%w %q (configured: %s)", ErrUnknownGroup, name, strings.Join(c.GroupNames(), ", "))
	}
	return name, g, nil
}

// Kinds returns the enabled source kinds in configured order. Static is
// enabled implicitly when the group declares items.
func (g Group) Kinds() ([]entry.Kind, error) {
	var kinds []entry.Kind
	seen := make(map[entry.Kind]bool)
	for _, s := range g.Sources {
		k, err := entry.ParseKind(s)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	if len(g.Items) > 0 && !seen[entry.KindStatic] {
		kinds = append([]entry.Kind{entry.KindStatic}, kinds...)
	}
	return kinds, nil
}

func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// ParseColor parses RRGGBBAA with an optional leading '#'.
func ParseColor(hex string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("color %q must have 8 hex digits (RRGGBBAA)", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", hex, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// MustColor is for colours that already passed Validate.
func MustColor(hex string) color.NRGBA {
	c, err := ParseColor(hex)
	if err != nil {
		return color.NRGBA{A: 0xff}
	}
	return c
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
