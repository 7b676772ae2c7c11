package config

import (
	"fmt"

	"github.com/xplshn/gct/pkg/cli"
)

type Feature int

const (
	FeatCComments Feature = iota
	FeatForDecl
	FeatBool
	FeatFoldConsts
	FeatWerror
	FeatCount
)

type Warning int

const (
	WarnImplicitDecl Warning = iota
	WarnShadow
	WarnUnused
	WarnNarrowing
	WarnTruncatedChar
	WarnUnreachableCode
	WarnPedantic
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// TargetLang selects the language a translation unit is emitted in.
type TargetLang int

const (
	TargetJava TargetLang = iota
	TargetCpp
)

func (t TargetLang) String() string {
	switch t {
	case TargetJava:
		return "java"
	case TargetCpp:
		return "cpp"
	}
	return "unknown"
}

// Ext returns the output file extension for the target.
func (t TargetLang) Ext() string {
	switch t {
	case TargetJava:
		return ".java"
	case TargetCpp:
		return ".cpp"
	}
	return ".out"
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	StdName    string
	Target     TargetLang
	ClassName  string
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		StdName:    "c99",
		Target:     TargetJava,
		ClassName:  "Main",
	}

	features := map[Feature]Info{
		FeatCComments:  {"c-comments", true, "Recognize '//' line comments."},
		FeatForDecl:    {"for-decl", true, "Allow a declaration in a for-loop initializer."},
		FeatBool:       {"bool", true, "Recognize 'bool', 'true' and 'false' as keywords."},
		FeatFoldConsts: {"fold-consts", true, "Evaluate constant expressions in array dimensions and case labels."},
		FeatWerror:     {"werror", false, "Treat warnings as errors."},
	}

	warnings := map[Warning]Info{
		WarnImplicitDecl:    {"implicit-decl", true, "Warn about calls to undeclared functions."},
		WarnShadow:          {"shadow", false, "Warn when a declaration shadows one in an outer scope."},
		WarnUnused:          {"unused", true, "Warn about local variables that are never read."},
		WarnNarrowing:       {"narrowing", true, "Warn about implicit narrowing in assignments and initializers."},
		WarnTruncatedChar:   {"truncated-char", true, "Warn when a character escape value is truncated."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements that can never execute."},
		WarnPedantic:        {"pedantic", false, "Issue all warnings demanded by the selected standard."},
		WarnExtra:           {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTargetLang selects the emission backend by name.
func (c *Config) SetTargetLang(name string) error {
	switch name {
	case "java":
		c.Target = TargetJava
	case "cpp", "c++", "cxx":
		c.Target = TargetCpp
	default:
		return fmt.Errorf("unsupported target language '%s'. Supported: 'java', 'cpp'", name)
	}
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// SetAllWarnings flips every warning except pedantic, which stays opt-in.
func (c *Config) SetAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		if i == WarnPedantic {
			continue
		}
		c.SetWarning(i, enabled)
	}
}

func (c *Config) ApplyStd(stdName string) error {
	c.StdName = stdName
	isPedantic := c.IsWarningEnabled(WarnPedantic)

	type stdSettings struct {
		feature  Feature
		c89Value bool
		c99Value bool
	}

	settings := []stdSettings{
		{FeatCComments, false, true},
		{FeatForDecl, false, true},
		{FeatBool, false, true},
		{FeatFoldConsts, true, true},
	}

	switch stdName {
	case "c89":
		for _, s := range settings {
			c.SetFeature(s.feature, s.c89Value)
		}
		if isPedantic {
			c.SetWarning(WarnNarrowing, true)
			c.SetWarning(WarnImplicitDecl, true)
		}
	case "c99":
		for _, s := range settings {
			c.SetFeature(s.feature, s.c99Value)
		}
		if isPedantic {
			c.SetWarning(WarnImplicitDecl, true)
		}
	default:
		return fmt.Errorf("unsupported standard '%s'. Supported: 'c89', 'c99'", stdName)
	}
	return nil
}

// SetupFlagGroups registers -W<warning> and -F<feature> flag groups on the
// driver's flag set and returns the entry slices so the caller can apply
// them after parsing. Entry order follows the enum order.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningEntries := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warningEntries[i] = cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "W",
			Usage:    info.Description,
			Enabled:  new(bool),
			Disabled: new(bool),
		}
	}
	fs.AddFlagGroup("Warnings", "Diagnostic toggles", "warning", "Available warnings", warningEntries)

	featureEntries := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		featureEntries[i] = cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "F",
			Usage:    info.Description,
			Enabled:  new(bool),
			Disabled: new(bool),
		}
	}
	fs.AddFlagGroup("Features", "Language feature toggles", "feature", "Available features", featureEntries)

	return warningEntries, featureEntries
}
