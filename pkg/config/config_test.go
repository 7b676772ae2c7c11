package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/gct/pkg/cli"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, "c99", cfg.StdName)
	assert.Equal(t, TargetJava, cfg.Target)
	assert.Equal(t, "Main", cfg.ClassName)

	assert.True(t, cfg.IsFeatureEnabled(FeatCComments))
	assert.True(t, cfg.IsFeatureEnabled(FeatFoldConsts))
	assert.False(t, cfg.IsFeatureEnabled(FeatWerror))

	assert.True(t, cfg.IsWarningEnabled(WarnUnused))
	assert.False(t, cfg.IsWarningEnabled(WarnShadow))
	assert.False(t, cfg.IsWarningEnabled(WarnPedantic))

	// Name maps round-trip every enum value.
	for ft, info := range cfg.Features {
		assert.Equal(t, ft, cfg.FeatureMap[info.Name])
	}
	for wt, info := range cfg.Warnings {
		assert.Equal(t, wt, cfg.WarningMap[info.Name])
	}
}

func TestTargetLangNames(t *testing.T) {
	assert.Equal(t, "java", TargetJava.String())
	assert.Equal(t, ".java", TargetJava.Ext())
	assert.Equal(t, "cpp", TargetCpp.String())
	assert.Equal(t, ".cpp", TargetCpp.Ext())
	assert.Equal(t, "unknown", TargetLang(99).String())
	assert.Equal(t, ".out", TargetLang(99).Ext())
}

func TestSetTargetLang(t *testing.T) {
	cases := []struct {
		name string
		want TargetLang
		ok   bool
	}{
		{"java", TargetJava, true},
		{"cpp", TargetCpp, true},
		{"c++", TargetCpp, true},
		{"cxx", TargetCpp, true},
		{"rust", TargetJava, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			err := cfg.SetTargetLang(tc.name)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.Target)
		})
	}
}

func TestSetAllWarningsKeepsPedantic(t *testing.T) {
	cfg := NewConfig()
	cfg.SetWarning(WarnPedantic, true)

	cfg.SetAllWarnings(false)
	assert.True(t, cfg.IsWarningEnabled(WarnPedantic))
	assert.False(t, cfg.IsWarningEnabled(WarnUnused))
	assert.False(t, cfg.IsWarningEnabled(WarnNarrowing))

	cfg.SetAllWarnings(true)
	assert.True(t, cfg.IsWarningEnabled(WarnShadow))
	assert.True(t, cfg.IsWarningEnabled(WarnUnused))
}

func TestApplyStd(t *testing.T) {
	cfg := NewConfig()

	require.NoError(t, cfg.ApplyStd("c89"))
	assert.Equal(t, "c89", cfg.StdName)
	assert.False(t, cfg.IsFeatureEnabled(FeatCComments))
	assert.False(t, cfg.IsFeatureEnabled(FeatForDecl))
	assert.False(t, cfg.IsFeatureEnabled(FeatBool))
	assert.True(t, cfg.IsFeatureEnabled(FeatFoldConsts))

	require.NoError(t, cfg.ApplyStd("c99"))
	assert.True(t, cfg.IsFeatureEnabled(FeatCComments))
	assert.True(t, cfg.IsFeatureEnabled(FeatForDecl))
	assert.True(t, cfg.IsFeatureEnabled(FeatBool))

	assert.Error(t, cfg.ApplyStd("c11"))
}

func TestApplyStdPedanticRestoresWarnings(t *testing.T) {
	cfg := NewConfig()
	cfg.SetWarning(WarnNarrowing, false)
	cfg.SetWarning(WarnImplicitDecl, false)
	cfg.SetWarning(WarnPedantic, true)

	require.NoError(t, cfg.ApplyStd("c89"))
	assert.True(t, cfg.IsWarningEnabled(WarnNarrowing))
	assert.True(t, cfg.IsWarningEnabled(WarnImplicitDecl))
}

func TestSetupFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("test")
	warnings, features := cfg.SetupFlagGroups(fs)

	require.Len(t, warnings, int(WarnCount))
	require.Len(t, features, int(FeatCount))
	assert.Equal(t, "implicit-decl", warnings[WarnImplicitDecl].Name)
	assert.Equal(t, "W", warnings[WarnImplicitDecl].Prefix)
	assert.Equal(t, "fold-consts", features[FeatFoldConsts].Name)
	assert.Equal(t, "F", features[FeatFoldConsts].Prefix)

	// The driver applies parsed toggles back onto the config.
	require.NoError(t, fs.Parse([]string{"-Wno-unused", "-Fno-bool", "in.c"}))
	assert.True(t, *warnings[WarnUnused].Disabled)
	assert.False(t, *warnings[WarnUnused].Enabled)
	assert.True(t, *features[FeatBool].Disabled)
	assert.Equal(t, []string{"in.c"}, fs.Args())
}
