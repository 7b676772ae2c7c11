package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/lexer"
	"github.com/xplshn/gct/pkg/parser"
	"github.com/xplshn/gct/pkg/preprocess"
	"github.com/xplshn/gct/pkg/resolver"
)

func quietConfig(target config.TargetLang) *config.Config {
	cfg := config.NewConfig()
	cfg.Target = target
	cfg.SetAllWarnings(false)
	return cfg
}

// translate runs a source file through the whole front end and hands the
// resolved tree to the configured backend. Everything before code
// generation is expected to succeed; only the backend error comes back.
func translate(t *testing.T, src string, cfg *config.Config) (string, error) {
	t.Helper()
	pre, err := preprocess.Run(src, 0)
	require.NoError(t, err)
	toks, err := lexer.Tokenize([]rune(pre.Source), 0, cfg)
	require.NoError(t, err)
	root, err := parser.NewParser(toks, cfg).Parse()
	require.NoError(t, err)
	consts, err := parser.ParseDefines(pre.Defines, cfg)
	require.NoError(t, err)
	if len(consts) > 0 {
		block := root.Data.(ast.BlockNode)
		block.Stmts = append(consts, block.Stmts...)
		root.Data = block
	}
	if cfg.IsFeatureEnabled(config.FeatFoldConsts) {
		root = ast.FoldConstants(root)
	}
	require.NoError(t, resolver.NewResolver(cfg).Resolve(root))

	buf, err := NewBackend(cfg).Generate(root, cfg)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func mustTranslate(t *testing.T, src string, cfg *config.Config) string {
	t.Helper()
	out, err := translate(t, src, cfg)
	require.NoError(t, err)
	return out
}

func TestNewBackendFollowsTarget(t *testing.T) {
	src := "int main(void) { return 0; }\n"

	java := mustTranslate(t, src, quietConfig(config.TargetJava))
	assert.True(t, strings.HasPrefix(java, "public class Main {"))

	cpp := mustTranslate(t, src, quietConfig(config.TargetCpp))
	assert.True(t, strings.HasPrefix(cpp, "int main() {"))
}
