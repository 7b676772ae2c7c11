package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFormat(t *testing.T) {
	parts, err := SplitFormat("x=%d, y=%5.2f!\n")
	require.NoError(t, err)
	require.Len(t, parts, 5)

	assert.Equal(t, FormatSpec{Text: "x="}, parts[0])
	assert.Equal(t, FormatSpec{Text: "%d", Verb: 'd'}, parts[1])
	assert.Equal(t, FormatSpec{Text: ", y="}, parts[2])
	assert.Equal(t, FormatSpec{Text: "%5.2f", Verb: 'f'}, parts[3])
	assert.Equal(t, FormatSpec{Text: "!\n"}, parts[4])
}

func TestSplitFormatLiteralOnly(t *testing.T) {
	parts, err := SplitFormat("hello\n")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.True(t, parts[0].IsLiteral())
	assert.Equal(t, "hello\n", parts[0].Text)
}

func TestSplitFormatPercentEscape(t *testing.T) {
	parts, err := SplitFormat("100%% of %d\n")
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, "100% of ", parts[0].Text)
	assert.Equal(t, byte('d'), parts[1].Verb)
	assert.Equal(t, "\n", parts[2].Text)
}

func TestSplitFormatModifiers(t *testing.T) {
	cases := []struct {
		format string
		verb   byte
		long   bool
	}{
		{"%ld", 'd', true},
		{"%lld", 'd', true},
		{"%hd", 'd', false},
		{"%lu", 'u', true},
		{"%lf", 'f', true},
		{"%-8s", 's', false},
		{"%08x", 'x', false},
		{"%+d", 'd', false},
		{"%.3g", 'g', false},
	}
	for _, c := range cases {
		t.Run(c.format, func(t *testing.T) {
			parts, err := SplitFormat(c.format)
			require.NoError(t, err)
			require.Len(t, parts, 1)
			assert.Equal(t, c.format, parts[0].Text)
			assert.Equal(t, c.verb, parts[0].Verb)
			assert.Equal(t, c.long, parts[0].Long)
		})
	}
}

func TestSplitFormatErrors(t *testing.T) {
	_, err := SplitFormat("%")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ends inside a conversion")

	_, err = SplitFormat("%5.2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ends inside a conversion")

	_, err = SplitFormat("%q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format specifier '%q'")

	_, err = SplitFormat("%p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format specifier '%p'")
}

func TestPlain(t *testing.T) {
	cases := []struct {
		format string
		plain  bool
	}{
		{"%d", true},
		{"%s", true},
		{"%ld", true},
		{"%5d", false},
		{"%-8s", false},
		{"%lld", false},
		{"%.2f", false},
	}
	for _, c := range cases {
		parts, err := SplitFormat(c.format)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, c.plain, parts[0].Plain(), c.format)
	}
}

func TestJavaText(t *testing.T) {
	cases := []struct {
		format string
		want   string
	}{
		{"%d", "%d"},
		{"%u", "%d"},
		{"%i", "%d"},
		{"%ld", "%d"},
		{"%lu", "%d"},
		{"%hd", "%d"},
		{"%5.2f", "%5.2f"},
		{"%lf", "%f"},
		{"%-8s", "%-8s"},
		{"%x", "%x"},
		{"%c", "%c"},
	}
	for _, c := range cases {
		parts, err := SplitFormat(c.format)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, c.want, parts[0].JavaText(), c.format)
	}
}

func TestScannerMethod(t *testing.T) {
	cases := []struct {
		format string
		want   string
		ok     bool
	}{
		{"%d", "nextInt()", true},
		{"%i", "nextInt()", true},
		{"%u", "nextInt()", true},
		{"%ld", "nextLong()", true},
		{"%f", "nextFloat()", true},
		{"%lf", "nextDouble()", true},
		{"%e", "nextFloat()", true},
		{"%s", "next()", true},
		{"%c", "next().charAt(0)", true},
		{"%x", "", false},
		{"%o", "", false},
	}
	for _, c := range cases {
		parts, err := SplitFormat(c.format)
		require.NoError(t, err)
		require.Len(t, parts, 1)
		got, ok := ScannerMethod(parts[0])
		assert.Equal(t, c.ok, ok, c.format)
		assert.Equal(t, c.want, got, c.format)
	}
}

func TestVerbs(t *testing.T) {
	parts, err := SplitFormat("a %d b %s c")
	require.NoError(t, err)
	specs := Verbs(parts)
	require.Len(t, specs, 2)
	assert.Equal(t, byte('d'), specs[0].Verb)
	assert.Equal(t, byte('s'), specs[1].Verb)
}
