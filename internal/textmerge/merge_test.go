package textmerge

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyuri/zoneconv/internal/model"
)

type collector struct {
	out []string
}

func (c *collector) Text(s string) { c.out = append(c.out, "T:"+s) }

func (c *collector) Control(ctl Control, pos int) {
	c.out = append(c.out, fmt.Sprintf("C:%s@%d", ctl, pos))
}

func (c *collector) Apply(a Annotation) {
	soft := ""
	if a.Soft {
		soft = "~"
	}
	c.out = append(c.out, fmt.Sprintf("A:%s%s/%d@%d", a.Kind, soft, a.Ref, a.Pos))
}

func quiet() Option {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return WithLogger(l)
}

func TestMergeDisjointStreams(t *testing.T) {
	m := New([]byte("hello world"), MacEscapes, quiet())
	m.Add("chars", KindCharStyle, []Annotation{{Pos: 0, Ref: 1}, {Pos: 6, Ref: 2}})
	m.Add("paras", KindParagraph, []Annotation{{Pos: 3, Ref: 9}})

	var c collector
	require.NoError(t, m.Run(&c))
	assert.Equal(t, []string{
		"A:char-style/1@0",
		"T:hel",
		"A:paragraph/9@3",
		"T:lo ",
		"A:char-style/2@6",
		"T:world",
	}, c.out)
}

func TestMergeTieOrderIsDeterministic(t *testing.T) {
	run := func(charsFirst bool) []string {
		m := New([]byte("abcdefgh"), MacEscapes, quiet())
		chars := []Annotation{{Pos: 4, Ref: 3}}
		breaks := []Annotation{{Pos: 4, Sub: int(model.BreakLine)}}
		tokens := []Annotation{{Pos: 4, Ref: 7, Sub: int(model.TokenDate)}}
		if charsFirst {
			m.Add("chars", KindCharStyle, chars)
			m.Add("tokens", KindToken, tokens)
			m.Add("breaks", KindBreak, breaks)
		} else {
			m.Add("breaks", KindBreak, breaks)
			m.Add("tokens", KindToken, tokens)
			m.Add("chars", KindCharStyle, chars)
		}
		var c collector
		require.NoError(t, m.Run(&c))
		return c.out
	}

	want := []string{
		"T:abcd",
		"A:break/0@4",
		"A:token/7@4",
		"A:char-style/3@4",
		"T:efgh",
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, run(i%2 == 0))
	}
}

func TestMergeAbortsOnBackwardsStream(t *testing.T) {
	m := New([]byte("hello world"), MacEscapes, quiet())
	m.Add("chars", KindCharStyle, []Annotation{{Pos: 5, Ref: 1}, {Pos: 2, Ref: 2}})

	var c collector
	err := m.Run(&c)
	assert.ErrorIs(t, err, model.ErrMalformed)
	assert.Equal(t, []string{
		"T:hello",
		"A:char-style/1@5",
		"T: world",
	}, c.out)
}

func TestMergeTokenAbsorbsPlaceholder(t *testing.T) {
	m := New([]byte("ab\x1fcd\x1f"), MacEscapes, quiet())
	m.Add("tokens", KindToken, []Annotation{
		{Pos: 0, Ref: 4, Sub: int(model.TokenPageNumber)},
		{Pos: 2, Ref: 5, Sub: int(model.TokenFootnote)},
	})

	var c collector
	require.NoError(t, m.Run(&c))
	assert.Equal(t, []string{
		"A:token/4@0",
		"T:ab",
		"A:token/5@2",
		"T:cd",
		"C:placeholder@5",
	}, c.out)
}

func TestMergeTokenBeforeCharStyleAtPlaceholder(t *testing.T) {
	m := New([]byte("ab\x1fcd"), MacEscapes, quiet())
	m.Add("chars", KindCharStyle, []Annotation{{Pos: 2, Ref: 9}})
	m.Add("tokens", KindToken, []Annotation{{Pos: 2, Ref: 5, Sub: int(model.TokenFootnote)}})

	var c collector
	require.NoError(t, m.Run(&c))
	assert.Equal(t, []string{
		"T:ab",
		"A:token/5@2",
		"A:char-style/9@2",
		"T:cd",
	}, c.out)
}

func TestMergePageBreakByteUnderBreakAnnotation(t *testing.T) {
	m := New([]byte("ab\x0ccd\x0c"), MacEscapes, quiet())
	m.Add("breaks", KindBreak, []Annotation{
		{Pos: 2, Sub: int(model.BreakPage)},
		{Pos: 5, Sub: int(model.BreakLine)},
	})

	var c collector
	require.NoError(t, m.Run(&c))
	assert.Equal(t, []string{
		"T:ab",
		"A:break/0@2",
		"T:cd",
		"A:break/0@5",
		"C:page@5",
	}, c.out)
}

func TestMergeSoftBreaks(t *testing.T) {
	m := New([]byte("ab\x0ccd"), MacEscapes, quiet())
	m.AddSoftBreaks([]int{4, 2, 4})

	var c collector
	require.NoError(t, m.Run(&c))
	assert.Equal(t, []string{
		"T:ab",
		"C:page@2",
		"T:c",
		"A:break~/0@4",
		"T:d",
	}, c.out)
}

func TestMergeSoftBreakYieldsToForcedBreak(t *testing.T) {
	m := New([]byte("abcd"), MacEscapes, quiet())
	m.Add("breaks", KindBreak, []Annotation{{Pos: 2, Sub: int(model.BreakPage)}})
	m.AddSoftBreaks([]int{2})

	var c collector
	require.NoError(t, m.Run(&c))
	assert.Equal(t, []string{"T:ab", "A:break/0@2", "T:cd"}, c.out)
}

func TestMergePCEscapesAndTail(t *testing.T) {
	m := New([]byte("a\tb\r\nc"), PCEscapes, quiet(), WithDecoder(func(b []byte) string {
		return "<" + string(b) + ">"
	}))
	m.Add("chars", KindCharStyle, []Annotation{{Pos: 100, Ref: 8}})

	var c collector
	require.NoError(t, m.Run(&c))
	assert.Equal(t, []string{
		"T:<a>",
		"C:tab@1",
		"T:<b>",
		"C:paragraph@4",
		"T:<c>",
		"A:char-style/8@100",
	}, c.out)
}
