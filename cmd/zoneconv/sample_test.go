package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyuri/zoneconv/internal/document"
	"github.com/dyuri/zoneconv/internal/event"
)

func decodeSample(t *testing.T, build func(*bytes.Buffer) error, opts ...document.Option) (*event.Recorder, *document.Report) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, build(&buf))

	l := logrus.New()
	l.SetOutput(io.Discard)
	rec := &event.Recorder{}
	opts = append([]document.Option{document.WithLogger(l), document.WithStrict(true)}, opts...)
	report, err := document.Decode(context.Background(), bytes.NewReader(buf.Bytes()), int64(buf.Len()), rec, opts...)
	require.NoError(t, err)
	return rec, report
}

func TestSampleWord(t *testing.T) {
	rec, report := decodeSample(t, sampleWord)

	assert.Equal(t, 2, report.Pages)
	assert.Empty(t, report.Failures)
	assert.Empty(t, report.MergeErrors)
	assert.Len(t, rec.Filter(event.TypeOpenNote), 1)
	assert.Len(t, rec.Filter(event.TypeTab), 1)
	assert.Contains(t, rec.Text(), "Sample document")
	assert.Contains(t, rec.Text(), "Footnotes are emitted")
}

func TestSampleDraw(t *testing.T) {
	rec, report := decodeSample(t, sampleDraw)

	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 8, report.Shapes)
	assert.Empty(t, report.Failures)

	pics := rec.Filter(event.TypePicture)
	require.Len(t, pics, 1)
	require.NotNil(t, pics[0].Picture)
	assert.Equal(t, 8, pics[0].Picture.Width)
	assert.Len(t, rec.Filter(event.TypeOpenCell), 4)
}

func TestSampleAux(t *testing.T) {
	aux, err := sampleAux()
	require.NoError(t, err)

	meta, err := document.ReadAux(bytes.NewReader(aux), int64(len(aux)), 10000, logrus.New())
	require.NoError(t, err)
	assert.Equal(t, []string{"sample", "draft"}, meta.Labels)
	require.NotNil(t, meta.Print)
	assert.InDelta(t, 612, meta.Print.PaperWidth, 1e-9)
	require.NotNil(t, meta.Window)
}
