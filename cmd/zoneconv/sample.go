package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	zbin "github.com/dyuri/zoneconv/internal/binary"
	"github.com/dyuri/zoneconv/internal/document"
	"github.com/dyuri/zoneconv/internal/geometry"
	"github.com/dyuri/zoneconv/internal/model"
	"github.com/dyuri/zoneconv/internal/text"
)

// sample command
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a sample container",
	Long: `Write a small word-processor or drawing container that exercises
styles, notes, shapes, groups, tables and pictures. Useful as a fixture
for the other commands.`,
	Args: cobra.NoArgs,
	RunE: runSample,
}

func init() {
	sampleCmd.Flags().StringP("output", "o", "", "Output file (required)")
	sampleCmd.Flags().String("kind", "draw", "Container kind (word, draw)")
	sampleCmd.Flags().String("aux-output", "", "Also write an auxiliary metadata container")
	sampleCmd.MarkFlagRequired("output")
}

const sampleIcon = `SampleIcon="8 8 3 1"
"! c #1f4e9c"
"# c #f2c230"
". c none"
"..!!!!.."
".!####!."
"!##!!##!"
"!#!##!#!"
"!#!##!#!"
"!##!!##!"
".!####!."
"..!!!!.."
`

func runSample(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	kind, _ := cmd.Flags().GetString("kind")
	auxOutput, _ := cmd.Flags().GetString("aux-output")

	var buf bytes.Buffer
	var err error
	switch kind {
	case "word":
		err = sampleWord(&buf)
	case "draw":
		err = sampleDraw(&buf)
	default:
		return fmt.Errorf("unknown sample kind %q (use word or draw)", kind)
	}
	if err != nil {
		return fmt.Errorf("build sample: %w", err)
	}
	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s sample to %s (%s)\n", kind, outputPath, formatBytes(int64(buf.Len())))

	if auxOutput != "" {
		aux, err := sampleAux()
		if err != nil {
			return fmt.Errorf("build aux container: %w", err)
		}
		if err := os.WriteFile(auxOutput, aux, 0o644); err != nil {
			return fmt.Errorf("write aux file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote auxiliary container to %s\n", auxOutput)
	}
	return nil
}

func sampleWord(buf *bytes.Buffer) error {
	b, err := document.NewBuilder(buf, "ZWPD")
	if err != nil {
		return err
	}
	font := b.Font(3, "Geneva")
	ink := b.Color(model.Color{R: 0x1f, G: 0x4e, B: 0x9c, Alpha: 255})
	plain := b.CharStyle(model.CharStyle{FontRef: int(font), Size: 12, ColorRef: int(ink)})
	heading := b.CharStyle(model.CharStyle{FontRef: int(font), Size: 18, Flags: model.Bold, ColorRef: int(ink)})

	body := b.ParaStyle(model.ParaStyle{
		Mask:        model.ParaMaskAlign | model.ParaMaskSpacing | model.ParaMaskLine,
		Align:       model.AlignJustify,
		After:       6,
		LineSpacing: 120,
		Tabs:        []model.Tab{{Pos: 72}},
	})
	title := b.ParaStyle(model.ParaStyle{ParentRef: int(body), Mask: model.ParaMaskAlign, Align: model.AlignCenter})

	noteText := b.Text(model.TextZone{Text: b.Encode("Footnotes are emitted where their anchor sits.")})
	note := b.Note(model.Note{Kind: model.Footnote, TextRef: int(noteText)})

	head := "Sample document\r"
	para := "First page text\twith a tab and a note\x1f.\r"
	next := "Second page, page \x1f.\r"
	content := head + para + "\x0c" + next
	main := b.Text(model.TextZone{
		Text: b.Encode(content),
		CharRuns: []model.Run{
			{Pos: 0, Ref: int(heading)},
			{Pos: len(head), Ref: int(plain)},
		},
		ParaRuns: []model.Run{
			{Pos: 0, Ref: int(title)},
			{Pos: len(head), Ref: int(body)},
		},
		Tokens: []model.Token{
			{Pos: len(head) + strings.IndexByte(para, 0x1f), Kind: model.TokenFootnote, Ref: int(note)},
			{Pos: len(head) + len(para) + 1 + strings.IndexByte(next, 0x1f), Kind: model.TokenPageNumber},
		},
	})
	b.Document(model.DocumentZone{
		PageWidth:   612,
		PageHeight:  792,
		Margins:     [4]float64{72, 72, 72, 72},
		Pages:       2,
		MainText:    int(main),
		DefaultPara: int(body),
	})
	return b.Close()
}

func sampleDraw(buf *bytes.Buffer) error {
	b, err := document.NewBuilder(buf, "ZDRW")
	if err != nil {
		return err
	}
	blue := b.Color(model.Color{R: 0x1f, G: 0x4e, B: 0x9c, Alpha: 255})
	pale := b.Tint(blue, 25)
	outline := b.GraphicStyle(model.GraphicStyle{LineRef: int(blue), FillRef: int(pale), LineWidth: 1.5})
	stroke := b.GraphicStyle(model.GraphicStyle{LineRef: int(blue), LineWidth: 2, Flags: model.NoFill})

	icon, err := text.ReadXPM(strings.NewReader(sampleIcon))
	if err != nil {
		return err
	}
	pic, err := b.Picture(icon, model.EncodingPackBits)
	if err != nil {
		return err
	}

	caption := b.Text(model.TextZone{Text: b.Encode("Zone container sample")})
	cells := make([]int, 0, 4)
	for _, s := range []string{"Shape", "Count", "Rect", "2"} {
		cells = append(cells, int(b.Text(model.TextZone{Text: b.Encode(s)})))
	}
	table := b.Table(model.Table{Rows: 2, Cols: 2, ColWidths: []float64{80, 40}, Cells: cells})

	rect := b.Shape(model.Shape{
		Kind:     model.ShapeRect,
		StyleRef: int(outline),
		Box:      geometry.NewRect(72, 72, 252, 162),
		Page:     1,
		Radius:   8,
	})
	tilted := b.Shape(model.Shape{
		Kind:      model.ShapeRect,
		StyleRef:  int(outline),
		Box:       geometry.NewRect(300, 72, 400, 122),
		Page:      1,
		Transform: geometry.RotateAbout(math.Pi/6, geometry.Point{X: 350, Y: 97}),
	})
	line := b.Shape(model.Shape{Kind: model.ShapeLine, StyleRef: int(stroke), Box: geometry.NewRect(0, 0, 60, 0)})
	ellipse := b.Shape(model.Shape{Kind: model.ShapeEllipse, StyleRef: int(outline), Box: geometry.NewRect(0, 10, 60, 50)})
	group := b.Shape(model.Shape{
		Kind:      model.ShapeGroup,
		Box:       geometry.NewRect(0, 0, 60, 50),
		Page:      1,
		Transform: geometry.Translate(72, 200),
		Children:  []int{int(line), int(ellipse)},
	})
	path := b.Shape(model.Shape{
		Kind:     model.ShapePath,
		StyleRef: int(stroke),
		Box:      geometry.NewRect(200, 200, 300, 280),
		Page:     1,
		Nodes: []geometry.Node{
			geometry.Corner(200, 280),
			{Before: geometry.Point{X: 220, Y: 200}, Anchor: geometry.Point{X: 250, Y: 200}, After: geometry.Point{X: 280, Y: 200}},
			geometry.Corner(300, 280),
		},
	})
	picture := b.Shape(model.Shape{Kind: model.ShapePicture, Box: geometry.NewRect(72, 300, 104, 332), Ref: int(pic)})
	textBox := b.Shape(model.Shape{Kind: model.ShapeText, Box: geometry.NewRect(120, 300, 320, 320), Ref: int(caption)})
	grid := b.Shape(model.Shape{Kind: model.ShapeTable, Box: geometry.NewRect(72, 360, 192, 400), Ref: int(table)})
	// Below the first page, anchored by position
	overflow := b.Shape(model.Shape{Kind: model.ShapeEllipse, StyleRef: int(outline), Box: geometry.NewRect(72, 900, 172, 960)})

	b.Document(model.DocumentZone{
		PageWidth:  612,
		PageHeight: 792,
		Pages:      2,
		Shapes: []int{
			int(rect), int(tilted), int(group), int(path),
			int(picture), int(textBox), int(grid), int(overflow),
		},
	})
	return b.Close()
}

func sampleAux() ([]byte, error) {
	prnt := zbin.NewRecord(binary.BigEndian, 10000).
		PutFixed(612).PutFixed(792).
		PutFixed(36).PutFixed(36).PutFixed(36).PutFixed(36).
		PutU8(0)
	wind := zbin.NewRecord(binary.BigEndian, 10000).
		PutFixed(40).PutFixed(40).PutFixed(680).PutFixed(520)
	labl := zbin.NewRecord(binary.BigEndian, 10000).PutU8(2).PutPascal("sample").PutPascal("draft")

	var out []byte
	for _, r := range []struct {
		tag  string
		data []byte
	}{
		{"PRNT", prnt.Bytes()},
		{"WIND", wind.Bytes()},
		{"LABL", labl.Bytes()},
	} {
		rec, err := document.AuxRecord(r.tag, r.data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec...)
	}
	return out, nil
}
