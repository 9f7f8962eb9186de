package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/pkg/xattr"
	"github.com/spf13/cobra"

	"github.com/dyuri/zoneconv/internal/document"
)

// info command
var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Display container information",
	Long: `Display metadata and statistics about a container.

Shows the format, byte order, codepage, directory statistics per zone type,
file times and, when present, the Finder type and creator codes.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().Bool("json", false, "Output as JSON")
	infoCmd.Flags().Bool("brief", false, "Show only summary")
}

// Extended attribute names holding the classic Finder info block
var finderInfoAttrs = []string{"com.apple.FinderInfo", "user.com.apple.FinderInfo"}

// fileInfo is what info reports about one container
type fileInfo struct {
	File        string            `json:"file"`
	Format      string            `json:"format"`
	Signature   string            `json:"signature"`
	ByteOrder   string            `json:"byteOrder"`
	Version     int               `json:"version"`
	CodePage    int               `json:"codepage"`
	RootZone    int               `json:"rootZone"`
	Zones       int               `json:"zones"`
	Invalid     int               `json:"invalid"`
	Counts      map[string]int    `json:"counts"`
	FileSize    int64             `json:"fileSize"`
	Times       map[string]string `json:"times,omitempty"`
	FinderType  string            `json:"finderType,omitempty"`
	FinderOwner string            `json:"finderCreator,omitempty"`
	Labels      []string          `json:"labels,omitempty"`
	Paper       string            `json:"paper,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")
	brief, _ := cmd.Flags().GetBool("brief")

	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	d, err := in.open()
	if err != nil {
		return err
	}
	info := collectInfo(inputPath, in.size, d)

	// Output based on format
	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}
	outputInfoText(info, brief)
	return nil
}

func collectInfo(path string, size int64, d *document.Document) *fileInfo {
	info := &fileInfo{
		File:      path,
		Format:    d.Format.Name,
		Signature: d.Header.Signature,
		ByteOrder: "big-endian",
		Version:   int(d.Header.Version),
		CodePage:  int(d.Header.CodePage),
		RootZone:  int(d.Header.RootZone),
		Zones:     len(d.Dir.Entries()),
		Invalid:   len(d.Dir.Invalid()),
		Counts:    make(map[string]int),
		FileSize:  size,
	}
	if d.Header.ByteOrder == binary.LittleEndian {
		info.ByteOrder = "little-endian"
	}
	if info.CodePage == 0 {
		info.CodePage = d.Format.CodePage
	}
	for _, e := range d.Dir.Entries() {
		info.Counts[d.Format.Registry.Name(e.Tag)]++
	}
	if d.Meta != nil {
		info.Labels = d.Meta.Labels
		if p := d.Meta.Print; p != nil {
			info.Paper = fmt.Sprintf("%gx%g pt", p.PaperWidth, p.PaperHeight)
			if p.Landscape {
				info.Paper += " landscape"
			}
		}
	}

	if ts, err := times.Stat(path); err == nil {
		info.Times = map[string]string{
			"modified": ts.ModTime().Format(time.RFC3339),
			"accessed": ts.AccessTime().Format(time.RFC3339),
		}
		if ts.HasChangeTime() {
			info.Times["changed"] = ts.ChangeTime().Format(time.RFC3339)
		}
		if ts.HasBirthTime() {
			info.Times["created"] = ts.BirthTime().Format(time.RFC3339)
		}
	} else {
		d.Log().WithError(err).Debug("file times unavailable")
	}

	for _, name := range finderInfoAttrs {
		fi, err := xattr.Get(path, name)
		if err != nil || len(fi) < 8 {
			continue
		}
		info.FinderType = printable(fi[0:4])
		info.FinderOwner = printable(fi[4:8])
		break
	}
	return info
}

// printable renders a four-character code, escaping control bytes
func printable(b []byte) string {
	return strings.Trim(fmt.Sprintf("%q", string(b)), `"`)
}

func outputInfoText(info *fileInfo, brief bool) {
	if brief {
		// Brief mode: just the counts
		fmt.Printf("%s: %s %s CP=%d Zones=%d Invalid=%d\n",
			info.File, info.Signature, info.ByteOrder, info.CodePage, info.Zones, info.Invalid)
		return
	}

	// Full human-readable output
	fmt.Printf("Container: %s\n", info.File)
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	fmt.Println("Header:")
	fmt.Printf("  Format:           %s (%s)\n", info.Format, info.Signature)
	fmt.Printf("  Byte order:       %s\n", info.ByteOrder)
	fmt.Printf("  Version:          %d\n", info.Version)
	fmt.Printf("  CodePage:         %d (%s)\n", info.CodePage, getCodePageName(info.CodePage))
	fmt.Printf("  Document zone:    %d\n", info.RootZone)
	fmt.Println()

	fmt.Println("Zones:")
	for _, name := range sortedKeys(info.Counts) {
		fmt.Printf("  %-17s %d\n", name+":", info.Counts[name])
	}
	fmt.Printf("  Total:            %d\n", info.Zones)
	if info.Invalid > 0 {
		fmt.Printf("  Invalid:          %d\n", info.Invalid)
	}
	fmt.Println()

	fmt.Printf("File Size:          %s (%d bytes)\n", formatBytes(info.FileSize), info.FileSize)
	for _, k := range []string{"created", "modified", "changed", "accessed"} {
		if v, ok := info.Times[k]; ok {
			fmt.Printf("  %-17s %s\n", strings.ToUpper(k[:1])+k[1:]+":", v)
		}
	}
	if info.FinderType != "" {
		fmt.Printf("Finder type/creator: %s/%s\n", info.FinderType, info.FinderOwner)
	}
	if info.Paper != "" {
		fmt.Printf("Paper:              %s\n", info.Paper)
	}
	if len(info.Labels) > 0 {
		fmt.Printf("Labels:             %s\n", strings.Join(info.Labels, ", "))
	}
}

func getCodePageName(cp int) string {
	switch cp {
	case 10000:
		return "Mac OS Roman"
	case 1252:
		return "Windows-1252 (Western European)"
	case 1250:
		return "Windows-1250 (Central European)"
	case 1251:
		return "Windows-1251 (Cyrillic)"
	case 437:
		return "CP437 (IBM PC)"
	case 65001:
		return "UTF-8"
	default:
		return "Unknown"
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
