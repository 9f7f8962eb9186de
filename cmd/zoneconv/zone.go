package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dyuri/zoneconv/internal/zone"
)

// zone command
var zoneCmd = &cobra.Command{
	Use:   "zone <input> <id>",
	Short: "Hex-dump a single zone",
	Long: `Print the directory entry of one zone and a hex dump of its bytes.

With --decoded the zone is also decoded and printed as JSON. Invalid
zones are dumped when their range is still readable.`,
	Args: cobra.ExactArgs(2),
	RunE: runZone,
}

func init() {
	zoneCmd.Flags().Bool("decoded", false, "Also print the decoded zone as JSON")
}

func runZone(cmd *cobra.Command, args []string) error {
	decoded, _ := cmd.Flags().GetBool("decoded")
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid zone id %q: %w", args[1], err)
	}

	in, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	d, err := in.open()
	if err != nil {
		return err
	}

	e := d.Dir.Zone(id)
	if e == nil {
		e = findInvalid(d.Dir, id)
	}
	if e == nil {
		return fmt.Errorf("zone %d not found", id)
	}

	fmt.Printf("Zone %d: %s (tag 0x%04x, version %d)\n", e.ID, d.Format.Registry.Name(e.Tag), e.Tag, e.Version)
	fmt.Printf("  Range:  0x%08x-0x%08x (%d bytes)\n", e.Begin, e.End, e.Len())
	if e.Flags != 0 {
		fmt.Printf("  Flags:  0x%08x\n", e.Flags)
	}
	if !e.Valid() {
		fmt.Printf("  Invalid: %s\n", e.Reason)
	}
	fmt.Println()

	raw, err := d.Dir.Raw(e)
	if err != nil {
		return err
	}
	fmt.Print(hex.Dump(raw))

	if !decoded || !e.Valid() {
		return nil
	}
	v, err := d.Resolver.Resolve(id)
	if err != nil {
		return fmt.Errorf("decode zone %d: %w", id, err)
	}
	fmt.Println()
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func findInvalid(dir *zone.Directory, id int) *zone.Entry {
	for _, e := range dir.Invalid() {
		if e.ID == id {
			return e
		}
	}
	return nil
}
