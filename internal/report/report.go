// Package report writes devices and topology trees for humans or scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/kriansa/labelmount/internal/blkid"
	"github.com/kriansa/labelmount/internal/lsblk"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ValidateFormat rejects unknown output formats.
func ValidateFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (use %s, %s or %s)", format, FormatTable, FormatJSON, FormatYAML)
	}
}

// Devices writes devices in the given format.
func Devices(w io.Writer, devices []blkid.Device, format string) error {
	if devices == nil {
		devices = []blkid.Device{}
	}
	switch format {
	case FormatTable:
		_, err := io.WriteString(w, blkid.RenderTable(devices))
		return err
	default:
		return encode(w, devices, format)
	}
}

// Tree writes the block device topology in the given format. The table form
// indents children under their parent and shows sizes in IEC units.
func Tree(w io.Writer, tree *lsblk.Tree, format string) error {
	if format != FormatTable {
		return encode(w, tree, format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMAJ:MIN\tSIZE\tRO\tTYPE\tMOUNTPOINTS")
	tree.Walk(func(n *lsblk.Node, depth int) {
		name := n.Name
		if depth > 0 {
			name = strings.Repeat("  ", depth-1) + "└─" + name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n",
			name, n.MajMin, n.Size, n.ReadOnly, n.Type, strings.Join(n.Mounted(), ","))
	})
	return tw.Flush()
}

func encode(w io.Writer, v any, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return ValidateFormat(format)
	}
}
