package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vsinha/costing/pkg/domain/entities"
)

// PrintCogsTree writes the breakdown indented two spaces per level. Estimated
// nodes are flagged with ⚠ ESTIMATE and standard-costed nodes with 📊 STANDARD.
func PrintCogsTree(w io.Writer, node *entities.CostNode) error {
	var err error
	node.Walk(func(n *entities.CostNode) {
		if err == nil {
			_, err = fmt.Fprintln(w, treeLine(n))
		}
	})
	return err
}

func treeLine(n *entities.CostNode) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", n.Level))
	b.WriteString(n.SKU)
	if n.Name != "" && n.Name != n.SKU {
		fmt.Fprintf(&b, " (%s)", n.Name)
	}
	if n.Level > 0 {
		fmt.Fprintf(&b, " × %s", n.QuantityPerParent)
	}
	fmt.Fprintf(&b, " @ %s = %s", n.UnitCost.StringFixed(2), n.ExtendedCost.StringFixed(2))

	if n.IsOverhead {
		b.WriteString(" [overhead]")
	}
	if n.CostSource == entities.CostSourceStandard {
		b.WriteString(" 📊 STANDARD")
	}
	if n.HasEstimate {
		b.WriteString(" ⚠ ESTIMATE")
		if n.EstimateReason != "" && n.IsLeaf() {
			fmt.Fprintf(&b, " (%s)", n.EstimateReason)
		}
	}
	return b.String()
}
