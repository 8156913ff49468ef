package assemble

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/scoring"
)

// indicator draws the severity bands as adjacent cells with a marker under
// the active one.
func indicator(bands []scoring.Band, active int) string {
	const cell = 30
	width := cell * len(bands)
	label := "score band"
	if active >= 0 && active < len(bands) {
		label = "score band: " + bands[active].Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg width="%d" height="33" viewBox="0 0 %d 33" fill="none" xmlns="http://www.w3.org/2000/svg" role="img" aria-label="%s">`, width, width, label)
	for i, band := range bands {
		color := band.Color
		if color == "" {
			color = "#999999"
		}
		x := i * cell
		fmt.Fprintf(&b, "\n  <path d=\"M%d 0H%dV20H%dV0Z\" fill=\"%s\"/>", x, x+cell, x, color)
	}
	if active >= 0 && active < len(bands) {
		c := float64(active*cell) + cell/2.0
		fmt.Fprintf(&b,
			"\n  <path fill-rule=\"evenodd\" clip-rule=\"evenodd\" d=\"M%s 14.739C%s 14.739 %s 28.9636 %s 30.7396C%s 32.5061 %s 32.35 %s 30.7396C%s 28.9392 %s 14.739 %s 14.739Z\" fill=\"black\"/>",
			num(c), num(c+1.8339), num(c+8.9458), num(c+7.9999), num(c+7.0587), num(c-7.1408), num(c-8), num(c-8.9602), num(c-1.7222), num(c),
		)
	}
	b.WriteString("\n  </svg>")
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
