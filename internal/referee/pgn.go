package referee

import (
	"fmt"
	"strings"
	"time"
)

func mapResultToPGN(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

// buildPGN renders a game's SAN moves as PGN with a minimal header set.
func buildPGN(g *Game) string {
	if g == nil {
		return ""
	}
	pgnResult := mapResultToPGN(g.Outcome)
	date := g.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}

	var b strings.Builder
	b.WriteString("[Event \"Board\"]\n")
	fmt.Fprintf(&b, "[Site \"%s\"]\n", sanitizePGN(g.ID))
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	if g.StartFEN != "" {
		b.WriteString("[SetUp \"1\"]\n")
		fmt.Fprintf(&b, "[FEN \"%s\"]\n", sanitizePGN(g.StartFEN))
	}
	if m := strings.TrimSpace(g.Method); m != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitizePGN(m))
	}
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", pgnResult)

	for i := 0; i < len(g.MovesSAN); i += 2 {
		fmt.Fprintf(&b, "%d. %s", i/2+1, strings.TrimSpace(g.MovesSAN[i]))
		if i+1 < len(g.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(g.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
