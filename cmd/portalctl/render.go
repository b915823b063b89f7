package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/romariotrain/visa-docs/internal/client"
)

var (
	styleGray  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleGreen = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleBold  = lipgloss.NewStyle().Bold(true)
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	styleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(72)
)

// renderCards draws one card per category in the order the API lists them.
func renderCards(cats []client.Category, grouped map[string][]client.Media) string {
	cards := make([]string, 0, len(cats))
	for _, cat := range cats {
		files := grouped[cat.Key]

		counter := fmt.Sprintf("%d/%d", len(files), cat.MaxFiles)
		if cat.MaxFiles > 0 && len(files) > cat.MaxFiles {
			counter = styleWarn.Render(counter)
		} else if cat.MaxFiles > 0 && len(files) == cat.MaxFiles {
			counter = styleGreen.Render(counter)
		}

		var b strings.Builder
		b.WriteString(styleBold.Render(cat.Label) + "  " + counter + "\n")
		b.WriteString(styleGray.Render(cat.Description))
		if len(files) == 0 {
			b.WriteString("\n" + styleGray.Render("no files yet"))
		}
		for _, m := range files {
			fmt.Fprintf(&b, "\n#%d  %s\n    %s", m.ID, m.OriginalName, styleGray.Render(m.URL))
		}
		cards = append(cards, styleCard.Render(b.String()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// progressBar redraws a single line on w as bytes are sent.
type progressBar struct {
	w    io.Writer
	bar  progress.Model
	last int
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{
		w:    w,
		bar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		last: -1,
	}
}

func (p *progressBar) update(sent, total int64) {
	if total <= 0 {
		return
	}
	pct := int(sent * 100 / total)
	if pct == p.last {
		return
	}
	p.last = pct
	fmt.Fprintf(p.w, "\r%s", p.bar.ViewAs(float64(sent)/float64(total)))
}

func (p *progressBar) done() {
	if p.last >= 0 {
		fmt.Fprintln(p.w)
	}
}
