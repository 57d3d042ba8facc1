package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/prism/internal/model"
)

var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarn      = lipgloss.Color("214") // Orange
	colorError     = lipgloss.Color("196") // Red
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHighlight)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(colorPrimary).
			Padding(0, 1)

	sourceStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	phraseStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			PaddingLeft(4)
)

const (
	sourceWidth = 18
	titleWidth  = 48
	phraseWidth = 72
	maxPhrases  = 3
)

// RenderAnalysis formats a run result for the terminal.
func RenderAnalysis(res *model.AnalysisResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Prism analysis: %q", res.Query)))
	b.WriteString("\n")

	if res.NoArticles {
		b.WriteString(mutedStyle.Render(res.Message))
		b.WriteString("\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%s, %s\n", plural(res.TotalArticles, "article"), plural(len(res.Clusters), "cluster"))
	if len(res.Clusters) == 0 {
		b.WriteString(mutedStyle.Render("No story had coverage from more than one article."))
		b.WriteString("\n")
	}

	for i, cr := range res.Clusters {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("Cluster %d  %s", i+1, shortID(cr.ClusterID))))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s, %s\n", plural(cr.ArticlesCount, "article"), plural(cr.FactsCount, "fact"))
		b.WriteString(biasTable(cr.BiasResults))
	}
	return b.String()
}

func biasTable(results []model.BiasResult) string {
	var b strings.Builder
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s  %6s  %6s  %6s  %6s  %7s",
		pad("SOURCE", sourceWidth), "TONE", "LEX", "OMIT", "BIAS", "TRANSP")))
	b.WriteString("\n")
	for _, r := range results {
		b.WriteString(sourceStyle.Render(pad(r.Source, sourceWidth)))
		fmt.Fprintf(&b, "  %+6.2f  %6.2f  %6.2f  %s  %7.1f",
			r.Tone, r.LexicalBias, r.Omission, biasStyle(r.BiasIndex).Render(fmt.Sprintf("%6.1f", r.BiasIndex)), r.Transparency)
		if r.MissingFacts > 0 {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  missing %d", r.MissingFacts)))
		}
		b.WriteString("\n")
		for i, p := range r.LoadedPhrases {
			if i == maxPhrases {
				break
			}
			b.WriteString(phraseStyle.Render(fmt.Sprintf("[%s] %s", p.Type, runewidth.Truncate(p.Phrase, phraseWidth, "…"))))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderCluster formats a stored cluster with its members.
func RenderCluster(v ClusterView) string {
	c := v.Cluster
	var b strings.Builder
	b.WriteString(headerStyle.Render("Cluster " + c.ID))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Query: %s\n", c.Query)
	fmt.Fprintf(&b, "Created: %s\n", humanize.Time(c.CreatedAt))

	if c.FactSummary != "" {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Summary"))
		b.WriteString("\n")
		b.WriteString(c.FactSummary)
		b.WriteString("\n")
	}

	if len(c.Facts) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Facts"))
		b.WriteString("\n")
		for _, f := range c.Facts {
			fmt.Fprintf(&b, "%s %s %s\n", statusStyle(f.Status).Render(string(f.Status)), f.Statement,
				mutedStyle.Render(plural(len(f.Sources), "source")))
		}
	}

	if len(c.FrameSummaries) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Framing"))
		b.WriteString("\n")
		for _, fs := range c.FrameSummaries {
			b.WriteString(sourceStyle.Render(pad(fs.Source, sourceWidth)))
			fmt.Fprintf(&b, "  tone %+.2f  bias %s  transparency %.1f\n",
				fs.Tone, biasStyle(fs.BiasIndex).Render(fmt.Sprintf("%.1f", fs.BiasIndex)), fs.Transparency)
		}
	}

	if len(v.Articles) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Articles"))
		b.WriteString("\n")
		for _, a := range v.Articles {
			marker := " "
			if a.ID == c.CanonicalArticleID {
				marker = "*"
			}
			fmt.Fprintf(&b, "%s %s  %s  %s\n", marker,
				sourceStyle.Render(pad(a.Source, sourceWidth)),
				pad(a.Title, titleWidth),
				mutedStyle.Render(published(a.PublishedAt)))
		}
	}
	return b.String()
}

// RenderArticle formats one stored article.
func RenderArticle(a *model.Article) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(a.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s\n", sourceStyle.Render(a.Source), mutedStyle.Render(published(a.PublishedAt)))
	if a.HasAuthor() {
		fmt.Fprintf(&b, "By %s\n", a.Author)
	}
	fmt.Fprintf(&b, "%s\n", a.URL)
	fmt.Fprintf(&b, "ID %s, %s, %s\n", a.ID, plural(len(strings.Fields(a.Text)), "word"), plural(len(a.Chunks), "chunk"))
	if a.ClusterID != "" {
		fmt.Fprintf(&b, "Cluster %s\n", a.ClusterID)
	}
	if sc := a.Scores; sc != nil {
		fmt.Fprintf(&b, "Tone %+.2f  Lexical %.2f  Omission %.2f  Consistency %.2f  Bias %s\n",
			sc.Tone, sc.LexicalBias, sc.Omission, sc.Consistency,
			biasStyle(sc.BiasIndex).Render(fmt.Sprintf("%.1f", sc.BiasIndex)))
	}
	return b.String()
}

// RenderClusters formats a cluster listing, newest first as given.
func RenderClusters(list []model.Cluster) string {
	if len(list) == 0 {
		return mutedStyle.Render("No clusters.") + "\n"
	}
	var b strings.Builder
	for _, c := range list {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			c.ID,
			mutedStyle.Render(pad(humanize.Time(c.CreatedAt), 14)),
			pad(c.Query, 24),
			plural(len(c.Facts), "fact"))
	}
	return b.String()
}

func biasStyle(v float64) lipgloss.Style {
	switch {
	case v >= 60:
		return lipgloss.NewStyle().Foreground(colorError).Bold(true)
	case v >= 30:
		return lipgloss.NewStyle().Foreground(colorWarn)
	default:
		return lipgloss.NewStyle().Foreground(colorSuccess)
	}
}

func statusStyle(s model.FactStatus) lipgloss.Style {
	switch s {
	case model.FactSupported:
		return lipgloss.NewStyle().Foreground(colorSuccess)
	case model.FactContradicted:
		return lipgloss.NewStyle().Foreground(colorError)
	}
	return mutedStyle
}

// pad truncates or right-pads s to exactly width cells.
func pad(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

func published(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "undated"
	}
	return humanize.Time(*t)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
