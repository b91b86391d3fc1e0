package infrastructure

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"qcl-datasheet/internal/report"

	"go.uber.org/zap"
)

const latexPreamble = `\documentclass[12pt]{article}
\usepackage[utf8]{inputenc}
\usepackage{graphicx}
\usepackage{geometry}
\usepackage{tabularx}
\usepackage{subcaption}
\usepackage{caption}
\usepackage{amsmath}
\newcolumntype{Y}{>{\raggedright\arraybackslash}p{0.6\textwidth}}
\geometry{margin=2cm}

\begin{document}
\thispagestyle{empty}

\vspace*{4cm}
`

// LaTeXWriter serializes a report Document as a standalone .tex file.
type LaTeXWriter struct {
	logger *zap.Logger
}

func NewLaTeXWriter(logger *zap.Logger) *LaTeXWriter {
	return &LaTeXWriter{logger: logger}
}

func (w *LaTeXWriter) WriteFile(filename string, doc *report.Document) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := w.Write(file, doc); err != nil {
		return err
	}

	w.logger.Info("Datasheet written",
		zap.String("file", filename),
		zap.Int("sections", len(doc.Sections)))
	return nil
}

func (w *LaTeXWriter) Write(out io.Writer, doc *report.Document) error {
	bw := bufio.NewWriter(out)

	bw.WriteString(latexPreamble)
	fmt.Fprintf(bw, "\n\\begin{center}\n    {\\Huge \\textbf{%s}} \\\\[1ex]\n    {\\small \\textit{Characterised by: %s}} \\\\[2ex]\n    {\\large %s}\n\\end{center}\n\n\\vspace{5cm}\n\n",
		report.EscapeLatex(doc.Title), report.EscapeLatex(doc.Author), report.EscapeLatex(doc.Date))

	bw.WriteString("\\section*{Performance Summary}\n")
	writeTable(bw, "|Y|X|", doc.Summary)
	bw.WriteString("\\clearpage\n")

	for _, section := range doc.Sections {
		fmt.Fprintf(bw, "\\section*{%s}\n", section.Title)
		for _, sub := range section.Subsections {
			fmt.Fprintf(bw, "\\subsection*{%s}\n", sub.Title)
			writeTable(bw, "|X|X|", sub.Table)
			bw.WriteString("\\vspace{0.5cm}\n")
			if sub.Figure != nil {
				writeFigure(bw, sub.Figure)
			}
			if sub.Notes != "" {
				fmt.Fprintf(bw, "\n\\vspace{0.5cm}\n\\subsubsection*{Experimental Notes}\n%s\n", sub.Notes)
			}
			bw.WriteString("\\clearpage\n")
		}
	}

	bw.WriteString("\n\\end{document}\n")
	return bw.Flush()
}

func writeTable(w *bufio.Writer, columns string, rows []report.Row) {
	fmt.Fprintf(w, "\\begin{tabularx}{\\textwidth}{%s}\n\\hline\n", columns)
	for _, r := range rows {
		fmt.Fprintf(w, "\\textbf{%s} & %s \\\\\n\\hline\n", report.EscapeLatex(r.Label), r.Value)
	}
	w.WriteString("\\end{tabularx}\n")
}

func writeFigure(w *bufio.Writer, f *report.Figure) {
	w.WriteString("\\begin{figure}[h!]\n\\centering\n")
	if len(f.Files) == 2 {
		for k, file := range f.Files {
			if k > 0 {
				w.WriteString("\\hfill\n")
			}
			sub := ""
			if k < len(f.SubCaptions) {
				sub = f.SubCaptions[k]
			}
			fmt.Fprintf(w, "\\begin{subfigure}{0.48\\textwidth}\n    \\includegraphics[width=\\linewidth]{%s}\n    \\caption{\\small %s}\n\\end{subfigure}\n", file, sub)
		}
	} else {
		for _, file := range f.Files {
			fmt.Fprintf(w, "\\includegraphics[width=0.7\\textwidth]{%s}\n", file)
		}
	}
	fmt.Fprintf(w, "\\caption{\\small %s}\n\\end{figure}\n", f.Caption)
}
