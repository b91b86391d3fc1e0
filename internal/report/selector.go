package report

import (
	"fmt"
	"qcl-datasheet/internal/domain"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	notAvailable = "N/A"
	figuresDir   = "Figures/"
	fixedTemp    = `20~\mathrm{K}`
)

// Selector assembles a Document from the figures that exist and the
// metadata the operator entered.
type Selector struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewSelector(logger *zap.Logger) *Selector {
	return &Selector{logger: logger, now: time.Now}
}

// Select builds the datasheet. A subsection appears only when one of its
// figures exists and a section only when one of its subsections does.
func (s *Selector) Select(available FigureSet, pulsed, cw domain.MetadataMap, params Params, fits FitSource) *Document {
	if fits == nil {
		fits = Captions{}
	}

	doc := &Document{
		Title: fmt.Sprintf("Datasheet: device %s -- %s",
			params.Get("Sample Name", "Unnamed Sample"),
			params.Get("Device Name", "Unnamed Device")),
		Author: params.Get("Author", "Unknown Author"),
		Date:   params.Get("Date", s.now().Format("02-01-2006")),
	}

	doc.Summary = s.summary(doc, pulsed, cw, params, fits)

	for _, mode := range []Mode{Pulsed, CW} {
		meta := pulsed
		if mode == CW {
			meta = cw
		}
		if section, ok := s.section(mode, available, meta, fits); ok {
			doc.Sections = append(doc.Sections, section)
		}
	}

	s.logger.Info("Datasheet content selected",
		zap.Int("sections", len(doc.Sections)),
		zap.Int("summary_rows", len(doc.Summary)))
	return doc
}

// metaValue returns the escaped value of key or def when it is blank.
func metaValue(m domain.MetadataMap, key, def string) string {
	v := m.Get(key, "")
	if v == "" {
		return def
	}
	return EscapeLatex(v)
}

func (s *Selector) summary(doc *Document, pulsed, cw domain.MetadataMap, params Params, fits FitSource) []Row {
	rows := []Row{
		{"Characterised by:", EscapeLatex(doc.Author)},
		{"Date of completion:", EscapeLatex(doc.Date)},
		{"Ridge dimensions:", fmt.Sprintf(`$%s~\mathrm{mm}~\times~%s~\mathrm{\mu m}~\times~%s~\mathrm{\mu m}$`,
			number(params.Dimension("length")),
			number(params.Dimension("width")),
			number(params.Dimension("height")))},
	}

	for _, mode := range []Mode{Pulsed, CW} {
		meta, label := pulsed, "pulsed"
		if mode == CW {
			meta, label = cw, "c.w."
		}
		prefix := string(mode)

		if c, ok := fits.IthCaption(mode); ok && c.Jth != "" {
			jth, _, _ := strings.Cut(c.Jth, "+")
			rows = append(rows, Row{
				"Threshold current density (" + label + "):",
				"$" + strings.TrimSpace(jth) + `~\mathrm{A/cm^2}~(` + fixedTemp + ")$",
			})
		}

		power := metaValue(meta, prefix+"_power_scale_liv", notAvailable)
		tmax := metaValue(meta, prefix+"_tmax_liv", notAvailable)
		freqRange := params.Get(prefix+"_ftir_fixed_temp_freq_range", "")

		if mode == Pulsed {
			duty := metaValue(meta, "pulsed_duty_cycle_liv", "5")
			rows = append(rows, Row{
				"Peak output power (pulsed):",
				"$" + power + `~\mathrm{mW}~(` + duty + `\%~\mathrm{d.c.},~` + fixedTemp + ")$",
			})
			if freqRange != "" {
				rows = append(rows, Row{"Emission frequency range (pulsed):", EscapeLatex(freqRange)})
			}
			rows = append(rows, Row{
				"Maximum operating temperature (pulsed):",
				"$" + tmax + `~\mathrm{K}~(` + duty + `\%~\mathrm{d.c.})$`,
			})
			continue
		}

		rows = append(rows, Row{"Peak output power (c.w.):", "$" + power + `~\mathrm{mW}~(` + fixedTemp + ")$"})
		if freqRange != "" {
			rows = append(rows, Row{"Emission frequency range (c.w.):", EscapeLatex(freqRange)})
		}
		rows = append(rows, Row{"Maximum operating temperature (c.w.):", "$" + tmax + `~\mathrm{K}$`})
	}
	return rows
}

func (s *Selector) section(mode Mode, available FigureSet, meta domain.MetadataMap, fits FitSource) (Section, bool) {
	section := Section{Title: mode.Title() + " Characteristics"}

	if sub, ok := s.livSubsection(mode, available, meta, fits); ok {
		section.Subsections = append(section.Subsections, sub)
	}
	if sub, ok := s.spectraSubsection(mode, available, meta); ok {
		section.Subsections = append(section.Subsections, sub)
	}

	if len(section.Subsections) == 0 {
		s.logger.Debug("Section omitted, no figures", zap.String("mode", string(mode)))
		return Section{}, false
	}
	return section, true
}

func (s *Selector) livSubsection(mode Mode, available FigureSet, meta domain.MetadataMap, fits FitSource) (Subsection, bool) {
	p := string(mode)
	livFile := p + "_liv.pdf"
	ithFile := "Ith_vs_T_" + p + "_liv.pdf"
	hasLIV, hasIth := available[livFile], available[ithFile]
	if !hasLIV && !hasIth {
		return Subsection{}, false
	}

	table := []Row{
		{"Cryostat:", metaValue(meta, p+"_cryostat_liv", notAvailable)},
		{"Detector:", metaValue(meta, p+"_detector_liv", notAvailable)},
		{"Power Supply:", metaValue(meta, p+"_ps_liv", notAvailable)},
	}
	livCaption := mode.Title() + " L-I-V characteristics."
	if mode == Pulsed {
		freq := metaValue(meta, "pulsed_drive_freq_liv", "10")
		duty := metaValue(meta, "pulsed_duty_cycle_liv", "5")
		gate := metaValue(meta, "pulsed_gate_freq_liv", "167")
		table = append(table,
			Row{"Drive Frequency:", freq + " kHz"},
			Row{"Duty Cycle:", duty},
			Row{"Gate Frequency:", gate + " Hz"},
		)
		livCaption = pulseCaption("Pulsed L-I-V characteristics", freq, duty, gate)
	}
	table = append(table, Row{"Power Scale:", metaValue(meta, p+"_power_scale_liv", "100") + " mW"})
	if tmax := metaValue(meta, p+"_tmax_liv", notAvailable); tmax != notAvailable {
		table = append(table, Row{"Max Temperature:", tmax + " K"})
	}

	ithCaption := "Threshold current vs. temperature."
	if c, ok := fits.IthCaption(mode); ok {
		ithCaption = fmt.Sprintf(`Threshold current vs. temperature, fitted to \(I_{\mathrm{th}}(T) = %s\), corresponding to current density \(J_{\mathrm{th}}(T) = %s\).`, c.Ith, c.Jth)
	}

	var fig *Figure
	switch {
	case hasLIV && hasIth:
		fig = &Figure{
			Files:       []string{figuresDir + livFile, figuresDir + ithFile},
			SubCaptions: []string{mode.Title() + " LIV characteristics", mode.Title() + " threshold current"},
			Caption:     livCaption + " (b) " + ithCaption,
		}
	case hasLIV:
		fig = &Figure{Files: []string{figuresDir + livFile}, Caption: livCaption}
	default:
		fig = &Figure{Files: []string{figuresDir + ithFile}, Caption: ithCaption}
	}

	return Subsection{
		Title:  "L-I-V Characteristics",
		Table:  table,
		Figure: fig,
		Notes:  meta.Get(p+"_liv_experimental_notes", ""),
	}, true
}

func (s *Selector) spectraSubsection(mode Mode, available FigureSet, meta domain.MetadataMap) (Subsection, bool) {
	p := string(mode)
	vsIFile := p + "_ftir_vs_I.pdf"
	vsTFile := p + "_ftir_vs_T.pdf"
	hasVsI, hasVsT := available[vsIFile], available[vsTFile]
	if !hasVsI && !hasVsT {
		return Subsection{}, false
	}

	table := []Row{
		{"Cryostat:", metaValue(meta, p+"_cryostat_spectra", notAvailable)},
		{"Detector:", metaValue(meta, p+"_detector_spectra", notAvailable)},
		{"Spectrometer:", metaValue(meta, p+"_spectrometer_spectra", notAvailable)},
		{"Power Supply:", metaValue(meta, p+"_ps_spectra", notAvailable)},
	}
	mainCaption := "CW FTIR emission spectra."
	if mode == Pulsed {
		freq := metaValue(meta, "pulsed_drive_freq_spectra", "10")
		duty := metaValue(meta, "pulsed_duty_cycle_spectra", "5")
		gate := metaValue(meta, "pulsed_gate_freq_spectra", "167")
		table = append(table,
			Row{"Drive Frequency:", freq + " kHz"},
			Row{"Duty Cycle:", duty},
			Row{"Gate Frequency:", gate + " Hz"},
		)
		mainCaption = pulseCaption("Pulsed FTIR emission spectra", freq, duty, gate)
	}

	tfix := metaValue(meta, "tfix_spectra", "20")
	vsICaption := "Spectra at different currents (at T = " + tfix + " K)."
	vsTCaption := "Spectra at different temperatures."
	if ifix := metaValue(meta, "ifix_spectra", ""); ifix != "" {
		vsTCaption = "Spectra at different temperatures (at I = " + ifix + " mA)."
	}

	var fig *Figure
	switch {
	case hasVsI && hasVsT:
		fig = &Figure{
			Files:       []string{figuresDir + vsIFile, figuresDir + vsTFile},
			SubCaptions: []string{vsICaption, vsTCaption},
			Caption:     mainCaption,
		}
	case hasVsI:
		fig = &Figure{Files: []string{figuresDir + vsIFile}, Caption: mainCaption + " " + vsICaption}
	default:
		fig = &Figure{Files: []string{figuresDir + vsTFile}, Caption: mainCaption + " " + vsTCaption}
	}

	return Subsection{
		Title:  "Spectra Characteristics",
		Table:  table,
		Figure: fig,
		Notes:  combineNotes(meta.Get(p+"_spectra_t_experimental_notes", ""), meta.Get(p+"_spectra_i_experimental_notes", "")),
	}, true
}

func pulseCaption(what, freq, duty, gate string) string {
	return fmt.Sprintf(`%s driven by %s\,kHz, %s\%% duty cycle pulses gated by a %s\,Hz square-wave.`,
		what, trimTrailingBackslashes(freq), trimTrailingBackslashes(duty), trimTrailingBackslashes(gate))
}

func combineNotes(t, i string) string {
	switch {
	case t != "" && i != "":
		return "a) " + t + "\n\n\\noindent b) " + i
	case t != "":
		return t
	default:
		return i
	}
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
