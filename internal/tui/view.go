package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shayne-snap/llmvram/internal/i18n"
	"github.com/shayne-snap/llmvram/internal/settings"
	"github.com/shayne-snap/llmvram/internal/table"
	"github.com/shayne-snap/llmvram/internal/vram"
)

// palette is one color theme.
type palette struct {
	title, border, dim, normal, accent, warn, selected lipgloss.Color
	badges                                             bool // status cells get their light background
}

var palettes = map[string]palette{
	settings.ThemeLight: {
		title: "#1677ff", border: "#d9d9d9", dim: "#8c8c8c", normal: "#262626",
		accent: "#1677ff", warn: "#faad14", selected: "#e6f4ff", badges: true,
	},
	settings.ThemeDark: {
		title: "10", border: "8", dim: "8", normal: "15",
		accent: "14", warn: "11", selected: "8",
	},
}

// styles are derived from the active palette on every render.
type styles struct {
	p                                        palette
	title, dim, normal, accent, warn, status lipgloss.Style
	block                                    lipgloss.Style
}

func newStyles(theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[settings.ThemeLight]
	}
	return styles{
		p:      p,
		title:  lipgloss.NewStyle().Bold(true).Foreground(p.title),
		dim:    lipgloss.NewStyle().Foreground(p.dim),
		normal: lipgloss.NewStyle().Foreground(p.normal),
		accent: lipgloss.NewStyle().Foreground(p.accent),
		warn:   lipgloss.NewStyle().Foreground(p.warn),
		status: lipgloss.NewStyle().Background(p.accent).Foreground(lipgloss.Color("0")).Bold(true),
		block:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(0, 1),
	}
}

// statusStyle colors a run status with its badge colors.
func (s styles) statusStyle(st vram.RunStatus) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(st.Color()))
	if s.p.badges {
		style = style.Background(lipgloss.Color(st.Background()))
	}
	return style
}

// Render returns the full TUI view for the app.
func Render(app *App) string {
	w := app.Width
	if w <= 0 {
		w = 100
	}
	h := app.Height
	if h <= 0 {
		h = 30
	}
	st := newStyles(app.Settings.Theme)

	header := renderHeader(app, st)
	controls := renderControls(app, st)
	mainHeight := h - 6 - 1
	if mainHeight < 5 {
		mainHeight = 5
	}
	var main string
	if app.ShowDetail {
		main = renderDetail(app, st)
	} else {
		main = renderTable(app, st, mainHeight)
	}
	body := lipgloss.JoinVertical(lipgloss.Left, header, controls, main, renderStatusBar(app, st))
	if app.InputMode == InputModeFamilyPopup {
		body = overlay(body, renderFamilyPopup(app, st, h), w)
	}
	return body
}

// overlay centers popup over body line by line.
func overlay(body, popup string, width int) string {
	bodyLines := strings.Split(body, "\n")
	popupLines := strings.Split(popup, "\n")
	if len(bodyLines) < len(popupLines) {
		return body
	}
	startRow := (len(bodyLines) - len(popupLines)) / 2
	padLeft := (width - lipgloss.Width(popup)) / 2
	if padLeft < 0 {
		padLeft = 0
	}
	for i, pl := range popupLines {
		bodyLines[startRow+i] = strings.Repeat(" ", padLeft) + pl
	}
	return strings.Join(bodyLines, "\n")
}

func renderHeader(app *App, st styles) string {
	gpu := "GPU: not detected"
	if app.Specs != nil {
		if p := app.Specs.Primary(); p != nil {
			gpu = "GPU: " + p.String()
			if extra := len(app.Specs.Gpus) - 1; extra > 0 {
				gpu += fmt.Sprintf(" +%d more", extra)
			}
		}
	}
	line := st.dim.Render(i18n.T(app.Lang(), i18n.KeyGPUMemory)+": ") +
		st.accent.Bold(true).Render(strconv.FormatFloat(app.GPUMemory(), 'f', -1, 64)) +
		st.dim.Render("  │  ") + st.warn.Render(gpu) +
		st.dim.Render("  │  ") + st.dim.Render("theme: "+app.Settings.Theme+"  lang: "+app.Lang().String())
	return st.block.Render(st.title.Render(" llmvram ") + " " + line)
}

func renderControls(app *App, st styles) string {
	searchTitle := st.dim.Render(" Search ")
	if app.InputMode == InputModeSearch {
		searchTitle = st.warn.Render(" Search ")
	}
	searchContent := st.dim.Render("Press / to search...")
	if app.InputMode == InputModeSearch || app.SearchQuery != "" {
		searchContent = st.normal.Render(app.SearchQuery)
	}
	searchBox := st.block.Render(searchTitle + " " + searchContent)

	selected := len(app.SelectedFamilyNames())
	famText := "All"
	if selected != len(app.Families) {
		famText = fmt.Sprintf("%d/%d", selected, len(app.Families))
	}
	famStyle := st.accent
	if selected == 0 {
		famStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(vram.CannotRun.Color()))
	}
	famBox := st.block.Width(24).Render(st.dim.Render(" "+i18n.T(app.Lang(), i18n.KeySelectModels)+" (m) ") + famStyle.Render(famText))

	quantBox := st.block.Width(26).Render(st.dim.Render(" "+i18n.T(app.Lang(), i18n.KeyQuantization)+" [tab] ") + st.accent.Render(app.QuantLabel()))
	filterBox := st.block.Width(18).Render(st.dim.Render(" Filter [f] ") + st.normal.Render(app.StatusFilter.Label()))

	return lipgloss.JoinHorizontal(lipgloss.Top, searchBox, " ", famBox, " ", quantBox, " ", filterBox)
}

var colWidths = []int{34, 10, 8, 10, 9, 10, 6, 14}

func headers(lang i18n.Language) []string {
	return []string{
		i18n.T(lang, i18n.KeyModelName),
		i18n.T(lang, i18n.KeyArch),
		i18n.T(lang, i18n.KeyParameters),
		i18n.T(lang, i18n.KeyFileSize),
		i18n.T(lang, i18n.KeyQuantization),
		i18n.T(lang, i18n.KeyVRAMEstimate),
		i18n.T(lang, i18n.KeyRequiredGPUs),
		i18n.T(lang, i18n.KeyRunStatus),
	}
}

func renderTable(app *App, st styles, height int) string {
	lang := app.Lang()
	headerLine := ""
	for i, h := range headers(lang) {
		label := h
		if table.Columns[i] == app.SortColumn {
			if app.SortDesc {
				label += "↓"
			} else {
				label += "↑"
			}
		}
		headerLine += truncPad(label, colWidths[i]) + " "
	}
	headerLine = st.accent.Bold(true).Render(headerLine)

	start, end := visibleRange(app.SelectedRow, len(app.Filtered), height-2)
	var lines []string
	for rowIdx := start; rowIdx < end; rowIdx++ {
		r := app.Rows[app.Filtered[rowIdx]]
		cells := []string{
			st.normal.Render(truncPad(r.FullModel, colWidths[0])),
			st.dim.Render(truncPad(r.Arch, colWidths[1])),
			st.normal.Render(truncPad(r.Parameters, colWidths[2])),
			st.normal.Render(truncPad(r.FileSize, colWidths[3])),
			st.dim.Render(truncPad(r.Quantization, colWidths[4])),
			st.normal.Render(truncPad(table.FormatVRAM(r.RequiredVRAM), colWidths[5])),
			st.normal.Render(truncPad(strconv.Itoa(r.RequiredGPUs), colWidths[6])),
			st.statusStyle(r.Status).Render(truncPad(r.StatusText, colWidths[7])),
		}
		line := strings.Join(cells, " ")
		if rowIdx == app.SelectedRow {
			line = lipgloss.NewStyle().Background(st.p.selected).Bold(true).Render("▶ " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, st.dim.Render("  "+i18n.T(lang, i18n.KeyNoRows)))
	}
	title := fmt.Sprintf(" Models (%d/%d) ", len(app.Filtered), len(app.Rows))
	return st.block.Render(st.normal.Render(title) + "\n" + headerLine + "\n" + strings.Join(lines, "\n"))
}

// visibleRange returns the [start, end) window of n rows that keeps selected on screen.
func visibleRange(selected, n, visible int) (int, int) {
	if visible < 1 {
		visible = 1
	}
	if n <= visible {
		return 0, n
	}
	start := 0
	if selected >= n-visible {
		start = n - visible
	} else if selected > 0 {
		start = selected
	}
	return start, start + visible
}

func truncPad(s string, w int) string {
	if lipgloss.Width(s) <= w {
		return s + strings.Repeat(" ", w-lipgloss.Width(s))
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > w {
		runes = runes[:len(runes)-1]
	}
	out := string(runes) + "…"
	return out + strings.Repeat(" ", w-lipgloss.Width(out))
}

func renderStatusBar(app *App, st styles) string {
	var keys, mode string
	switch app.InputMode {
	case InputModeNormal:
		detail := "Enter:detail"
		if app.ShowDetail {
			detail = "Enter:table"
		}
		keys = fmt.Sprintf(" ↑↓:navigate  %s  /:search  m:models  tab:quant  +/-:GPU GB  a:detected  s/r:sort  f:filter  c:copy  t:theme  L:lang  q:quit", detail)
		mode = "NORMAL"
	case InputModeSearch:
		keys = "  Type to search  Esc:done  Ctrl-U:clear"
		mode = "SEARCH"
	case InputModeFamilyPopup:
		keys = "  ↑↓/jk:navigate  Space:toggle  a:all/none  Esc:close"
		mode = "MODELS"
	}
	bar := st.status.Render(" "+mode+" ") + st.dim.Render(keys)
	if app.Message != "" {
		bar += "\n" + st.warn.Render(" "+app.Message)
	}
	return bar
}

func renderDetail(app *App, st styles) string {
	r := app.SelectedRowData()
	if r == nil {
		return st.block.Render(" No model selected ")
	}
	lang := app.Lang()
	label := func(k string) string { return st.dim.Render(fmt.Sprintf("  %-16s", i18n.T(lang, k)+":")) }
	lines := []string{
		"",
		label(i18n.KeyModelName) + st.normal.Bold(true).Render(r.FullModel),
		label(i18n.KeyArch) + st.normal.Render(r.Arch),
		label(i18n.KeyParameters) + st.normal.Render(r.Parameters),
		label(i18n.KeyFileSize) + st.normal.Render(r.FileSize),
		label(i18n.KeyQuantization) + st.normal.Render(r.Quantization),
		label(i18n.KeyVRAMEstimate) + st.normal.Render(table.FormatVRAM(r.RequiredVRAM)),
		label(i18n.KeyRequiredGPUs) + st.normal.Render(strconv.Itoa(r.RequiredGPUs)),
		label(i18n.KeyRunStatus) + st.statusStyle(r.Status).Bold(true).Render(" "+r.StatusText+" "),
		label(i18n.KeyInstall) + st.accent.Render(table.PullCommand(r)) + st.dim.Render("  (c to copy)"),
		"",
	}
	for _, l := range strings.Split(table.Tooltip(r, lang), "\n") {
		lines = append(lines, "  "+st.warn.Render(l))
	}
	if r.QuantizationInfo != "" {
		lines = append(lines, "", "  "+st.dim.Render(i18n.T(lang, i18n.KeyQuantInfo)+r.QuantizationInfo))
	}
	if desc := app.Description(); desc != "" {
		lines = append(lines, "", st.accent.Render("  ── "+i18n.T(lang, i18n.KeyIntroduction)+" ──"), "")
		for _, l := range strings.Split(desc, "\n") {
			lines = append(lines, "  "+st.normal.Render(l))
		}
	}
	return st.block.Render(st.title.Render(" "+r.Model+" ") + "\n" + strings.Join(lines, "\n"))
}

func renderFamilyPopup(app *App, st styles, height int) string {
	maxName := 10
	for _, f := range app.Families {
		if l := lipgloss.Width(f); l > maxName {
			maxName = l
		}
	}
	inner := len(app.Families)
	if inner > height-6 {
		inner = height - 6
	}
	if inner < 1 {
		inner = 1
	}
	offset := 0
	if app.FamilyCursor >= inner {
		offset = app.FamilyCursor - inner + 1
	}
	var lines []string
	for i := offset; i < len(app.Families) && len(lines) < inner; i++ {
		cb := "[ ]"
		if app.SelectedFamilies[i] {
			cb = "[x]"
		}
		line := cb + " " + app.Families[i]
		switch {
		case i == app.FamilyCursor:
			line = st.warn.Bold(true).Render(line)
		case app.SelectedFamilies[i]:
			line = st.accent.Render(line)
		default:
			line = st.dim.Render(line)
		}
		lines = append(lines, line)
	}
	title := fmt.Sprintf(" %s (%d/%d) ", i18n.T(app.Lang(), i18n.KeySelectModels), len(app.SelectedFamilyNames()), len(app.Families))
	block := st.block.BorderForeground(st.p.warn).Width(maxName + 10)
	return block.Render(st.warn.Bold(true).Render(title) + "\n" + strings.Join(lines, "\n"))
}
