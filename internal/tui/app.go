// Package tui is the interactive VRAM table: pick families and a quantization, set the GPU memory,
// and see which models a single card can run.
package tui

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/hardware"
	"github.com/shayne-snap/llmvram/internal/i18n"
	"github.com/shayne-snap/llmvram/internal/settings"
	"github.com/shayne-snap/llmvram/internal/table"
	"github.com/shayne-snap/llmvram/internal/vram"
)

// InputMode is the current TUI input mode (normal, search, or family popup).
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeSearch
	InputModeFamilyPopup
)

// StatusFilter limits rows by run status (All, Runnable, Perfect; cycle with the same key).
type StatusFilter int

const (
	StatusFilterAll StatusFilter = iota
	StatusFilterRunnable
	StatusFilterPerfect
)

func (f StatusFilter) Label() string {
	switch f {
	case StatusFilterRunnable:
		return "Runnable"
	case StatusFilterPerfect:
		return "Perfect"
	default:
		return "All"
	}
}

func (f StatusFilter) Next() StatusFilter {
	return (f + 1) % 3
}

// allows reports whether a row with status s passes the filter.
func (f StatusFilter) allows(s vram.RunStatus) bool {
	switch f {
	case StatusFilterRunnable:
		return s != vram.CannotRun
	case StatusFilterPerfect:
		return s == vram.CanRun
	default:
		return true
	}
}

// App holds the TUI state.
type App struct {
	ShouldQuit     bool
	InputMode      InputMode
	SearchQuery    string
	CursorPosition int

	DB           *catalog.DB
	Specs        *hardware.SystemSpecs
	Settings     settings.Settings
	SettingsPath string

	Families         []string
	SelectedFamilies []bool
	FamilyCursor     int

	QuantOptions []catalog.Option
	Quant        string

	Rows     []*table.Row
	Filtered []int // indices into Rows

	StatusFilter StatusFilter
	SortColumn   table.Column
	SortDesc     bool
	SelectedRow  int
	ShowDetail   bool
	Message      string

	Width  int
	Height int
}

// NewApp builds the state. families selects the initially checked families (all when empty);
// quant is the initial quantization ("" picks the default option). settingsPath may be empty to
// disable persistence.
func NewApp(db *catalog.DB, specs *hardware.SystemSpecs, s settings.Settings, settingsPath string, families []string, quant string) *App {
	s.Normalize()
	names := db.FamilyNames()
	selected := make([]bool, len(names))
	for i, n := range names {
		selected[i] = len(families) == 0 || containsFold(families, n)
	}
	app := &App{
		DB:               db,
		Specs:            specs,
		Settings:         s,
		SettingsPath:     settingsPath,
		Families:         names,
		SelectedFamilies: selected,
		Quant:            quant,
	}
	app.Rebuild()
	return app
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Lang is the current display language.
func (a *App) Lang() i18n.Language {
	return a.Settings.Lang()
}

// GPUMemory is the assumed per-card memory in GB.
func (a *App) GPUMemory() float64 {
	return a.Settings.GPUMemory
}

// SelectedFamilyNames returns the checked families in catalog order.
func (a *App) SelectedFamilyNames() []string {
	var out []string
	for i, n := range a.Families {
		if a.SelectedFamilies[i] {
			out = append(out, n)
		}
	}
	return out
}

// Rebuild recomputes quantization options and rows after the family selection, quantization,
// GPU memory or language changed.
func (a *App) Rebuild() {
	families := a.SelectedFamilyNames()
	if len(families) == 0 {
		a.QuantOptions = nil
		a.Quant = ""
		a.Rows = nil
		a.ApplyFilters()
		return
	}
	details := a.DB.Details(families...)
	a.QuantOptions = catalog.QuantOptions(details, a.Lang())
	if !a.hasQuant(a.Quant) {
		a.Quant = catalog.DefaultQuant(a.QuantOptions)
	}
	a.Rows = table.Build(catalog.Filter(details, families, a.Quant), a.GPUMemory(), a.Lang())
	table.Sort(a.Rows, a.SortColumn, a.SortDesc)
	a.ApplyFilters()
}

func (a *App) hasQuant(q string) bool {
	if q == "" {
		return false
	}
	for _, o := range a.QuantOptions {
		if o.Value == q {
			return true
		}
	}
	return false
}

// ApplyFilters updates Filtered from the search query and status filter; clamps SelectedRow.
func (a *App) ApplyFilters() {
	query := strings.ToLower(a.SearchQuery)
	var out []int
	for i, r := range a.Rows {
		matchesSearch := query == "" ||
			strings.Contains(strings.ToLower(r.FullModel), query) ||
			strings.Contains(strings.ToLower(r.Arch), query) ||
			strings.Contains(strings.ToLower(r.Parameters), query)
		if matchesSearch && a.StatusFilter.allows(r.Status) {
			out = append(out, i)
		}
	}
	a.Filtered = out
	if len(a.Filtered) == 0 {
		a.SelectedRow = 0
	} else if a.SelectedRow >= len(a.Filtered) {
		a.SelectedRow = len(a.Filtered) - 1
	}
}

// SelectedRowData returns the highlighted row or nil.
func (a *App) SelectedRowData() *table.Row {
	if a.SelectedRow < 0 || a.SelectedRow >= len(a.Filtered) {
		return nil
	}
	return a.Rows[a.Filtered[a.SelectedRow]]
}

// Description is the introduction panel text for the selected families and quantization.
func (a *App) Description() string {
	return catalog.Describe(a.DB, a.SelectedFamilyNames(), a.Quant, a.Lang())
}

func (a *App) MoveUp() {
	if a.SelectedRow > 0 {
		a.SelectedRow--
	}
}

func (a *App) MoveDown() {
	if a.SelectedRow < len(a.Filtered)-1 {
		a.SelectedRow++
	}
}

func (a *App) PageUp() {
	a.SelectedRow -= 10
	if a.SelectedRow < 0 {
		a.SelectedRow = 0
	}
}

func (a *App) PageDown() {
	if len(a.Filtered) == 0 {
		return
	}
	a.SelectedRow += 10
	if a.SelectedRow >= len(a.Filtered) {
		a.SelectedRow = len(a.Filtered) - 1
	}
}

func (a *App) Home() { a.SelectedRow = 0 }

func (a *App) End() {
	if len(a.Filtered) > 0 {
		a.SelectedRow = len(a.Filtered) - 1
	}
}

func (a *App) CycleStatusFilter() {
	a.StatusFilter = a.StatusFilter.Next()
	a.ApplyFilters()
}

// CycleQuant moves the quantization selection by delta, wrapping around.
func (a *App) CycleQuant(delta int) {
	n := len(a.QuantOptions)
	if n == 0 {
		return
	}
	idx := 0
	for i, o := range a.QuantOptions {
		if o.Value == a.Quant {
			idx = i
			break
		}
	}
	idx = ((idx+delta)%n + n) % n
	a.Quant = a.QuantOptions[idx].Value
	a.Rebuild()
}

// QuantLabel is the display label of the selected quantization.
func (a *App) QuantLabel() string {
	for _, o := range a.QuantOptions {
		if o.Value == a.Quant {
			return o.Label
		}
	}
	return a.Quant
}

// AdjustGPUMemory changes the assumed GPU memory by delta GB (clamped) and persists it.
func (a *App) AdjustGPUMemory(delta float64) {
	v := settings.ClampGPUMemory(a.Settings.GPUMemory + delta)
	if v == a.Settings.GPUMemory {
		return
	}
	a.Settings.GPUMemory = v
	a.Rebuild()
	a.persist()
}

// UseDetectedGPUMemory sets the GPU memory to the largest detected card.
func (a *App) UseDetectedGPUMemory() {
	if a.Specs == nil {
		return
	}
	if v, ok := a.Specs.PerGPUMemoryGB(); ok {
		a.AdjustGPUMemory(settings.ClampGPUMemory(v) - a.Settings.GPUMemory)
	}
}

// ToggleTheme switches light/dark and persists it.
func (a *App) ToggleTheme() {
	if a.Settings.Theme == settings.ThemeDark {
		a.Settings.Theme = settings.ThemeLight
	} else {
		a.Settings.Theme = settings.ThemeDark
	}
	a.persist()
}

// ToggleLanguage switches zh/en, relabels the rows and quantization options and persists it.
func (a *App) ToggleLanguage() {
	a.Settings.Language = a.Lang().Toggle().String()
	table.Relabel(a.Rows, a.Lang())
	if families := a.SelectedFamilyNames(); len(families) > 0 {
		a.QuantOptions = catalog.QuantOptions(a.DB.Details(families...), a.Lang())
	}
	a.persist()
}

// CycleSort moves to the next sort column (ascending).
func (a *App) CycleSort() {
	a.SortColumn = table.Columns[(int(a.SortColumn)+1)%len(table.Columns)]
	a.SortDesc = false
	a.Rebuild()
}

// ToggleSortOrder flips ascending/descending.
func (a *App) ToggleSortOrder() {
	a.SortDesc = !a.SortDesc
	a.Rebuild()
}

func (a *App) persist() {
	if a.SettingsPath == "" {
		return
	}
	if err := settings.Save(a.SettingsPath, a.Settings); err != nil {
		log.Warn().Err(err).Str("path", a.SettingsPath).Msg("could not save settings")
		a.Message = err.Error()
	}
}

// PullCommand returns the ollama command for the selected row ("" when nothing is selected).
func (a *App) PullCommand() string {
	r := a.SelectedRowData()
	if r == nil {
		return ""
	}
	return table.PullCommand(r)
}

// SetCopyResult records the outcome of copying cmd to the clipboard.
func (a *App) SetCopyResult(cmd string, err error) {
	if err != nil {
		a.Message = i18n.Tf(a.Lang(), i18n.KeyCopyFailed, cmd)
		return
	}
	a.Message = i18n.Tf(a.Lang(), i18n.KeyCopied, cmd)
}

func (a *App) EnterSearch() { a.InputMode = InputModeSearch }

func (a *App) ExitSearch() { a.InputMode = InputModeNormal }

func (a *App) SearchInput(r rune) {
	runes := []rune(a.SearchQuery)
	if a.CursorPosition > len(runes) {
		a.CursorPosition = len(runes)
	}
	runes = append(runes[:a.CursorPosition], append([]rune{r}, runes[a.CursorPosition:]...)...)
	a.SearchQuery = string(runes)
	a.CursorPosition++
	a.ApplyFilters()
}

func (a *App) SearchBackspace() {
	runes := []rune(a.SearchQuery)
	if a.CursorPosition <= 0 || a.CursorPosition > len(runes) {
		return
	}
	runes = append(runes[:a.CursorPosition-1], runes[a.CursorPosition:]...)
	a.SearchQuery = string(runes)
	a.CursorPosition--
	a.ApplyFilters()
}

func (a *App) ClearSearch() {
	a.SearchQuery = ""
	a.CursorPosition = 0
	a.ApplyFilters()
}

func (a *App) ToggleDetail() { a.ShowDetail = !a.ShowDetail }

func (a *App) OpenFamilyPopup() { a.InputMode = InputModeFamilyPopup }

func (a *App) CloseFamilyPopup() { a.InputMode = InputModeNormal }

func (a *App) FamilyPopupUp() {
	if a.FamilyCursor > 0 {
		a.FamilyCursor--
	}
}

func (a *App) FamilyPopupDown() {
	if a.FamilyCursor+1 < len(a.Families) {
		a.FamilyCursor++
	}
}

func (a *App) FamilyPopupToggle() {
	if a.FamilyCursor < len(a.SelectedFamilies) {
		a.SelectedFamilies[a.FamilyCursor] = !a.SelectedFamilies[a.FamilyCursor]
		a.Rebuild()
	}
}

// FamilyPopupSelectAll selects every family, or none when all are already selected.
func (a *App) FamilyPopupSelectAll() {
	all := true
	for _, s := range a.SelectedFamilies {
		if !s {
			all = false
			break
		}
	}
	for i := range a.SelectedFamilies {
		a.SelectedFamilies[i] = !all
	}
	a.Rebuild()
}
