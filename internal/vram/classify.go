package vram

import (
	"fmt"
	"math"

	"github.com/shayne-snap/llmvram/internal/i18n"
)

// SlackFactor is the headroom over raw GPU capacity within which a model still counts as barely runnable.
const SlackFactor = 1.2

// RunStatus is the single-GPU verdict for a model (can-run / barely-run / cannot-run).
type RunStatus int

const (
	CanRun RunStatus = iota
	BarelyRun
	CannotRun
)

// AllStatuses lists every RunStatus in rank order.
var AllStatuses = []RunStatus{CanRun, BarelyRun, CannotRun}

type statusMeta struct {
	tag, color, bg, labelKey string
}

var statusTable = [...]statusMeta{
	CanRun:    {"can-run", "#a9d134", "#f6ffed", i18n.KeyStatusCanRun},
	BarelyRun: {"barely-run", "#faad14", "#fffbe6", i18n.KeyStatusBarely},
	CannotRun: {"cannot-run", "#ff4d4f", "#fff2f0", i18n.KeyStatusCannot},
}

func (s RunStatus) meta() statusMeta {
	if s < CanRun || s > CannotRun {
		return statusTable[CannotRun]
	}
	return statusTable[s]
}

func (s RunStatus) String() string { return s.meta().tag }

// Color is the foreground color used for the status badge.
func (s RunStatus) Color() string { return s.meta().color }

// Background is the badge background in the light theme.
func (s RunStatus) Background() string { return s.meta().bg }

// Rank orders statuses for sorting (0 best).
func (s RunStatus) Rank() int { return int(s) }

// Label returns the localized status text.
func (s RunStatus) Label(lang i18n.Language) string {
	return i18n.T(lang, s.meta().labelKey)
}

// MarshalText encodes the status as its tag (e.g. "can-run").
func (s RunStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status tag.
func (s *RunStatus) UnmarshalText(b []byte) error {
	v, err := ParseRunStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseRunStatus parses "can-run", "barely-run" or "cannot-run".
func ParseRunStatus(tag string) (RunStatus, error) {
	for _, st := range AllStatuses {
		if st.String() == tag {
			return st, nil
		}
	}
	return CannotRun, fmt.Errorf("unknown run status %q", tag)
}

// Classify decides whether requiredGB fits a single GPU with availableGB of memory.
// availableGB must be positive; callers clamp it before calling.
func Classify(requiredGB, availableGB float64) RunStatus {
	switch {
	case requiredGB <= availableGB:
		return CanRun
	case requiredGB <= availableGB*SlackFactor:
		return BarelyRun
	default:
		return CannotRun
	}
}

// Classification is a status with its localized label.
type Classification struct {
	Status RunStatus `json:"status"`
	Label  string    `json:"label"`
}

// ClassifyRun classifies and attaches the label in lang.
func ClassifyRun(requiredGB, availableGB float64, lang i18n.Language) Classification {
	st := Classify(requiredGB, availableGB)
	return Classification{Status: st, Label: st.Label(lang)}
}

// RequiredGPUs is how many cards of availableGB it takes to hold requiredGB. Display only;
// it does not influence Classify.
func RequiredGPUs(requiredGB, availableGB float64) int {
	return int(math.Ceil(requiredGB / availableGB))
}
