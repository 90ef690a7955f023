// Package viz renders the driver/responder pair live in the terminal.
// It drives the engine exactly one step per frame; the engine itself is
// agnostic to pacing.
package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/todd866/oscillab/internal/codec"
	"github.com/todd866/oscillab/internal/config"
	"github.com/todd866/oscillab/internal/coupling"
	"github.com/todd866/oscillab/internal/lattice"
	"github.com/todd866/oscillab/internal/metrics"
)

const historyCapacity = 240

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	ringStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// phaseGlyphs maps a phase octant to a direction arrow.
var phaseGlyphs = []rune("→↗↑↖←↙↓↘")

type TickMsg time.Time

// Model holds the live pair, the tunable parameters, and the metric
// history buffers.
type Model struct {
	cfg *config.Config

	driver    *lattice.Ring
	responder *lattice.Ring
	link      *coupling.Link

	params   []string
	selected int

	running  bool
	showHelp bool
	err      error

	t     float64
	steps int
	fps   int

	mismatchHistory []float64
	driverHistory   []float64
}

// NewModel builds the pair from a validated config.
func NewModel(cfg *config.Config, fps int) (Model, error) {
	m := Model{
		cfg:             cfg,
		params:          []string{"coupling", "noise", "gain", "bandwidth"},
		running:         true,
		fps:             fps,
		mismatchHistory: make([]float64, 0, historyCapacity),
		driverHistory:   make([]float64, 0, historyCapacity),
	}
	if err := m.build(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// build constructs fresh lattices and link from the config seeds.
func (m *Model) build() error {
	driver, err := lattice.New(m.cfg.N, m.cfg.Coupling, m.cfg.FreqSpread, m.cfg.NoiseStd, m.cfg.Dt, m.cfg.DriverSeed)
	if err != nil {
		return err
	}
	responder, err := lattice.New(m.cfg.N, m.cfg.Coupling, m.cfg.FreqSpread, m.cfg.NoiseStd, m.cfg.Dt, m.cfg.ResponderSeed)
	if err != nil {
		return err
	}
	link, err := coupling.NewLink(coupling.Config{
		Mode:      m.cfg.Mode(),
		Bandwidth: m.cfg.Bandwidth,
		Gain:      m.cfg.Gain,
	}, codec.New(m.cfg.Seed))
	if err != nil {
		return err
	}

	m.driver = driver
	m.responder = responder
	m.link = link
	m.t = 0
	m.steps = 0
	m.mismatchHistory = m.mismatchHistory[:0]
	m.driverHistory = m.driverHistory[:0]
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.err = m.build()
		case "tab":
			m.selected = (m.selected + 1) % len(m.params)
		case "up", "k":
			m.adjustParam(1)
		case "down", "j":
			m.adjustParam(-1)
		case "m":
			m.toggleMode()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// adjustParam tunes the selected parameter in place; no lattice rebuild
// happens unless the user asks for an explicit reset.
func (m *Model) adjustParam(dir int) {
	switch m.params[m.selected] {
	case "coupling":
		k := m.driver.Coupling() * factor(dir)
		m.driver.SetCoupling(k)
		m.responder.SetCoupling(k)
	case "noise":
		std := m.driver.NoiseStd() * factor(dir)
		if std == 0 && dir > 0 {
			std = 0.01
		}
		m.driver.SetNoiseStd(std)
		m.responder.SetNoiseStd(std)
	case "gain":
		g := m.link.Config().Gain * factor(dir)
		if g == 0 && dir > 0 {
			g = 0.05
		}
		m.link.SetGain(g)
	case "bandwidth":
		m.link.SetBandwidth(m.link.Config().Bandwidth+dir, m.driver.N())
	}
}

func factor(dir int) float64 {
	if dir > 0 {
		return 1.1
	}
	return 1 / 1.1
}

func (m *Model) toggleMode() {
	if m.link.Config().Mode == codec.ModeFourier {
		m.link.SetMode(codec.ModeRandom)
	} else {
		m.link.SetMode(codec.ModeFourier)
	}
}

func (m *Model) step() {
	forcing, err := m.link.Forcing(m.driver.Phases(), m.responder.Phases())
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	if err := m.driver.Step(nil); err != nil {
		m.err = err
		m.running = false
		return
	}
	if err := m.responder.Step(forcing); err != nil {
		m.err = err
		m.running = false
		return
	}
	m.t += m.driver.Dt()
	m.steps++

	m.mismatchHistory = appendBounded(m.mismatchHistory, metrics.PhaseMismatch(m.driver.Phases(), m.responder.Phases()))
	m.driverHistory = appendBounded(m.driverHistory, metrics.SpectralComplexity(m.driver.Phases()))
}

func appendBounded(hist []float64, v float64) []float64 {
	hist = append(hist, v)
	if len(hist) > historyCapacity {
		hist = hist[1:]
	}
	return hist
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("COUPLED RINGS") + "\n")

	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	fmt.Fprintf(&s, "%s  t=%.1f\n\n", status, m.t)

	s.WriteString(labelStyle.Render("driver") + ringStyle.Render(ringString(m.driver.Phases())) + "\n")
	s.WriteString(labelStyle.Render("responder") + ringStyle.Render(ringString(m.responder.Phases())) + "\n\n")

	s.WriteString(m.statsView())

	if len(m.mismatchHistory) > 8 {
		graph := asciigraph.Plot(m.mismatchHistory,
			asciigraph.Height(6),
			asciigraph.Width(70),
			asciigraph.Caption("phase mismatch"),
		)
		s.WriteString(graphStyle.Render(graph) + "\n")
	}

	if m.err != nil {
		s.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.err)) + "\n")
	}

	if m.showHelp {
		s.WriteString(helpStyle.Render("space pause · tab select param · ↑/↓ adjust · m codec mode · r reset · q quit"))
	} else {
		s.WriteString(helpStyle.Render("? help · q quit"))
	}
	return s.String()
}

func (m Model) statsView() string {
	cfg := m.link.Config()

	var s strings.Builder
	rows := []struct {
		name  string
		value string
	}{
		{"coupling", fmt.Sprintf("%.3f", m.driver.Coupling())},
		{"noise", fmt.Sprintf("%.3f", m.driver.NoiseStd())},
		{"gain", fmt.Sprintf("%.3f", cfg.Gain)},
		{"bandwidth", fmt.Sprintf("%d / %d", cfg.Bandwidth, codec.MaxBandwidth(m.driver.N()))},
		{"codec", string(cfg.Mode)},
		{"driver cx", fmt.Sprintf("%.2f", metrics.SpectralComplexity(m.driver.Phases()))},
		{"resp cx", fmt.Sprintf("%.2f", metrics.SpectralComplexity(m.responder.Phases()))},
		{"coherence", fmt.Sprintf("%.3f", metrics.CrossCoherence(m.driver.Phases(), m.responder.Phases()))},
		{"mismatch", fmt.Sprintf("%.3f", metrics.PhaseMismatch(m.driver.Phases(), m.responder.Phases()))},
	}
	for i, row := range rows {
		style := valueStyle
		if i < len(m.params) && i == m.selected {
			style = activeStyle
		}
		s.WriteString(labelStyle.Render(row.name) + style.Render(row.value) + "\n")
	}
	return s.String()
}

// ringString draws one phase field as a row of direction arrows, one
// oscillator per cell.
func ringString(phases []float64) string {
	var sb strings.Builder
	for _, p := range phases {
		frac := (lattice.Wrap(p) + math.Pi) / (2 * math.Pi)
		oct := int(frac * 8)
		if oct > 7 {
			oct = 7
		}
		sb.WriteRune(phaseGlyphs[oct])
	}
	return sb.String()
}
