package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/lumasim/internal/dynamo"
)

const (
	chartSpan   = 120
	chartWidth  = 60
	chartHeight = 10
	maxSpeed    = 64
)

// Sink receives every sample the player steps over, in order.
type Sink interface {
	Send(s dynamo.Sample) error
}

type TickMsg time.Time

// Model plays a finished trace back one sample per tick.
type Model struct {
	trace    *dynamo.Trace
	name     string
	bounds   [2]float64
	head     int
	speed    int
	running  bool
	done     bool
	theme    int
	showHelp bool
	interval time.Duration
	sink     Sink
	sent     int
	sinkErr  error
}

type Option func(*Model)

// WithSink forwards each played sample, e.g. to a CAN bus.
func WithSink(s Sink) Option {
	return func(m *Model) { m.sink = s }
}

// WithSpeed sets the samples advanced per tick.
func WithSpeed(n int) Option {
	return func(m *Model) {
		if n >= 1 {
			m.speed = min(n, maxSpeed)
		}
	}
}

func WithTheme(name string) Option {
	return func(m *Model) {
		for i, t := range Themes {
			if t.Name == name {
				m.theme = i
			}
		}
	}
}

// WithInterval sets the wall time between ticks.
func WithInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.interval = d
		}
	}
}

// NewModel starts before the first sample; the first tick plays sample 0.
// lo and hi fix the output chart's vertical range.
func NewModel(tr *dynamo.Trace, name string, lo, hi float64, opts ...Option) Model {
	m := Model{
		trace:    tr,
		name:     name,
		bounds:   [2]float64{lo, hi},
		head:     -1,
		speed:    1,
		running:  true,
		interval: time.Second / 30,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if !m.done {
				m.running = !m.running
			}
		case "r":
			m.head = -1
			m.done = false
			m.running = true
		case "[":
			m.scrub(-10)
		case "]":
			m.scrub(10)
		case "+", "=":
			m.speed = min(m.speed*2, maxSpeed)
		case "-", "_":
			m.speed = max(m.speed/2, 1)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.advance(m.speed)
		}
		return m, m.tick()
	}
	return m, nil
}

// advance moves the head forward, feeding the sink. A sink error pauses
// playback.
func (m *Model) advance(n int) {
	last := m.trace.Len() - 1
	for k := 0; k < n && m.head < last; k++ {
		m.head++
		if m.sink != nil {
			if err := m.sink.Send(m.trace.Sample(m.head)); err != nil {
				m.sinkErr = err
				m.running = false
				return
			}
			m.sent++
		}
	}
	if m.head >= last {
		m.running = false
		m.done = true
	}
}

// scrub repositions without sending samples.
func (m *Model) scrub(delta int) {
	m.running = false
	m.head = max(0, min(m.head+delta, m.trace.Len()-1))
	m.done = m.head == m.trace.Len()-1
}

func (m Model) Head() int     { return m.head }
func (m Model) Running() bool { return m.running }
func (m Model) Done() bool    { return m.done }
func (m Model) Sent() int     { return m.sent }
func (m Model) Err() error    { return m.sinkErr }

func (m Model) View() string {
	st := Themes[m.theme].styles()
	head := max(m.head, 0)
	s := m.trace.Sample(head)

	status := st.running.Render("PLAYING")
	switch {
	case m.sinkErr != nil:
		status = st.saturated.Render("SINK ERROR: " + m.sinkErr.Error())
	case m.done:
		status = st.paused.Render("DONE")
	case !m.running:
		status = st.paused.Render("PAUSED")
	}

	charts := st.graph.Render(TrackingChart(m.trace, head, chartSpan, chartWidth, chartHeight)) + "\n" +
		st.graph.Render(OutputChart(m.trace, head, chartSpan, chartWidth, chartHeight/2, m.bounds[0], m.bounds[1]))

	var b strings.Builder
	b.WriteString(st.header.Render(strings.ToUpper(m.name)) + "\n")
	fmt.Fprintf(&b, "%s  x%d\n\n", status, m.speed)

	row := func(label, value string) {
		b.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.1fs", s.Time))
	row("Set point", fmt.Sprintf("%.4f", s.Setpoint))
	row("PV", fmt.Sprintf("%.4f", s.ProcessValue))
	row("Light", fmt.Sprintf("%.4f", s.Disturbance))
	row("OP", fmt.Sprintf("%.4f", s.ControlOutput))
	row("Applied", fmt.Sprintf("%.4f", s.Applied))
	row("Error", fmt.Sprintf("%+.4f", s.Error))
	row("Integral", fmt.Sprintf("%+.4f", s.IntegralError))
	if s.Saturated {
		b.WriteString(st.label.Render("Output") + st.saturated.Render("SATURATED") + "\n")
	} else {
		row("Output", "in range")
	}
	if m.sink != nil {
		row("Sent", fmt.Sprintf("%d", m.sent))
	}

	b.WriteString("\n" + st.ProgressBar(float64(head)/float64(max(m.trace.Len()-1, 1)), 24) + "\n")
	b.WriteString(st.Sparkline(window(m.trace.Error, head, chartSpan), 24) + "\n")

	help := "SP:Pause R:Restart Q:Quit\n[ ]:Scrub +/-:Speed T:Theme"
	if m.showHelp {
		help = "Space  pause or resume\nR      restart from t=0\n[ ]    scrub 10 samples\n+ -    double or halve speed\nT      cycle theme\nQ      quit"
	}
	b.WriteString(st.help.Render(help))

	return lipgloss.JoinHorizontal(lipgloss.Top, charts, st.stats.Render(b.String()))
}
