package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/autofixdeck/internal/domain"
	"github.com/waabox/autofixdeck/internal/tracker"
)

// WorkflowSource is the part of the workflow tracker the dashboard drives.
type WorkflowSource interface {
	Snapshot() tracker.WorkflowSnapshot
	Attach(ctx context.Context, sessionID string)
	Resume(ctx context.Context)
	StopWorkflow(ctx context.Context, force bool) error
}

// PipelineSource is the part of the pipeline tracker the dashboard drives.
type PipelineSource interface {
	Snapshot() tracker.PipelineSnapshot
	Start(ctx context.Context, sessionID string)
	RetryFailedJobs(ctx context.Context) error
	Refresh(ctx context.Context) error
	JobTrace(ctx context.Context, jobID int64) (string, error)
}

// RecoverySource is the part of the recovery tracker the dashboard drives.
type RecoverySource interface {
	Snapshot() tracker.RecoverySnapshot
	Refresh(ctx context.Context) error
}

// PollingControl is the polling controller as seen by the dashboard.
type PollingControl interface {
	IsPolling() bool
	Enabled() bool
	Toggle() bool
	StoppedReason() string
}

// Deps wires the dashboard to its trackers. Recovery is set only for the merge
// request dashboard; Pipeline may be nil.
type Deps struct {
	Controller PollingControl
	Workflow   WorkflowSource
	Pipeline   PipelineSource
	Recovery   RecoverySource
	Updates    <-chan struct{}
	App        *domain.AppConfig
}

// UpdatedMsg is sent when any tracker changed state.
// It is exported so that tests can inject it directly into AppModel.Update.
type UpdatedMsg struct{}

// TraceLoadedMsg is sent when a job trace has been fetched.
type TraceLoadedMsg struct {
	JobName string
	Content string
	Err     error
}

// ActionResultMsg is sent when a user action (stop, retry, resume, refresh) completes.
type ActionResultMsg struct {
	Action string
	Err    error
}

type viewState int

const (
	viewDashboard viewState = iota
	viewLog
)

type focus int

const (
	focusSteps focus = iota
	focusJobs
)

// AppModel is the root Bubbletea model for autofixdeck.
type AppModel struct {
	ctx  context.Context
	deps Deps

	view  viewState
	focus focus
	steps StepListModel
	jobs  JobListModel
	log   LogViewModel

	workflow tracker.WorkflowSnapshot
	pipeline tracker.PipelineSnapshot
	recovery tracker.RecoverySnapshot
	// attached is the stored session followed from the merge request dashboard.
	attached string

	spinner       spinner.Model
	width         int
	height        int
	confirmAction string
	traceLoading  bool
	notice        string
	err           error
}

// NewAppModel creates the root model and reads the trackers' current state.
func NewAppModel(ctx context.Context, deps Deps) AppModel {
	m := AppModel{
		ctx:     ctx,
		deps:    deps,
		steps:   NewStepListModel(nil, ""),
		jobs:    NewJobListModel(nil),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(warnStyle)),
	}
	return m.pullSnapshots()
}

// Init starts the spinner and listens for tracker updates.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.deps.Updates))
}

func (m AppModel) mergeRequestMode() bool {
	return m.deps.Recovery != nil
}

// sessionID is the workflow session the dashboard follows, if any.
func (m AppModel) sessionID() string {
	if m.mergeRequestMode() {
		return m.attached
	}
	return m.workflow.SessionID
}

// status is the workflow view on screen: live when a session is followed,
// recovered otherwise.
func (m AppModel) status() *domain.WorkflowStatus {
	if m.mergeRequestMode() && m.attached == "" {
		return m.recovery.Status
	}
	return m.workflow.Status
}

func (m AppModel) currentJobs() []domain.Job {
	if m.sessionID() != "" && m.deps.Pipeline != nil {
		return m.pipeline.Jobs
	}
	if m.recovery.CI != nil {
		return m.recovery.CI.Jobs
	}
	return nil
}

func (m AppModel) snapshotErr() error {
	if m.mergeRequestMode() && m.attached == "" {
		return m.recovery.Err
	}
	if m.workflow.Err != nil {
		return m.workflow.Err
	}
	return m.pipeline.Err
}

func (m AppModel) pullSnapshots() AppModel {
	if m.deps.Workflow != nil {
		m.workflow = m.deps.Workflow.Snapshot()
	}
	if m.deps.Pipeline != nil {
		m.pipeline = m.deps.Pipeline.Snapshot()
	}
	if m.deps.Recovery != nil {
		m.recovery = m.deps.Recovery.Snapshot()
	}
	if st := m.status(); st != nil {
		m.steps = m.steps.UpdateSteps(st.OrderedSteps(), st.CurrentStep)
	} else {
		m.steps = m.steps.UpdateSteps(nil, "")
	}
	m.jobs = m.jobs.UpdateJobs(m.currentJobs())
	return m
}

// attachStoredSession follows a stored, non-recovered session found by the
// recovery tracker with the workflow and pipeline trackers.
func (m AppModel) attachStoredSession() (AppModel, tea.Cmd) {
	if !m.mergeRequestMode() || m.deps.Workflow == nil || m.recovery.IsRecovered {
		return m, nil
	}
	st := m.recovery.Status
	if st == nil || st.SessionID == "" || st.SessionID == m.attached {
		return m, nil
	}
	m.attached = st.SessionID
	id := st.SessionID
	return m, func() tea.Msg {
		m.deps.Workflow.Attach(m.ctx, id)
		if m.deps.Pipeline != nil {
			m.deps.Pipeline.Start(m.ctx, id)
		}
		return nil
	}
}

func (m AppModel) stopWorkflow(force bool) tea.Cmd {
	return func() tea.Msg {
		err := m.deps.Workflow.StopWorkflow(m.ctx, force)
		return ActionResultMsg{Action: "stop", Err: err}
	}
}

func (m AppModel) retryFailedJobs() tea.Cmd {
	return func() tea.Msg {
		err := m.deps.Pipeline.RetryFailedJobs(m.ctx)
		if err == nil {
			// Show the retried jobs even when pipeline polling has stopped.
			err = m.deps.Pipeline.Refresh(m.ctx)
		}
		return ActionResultMsg{Action: "retry", Err: err}
	}
}

func (m AppModel) loadTrace(job domain.Job) tea.Cmd {
	return func() tea.Msg {
		content, err := m.deps.Pipeline.JobTrace(m.ctx, job.ID)
		return TraceLoadedMsg{JobName: job.Name, Content: content, Err: err}
	}
}

// restartPolling resets the controller through the tracker that owns the view and polls again.
func (m AppModel) restartPolling() tea.Cmd {
	if m.mergeRequestMode() && m.attached == "" {
		return func() tea.Msg {
			return ActionResultMsg{Action: "refresh", Err: m.deps.Recovery.Refresh(m.ctx)}
		}
	}
	if m.deps.Workflow == nil {
		return nil
	}
	id := m.sessionID()
	return func() tea.Msg {
		m.deps.Workflow.Resume(m.ctx)
		if m.deps.Pipeline != nil && id != "" {
			m.deps.Pipeline.Start(m.ctx, id)
		}
		return ActionResultMsg{Action: "resume"}
	}
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case UpdatedMsg:
		m = m.pullSnapshots()
		var attach tea.Cmd
		m, attach = m.attachStoredSession()
		return m, tea.Batch(waitForUpdate(m.deps.Updates), attach)

	case TraceLoadedMsg:
		m.traceLoading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.log = NewLogViewModel("trace "+msg.JobName, msg.Content)
		m.view = viewLog
		return m, nil

	case ActionResultMsg:
		m.err = msg.Err
		m.notice = ""
		if msg.Err == nil {
			m.notice = actionNotice(msg.Action)
		}
		return m.pullSnapshots(), nil

	case tea.KeyMsg:
		if m.confirmAction != "" {
			return m.updateConfirm(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		if m.view == viewLog {
			return m.updateLog(msg)
		}
		return m.updateDashboard(msg)
	}
	return m, nil
}

func (m AppModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.confirmAction
	m.confirmAction = ""
	switch msg.String() {
	case "y":
		switch action {
		case "stop":
			return m, m.stopWorkflow(false)
		case "force-stop":
			return m, m.stopWorkflow(true)
		case "retry":
			return m, m.retryFailedJobs()
		}
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m AppModel) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "down":
		if m.focus == focusJobs {
			m.jobs = m.jobs.MoveDown()
		} else {
			m.steps = m.steps.MoveDown()
		}
	case "up":
		if m.focus == focusJobs {
			m.jobs = m.jobs.MoveUp()
		} else {
			m.steps = m.steps.MoveUp()
		}
	case "tab":
		if m.focus == focusJobs {
			m.focus = focusSteps
		} else {
			m.focus = focusJobs
		}
	case "enter", "l":
		if m.focus != focusJobs || m.traceLoading {
			return m, nil
		}
		job, ok := m.jobs.Selected()
		if !ok {
			return m, nil
		}
		if m.sessionID() == "" || m.deps.Pipeline == nil {
			m.notice = "Job traces need a workflow session"
			return m, nil
		}
		m.traceLoading = true
		return m, m.loadTrace(job)
	case "L":
		m.log = NewLogViewModel("workflow logs", strings.Join(m.workflow.Logs, "\n")).Bottom()
		m.view = viewLog
	case "s", "S":
		if m.sessionID() == "" || m.deps.Workflow == nil {
			m.notice = "No workflow session to stop"
			return m, nil
		}
		m.confirmAction = "stop"
		if msg.String() == "S" {
			m.confirmAction = "force-stop"
		}
	case "t":
		if m.deps.Pipeline == nil || len(m.pipeline.FailedJobs()) == 0 {
			m.notice = "No failed jobs to retry"
			return m, nil
		}
		m.confirmAction = "retry"
	case "r":
		m.err = nil
		return m, m.restartPolling()
	case "p":
		if m.deps.Controller == nil {
			return m, nil
		}
		if m.deps.Controller.Toggle() && m.deps.Controller.IsPolling() {
			return m, m.restartPolling()
		}
	}
	return m, nil
}

func (m AppModel) updateLog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down":
		m.log = m.log.ScrollDown()
	case "up":
		m.log = m.log.ScrollUp()
	case "pgup":
		m.log = m.log.PageUp(m.visibleLogLines())
	case "pgdown":
		m.log = m.log.PageDown(m.visibleLogLines())
	case "g":
		m.log = m.log.Top()
	case "G":
		m.log = m.log.Bottom()
	case "esc":
		m.view = viewDashboard
		m.log = LogViewModel{}
	}
	return m, nil
}

func actionNotice(action string) string {
	switch action {
	case "stop":
		return "Workflow stop requested"
	case "retry":
		return "Failed jobs retried"
	case "resume":
		return "Polling resumed"
	case "refresh":
		return "Recovery refreshed"
	}
	return ""
}

// View renders the full TUI.
func (m AppModel) View() string {
	if m.traceLoading {
		return "Loading trace...\n"
	}
	if m.view == viewLog {
		return m.renderLogView()
	}
	return m.renderDashboard()
}

func (m AppModel) renderHeader() string {
	var sb strings.Builder
	sb.WriteString(" " + titleStyle.Render("autofixdeck") + " | " + m.target())
	if st := m.status(); st != nil {
		sb.WriteString(" | " + workflowBadge(st.Status))
	}
	sb.WriteString(" | " + m.pollingIndicator() + "\n")
	if mr := m.workflow.MR; mr != nil && m.sessionID() != "" {
		sb.WriteString(fmt.Sprintf(" MR !%s %s\n", mr.MRID, dimStyle.Render(mr.WebURL)))
	}
	if app := m.deps.App; app != nil && (app.Services.GitLabURL != "" || app.Services.LLMModel != "") {
		sb.WriteString(" " + dimStyle.Render(fmt.Sprintf("gitlab %s  model %s", app.Services.GitLabURL, app.Services.LLMModel)) + "\n")
	}
	return sb.String()
}

func (m AppModel) target() string {
	if !m.mergeRequestMode() {
		return "session " + m.workflow.SessionID
	}
	t := fmt.Sprintf("!%s in %s", m.recovery.MRID, m.recovery.Project)
	switch {
	case m.attached != "":
		t += " (session " + m.attached + ")"
	case m.recovery.IsRecovered:
		t += " (recovered)"
	}
	return t
}

func (m AppModel) pollingIndicator() string {
	c := m.deps.Controller
	switch {
	case c == nil:
		return ""
	case c.IsPolling():
		return m.spinner.View() + " polling"
	case !c.Enabled() && c.StoppedReason() == "":
		return warnStyle.Render("⏸ paused")
	default:
		return warnStyle.Render("■ stopped")
	}
}

func (m AppModel) renderDashboard() string {
	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString(separator)

	sb.WriteString(" Workflow steps\n")
	if m.focus == focusSteps {
		sb.WriteString(m.steps.ViewFocused())
	} else {
		sb.WriteString(m.steps.View())
	}
	sb.WriteString("\n")

	if !m.mergeRequestMode() || m.attached != "" {
		sb.WriteString(" Recent logs\n")
		recent := tail(m.workflow.Logs, 6)
		if len(recent) == 0 {
			sb.WriteString(dimStyle.Render("  No logs yet.") + "\n")
		}
		for _, line := range recent {
			sb.WriteString("  " + dimStyle.Render(truncate(line, 100)) + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(" " + m.pipelineTitle() + "\n")
	if m.focus == focusJobs {
		sb.WriteString(m.jobs.ViewFocused())
	} else {
		sb.WriteString(m.jobs.View())
	}
	sb.WriteString("\n")

	sb.WriteString(separator)
	if reason := m.stoppedReason(); reason != "" {
		sb.WriteString(" " + warnStyle.Render("Polling stopped: "+reason) + "\n")
	}
	switch {
	case m.err != nil:
		sb.WriteString(" " + errStyle.Render("Error: "+m.err.Error()) + "\n")
	case m.snapshotErr() != nil:
		sb.WriteString(" " + errStyle.Render("Error: "+m.snapshotErr().Error()) + "\n")
	case m.notice != "":
		sb.WriteString(" " + m.notice + "\n")
	}
	sb.WriteString(m.footer())
	return sb.String()
}

func (m AppModel) pipelineTitle() string {
	if m.sessionID() != "" && m.pipeline.Status != nil {
		p := m.pipeline.Status
		return fmt.Sprintf("Pipeline #%d %s %s", p.PipelineID, statusIcon(p.Status), p.Ref)
	}
	if ci := m.recovery.CI; ci != nil && ci.Pipeline != nil {
		return fmt.Sprintf("Pipeline #%d %s %s", ci.Pipeline.ID, statusIcon(ci.OverallStatus), ci.Pipeline.Ref)
	}
	return "Pipeline"
}

func (m AppModel) stoppedReason() string {
	if m.deps.Controller != nil {
		if r := m.deps.Controller.StoppedReason(); r != "" {
			return r
		}
	}
	if m.mergeRequestMode() && m.attached == "" {
		return m.recovery.StoppedReason
	}
	return m.workflow.StoppedReason
}

func (m AppModel) footer() string {
	switch m.confirmAction {
	case "stop":
		return fmt.Sprintf(" Stop workflow %s? [y/N] \n", m.sessionID())
	case "force-stop":
		return fmt.Sprintf(" Force stop workflow %s? [y/N] \n", m.sessionID())
	case "retry":
		return fmt.Sprintf(" Retry %d failed jobs? [y/N] \n", len(m.pipeline.FailedJobs()))
	}
	return helpStyle.Render(" ↑/↓: navigate   tab: steps/jobs   l: trace   L: logs   s/S: stop   t: retry jobs   r: resume   p: pause   q: quit") + "\n"
}

// visibleLogLines returns the number of log lines visible in the current terminal height.
func (m AppModel) visibleLogLines() int {
	lines := m.height - 4 // account for header, separator, and footer
	if lines < 10 {
		return 10
	}
	return lines
}

// renderLogView renders the fullscreen log viewer.
func (m AppModel) renderLogView() string {
	header := fmt.Sprintf(" %s  %s  [%s]\n", titleStyle.Render("autofixdeck"), m.target(), m.log.Title())
	footer := helpStyle.Render(" ↑/↓: scroll   PgUp/PgDn: page   g/G: top/bottom   esc: back") + "\n"
	return header + separator + m.log.View(m.visibleLogLines()) + "\n" + separator + footer
}

// Run starts the Bubbletea program and blocks until the user quits or ctx is done.
func Run(m AppModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
