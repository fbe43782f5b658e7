package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tagging-ai/tagboard/internal/views"
	"github.com/tagging-ai/tagboard/pkg/models"
)

type mode int

const (
	modeList mode = iota
	modeFilter
	modeDetail
	modeEdit
	modeConfirm
)

type editField int

const (
	fieldText editField = iota
	fieldSentiment
	fieldPriority
	fieldTags
	fieldCount
)

type (
	loadedMsg  struct{ err error }
	savedMsg   struct{ err error }
	deletedMsg struct {
		id  string
		err error
	}
)

// Browser is the bubbletea model for browsing and editing history.
type Browser struct {
	ctx    context.Context
	view   *views.HistoryView
	now    func() time.Time
	styles Styles

	table  table.Model
	ids    []string
	filter textinput.Model
	text   textarea.Model
	tags   textinput.Model

	mode    mode
	back    mode
	field   editField
	pending string
	notice  string
	width   int
}

// NewBrowser creates a browser over v. Network calls use ctx.
func NewBrowser(ctx context.Context, v *views.HistoryView) Browser {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 8},
			{Title: "Text", Width: 42},
			{Title: "Sentiment", Width: 10},
			{Title: "Priority", Width: 9},
			{Title: "Conf.", Width: 6},
			{Title: "When", Width: 16},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	fi := textinput.New()
	fi.Placeholder = "Search text or tags..."
	fi.Prompt = "/ "
	fi.CharLimit = 100

	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.SetHeight(5)
	ta.SetWidth(60)

	ti := textinput.New()
	ti.Placeholder = "comma separated"
	ti.Prompt = ""

	b := Browser{
		ctx:    ctx,
		view:   v,
		now:    time.Now,
		styles: DefaultStyles(),
		table:  t,
		filter: fi,
		text:   ta,
		tags:   ti,
	}
	b.refresh()
	return b
}

// Init loads history.
func (b Browser) Init() tea.Cmd {
	return b.load()
}

func (b Browser) load() tea.Cmd {
	ctx, v := b.ctx, b.view
	return func() tea.Msg { return loadedMsg{err: v.Load(ctx)} }
}

func (b Browser) save() tea.Cmd {
	ctx, v := b.ctx, b.view
	return func() tea.Msg { return savedMsg{err: v.Save(ctx)} }
}

func (b Browser) remove(id string) tea.Cmd {
	ctx, v := b.ctx, b.view
	return func() tea.Msg { return deletedMsg{id: id, err: v.Delete(ctx, id)} }
}

// Update handles messages.
func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.table.SetHeight(max(msg.Height-8, 5))
		b.text.SetWidth(max(min(msg.Width-8, 100), 20))

	case loadedMsg:
		b.notice = ""

	case savedMsg:
		if msg.err == nil {
			b.mode = modeDetail
			b.notice = "Saved"
		}

	case deletedMsg:
		if msg.err == nil {
			b.mode = modeList
			b.notice = "Deleted"
		} else if b.view.State().Selected != nil {
			b.mode = modeDetail
		} else {
			b.mode = modeList
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return b, tea.Quit
		}
		switch b.mode {
		case modeList:
			b, cmd = b.updateList(msg)
		case modeFilter:
			b, cmd = b.updateFilter(msg)
		case modeDetail:
			b, cmd = b.updateDetail(msg)
		case modeEdit:
			b, cmd = b.updateEdit(msg)
		case modeConfirm:
			b, cmd = b.updateConfirm(msg)
		}
	}

	b.refresh()
	return b, cmd
}

func (b Browser) updateList(msg tea.KeyMsg) (Browser, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return b, tea.Quit
	case "r":
		b.notice = "Refreshing..."
		return b, b.load()
	case "/":
		b.mode = modeFilter
		return b, b.filter.Focus()
	case "s":
		f := b.view.State().Filter
		f.Sentiment = nextSentiment(f.Sentiment)
		b.view.SetFilter(f)
		return b, nil
	case "p":
		f := b.view.State().Filter
		f.Priority = nextPriority(f.Priority)
		b.view.SetFilter(f)
		return b, nil
	case "enter":
		if id := b.cursorID(); id != "" && b.view.Select(id) {
			b.mode = modeDetail
			b.notice = ""
		}
		return b, nil
	case "d":
		if id := b.cursorID(); id != "" {
			b.pending, b.back, b.mode = id, modeList, modeConfirm
		}
		return b, nil
	}

	var cmd tea.Cmd
	b.table, cmd = b.table.Update(msg)
	return b, cmd
}

func (b Browser) updateFilter(msg tea.KeyMsg) (Browser, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		b.filter.Blur()
		b.mode = modeList
		return b, nil
	}
	var cmd tea.Cmd
	b.filter, cmd = b.filter.Update(msg)
	f := b.view.State().Filter
	f.Query = b.filter.Value()
	b.view.SetFilter(f)
	return b, cmd
}

func (b Browser) updateDetail(msg tea.KeyMsg) (Browser, tea.Cmd) {
	st := b.view.State()
	if st.Selected == nil {
		b.mode = modeList
		return b, nil
	}
	switch msg.String() {
	case "esc", "q":
		b.view.Close()
		b.mode = modeList
	case "e":
		if err := b.view.StartEdit(); err != nil {
			return b, nil
		}
		d := b.view.State().Draft
		b.text.SetValue(d.Text)
		b.tags.SetValue(strings.Join(d.Tags, ", "))
		b.mode = modeEdit
		b.notice = ""
		return b, b.focus(fieldText)
	case "d":
		b.pending, b.back, b.mode = st.Selected.ID, modeDetail, modeConfirm
	}
	return b, nil
}

func (b Browser) updateEdit(msg tea.KeyMsg) (Browser, tea.Cmd) {
	if b.view.State().Saving {
		return b, nil
	}
	switch msg.String() {
	case "esc":
		b.view.CancelEdit()
		b.text.Blur()
		b.tags.Blur()
		b.mode = modeDetail
		return b, nil
	case "ctrl+s":
		text, tags := b.text.Value(), b.tags.Value()
		_ = b.view.EditDraft(func(d *models.Draft) {
			d.Text = text
			d.Tags = models.NormalizeTags(strings.Split(tags, ","))
		})
		b.notice = "Saving..."
		return b, b.save()
	case "tab":
		return b, b.focus((b.field + 1) % fieldCount)
	case "shift+tab":
		return b, b.focus((b.field + fieldCount - 1) % fieldCount)
	}

	var cmd tea.Cmd
	switch b.field {
	case fieldText:
		b.text, cmd = b.text.Update(msg)
	case fieldTags:
		b.tags, cmd = b.tags.Update(msg)
	case fieldSentiment, fieldPriority:
		step := 0
		switch msg.String() {
		case "right", "l", " ":
			step = 1
		case "left", "h":
			step = -1
		}
		if step != 0 {
			field := b.field
			_ = b.view.EditDraft(func(d *models.Draft) {
				if field == fieldSentiment {
					d.Sentiment = cycle(models.Sentiments, d.Sentiment, step)
				} else {
					d.Priority = cycle(models.Priorities, d.Priority, step)
				}
			})
		}
	}
	return b, cmd
}

func (b Browser) updateConfirm(msg tea.KeyMsg) (Browser, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := b.pending
		b.pending = ""
		b.notice = "Deleting..."
		return b, b.remove(id)
	case "n", "N", "esc":
		b.pending = ""
		b.mode = b.back
	}
	return b, nil
}

// focus moves editor focus to f.
func (b *Browser) focus(f editField) tea.Cmd {
	b.field = f
	b.text.Blur()
	b.tags.Blur()
	switch f {
	case fieldText:
		return b.text.Focus()
	case fieldTags:
		return b.tags.Focus()
	}
	return nil
}

func (b Browser) cursorID() string {
	i := b.table.Cursor()
	if i < 0 || i >= len(b.ids) {
		return ""
	}
	return b.ids[i]
}

// refresh rebuilds table rows from the view.
func (b *Browser) refresh() {
	st := b.view.State()
	now := b.now()
	rows := make([]table.Row, 0, len(st.Records))
	ids := make([]string, 0, len(st.Records))
	for _, r := range st.Records {
		rows = append(rows, table.Row{
			views.ShortID(r.ID),
			views.Truncate(strings.ReplaceAll(r.Text, "\n", " "), 40),
			string(r.Sentiment),
			string(r.Priority),
			views.Percent(r.ConfidencePercent()),
			views.RelativeTime(r.Timestamp, now),
		})
		ids = append(ids, r.ID)
	}
	b.ids = ids
	b.table.SetRows(rows)
	if c := b.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		b.table.SetCursor(len(rows) - 1)
	}
}

// View renders the current mode.
func (b Browser) View() string {
	st := b.view.State()
	var sb strings.Builder

	sb.WriteString(b.styles.Title.Render(fmt.Sprintf("History (%d of %d)", len(st.Records), st.Total)))
	sb.WriteString("  ")
	sb.WriteString(b.styles.Dim.Render(filterLine(st.Filter)))
	sb.WriteString("\n")
	if b.mode == modeFilter {
		sb.WriteString(b.filter.View())
		sb.WriteString("\n")
	}

	switch b.mode {
	case modeDetail:
		sb.WriteString(b.detailView(st))
	case modeEdit:
		sb.WriteString(b.editView(st))
	default:
		if st.Loading && len(st.Records) == 0 {
			sb.WriteString("Loading history...\n")
		} else if len(st.Records) == 0 {
			sb.WriteString(b.styles.Dim.Render("No analyses found."))
			sb.WriteString("\n")
		} else {
			sb.WriteString(b.table.View())
			sb.WriteString("\n")
		}
	}

	if b.mode == modeConfirm {
		sb.WriteString(b.styles.Error.Render("Delete this analysis? This cannot be undone. (y/n)"))
		sb.WriteString("\n")
	}
	if st.Err != "" {
		sb.WriteString(b.styles.Error.Render(st.Err))
		sb.WriteString("\n")
	} else if b.notice != "" {
		sb.WriteString(b.styles.Notice.Render(b.notice))
		sb.WriteString("\n")
	}
	sb.WriteString(b.styles.Help.Render(b.help()))
	return sb.String()
}

func (b Browser) detailView(st views.HistoryState) string {
	r := st.Selected
	if r == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s %s  %s\n\n",
		b.styles.Label.Render("#"+views.ShortID(r.ID)),
		Badge(views.SentimentTreatment(r.Sentiment), string(r.Sentiment)),
		Badge(views.PriorityTreatment(r.Priority), string(r.Priority)),
		b.styles.Dim.Render(views.RelativeTime(r.Timestamp, b.now())),
	)
	sb.WriteString(r.Text)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%s %s\n", b.styles.Label.Render("Confidence"), views.Percent(r.ConfidencePercent()))
	fmt.Fprintf(&sb, "%s %s\n\n", b.styles.Label.Render("Tags"), tagList(r.Tags))
	sb.WriteString(b.styles.Label.Render("Detailed analysis"))
	sb.WriteString("\n")
	sb.WriteString(r.Detailed())

	box := b.styles.Modal
	if b.width > 0 {
		box = box.Width(max(min(b.width-4, 100), 20))
	}
	return box.Render(sb.String()) + "\n"
}

func (b Browser) editView(st views.HistoryState) string {
	label := func(f editField, s string) string {
		if b.field == f {
			return b.styles.Focused.Render(s)
		}
		return b.styles.Label.Render(s)
	}

	var sb strings.Builder
	sb.WriteString(label(fieldText, "Text"))
	sb.WriteString("\n")
	sb.WriteString(b.text.View())
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%s  < %s >\n", label(fieldSentiment, "Sentiment"),
		Badge(views.SentimentTreatment(st.Draft.Sentiment), string(st.Draft.Sentiment)))
	fmt.Fprintf(&sb, "%s   < %s >\n", label(fieldPriority, "Priority"),
		Badge(views.PriorityTreatment(st.Draft.Priority), string(st.Draft.Priority)))
	sb.WriteString(label(fieldTags, "Tags"))
	sb.WriteString("  ")
	sb.WriteString(b.tags.View())
	if st.Saving {
		sb.WriteString("\n")
		sb.WriteString(b.styles.Dim.Render("Saving..."))
	}
	return lipgloss.NewStyle().MarginBottom(1).Render(b.styles.Modal.Render(sb.String())) + "\n"
}

func (b Browser) help() string {
	switch b.mode {
	case modeFilter:
		return "type to search · enter/esc done"
	case modeDetail:
		return "e edit · d delete · esc close"
	case modeEdit:
		return "tab next field · ←/→ change · ctrl+s save · esc cancel"
	case modeConfirm:
		return "y confirm · n cancel"
	}
	return "↑/↓ move · enter open · d delete · / search · s sentiment · p priority · r refresh · q quit"
}

func filterLine(f views.Filter) string {
	parts := []string{}
	if f.Sentiment != "" {
		parts = append(parts, "sentiment="+string(f.Sentiment))
	}
	if f.Priority != "" {
		parts = append(parts, "priority="+string(f.Priority))
	}
	if f.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", f.Query))
	}
	if len(parts) == 0 {
		return "all records"
	}
	return strings.Join(parts, " ")
}

func tagList(t models.Tags) string {
	if len(t) == 0 {
		return "none"
	}
	return strings.Join(t, ", ")
}

// nextSentiment cycles any, then each sentiment, then back to any.
func nextSentiment(s models.Sentiment) models.Sentiment {
	if s == "" {
		return models.Sentiments[0]
	}
	for i, v := range models.Sentiments {
		if v == s && i+1 < len(models.Sentiments) {
			return models.Sentiments[i+1]
		}
	}
	return ""
}

func nextPriority(p models.Priority) models.Priority {
	if p == "" {
		return models.Priorities[0]
	}
	for i, v := range models.Priorities {
		if v == p && i+1 < len(models.Priorities) {
			return models.Priorities[i+1]
		}
	}
	return ""
}

// cycle steps through values, starting from the first when cur is unknown.
func cycle[T comparable](values []T, cur T, step int) T {
	for i, v := range values {
		if v == cur {
			return values[(i+step+len(values))%len(values)]
		}
	}
	return values[0]
}
