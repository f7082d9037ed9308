package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/cardx/internal/formatter"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/notify"
	"github.com/desertthunder/cardx/internal/shared"
	"github.com/desertthunder/cardx/internal/stream"
	"github.com/desertthunder/cardx/internal/view"
)

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

// ToastTTL is how long a toast stays on screen before it is dismissed.
const ToastTTL = 5 * time.Second

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	SearchView
	ConfirmView
	DetailView
)

type confirmAction int

const (
	confirmDelete confirmAction = iota
	confirmClear
)

// DetailSource loads the extracted text and flashcards of one upload.
type DetailSource interface {
	GetUploadText(ctx context.Context, id int) (*models.UploadText, error)
	GetCards(ctx context.Context, uploadID int) ([]models.Card, error)
}

type toast struct {
	alert  notify.Alert
	handle notify.Handle
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	pages    *view.PagedView
	details  DetailSource
	bridge   *Bridge
	conn     stream.State
	width    int
	height   int
	uploads  list.Model
	search   textinput.Model
	detail   viewport.Model
	cards    []models.Card
	action   confirmAction
	target   *models.Upload
	toast    *toast
	loading  bool
	help     help.Model
	keys     keyMap
	toastTTL time.Duration
}

// NewModel creates a new TUI model over pages. Live updates are read from bridge, which may be nil.
func NewModel(ctx context.Context, pages *view.PagedView, details DetailSource, bridge *Bridge) *Model {
	uploads := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	uploads.Title = "Uploads"
	uploads.SetFilteringEnabled(false)
	uploads.SetShowHelp(false)
	uploads.SetShowStatusBar(false)
	uploads.SetShowPagination(false)
	uploads.DisableQuitKeybindings()
	uploads.KeyMap.NextPage.SetEnabled(false)
	uploads.KeyMap.PrevPage.SetEnabled(false)

	search := textinput.New()
	search.Placeholder = "filename"
	search.Prompt = "/ "

	return &Model{
		ctx:      ctx,
		view:     ListView,
		pages:    pages,
		details:  details,
		bridge:   bridge,
		conn:     stream.StateDisconnected,
		uploads:  uploads,
		search:   search,
		detail:   viewport.New(0, 0),
		help:     help.New(),
		keys:     newKeyMap(),
		toastTTL: ToastTTL,
	}
}

// Init fetches the first page and starts listening for live updates.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(m.load(m.pages.Refresh), m.waitForBridge())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.uploads.SetSize(msg.Width-4, msg.Height-10)
		m.detail.Width = msg.Width - 4
		m.detail.Height = msg.Height - 8
		return m, nil
	case tea.KeyMsg:
		switch m.view {
		case SearchView:
			return m.handleSearchKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		default:
			return m.handleListKeys(msg)
		}
	case Msg:
		return m.handleMsg(msg)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPageLoaded:
		m.loading = false
		m.syncRows()
		if err := errorOf(msg.data); err != nil {
			return m, m.showError(err)
		}
		return m, nil
	case MsgMutated:
		m.loading = false
		m.syncRows()
		if err := errorOf(msg.data); err != nil {
			return m, m.showError(err)
		}
		return m, nil
	case MsgStatusChanged:
		m.syncRows()
		return m, m.waitForBridge()
	case MsgConnectionChanged:
		m.conn = msg.data.(stream.State)
		return m, m.waitForBridge()
	case MsgToast:
		d := msg.data.(toastData)
		return m, tea.Batch(m.showToast(d.alert, d.handle), m.waitForBridge())
	case MsgToastExpired:
		if m.toast != nil && m.toast.handle == msg.data {
			m.dismissToast()
		}
		return m, nil
	case MsgDetailLoaded:
		d := msg.data.(detailData)
		m.loading = false
		if d.err != nil {
			m.view = ListView
			return m, m.showError(d.err)
		}
		m.cards = d.cards
		m.detail.SetContent(renderDetail(m.target, d.text, d.cards, m.detail.Width))
		m.detail.GotoTop()
		m.view = DetailView
		return m, nil
	case MsgBridgeClosed:
		m.bridge = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.dismissToast()
		return m, nil
	case key.Matches(msg, m.keys.next):
		return m, m.load(m.pages.NextPage)
	case key.Matches(msg, m.keys.prev):
		return m, m.load(m.pages.PrevPage)
	case key.Matches(msg, m.keys.refresh):
		return m, m.load(m.pages.Refresh)
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		m.search.SetValue(m.pages.Search())
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.enter):
		if u := m.selected(); u != nil && m.details != nil {
			m.target = u
			m.loading = true
			return m, m.fetchDetail(u.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if u := m.selected(); u != nil {
			m.target = u
			m.action = confirmDelete
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.clear):
		m.target = nil
		m.action = confirmClear
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.uploads, cmd = m.uploads.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.search.Blur()
		m.view = ListView
		return m, nil
	case tea.KeyEnter:
		term := strings.TrimSpace(m.search.Value())
		m.search.Blur()
		m.view = ListView
		return m, m.load(func(ctx context.Context) error { return m.pages.SetSearch(ctx, term) })
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = ListView
		m.loading = true
		if m.action == confirmClear {
			return m, m.mutate(m.pages.ClearAll)
		}
		id := m.target.ID
		return m, m.mutate(func(ctx context.Context) error { return m.pages.Delete(ctx, id) })
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = ListView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit) && msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = ListView
		m.cards = nil
		return m, nil
	case key.Matches(msg, m.keys.copy):
		return m, m.copyCards()
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case ConfirmView:
		body = m.renderConfirm()
	case DetailView:
		body = m.detail.View() + "\n" + styles.help.Render("esc back • ↑/↓ scroll • c copy cards")
	default:
		body = m.renderList()
	}

	parts := []string{m.renderHeader(), body}
	if t := m.renderToast(); t != "" {
		parts = append(parts, t)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderHeader() string {
	page := fmt.Sprintf("page %d/%d", m.pages.Page(), m.pages.TotalPages())
	header := fmt.Sprintf("%s  %s  %s", styles.title.UnsetMarginBottom().Render("cardx"), page, connectionBadge(m.conn))
	if s := m.pages.Search(); s != "" {
		header += styles.help.Render(fmt.Sprintf("  search: %q", s))
	}
	if m.loading {
		header += styles.help.Render("  loading…")
	}
	return header + "\n"
}

func (m *Model) renderList() string {
	var b strings.Builder
	if len(m.uploads.Items()) == 0 {
		b.WriteString(styles.help.Render("No uploads yet.") + "\n\n")
	} else {
		b.WriteString(m.uploads.View() + "\n")
	}
	if m.view == SearchView {
		b.WriteString(m.search.View() + "\n")
		b.WriteString(styles.help.Render("enter apply • esc cancel"))
		return b.String()
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderConfirm() string {
	var prompt string
	if m.action == confirmClear {
		prompt = "Delete ALL uploads?"
	} else {
		prompt = fmt.Sprintf("Delete upload #%d (%s)?", m.target.ID, m.target.Filename)
	}
	return styles.warn.Render(prompt) + "\n\n" + styles.help.Render("y confirm • n cancel")
}

func (m *Model) renderToast() string {
	if m.toast == nil || !m.toast.handle.Active() {
		return ""
	}
	style := styles.toast.BorderForeground(styles.ok.GetForeground())
	text := styles.ok.Render(m.toast.alert.Message)
	if m.toast.alert.Level == notify.LevelFailure {
		style = styles.toast.BorderForeground(styles.err.GetForeground())
		text = styles.err.Render(m.toast.alert.Message)
	}
	return style.Render(text)
}

// renderDetail renders the upload header, extracted text and flashcards as Markdown through glamour.
// It falls back to plain styled text when the renderer cannot be built.
func renderDetail(u *models.Upload, text *models.UploadText, cards []models.Card, width int) string {
	var b strings.Builder
	if u != nil {
		fmt.Fprintf(&b, "# #%d %s\n\n**Status**: %s\n\n", u.ID, u.Filename, u.Status.Label())
	}
	if text != nil && text.Text != "" {
		b.WriteString(text.Text + "\n\n")
	}
	if len(cards) == 0 {
		b.WriteString("_No flashcards generated._\n")
	} else if md, err := formatter.CardsToMarkdown(cards); err == nil {
		b.Write(md)
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(max(width, 20)))
	if err == nil {
		if out, err := r.Render(b.String()); err == nil {
			return out
		}
	}
	return renderPlainDetail(u, text, cards)
}

func renderPlainDetail(u *models.Upload, text *models.UploadText, cards []models.Card) string {
	var b strings.Builder
	if u != nil {
		fmt.Fprintf(&b, "%s\n", styles.title.Render(fmt.Sprintf("#%d %s", u.ID, u.Filename)))
		fmt.Fprintf(&b, "Status: %s\n\n", statusBadge(u.Status))
	}
	if text != nil && text.Text != "" {
		b.WriteString(text.Text + "\n\n")
	}
	if len(cards) == 0 {
		b.WriteString(styles.help.Render("No flashcards generated."))
		return b.String()
	}
	fmt.Fprintf(&b, "%s\n", styles.ok.Render(fmt.Sprintf("%d flashcards", len(cards))))
	for i, c := range cards {
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n", i+1, c.Question, styles.help.Render(c.Answer))
	}
	return b.String()
}

// copyCards puts the open upload's flashcards on the system clipboard as Q/A text.
func (m *Model) copyCards() tea.Cmd {
	if len(m.cards) == 0 {
		return m.showError(errors.New("no flashcards to copy"))
	}
	data, err := formatter.CardsToText(m.cards)
	if err == nil {
		err = copyToClipboard(string(data))
	}
	if err != nil {
		return m.showError(fmt.Errorf("copy failed: %w", err))
	}
	return m.showToast(notify.Alert{Level: notify.LevelSuccess, Message: fmt.Sprintf("Copied %d flashcards", len(m.cards))}, &notify.BasicHandle{})
}

func (m *Model) selected() *models.Upload {
	item, ok := m.uploads.SelectedItem().(uploadItem)
	if !ok {
		return nil
	}
	u := item.upload
	return &u
}

// syncRows copies the store rows into the list, keeping the cursor where it can.
func (m *Model) syncRows() {
	idx := m.uploads.Index()
	m.uploads.SetItems(uploadItems(m.pages.Rows()))
	if n := len(m.uploads.Items()); n > 0 {
		m.uploads.Select(min(idx, n-1))
	}
}

// showToast replaces the current toast. Handles from the policy are dismissed by the policy itself.
func (m *Model) showToast(a notify.Alert, h notify.Handle) tea.Cmd {
	m.toast = &toast{alert: a, handle: h}
	return tea.Tick(m.toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg(h) })
}

// showError raises a one-shot failure toast for a request error.
func (m *Model) showError(err error) tea.Cmd {
	msg := err.Error()
	if errors.Is(err, shared.ErrNotAuthenticated) {
		msg = "Not signed in. Run `cardx auth login` first."
	}
	return m.showToast(notify.Alert{Level: notify.LevelFailure, Message: msg}, &notify.BasicHandle{})
}

func (m *Model) dismissToast() {
	if m.toast != nil {
		m.toast.handle.Dismiss()
		m.toast = nil
	}
}

func (m *Model) waitForBridge() tea.Cmd {
	if m.bridge == nil {
		return nil
	}
	return m.bridge.Wait()
}

func (m *Model) load(op func(context.Context) error) tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		return pageLoadedMsg(op(m.ctx))
	}
}

func (m *Model) mutate(op func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return mutatedMsg(op(m.ctx))
	}
}

func (m *Model) fetchDetail(id int) tea.Cmd {
	return func() tea.Msg {
		text, err := m.details.GetUploadText(m.ctx, id)
		if err != nil {
			return detailLoadedMsg(nil, nil, err)
		}
		cards, err := m.details.GetCards(m.ctx, id)
		if err != nil && !errors.Is(err, shared.ErrUploadNotFound) {
			return detailLoadedMsg(nil, nil, err)
		}
		return detailLoadedMsg(text, cards, nil)
	}
}
