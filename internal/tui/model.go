// Package tui is the interactive board. It follows the Elm architecture of
// bubbletea: Model holds the state, Update turns messages into a new state
// and View renders it.
//
// Card moves go through the optimistic executor: the board changes at once
// and a toast reports a rejected move after it was reverted. New and edited
// cards are only shown once the backing service confirmed them; a rejected
// save reopens the editor with the draft.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/board"
	"taskboard/internal/notify"
	"taskboard/internal/optimistic"
	"taskboard/internal/service"
)

// ToastQueueSize bounds the notifications waiting to be shown.
const ToastQueueSize = 16

// Options configures a Model.
type Options struct {
	ConfirmTimeout time.Duration
	ToastDuration  time.Duration
	Logger         *log.Entry
}

type inputMode int

const (
	inputNone inputMode = iota
	inputCard
	inputComment
)

// editor is the single-line prompt used for card titles and comments.
type editor struct {
	mode   inputMode
	input  textinput.Model
	card   service.Card // draft being edited in inputCard mode
	key    string       // draft key in inputCard mode
	saving bool
	err    string
}

// commentPane shows the thread of one card and follows its live stream.
type commentPane struct {
	cardID string
	title  string
	thread *board.Thread
	cancel context.CancelFunc
	err    string
}

// Messages.
type (
	boardChangedMsg struct{}

	toastMsg notify.Notification

	toastExpiredMsg struct{ seq int }

	moveResultMsg struct {
		cardID  string
		outcome optimistic.Outcome
		err     error
	}

	saveResultMsg struct {
		key     string
		outcome optimistic.Outcome
		err     error
	}

	commentsLoadedMsg struct {
		cardID   string
		comments []service.Comment
		stream   <-chan service.Comment
		err      error
	}

	commentMsg struct {
		cardID  string
		comment service.Comment
		stream  <-chan service.Comment
	}

	commentPostedMsg struct {
		cardID  string
		comment service.Comment
		err     error
	}
)

// Model is the interactive board.
type Model struct {
	ctx    context.Context
	svc    service.Service
	store  *board.Store
	exec   *optimistic.Executor
	toasts *notify.Queue
	log    *log.Entry

	changed     chan struct{}
	unsubscribe func()

	view        service.Board
	labelFilter []string
	col, row    int
	selectedID  string

	editor   editor
	comments *commentPane

	toast    *notify.Notification
	toastSeq int
	status   string

	width, height int
}

// New creates the model for b. Confirmations and comment requests run
// against svc and are bound to ctx.
func New(ctx context.Context, svc service.Service, b service.Board, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "tui")
	}
	store := board.NewStore(b)
	toasts := notify.NewQueue(ToastQueueSize)
	sink := notify.Multi(toasts, notify.LogSink{Entry: opts.Logger})
	exec := optimistic.NewExecutor(store, optimistic.NewServiceChannel(svc, opts.ConfirmTimeout), sink, optimistic.Options{
		ToastDuration: opts.ToastDuration,
		Logger:        opts.Logger,
	})

	input := textinput.New()
	input.CharLimit = 200
	input.Width = 40

	m := &Model{
		ctx:     ctx,
		svc:     svc,
		store:   store,
		exec:    exec,
		toasts:  toasts,
		log:     opts.Logger,
		changed: make(chan struct{}, 1),
		editor:  editor{input: input},
	}
	m.unsubscribe = store.Subscribe(func(service.Board, uint64) {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})
	m.refresh()
	return m
}

// Close stops following the store and the comment stream and waits for
// confirmations still in flight.
func (m *Model) Close() {
	m.unsubscribe()
	m.closeComments()
	m.exec.Wait()
}

// Init is called once when the program starts.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitBoardChange(), m.waitToast())
}

// Update is called when a message is received.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case boardChangedMsg:
		m.refresh()
		return m, m.waitBoardChange()

	case toastMsg:
		n := notify.Notification(msg)
		m.toast = &n
		m.toastSeq++
		seq := m.toastSeq
		d := n.Duration
		if d <= 0 {
			d = notify.DefaultDuration
		}
		return m, tea.Batch(m.waitToast(), tea.Tick(d, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} }))

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case moveResultMsg:
		m.refresh()
		return m, nil

	case saveResultMsg:
		return m.handleSaveResult(msg)

	case commentsLoadedMsg:
		return m.handleCommentsLoaded(msg)

	case commentMsg:
		if m.comments == nil || m.comments.cardID != msg.cardID {
			return m, nil
		}
		m.comments.thread.Append(msg.comment)
		return m, waitComment(msg.cardID, msg.stream)

	case commentPostedMsg:
		return m.handleCommentPosted(msg)

	case tea.KeyMsg:
		if m.editor.mode != inputNone {
			return m.updateEditor(msg)
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

func (m *Model) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "h", "left":
		m.focus(m.col-1, m.row)
	case "l", "right":
		m.focus(m.col+1, m.row)
	case "k", "up":
		m.focus(m.col, m.row-1)
	case "j", "down":
		m.focus(m.col, m.row+1)
	case "H", "shift+left":
		return m, m.moveSelected(-1)
	case "L", "shift+right":
		return m, m.moveSelected(1)
	case "n":
		m.openNewCard()
	case "e":
		m.openEditCard()
	case "f":
		m.toggleLabelFilter()
	case "F":
		m.labelFilter = nil
		m.refresh()
	case "c", "enter":
		return m, m.toggleComments()
	case "a":
		if m.comments != nil {
			m.openEditor(inputComment, "Comment")
		}
	case "esc":
		m.closeComments()
	}
	return m, nil
}

func (m *Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.editor.mode == inputCard && !m.editor.saving {
			m.exec.DiscardDraft(m.editor.key)
		}
		m.closeEditor()
		return m, nil
	case "enter":
		if m.editor.saving {
			return m, nil
		}
		if m.editor.mode == inputComment {
			return m, m.submitComment()
		}
		return m, m.submitCard()
	}
	if m.editor.saving {
		return m, nil
	}
	var cmd tea.Cmd
	m.editor.input, cmd = m.editor.input.Update(msg)
	return m, cmd
}

// refresh re-reads the store, applies the filter and keeps the selection
// on the same card when it is still visible.
func (m *Model) refresh() {
	m.view = board.Filter(m.store.Current(), m.labelFilter, nil)
	if m.selectedID != "" {
		for ci, col := range m.view.Columns {
			for ri, c := range col.Cards {
				if c.ID == m.selectedID {
					m.col, m.row = ci, ri
					return
				}
			}
		}
	}
	m.focus(m.col, m.row)
}

func (m *Model) focus(col, row int) {
	n := len(m.view.Columns)
	if n == 0 {
		m.col, m.row, m.selectedID = 0, 0, ""
		return
	}
	m.col = clamp(col, 0, n-1)
	cards := m.view.Columns[m.col].Cards
	if len(cards) == 0 {
		m.row, m.selectedID = 0, ""
		return
	}
	m.row = clamp(row, 0, len(cards)-1)
	m.selectedID = cards[m.row].ID
}

func (m *Model) selected() (service.Card, bool) {
	if m.col >= len(m.view.Columns) {
		return service.Card{}, false
	}
	cards := m.view.Columns[m.col].Cards
	if m.row >= len(cards) {
		return service.Card{}, false
	}
	return cards[m.row], true
}

func (m *Model) moveSelected(delta int) tea.Cmd {
	card, ok := m.selected()
	if !ok {
		return nil
	}
	target := m.col + delta
	if target < 0 || target >= len(m.view.Columns) {
		return nil
	}
	to := m.view.Columns[target].ID

	p, err := m.exec.Move(m.ctx, card.ID, card.ColumnID, to)
	if err != nil {
		switch {
		case errors.Is(err, optimistic.ErrMutationInFlight) && m.exec.Saving(card.ID):
			m.status = "Card is still being saved."
		case errors.Is(err, optimistic.ErrMutationInFlight):
			m.status = "Card is still being moved."
		default:
			m.status = err.Error()
		}
		return nil
	}
	m.refresh()
	return waitMove(m.ctx, card.ID, p)
}

func (m *Model) toggleLabelFilter() {
	card, ok := m.selected()
	if !ok || len(card.Labels) == 0 {
		if len(m.labelFilter) > 0 {
			m.labelFilter = nil
			m.refresh()
		}
		return
	}
	m.labelFilter = board.Toggle(m.labelFilter, card.Labels[0].ID)
	m.refresh()
}

func (m *Model) openNewCard() {
	if len(m.view.Columns) == 0 {
		return
	}
	draft := board.NewDraft(m.view.Columns[m.col].ID)
	key := optimistic.DraftKey(draft)
	if m.exec.Saving(key) {
		m.status = "A new card for this column is still being saved."
		return
	}
	if kept, ok := m.exec.Draft(key); ok {
		draft = kept
	}
	m.editor.card, m.editor.key = draft, key
	m.openEditor(inputCard, "New card in "+m.view.Columns[m.col].Title)
}

func (m *Model) openEditCard() {
	card, ok := m.selected()
	if !ok {
		return
	}
	key := optimistic.DraftKey(card)
	if m.exec.Saving(key) {
		m.status = "This card is still being saved."
		return
	}
	if m.exec.Moving(card.ID) {
		m.status = "Card is still being moved."
		return
	}
	if kept, ok := m.exec.Draft(key); ok {
		card = kept
	}
	m.editor.card, m.editor.key = card, key
	m.openEditor(inputCard, "Edit "+card.ID)
}

func (m *Model) openEditor(mode inputMode, prompt string) {
	m.editor.mode = mode
	m.editor.saving = false
	m.editor.err = ""
	m.editor.input.Prompt = prompt + ": "
	m.editor.input.SetValue("")
	if mode == inputCard {
		m.editor.input.SetValue(m.editor.card.Title)
	}
	m.editor.input.CursorEnd()
	m.editor.input.Focus()
}

func (m *Model) closeEditor() {
	m.editor.mode = inputNone
	m.editor.saving = false
	m.editor.err = ""
	m.editor.card, m.editor.key = service.Card{}, ""
	m.editor.input.Blur()
}

func (m *Model) submitCard() tea.Cmd {
	card := board.CloneCard(m.editor.card)
	card.Title = strings.TrimSpace(m.editor.input.Value())

	p, err := m.exec.Save(m.ctx, card)
	if err != nil {
		m.editor.err = err.Error()
		return nil
	}
	m.editor.card = card
	m.editor.saving = true
	m.editor.err = ""
	m.editor.input.Blur()
	return waitSave(m.ctx, m.editor.key, p)
}

func (m *Model) handleSaveResult(msg saveResultMsg) (tea.Model, tea.Cmd) {
	open := m.editor.mode == inputCard && m.editor.key == msg.key
	switch msg.outcome {
	case optimistic.OutcomeCommitted:
		if open {
			m.closeEditor()
		}
		m.refresh()
	case optimistic.OutcomeRejected:
		draft, ok := m.exec.Draft(msg.key)
		if !ok {
			return m, nil
		}
		m.editor.card, m.editor.key = draft, msg.key
		prompt := "Edit " + draft.ID
		if draft.IsDraft() {
			prompt = "New card"
			if col, ok := m.view.Column(draft.ColumnID); ok {
				prompt += " in " + col.Title
			}
		}
		m.openEditor(inputCard, prompt)
		if msg.err != nil {
			m.editor.err = msg.err.Error()
		}
	}
	return m, nil
}

func (m *Model) toggleComments() tea.Cmd {
	card, ok := m.selected()
	if m.comments != nil {
		same := ok && m.comments.cardID == card.ID
		m.closeComments()
		if same || !ok {
			return nil
		}
	}
	if !ok {
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.comments = &commentPane{
		cardID: card.ID,
		title:  card.Title,
		thread: board.NewThread(card.ID),
		cancel: cancel,
	}
	return loadComments(ctx, m.svc, card.ID)
}

func (m *Model) closeComments() {
	if m.comments == nil {
		return
	}
	m.comments.cancel()
	m.comments = nil
	if m.editor.mode == inputComment {
		m.closeEditor()
	}
}

func (m *Model) handleCommentsLoaded(msg commentsLoadedMsg) (tea.Model, tea.Cmd) {
	if m.comments == nil || m.comments.cardID != msg.cardID {
		return m, nil
	}
	if msg.err != nil {
		m.comments.err = msg.err.Error()
		return m, nil
	}
	m.comments.thread.Append(msg.comments...)
	if msg.stream == nil {
		return m, nil
	}
	return m, waitComment(msg.cardID, msg.stream)
}

func (m *Model) submitComment() tea.Cmd {
	if m.comments == nil {
		m.closeEditor()
		return nil
	}
	text := strings.TrimSpace(m.editor.input.Value())
	if err := service.ValidateCommentText(text); err != nil {
		m.editor.err = "comment " + err.Error()
		return nil
	}
	m.editor.saving = true
	m.editor.input.Blur()
	return postComment(m.ctx, m.svc, m.comments.cardID, text)
}

func (m *Model) handleCommentPosted(msg commentPostedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if m.editor.mode == inputComment {
			m.editor.saving = false
			m.editor.err = msg.err.Error()
			m.editor.input.Focus()
		}
		m.log.WithField("card", msg.cardID).WithError(msg.err).Warn("post comment failed")
		return m, nil
	}
	if m.comments != nil && m.comments.cardID == msg.cardID {
		m.comments.thread.Append(msg.comment)
	}
	if m.editor.mode == inputComment {
		m.closeEditor()
	}
	return m, nil
}

// Commands.

func (m *Model) waitBoardChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changed:
			return boardChangedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitToast() tea.Cmd {
	return func() tea.Msg {
		select {
		case n := <-m.toasts.C():
			return toastMsg(n)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func waitMove(ctx context.Context, cardID string, p *optimistic.Pending) tea.Cmd {
	return func() tea.Msg {
		outcome, err := p.Wait(ctx)
		return moveResultMsg{cardID: cardID, outcome: outcome, err: err}
	}
}

func waitSave(ctx context.Context, key string, p *optimistic.Pending) tea.Cmd {
	return func() tea.Msg {
		outcome, err := p.Wait(ctx)
		return saveResultMsg{key: key, outcome: outcome, err: err}
	}
}

// loadComments subscribes before listing so that nothing posted in between
// is lost; the thread drops duplicates.
func loadComments(ctx context.Context, svc service.Service, cardID string) tea.Cmd {
	return func() tea.Msg {
		stream, err := svc.SubscribeComments(ctx, cardID)
		if err != nil {
			return commentsLoadedMsg{cardID: cardID, err: fmt.Errorf("subscribe: %w", err)}
		}
		comments, err := svc.ListComments(ctx, cardID)
		return commentsLoadedMsg{cardID: cardID, comments: comments, stream: stream, err: err}
	}
}

func waitComment(cardID string, stream <-chan service.Comment) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-stream
		if !ok {
			return nil
		}
		return commentMsg{cardID: cardID, comment: c, stream: stream}
	}
}

func postComment(ctx context.Context, svc service.Service, cardID, text string) tea.Cmd {
	return func() tea.Msg {
		c, err := svc.PostComment(ctx, cardID, text)
		return commentPostedMsg{cardID: cardID, comment: c, err: err}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
