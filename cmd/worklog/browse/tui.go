package browsecmder

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/worklog"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

type browseView int

const (
	viewList browseView = iota
	viewEntry
)

type browseModel struct {
	service *worklog.Service
	table   string
	limit   int
	rows    []database.Row
	total   int64
	err     error
	view    browseView
	cursor  int
	width   int
	height  int
	keys    browseKeyMap
	help    help.Model
}

var (
	browseTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	browseMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	browseDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	browseHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("39")).Bold(true)
	browseKeyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	browseErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type browseKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Table   key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Enter, k.Back, k.Table, k.Refresh, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Enter, k.Back}, {k.Table, k.Refresh, k.Quit}}
}

func defaultKeyMap() browseKeyMap {
	return browseKeyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter:   key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "open")),
		Back:    key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "back")),
		Table:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "table")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type rowsLoadedMsg struct {
	table string
	rows  []database.Row
	total int64
	err   error
}

// orderColumns maps each table to the column recent rows sort by.
var orderColumns = map[string]string{
	"entries":       "timestamp",
	"topic_entries": "added_at",
}

// titleColumns maps each table to the column shown as the row title.
var titleColumns = map[string]string{
	"memories":             "key",
	"knowledge_base":       "title",
	"entries":              "title",
	"research":             "title",
	"agent_chat":           "message",
	"tag_taxonomy":         "canonical_tag",
	"relationships":        "relationship_type",
	"topic_index":          "topic_name",
	"topic_entries":        "entry_table",
	"duplicate_candidates": "table_name",
	"promotion_history":    "memory_key",
	"curation_history":     "operation",
	"error_patterns":       "error_signature",
}

func runBrowseTUI(ctx context.Context, service *worklog.Service, table string, limit int) error {
	model := newBrowseModel(service, table, limit)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func newBrowseModel(service *worklog.Service, table string, limit int) browseModel {
	if limit <= 0 {
		limit = 50
	}

	return browseModel{
		service: service,
		table:   table,
		limit:   limit,
		view:    viewList,
		keys:    defaultKeyMap(),
		help:    help.New(),
	}
}

func (m browseModel) Init() bubbletea.Cmd {
	return loadRowsCmd(m.service, m.table, m.limit)
}

func (m browseModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case rowsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.table = msg.table
		m.rows = msg.rows
		m.total = msg.total
		m.cursor = clamp(m.cursor, len(m.rows)-1)
		return m, nil
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m browseModel) View() string {
	switch m.view {
	case viewEntry:
		return m.viewEntry()
	default:
		return m.viewList()
	}
}

func (m browseModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, bubbletea.Quit
	case "j", "down":
		return m.moveCursor(1), nil
	case "k", "up":
		return m.moveCursor(-1), nil
	case "l", "enter":
		if m.view == viewList && len(m.rows) > 0 {
			m.view = viewEntry
		}
	case "h", "esc":
		if m.view == viewEntry {
			m.view = viewList
		}
	case "t":
		if m.view == viewList {
			next := nextTable(m.table)
			m.cursor = 0
			return m, loadRowsCmd(m.service, next, m.limit)
		}
	case "r":
		return m, loadRowsCmd(m.service, m.table, m.limit)
	}

	return m, nil
}

func (m browseModel) moveCursor(delta int) browseModel {
	if len(m.rows) == 0 {
		return m
	}
	m.cursor = clamp(m.cursor+delta, len(m.rows)-1)
	return m
}

func (m browseModel) viewList() string {
	headerLeft := browseTitleStyle.Render("worklog browse")
	headerRight := browseMutedStyle.Render(fmt.Sprintf("%s · %d of %d rows", m.table, len(m.rows), m.total))
	lines := []string{
		renderHeaderLine(m.width, headerLeft, headerRight),
		renderRule(m.width),
		"",
	}

	if m.err != nil {
		lines = append(lines, browseErrorStyle.Render("error: "+m.err.Error()), "", m.viewFooter())
		return strings.Join(lines, "\n")
	}

	if len(m.rows) == 0 {
		lines = append(lines, browseMutedStyle.Render("no rows"), "", m.viewFooter())
		return strings.Join(lines, "\n")
	}

	screenHeight := m.height
	if screenHeight <= 0 {
		screenHeight = 40
	}
	maxVisible := max(screenHeight-len(lines)-3, 5)

	start, end := visibleRange(len(m.rows), m.cursor, maxVisible)
	for i := start; i < end; i++ {
		row := m.rows[i]
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		line := fmt.Sprintf("%s %6s  %-50s %s",
			cursor,
			rowID(row),
			truncateText(rowTitle(m.table, row), 50),
			browseMutedStyle.Render(truncateText(rowStamp(m.table, row), 19)),
		)

		if i == m.cursor {
			line = browseHighlightStyle.Render(line)
		}

		lines = append(lines, line)
	}

	lines = append(lines, "", m.viewFooter())

	return strings.Join(lines, "\n")
}

func (m browseModel) viewEntry() string {
	if len(m.rows) == 0 || m.cursor >= len(m.rows) {
		return browseMutedStyle.Render("no entry selected")
	}

	row := m.rows[m.cursor]
	headerLeft := browseTitleStyle.Render("worklog browse › " + m.table)
	headerRight := browseMutedStyle.Render("id " + rowID(row))
	lines := []string{
		renderHeaderLine(m.width, headerLeft, headerRight),
		renderRule(m.width),
		"",
	}

	width := m.width
	if width <= 0 {
		width = 80
	}

	for _, field := range sortedFields(row) {
		value := fieldString(row[field])
		if value == "" {
			continue
		}

		label := browseKeyStyle.Render(field + ":")
		wrapped := wrapText(value, max(20, width-2))
		if len(wrapped) == 1 && lipgloss.Width(label)+1+lipgloss.Width(wrapped[0]) <= width {
			lines = append(lines, label+" "+wrapped[0])
			continue
		}

		lines = append(lines, label)
		for _, line := range wrapped {
			lines = append(lines, "  "+line)
		}
	}

	lines = append(lines, "", m.viewFooter())

	return strings.Join(lines, "\n")
}

func (m browseModel) viewFooter() string {
	return browseMutedStyle.Render(m.help.View(m.keys))
}

func loadRowsCmd(service *worklog.Service, table string, limit int) bubbletea.Cmd {
	return func() bubbletea.Msg {
		result, err := service.QueryTable(context.Background(), worklog.QueryParams{
			Table:   table,
			OrderBy: orderColumn(table) + " DESC",
			Limit:   limit,
		})
		if err != nil {
			return rowsLoadedMsg{table: table, err: err}
		}

		return rowsLoadedMsg{table: table, rows: result.Rows, total: result.Total}
	}
}

// nextTable cycles through the queryable tables in their listed order.
func nextTable(current string) string {
	for i, table := range worklog.Tables {
		if table == current {
			return worklog.Tables[(i+1)%len(worklog.Tables)]
		}
	}
	return worklog.Tables[0]
}

func orderColumn(table string) string {
	if col, ok := orderColumns[table]; ok {
		return col
	}
	return "created_at"
}

// rowTitle picks the most descriptive column a table has for its list line.
func rowTitle(table string, row database.Row) string {
	if col, ok := titleColumns[table]; ok {
		if title := fieldString(row[col]); title != "" {
			return title
		}
	}
	return fieldString(row["id"])
}

func rowID(row database.Row) string {
	return fieldString(row["id"])
}

// rowStamp returns the row's sort timestamp for display.
func rowStamp(table string, row database.Row) string {
	return fieldString(row[orderColumn(table)])
}

func fieldString(value any) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// sortedFields returns the row's populated column names, id first, the rest
// alphabetical.
func sortedFields(row database.Row) []string {
	fields := make([]string, 0, len(row))
	for field := range row {
		if field == "id" {
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	if _, ok := row["id"]; ok {
		fields = append([]string{"id"}, fields...)
	}

	return fields
}

func clamp(value, upper int) int {
	if value < 0 {
		return 0
	}
	if value > upper {
		return upper
	}
	return value
}

func truncateText(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func renderHeaderLine(width int, left, right string) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 >= lineWidth {
		return strings.TrimSpace(left + " " + right)
	}
	spacing := lineWidth - leftWidth - rightWidth
	return left + strings.Repeat(" ", spacing) + right
}

func renderRule(width int) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	return browseDividerStyle.Render(strings.Repeat("─", lineWidth))
}

func visibleRange(total, cursor, size int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if total <= size {
		return 0, total
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	start := max(cursor-(size/2), 0)
	end := start + size
	if end > total {
		end = total
		start = max(end-size, 0)
	}
	return start, end
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	lines := []string{}
	current := ""
	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		if lipgloss.Width(current)+1+lipgloss.Width(word) <= width {
			current = current + " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
