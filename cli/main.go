package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E7D32")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)

	statusStyles = map[string]lipgloss.Style{
		"expired": lipgloss.NewStyle().Foreground(lipgloss.Color("#ff453a")),
		"urgent":  lipgloss.NewStyle().Foreground(lipgloss.Color("#ff9f0a")),
		"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd60a")),
		"fresh":   lipgloss.NewStyle().Foreground(lipgloss.Color("#30d158")),
	}
)

var wasteReasons = []string{"expired", "spoiled", "forgot", "too much", "other"}

// Model defines the application state
type Model struct {
	mainMenu    list.Model
	inventory   list.Model
	reasons     list.Model
	wasteTable  table.Model
	statsTable  table.Model
	textInput   textinput.Model
	spinner     spinner.Model
	client      *ApiClient
	totals      *Totals
	coach       string
	scan        *ScanResult
	wasting     *inventoryItem
	loading     bool
	currentView string
	error       string
	message     string
}

// item represents a list item
type item struct {
	title, desc string
}

// FilterValue implements list.Item interface
func (i item) FilterValue() string { return i.title }

// Title implements list.Item interface
func (i item) Title() string { return i.title }

// Description implements list.Item interface
func (i item) Description() string { return i.desc }

// inventoryItem represents an active item in the inventory list
type inventoryItem struct {
	id       string
	title    string
	desc     string
	quantity float64
}

func (i inventoryItem) Title() string       { return i.title }
func (i inventoryItem) Description() string { return i.desc }
func (i inventoryItem) FilterValue() string { return i.title }

// Initialize the model
func initialModel() Model {
	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	// Initialize main menu items
	items := []list.Item{
		item{title: "Inventory", desc: "Items sorted by expiration; waste or use them"},
		item{title: "Add Item", desc: "Add a grocery item by hand"},
		item{title: "Scan Receipt", desc: "Read items from a receipt photo"},
		item{title: "Waste Log", desc: "What was thrown away and why"},
		item{title: "Impact", desc: "Money and CO2 wasted and saved"},
		item{title: "Exit", desc: "Exit the application"},
	}

	// Initialize main menu
	mainMenu := list.New(items, list.NewDefaultDelegate(), 60, 20)
	mainMenu.Title = "FoodSaver"

	inventory := list.New([]list.Item{}, list.NewDefaultDelegate(), 60, 20)
	inventory.Title = "Inventory"

	reasonItems := make([]list.Item, len(wasteReasons))
	for i, r := range wasteReasons {
		reasonItems[i] = item{title: r, desc: "Log the item as wasted: " + r}
	}
	reasons := list.New(reasonItems, list.NewDefaultDelegate(), 60, 16)
	reasons.Title = "Why was it wasted?"

	wasteTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "Date", Width: 12},
			{Title: "Item", Width: 20},
			{Title: "Reason", Width: 10},
			{Title: "Cost", Width: 8},
			{Title: "CO2 kg", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	statsTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "Category", Width: 12},
			{Title: "Wasted $", Width: 10},
			{Title: "Share", Width: 8},
		}),
		table.WithHeight(8),
	)

	// Initialize text input
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 60

	return Model{
		mainMenu:    mainMenu,
		inventory:   inventory,
		reasons:     reasons,
		wasteTable:  wasteTable,
		statsTable:  statsTable,
		spinner:     s,
		textInput:   ti,
		client:      NewApiClient(),
		currentView: "main",
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.EnterAltScreen, fetchCoach(m.client))
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.mainMenu.SetSize(msg.Width-h, msg.Height-v-4)
		m.inventory.SetSize(msg.Width-h, msg.Height-v-6)
	case tea.KeyMsg:
		if m.inputting() {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.textInput.Blur()
				m.currentView = "main"
				return m, nil
			case "enter":
				return m.submitInput()
			}
			var cmd tea.Cmd
			m.textInput, cmd = m.textInput.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			m.error, m.message = "", ""
			switch m.currentView {
			case "waste_reason":
				m.currentView = "inventory"
			case "main":
			default:
				m.currentView = "main"
				return m, fetchCoach(m.client)
			}
			return m, nil
		case "enter":
			switch m.currentView {
			case "main":
				return m.openMenuItem()
			case "waste_reason":
				if reason, ok := m.reasons.SelectedItem().(item); ok && m.wasting != nil {
					id := m.wasting.id
					m.wasting = nil
					m.currentView = "inventory"
					m.loading = true
					return m, logWaste(m.client, id, reason.title)
				}
			case "scan_review":
				if m.scan != nil && len(m.scan.Items) > 0 {
					m.loading = true
					return m, importItems(m.client, m.scan.Items)
				}
			}
		case "w":
			if m.currentView == "inventory" {
				if selected, ok := m.inventory.SelectedItem().(inventoryItem); ok {
					m.wasting = &selected
					m.currentView = "waste_reason"
				}
				return m, nil
			}
		case "c":
			if m.currentView == "inventory" {
				if selected, ok := m.inventory.SelectedItem().(inventoryItem); ok {
					m.loading = true
					return m, markConsumed(m.client, selected.id, selected.title)
				}
				return m, nil
			}
		case "r":
			if m.currentView == "inventory" {
				return m, fetchItems(m.client)
			}
		}
	case itemsMsg:
		m.loading = false
		m.inventory.SetItems(convertItemsToListItems(msg.items))
		return m, nil
	case wasteLogMsg:
		m.loading = false
		m.wasteTable.SetRows(convertWasteToRows(msg.records))
		return m, nil
	case statsMsg:
		m.loading = false
		m.totals = msg.totals
		m.statsTable.SetRows(convertSharesToRows(msg.shares))
		return m, nil
	case coachMsg:
		m.coach = msg.message
		return m, nil
	case scanMsg:
		m.loading = false
		m.scan = msg.result
		m.currentView = "scan_review"
		return m, nil
	case errorMsg:
		m.loading = false
		m.error = msg.err
		return m, nil
	case confirmMsg:
		m.loading = false
		m.error = ""
		m.message = msg.message
		if m.currentView == "scan_review" {
			m.scan = nil
			m.currentView = "inventory"
		}
		return m, fetchItems(m.client)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.currentView {
	case "main":
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case "inventory":
		m.inventory, cmd = m.inventory.Update(msg)
	case "waste_reason":
		m.reasons, cmd = m.reasons.Update(msg)
	case "waste_log":
		m.wasteTable, cmd = m.wasteTable.Update(msg)
	}
	return m, cmd
}

func (m Model) inputting() bool {
	return m.currentView == "add_item" || m.currentView == "scan"
}

// openMenuItem switches to the selected main menu view
func (m Model) openMenuItem() (tea.Model, tea.Cmd) {
	selected, ok := m.mainMenu.SelectedItem().(item)
	if !ok {
		return m, nil
	}
	m.error, m.message = "", ""

	switch selected.title {
	case "Exit":
		return m, tea.Quit
	case "Inventory":
		m.currentView = "inventory"
		m.loading = true
		return m, fetchItems(m.client)
	case "Add Item":
		m.currentView = "add_item"
		m.textInput.Placeholder = "Milk, dairy, 1, items, 2024-03-22"
		m.textInput.SetValue("")
		return m, m.textInput.Focus()
	case "Scan Receipt":
		m.currentView = "scan"
		m.textInput.Placeholder = "path/to/receipt.jpg"
		m.textInput.SetValue("")
		return m, m.textInput.Focus()
	case "Waste Log":
		m.currentView = "waste_log"
		m.loading = true
		return m, fetchWasteLog(m.client)
	case "Impact":
		m.currentView = "stats"
		m.loading = true
		return m, fetchStats(m.client)
	}
	return m, nil
}

// submitInput handles enter in a text input view
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.textInput.Value())
	if value == "" {
		m.error = "Please enter a value"
		return m, nil
	}
	m.error = ""

	switch m.currentView {
	case "add_item":
		draft, err := parseDraft(value)
		if err != nil {
			m.error = err.Error()
			return m, nil
		}
		m.textInput.SetValue("")
		m.loading = true
		return m, addItem(m.client, draft)
	case "scan":
		m.textInput.Blur()
		m.loading = true
		return m, scanReceipt(m.client, value)
	}
	return m, nil
}

// parseDraft reads "name, category, quantity, unit, expiration". Only the
// name and expiration are required: "Milk, 2024-03-22" is accepted.
func parseDraft(input string) (Draft, error) {
	parts := strings.Split(input, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch len(parts) {
	case 2:
		return Draft{Name: parts[0], Quantity: 1, ExpirationDate: parts[1]}, nil
	case 5:
		quantity, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return Draft{}, fmt.Errorf("quantity %q is not a number", parts[2])
		}
		return Draft{
			Name:           parts[0],
			Category:       parts[1],
			Quantity:       quantity,
			Unit:           parts[3],
			ExpirationDate: parts[4],
		}, nil
	default:
		return Draft{}, fmt.Errorf("expected <name>, <category>, <quantity>, <unit>, <YYYY-MM-DD>")
	}
}

// View renders the UI
func (m Model) View() string {
	var footer string
	if m.loading {
		footer += "\n" + m.spinner.View() + " Working..."
	}
	if m.message != "" {
		footer += "\n" + successStyle.Render(m.message)
	}
	if m.error != "" {
		footer += "\n" + errorStyle.Render(m.error)
	}

	switch m.currentView {
	case "main":
		view := m.mainMenu.View()
		if m.coach != "" {
			view += "\n" + infoStyle.Render("Penny") + " " + m.coach
		}
		return docStyle.Render(view + footer)
	case "inventory":
		help := "\n'w' waste, 'c' used it, 'r' refresh, 'esc' back"
		return docStyle.Render(m.inventory.View() + help + footer)
	case "waste_reason":
		title := ""
		if m.wasting != nil {
			title = titleStyle.Render("Waste: "+m.wasting.title) + "\n\n"
		}
		return docStyle.Render(title + m.reasons.View() + footer)
	case "add_item":
		help := "\nFormat: <name>, <category>, <quantity>, <unit>, <YYYY-MM-DD>\nPress 'enter' to add, 'esc' to go back\n"
		return docStyle.Render(titleStyle.Render("Add Item") + "\n\n" + m.textInput.View() + help + footer)
	case "scan":
		help := "\nPath to a JPEG, PNG, WebP or GIF photo of the receipt. 'enter' to scan, 'esc' to go back\n"
		return docStyle.Render(titleStyle.Render("Scan Receipt") + "\n\n" + m.textInput.View() + help + footer)
	case "scan_review":
		return docStyle.Render(scanReviewView(m.scan) + footer)
	case "waste_log":
		return docStyle.Render(titleStyle.Render("Waste Log") + "\n\n" + m.wasteTable.View() + "\n'esc' back" + footer)
	case "stats":
		return docStyle.Render(statsView(m.totals) + "\n" + m.statsTable.View() + "\n'esc' back" + footer)
	default:
		return "Loading..."
	}
}

// Custom message types for the tea.Model
type itemsMsg struct {
	items []Item
}

type wasteLogMsg struct {
	records []WasteRecord
}

type statsMsg struct {
	totals *Totals
	shares []Share
}

type coachMsg struct {
	message string
}

type scanMsg struct {
	result *ScanResult
}

type errorMsg struct {
	err string
}

type confirmMsg struct {
	message string
}

// fetchItems retrieves the inventory from the API
func fetchItems(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		items, err := client.GetItems()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching items: %v", err)}
		}
		return itemsMsg{items: items}
	}
}

func fetchWasteLog(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		records, err := client.GetWasteLog()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching waste log: %v", err)}
		}
		return wasteLogMsg{records: records}
	}
}

func fetchStats(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		totals, err := client.GetTotals()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching stats: %v", err)}
		}
		shares, err := client.GetCategoryBreakdown()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching breakdown: %v", err)}
		}
		return statsMsg{totals: totals, shares: shares}
	}
}

func fetchCoach(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		message, err := client.GetCoachMessage()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("API server at %s is not available: %v", client.BaseURL, err)}
		}
		return coachMsg{message: message}
	}
}

func addItem(client *ApiClient, draft Draft) tea.Cmd {
	return func() tea.Msg {
		created, err := client.AddItem(draft)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error adding item: %v", err)}
		}
		return confirmMsg{message: fmt.Sprintf("Added %s", created.Name)}
	}
}

func logWaste(client *ApiClient, id, reason string) tea.Cmd {
	return func() tea.Msg {
		record, err := client.LogWaste(id, 0, reason)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error logging waste: %v", err)}
		}
		return confirmMsg{message: fmt.Sprintf("Logged %s as wasted ($%.2f, %.1f kg CO2)", record.ItemName, record.EstimatedCost, record.CO2)}
	}
}

func markConsumed(client *ApiClient, id, name string) tea.Cmd {
	return func() tea.Msg {
		if err := client.MarkConsumed(id); err != nil {
			return errorMsg{err: fmt.Sprintf("Error marking item used: %v", err)}
		}
		return confirmMsg{message: fmt.Sprintf("Great job using %s!", name)}
	}
}

func scanReceipt(client *ApiClient, path string) tea.Cmd {
	return func() tea.Msg {
		result, err := client.ScanReceipt(path)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error scanning receipt: %v", err)}
		}
		return scanMsg{result: result}
	}
}

func importItems(client *ApiClient, drafts []Draft) tea.Cmd {
	return func() tea.Msg {
		result, err := client.ImportItems(drafts)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error importing items: %v", err)}
		}
		msg := fmt.Sprintf("Added %d items from the receipt", len(result.Added))
		if len(result.Rejected) > 0 {
			msg += fmt.Sprintf(", skipped %d", len(result.Rejected))
		}
		return confirmMsg{message: msg}
	}
}

// convertItemsToListItems converts API items to list items
func convertItemsToListItems(items []Item) []list.Item {
	out := make([]list.Item, len(items))
	for i, it := range items {
		style, ok := statusStyles[it.Status]
		if !ok {
			style = lipgloss.NewStyle()
		}
		out[i] = inventoryItem{
			id:       it.ID,
			title:    it.Name,
			desc:     fmt.Sprintf("%s · %g %s · %s", it.Category, it.Quantity, it.Unit, style.Render(daysLabel(it.DaysLeft))),
			quantity: it.Quantity,
		}
	}
	return out
}

func daysLabel(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("expired %d days ago", -days)
	case days == 0:
		return "expires today"
	case days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}

func convertWasteToRows(records []WasteRecord) []table.Row {
	rows := make([]table.Row, len(records))
	for i, r := range records {
		rows[i] = table.Row{
			r.Date.Format("2006-01-02"),
			r.ItemName,
			r.Reason,
			fmt.Sprintf("$%.2f", r.EstimatedCost),
			fmt.Sprintf("%.1f", r.CO2),
		}
	}
	return rows
}

func convertSharesToRows(shares []Share) []table.Row {
	rows := make([]table.Row, len(shares))
	for i, s := range shares {
		rows[i] = table.Row{s.Key, fmt.Sprintf("$%.2f", s.Value), fmt.Sprintf("%.0f%%", s.Percent)}
	}
	return rows
}

// statsView renders the impact totals
func statsView(t *Totals) string {
	view := titleStyle.Render("Impact") + "\n\n"
	if t == nil {
		return view + "No data yet\n"
	}
	view += fmt.Sprintf("Wasted: %d items, $%.2f, %.1f kg CO2\n", t.WastedCount, t.WastedCost, t.WastedCO2)
	view += fmt.Sprintf("Saved:  %d items, $%.2f, %.1f kg CO2\n", t.ConsumedCount, t.SavedCost, t.SavedCO2)
	view += fmt.Sprintf("Success rate: %.0f%%\n", t.SuccessRate*100)
	return view
}

// scanReviewView lists the scanned items before they are imported
func scanReviewView(result *ScanResult) string {
	view := titleStyle.Render("Receipt Items") + "\n\n"
	if result == nil || len(result.Items) == 0 {
		view += "No food items found on the receipt\n"
	} else {
		for i, d := range result.Items {
			exp := d.ExpirationDate
			if len(exp) >= 10 {
				exp = exp[:10]
			}
			view += fmt.Sprintf("%d. %s (%g %s, %s) expires %s\n", i+1, d.Name, d.Quantity, d.Unit, d.Category, exp)
		}
	}
	if result != nil && len(result.Rejected) > 0 {
		view += "\nSkipped:\n"
		for _, r := range result.Rejected {
			view += fmt.Sprintf("• %s: %s\n", r.Name, r.Reason)
		}
	}
	view += "\nPress 'enter' to add these items, 'esc' to discard"
	return view
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}
