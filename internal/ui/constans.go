package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

const listHeight = 14
const defaultWidth = 20

var (
	appStyle          = lipgloss.NewStyle()
	titleStyle        = lipgloss.NewStyle().MarginTop(1).Bold(true)
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	paneTitleStyle    = lipgloss.NewStyle().Bold(true).PaddingLeft(1)
	paneStyle         = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	paginationStyle   = list.DefaultStyles().PaginationStyle
	helpStyle         = list.DefaultStyles().HelpStyle.PaddingBottom(1)
)
