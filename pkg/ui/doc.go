// Package ui renders xhsclient command output: note lists, comments,
// profiles and token service statistics, a page progress line and
// desktop notifications. Styling uses lipgloss and degrades to plain
// text when the output is not a terminal.
package ui
